package mail

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/quotedprintable"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/flashlet-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relay is a minimal SMTP server that accepts every command and records
// the DATA payload of each message.
type relay struct {
	ln       net.Listener
	mu       sync.Mutex
	messages []string
}

func newRelay(t *testing.T) *relay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	r := &relay{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go r.serve(conn)
		}
	}()
	return r
}

func (r *relay) serve(conn net.Conn) {
	defer conn.Close()
	rd := bufio.NewReader(conn)
	reply := func(line string) { _, _ = io.WriteString(conn, line+"\r\n") }

	reply("220 relay.test ESMTP")
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.Fields(line + " x")[0])
		switch verb {
		case "DATA":
			reply("354 go ahead")
			var data strings.Builder
			for {
				l, err := rd.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				data.WriteString(l)
			}
			r.mu.Lock()
			r.messages = append(r.messages, data.String())
			r.mu.Unlock()
			reply("250 queued")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 relay.test")
		}
	}
}

func (r *relay) port(t *testing.T) int {
	t.Helper()
	_, port, err := net.SplitHostPort(r.ln.Addr().String())
	require.NoError(t, err)
	n, err := strconv.Atoi(port)
	require.NoError(t, err)
	return n
}

func (r *relay) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// htmlBody decodes the quoted-printable body of a single-part message.
func htmlBody(t *testing.T, raw string) string {
	t.Helper()
	_, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok, "message has a body")
	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(body)))
	require.NoError(t, err)
	return string(decoded)
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	msg, err := buildMessage("no-reply@flashlet.app", "a@x.com", resetSubject,
		resetData{Name: "<Test>", URL: "https://api/v1/users/password/reset?token=abc"})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.Contains(t, raw, "Subject: Reset your password\r\n")
	assert.Contains(t, raw, "<a@x.com>")
	assert.Contains(t, raw, "text/html")
	body := htmlBody(t, raw)
	assert.Contains(t, body, `href="https://api/v1/users/password/reset?token=abc"`)
	assert.Contains(t, body, "Hi &lt;Test&gt;", "names are HTML-escaped")

	_, err = buildMessage("no-reply@flashlet.app", "not an address", resetSubject, resetData{})
	assert.ErrorContains(t, err, "invalid recipient address")
}

func TestSMTPMailer_SendPasswordReset(t *testing.T) {
	t.Parallel()
	r := newRelay(t)
	m, err := NewSMTPMailer(config.MailConfig{
		SMTPHost: "127.0.0.1",
		SMTPPort: r.port(t),
		From:     "no-reply@flashlet.app",
	}, nil)
	require.NoError(t, err)

	err = m.SendPasswordReset(context.Background(), "a@x.com", "Ann", "https://api/v1/users/password/reset?token=abc")
	require.NoError(t, err)

	received := r.received()
	require.Len(t, received, 1)
	assert.Contains(t, received[0], "Subject: Reset your password\r\n")
	assert.Contains(t, htmlBody(t, received[0]), "token=abc")
}

func TestSMTPMailer_StalledRelayTimesOut(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	// Accept the connection and never greet.
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	var logs bytes.Buffer
	m, err := NewSMTPMailer(config.MailConfig{
		SMTPHost:       "127.0.0.1",
		SMTPPort:       portNum,
		From:           "no-reply@flashlet.app",
		TimeoutSeconds: 30,
	}, slog.New(slog.NewJSONHandler(&logs, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = m.SendPasswordReset(ctx, "a@x.com", "A", "https://x/reset?token=live")
	elapsed := time.Since(start)
	if conn, ok := <-accepted; ok {
		_ = conn.Close()
	}

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to send password reset email")
	assert.Less(t, elapsed, 5*time.Second, "request context bounds the send")
	assert.Contains(t, logs.String(), "failed to send password reset email")
	assert.NotContains(t, logs.String(), "token=live")
}

func TestNewSMTPMailer_DefaultTimeout(t *testing.T) {
	t.Parallel()
	m, err := NewSMTPMailer(config.MailConfig{SMTPHost: "localhost", SMTPPort: 25, From: "a@b.co"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, m.timeout)
}

func TestLogMailer_DoesNotLogLink(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, m.SendPasswordReset(context.Background(), "a@x.com", "A", "https://x/reset?token=live"))

	assert.Contains(t, buf.String(), "password reset email not sent")
	assert.NotContains(t, buf.String(), "token=live")
	assert.NotContains(t, buf.String(), "a@x.com")
}
