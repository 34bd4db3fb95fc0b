// Package mail delivers account emails. SMTPMailer sends through an SMTP
// relay; LogMailer only logs, for development setups without a relay.
package mail

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/phrazzld/flashlet-api/internal/config"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/redact"
)

const resetSubject = "Reset your password"

// DefaultTimeout bounds the relay connection when none is configured.
const DefaultTimeout = 10 * time.Second

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. The link below is valid for a limited time and can be used once.</p>
<p><a href="{{.URL}}">Reset password</a></p>
<p>If you did not ask for this, you can ignore this email.</p>
`))

type resetData struct {
	Name string
	URL  string
}

// SMTPMailer sends HTML email through an SMTP relay.
type SMTPMailer struct {
	client  *gomail.Client
	from    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewSMTPMailer creates a mailer for cfg. PLAIN auth is used when a
// username is configured, and STARTTLS whenever the relay offers it.
func NewSMTPMailer(cfg config.MailConfig, log *slog.Logger) (*SMTPMailer, error) {
	if log == nil {
		log = slog.Default()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	m := &SMTPMailer{
		from:    cfg.From,
		timeout: timeout,
		logger:  log.With(slog.String("component", "mailer")),
	}
	opts := []gomail.Option{
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithTimeout(timeout),
		gomail.WithDialContextFunc(m.dial),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	m.client = client
	return m, nil
}

// dial connects to the relay and puts a deadline on the connection, so a
// relay that accepts but never answers cannot hold the request.
func (m *SMTPMailer) dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// SendPasswordReset implements service.Mailer.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	msg, err := buildMessage(m.from, to, resetSubject, resetData{Name: name, URL: resetURL})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		logger.FromContextOrDefault(ctx, m.logger).Error("failed to send password reset email",
			slog.String("error", redact.Error(err)))
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject string, data resetData) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	if err := msg.SetBodyHTMLTemplate(resetTemplate, data); err != nil {
		return nil, fmt.Errorf("failed to render email: %w", err)
	}
	return msg, nil
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(log *slog.Logger) *LogMailer {
	if log == nil {
		log = slog.Default()
	}
	return &LogMailer{logger: log.With(slog.String("component", "mailer"))}
}

// SendPasswordReset implements service.Mailer. The link itself is not
// logged since it carries a live reset token.
func (m *LogMailer) SendPasswordReset(ctx context.Context, to, _, _ string) error {
	logger.FromContextOrDefault(ctx, m.logger).Info("password reset email not sent: no SMTP host configured",
		slog.String("to", redact.String(to)))
	return nil
}
