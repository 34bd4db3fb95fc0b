package mocks

import (
	"context"
	"sync"
)

// SentMail records one message passed to MockMailer.
type SentMail struct {
	To       string
	Name     string
	ResetURL string
}

// MockMailer records password reset emails instead of sending them.
type MockMailer struct {
	Err error

	mu   sync.Mutex
	sent []SentMail
}

// SendPasswordReset implements service.Mailer.
func (m *MockMailer) SendPasswordReset(_ context.Context, to, name, resetURL string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMail{To: to, Name: name, ResetURL: resetURL})
	return nil
}

// Sent returns the recorded messages.
func (m *MockMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}

// Last returns the most recent message, or false if none was sent.
func (m *MockMailer) Last() (SentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentMail{}, false
	}
	return m.sent[len(m.sent)-1], true
}
