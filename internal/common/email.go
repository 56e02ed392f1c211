package common

import "sync"

// EmailSender sends transactional mail. The concrete delivery mechanism
// lives behind this seam so the worker and tests can swap it freely.
type EmailSender interface {
	Send(to, subject, html string) error
}

// Email is one captured message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// InMemoryEmail records sent mail for assertions in tests. Safe for
// concurrent use since the worker sends from multiple goroutines.
type InMemoryEmail struct {
	mu     sync.Mutex
	outbox []Email
}

func (m *InMemoryEmail) Send(to, subject, html string) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox = append(m.outbox, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// Outbox returns a copy of everything sent so far.
func (m *InMemoryEmail) Outbox() []Email {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.outbox))
	copy(out, m.outbox)
	return out
}

// NopEmailSender drops mail. Used when outbound email is not configured.
type NopEmailSender struct{}

func (NopEmailSender) Send(string, string, string) error { return nil }
