package mocks

import (
	"context"
	"sync"

	"github.com/you/accountsvc/domain"
)

// SentEmail is one captured SendEmail call
type SentEmail struct {
	To      string
	Subject string
	HTML    string
}

// MockNotificationService implements domain.NotificationService interface for testing.
// Every call is captured in Sent, whatever SendEmailFunc returns.
type MockNotificationService struct {
	SendEmailFunc func(ctx context.Context, to, subject, htmlBody string) error

	mu   sync.Mutex
	sent []SentEmail
}

// NewMockNotificationService creates a new MockNotificationService with default behaviors
func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

// SendEmail sends an email message
func (m *MockNotificationService) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, HTML: htmlBody})
	m.mu.Unlock()

	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, to, subject, htmlBody)
	}
	// Default behavior: success (no actual email sent in tests)
	return nil
}

// Sent returns a copy of the captured messages
func (m *MockNotificationService) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.sent...)
}

// Last returns the most recent captured message
func (m *MockNotificationService) Last() (SentEmail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentEmail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// Compile-time interface compliance verification
var _ domain.NotificationService = (*MockNotificationService)(nil)
