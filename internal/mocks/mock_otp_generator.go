package mocks

import (
	"fmt"
	"sync"

	"github.com/you/accountsvc/domain"
)

// MockOTPGenerator implements domain.OTPGenerator interface for testing
type MockOTPGenerator struct {
	GenerateFunc func() (string, error)

	mu    sync.Mutex
	count int
}

// NewMockOTPGenerator creates a new MockOTPGenerator with default behaviors
func NewMockOTPGenerator() *MockOTPGenerator {
	return &MockOTPGenerator{}
}

// Generate returns the next code
func (m *MockOTPGenerator) Generate() (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	// Default behavior: sequential six digit codes
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return fmt.Sprintf("%06d", 100000+m.count), nil
}

// Compile-time interface compliance verification
var _ domain.OTPGenerator = (*MockOTPGenerator)(nil)
