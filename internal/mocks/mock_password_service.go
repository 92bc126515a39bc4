package mocks

import (
	"sync"

	"github.com/you/accountsvc/domain"
)

// MockPasswordService implements domain.PasswordService with a reversible
// "hashed_" prefix. Hashed inputs are recorded.
type MockPasswordService struct {
	HashFunc   func(password string) (string, error)
	VerifyFunc func(hashedPassword, password string) bool

	mu     sync.Mutex
	hashed []string
}

func NewMockPasswordService() *MockPasswordService {
	return &MockPasswordService{}
}

func (m *MockPasswordService) Hash(password string) (string, error) {
	m.mu.Lock()
	m.hashed = append(m.hashed, password)
	m.mu.Unlock()

	if m.HashFunc != nil {
		return m.HashFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *MockPasswordService) Verify(hashedPassword, password string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(hashedPassword, password)
	}
	return hashedPassword == "hashed_"+password
}

// HashCalls returns the plaintexts passed to Hash, oldest first
func (m *MockPasswordService) HashCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hashed...)
}

var _ domain.PasswordService = (*MockPasswordService)(nil)
