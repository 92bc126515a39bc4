package mocks

import (
	"fmt"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	SignFunc     func(userID uint) (string, *domain.TokenClaims, error)
	ValidateFunc func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// Sign signs a token for the user
func (m *MockTokenService) Sign(userID uint) (string, *domain.TokenClaims, error) {
	if m.SignFunc != nil {
		return m.SignFunc(userID)
	}
	// Default behavior: return a mock token valid for one hour
	now := time.Now()
	claims := &domain.TokenClaims{
		UserID:    userID,
		TokenID:   fmt.Sprintf("jti_%d", userID),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
	return fmt.Sprintf("token_user_%d", userID), claims, nil
}

// Validate validates a token
func (m *MockTokenService) Validate(token string) (*domain.TokenClaims, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(token)
	}
	// Default behavior: invalid
	return nil, domain.ErrTokenInvalid
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
