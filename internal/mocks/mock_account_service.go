package mocks

import (
	"context"

	"github.com/you/accountsvc/domain"
)

// MockAccountService implements domain.AccountService interface for testing
type MockAccountService struct {
	RegisterFunc   func(ctx context.Context, input domain.RegisterInput) (*domain.User, error)
	VerifyOTPFunc  func(ctx context.Context, email, otp string) error
	ResendOTPFunc  func(ctx context.Context, email string) error
	LoginFunc      func(ctx context.Context, email, password string) (*domain.Session, error)
	IssueTokenFunc func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	UpdateUserFunc func(ctx context.Context, userID uint, input domain.UpdateInput) (*domain.User, error)
	DeleteUserFunc func(ctx context.Context, userID uint) error
	LogoutFunc     func(ctx context.Context, sessionID string, claims *domain.TokenClaims) error
	GetProfileFunc func(ctx context.Context, userID uint) (*domain.User, error)
}

// NewMockAccountService creates a new MockAccountService with default behaviors
func NewMockAccountService() *MockAccountService {
	return &MockAccountService{}
}

// Register registers a user
func (m *MockAccountService) Register(ctx context.Context, input domain.RegisterInput) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input)
	}
	// Default behavior: success
	return &domain.User{ID: 1, Name: input.Name, Email: input.Email}, nil
}

// VerifyOTP verifies a pending code
func (m *MockAccountService) VerifyOTP(ctx context.Context, email, otp string) error {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, email, otp)
	}
	return nil
}

// ResendOTP issues a fresh code
func (m *MockAccountService) ResendOTP(ctx context.Context, email string) error {
	if m.ResendOTPFunc != nil {
		return m.ResendOTPFunc(ctx, email)
	}
	return nil
}

// Login establishes a session
func (m *MockAccountService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	// Default behavior: invalid credentials
	return nil, domain.NewUnauthorizedError()
}

// IssueToken mints a bearer token
func (m *MockAccountService) IssueToken(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if m.IssueTokenFunc != nil {
		return m.IssueTokenFunc(ctx, email, password)
	}
	// Default behavior: invalid credentials
	return nil, domain.NewUnauthorizedError()
}

// UpdateUser updates the caller's account
func (m *MockAccountService) UpdateUser(ctx context.Context, userID uint, input domain.UpdateInput) (*domain.User, error) {
	if m.UpdateUserFunc != nil {
		return m.UpdateUserFunc(ctx, userID, input)
	}
	return nil, domain.NewNotFoundError(domain.MsgUserNotFound)
}

// DeleteUser removes the caller's account
func (m *MockAccountService) DeleteUser(ctx context.Context, userID uint) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, userID)
	}
	return nil
}

// Logout ends the caller's session
func (m *MockAccountService) Logout(ctx context.Context, sessionID string, claims *domain.TokenClaims) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sessionID, claims)
	}
	return nil
}

// GetProfile loads the caller's account
func (m *MockAccountService) GetProfile(ctx context.Context, userID uint) (*domain.User, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, userID)
	}
	return nil, domain.NewNotFoundError(domain.MsgUserNotFound)
}

// Compile-time interface compliance verification
var _ domain.AccountService = (*MockAccountService)(nil)
