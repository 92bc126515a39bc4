package mocks

import (
	"context"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockUserRepository implements domain.UserRepository interface for testing
type MockUserRepository struct {
	CreateFunc      func(ctx context.Context, user *domain.User) error
	FindByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
	FindByIDFunc    func(ctx context.Context, id uint) (*domain.User, error)
	UpdateByIDFunc  func(ctx context.Context, id uint, update domain.UserUpdate, validate bool) (*domain.User, error)
	DeleteByIDFunc  func(ctx context.Context, id uint) (*domain.User, error)
	SaveFunc        func(ctx context.Context, user *domain.User, validate bool) error
	ConsumeOTPFunc  func(ctx context.Context, id uint, code string, now time.Time) error
}

// NewMockUserRepository creates a new MockUserRepository with default behaviors
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

// Create creates a new user
func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	// Default behavior: success
	return nil
}

// FindByEmail finds a user by email
func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// FindByID finds a user by ID
func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// UpdateByID applies a partial update
func (m *MockUserRepository) UpdateByID(ctx context.Context, id uint, update domain.UserUpdate, validate bool) (*domain.User, error) {
	if m.UpdateByIDFunc != nil {
		return m.UpdateByIDFunc(ctx, id, update, validate)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// DeleteByID removes a user
func (m *MockUserRepository) DeleteByID(ctx context.Context, id uint) (*domain.User, error) {
	if m.DeleteByIDFunc != nil {
		return m.DeleteByIDFunc(ctx, id)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// Save persists a loaded user
func (m *MockUserRepository) Save(ctx context.Context, user *domain.User, validate bool) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, user, validate)
	}
	// Default behavior: success
	return nil
}

// ConsumeOTP clears a matching pending code
func (m *MockUserRepository) ConsumeOTP(ctx context.Context, id uint, code string, now time.Time) error {
	if m.ConsumeOTPFunc != nil {
		return m.ConsumeOTPFunc(ctx, id, code, now)
	}
	// Default behavior: invalid
	return domain.ErrOTPInvalid
}

// Compile-time interface compliance verification
var _ domain.UserRepository = (*MockUserRepository)(nil)
