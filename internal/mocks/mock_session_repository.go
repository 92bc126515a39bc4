package mocks

import (
	"context"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockSessionRepository implements domain.SessionRepository interface for testing
type MockSessionRepository struct {
	CreateFunc   func(ctx context.Context, session *domain.Session) error
	FindByIDFunc func(ctx context.Context, sessionID string) (*domain.Session, error)
	DeleteFunc   func(ctx context.Context, sessionID string) error
}

// NewMockSessionRepository creates a new MockSessionRepository with default behaviors
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

// Create creates a new session
func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	// Default behavior: success
	return nil
}

// FindByID finds a session by ID
func (m *MockSessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, sessionID)
	}
	// Default behavior: not found
	return nil, domain.ErrSessionNotFound
}

// Delete deletes a session by ID
func (m *MockSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, sessionID)
	}
	// Default behavior: success
	return nil
}

// MockRevocationRepository implements domain.RevocationRepository interface for testing
type MockRevocationRepository struct {
	RevokeFunc    func(ctx context.Context, tokenID string, until time.Time) error
	IsRevokedFunc func(ctx context.Context, tokenID string) (bool, error)
}

// NewMockRevocationRepository creates a new MockRevocationRepository with default behaviors
func NewMockRevocationRepository() *MockRevocationRepository {
	return &MockRevocationRepository{}
}

// Revoke marks a token id as revoked
func (m *MockRevocationRepository) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, tokenID, until)
	}
	// Default behavior: success
	return nil
}

// IsRevoked reports whether a token id is revoked
func (m *MockRevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if m.IsRevokedFunc != nil {
		return m.IsRevokedFunc(ctx, tokenID)
	}
	// Default behavior: not revoked
	return false, nil
}

// Compile-time interface compliance verification
var (
	_ domain.SessionRepository    = (*MockSessionRepository)(nil)
	_ domain.RevocationRepository = (*MockRevocationRepository)(nil)
)
