package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/accountsvc/domain"
)

// SessionRepositoryImpl implements domain.SessionRepository using Redis
type SessionRepositoryImpl struct {
	client *redis.Client
	prefix string
	clock  domain.Clock
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(client *redis.Client, clock domain.Clock) domain.SessionRepository {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &SessionRepositoryImpl{
		client: client,
		prefix: "session:",
		clock:  clock,
	}
}

// Create implements domain.SessionRepository. The key lives until the
// session's own expiry.
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	ttl := session.ExpiresAt.Sub(r.clock.Now())
	if ttl <= 0 {
		return domain.ErrSessionExpired
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return r.client.Set(ctx, r.prefix+session.ID, data, ttl).Err()
}

// FindByID implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	key := r.prefix + sessionID
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if !session.ExpiresAt.After(r.clock.Now()) {
		r.client.Del(ctx, key)
		return nil, domain.ErrSessionExpired
	}

	return &session, nil
}

// Delete implements domain.SessionRepository. Deleting a missing session is not an error.
func (r *SessionRepositoryImpl) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.prefix+sessionID).Err()
}

// RevocationRepositoryImpl implements domain.RevocationRepository using Redis
type RevocationRepositoryImpl struct {
	client *redis.Client
	prefix string
	clock  domain.Clock
}

// NewRevocationRepository creates a new revocation list
func NewRevocationRepository(client *redis.Client, clock domain.Clock) domain.RevocationRepository {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &RevocationRepositoryImpl{
		client: client,
		prefix: "revoked:",
		clock:  clock,
	}
}

// Revoke implements domain.RevocationRepository. Entries expire with the token.
func (r *RevocationRepositoryImpl) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+tokenID, 1, ttl).Err()
}

// IsRevoked implements domain.RevocationRepository
func (r *RevocationRepositoryImpl) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
