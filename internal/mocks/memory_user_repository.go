package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/you/accountsvc/domain"
)

// InMemoryUserRepository is a map-backed domain.UserRepository with the same
// uniqueness and otp semantics as the gorm repository.
type InMemoryUserRepository struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*domain.User
}

// NewInMemoryUserRepository creates an empty store
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{users: make(map[uint]*domain.User)}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *InMemoryUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *InMemoryUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *InMemoryUserRepository) UpdateByID(ctx context.Context, id uint, update domain.UserUpdate, validate bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	updated := cloneUser(u)
	update.Apply(updated)
	if validate {
		if err := updated.Validate(); err != nil {
			return nil, err
		}
	}
	r.users[id] = updated
	return cloneUser(updated), nil
}

func (r *InMemoryUserRepository) DeleteByID(ctx context.Context, id uint) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	delete(r.users, id)
	return u, nil
}

func (r *InMemoryUserRepository) Save(ctx context.Context, user *domain.User, validate bool) error {
	if validate {
		if err := user.Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	pending := cloneUser(user)
	stored.OTP, stored.OTPExpires = pending.OTP, pending.OTPExpires
	return nil
}

func (r *InMemoryUserRepository) ConsumeOTP(ctx context.Context, id uint, code string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.OTPMatches(code, now) {
		return domain.ErrOTPInvalid
	}
	u.ClearOTP()
	return nil
}

// Count returns the number of stored users
func (r *InMemoryUserRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.OTP != nil {
		otp := *u.OTP
		c.OTP = &otp
	}
	if u.OTPExpires != nil {
		exp := *u.OTPExpires
		c.OTPExpires = &exp
	}
	return &c
}

var _ domain.UserRepository = (*InMemoryUserRepository)(nil)
