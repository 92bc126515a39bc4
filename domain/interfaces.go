package domain

import (
	"context"
	"time"
)

// UserRepository defines user data access operations.
// Lookups return ErrUserNotFound when no record matches.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	UpdateByID(ctx context.Context, id uint, update UserUpdate, validate bool) (*User, error)
	DeleteByID(ctx context.Context, id uint) (*User, error)
	// Save writes the otp pair of a loaded user; other fields are left as stored.
	Save(ctx context.Context, user *User, validate bool) error
	// ConsumeOTP clears the pending code of the user only if it still equals
	// code and is unexpired at now. Returns ErrOTPInvalid otherwise.
	ConsumeOTP(ctx context.Context, id uint, code string, now time.Time) error
}

// SessionRepository defines server-side session operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// RevocationRepository tracks bearer tokens revoked before their expiry
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AccountService defines the account lifecycle business logic
type AccountService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	VerifyOTP(ctx context.Context, email, otp string) error
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*Session, error)
	IssueToken(ctx context.Context, email, password string) (*AuthResult, error)
	UpdateUser(ctx context.Context, userID uint, input UpdateInput) (*User, error)
	DeleteUser(ctx context.Context, userID uint) error
	Logout(ctx context.Context, sessionID string, claims *TokenClaims) error
	GetProfile(ctx context.Context, userID uint) (*User, error)
}

// RegisterInput carries the registration fields
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateInput carries the optional fields of a user update
type UpdateInput struct {
	Name     *string
	Password *string
}

// OTPGenerator produces one-time codes
type OTPGenerator interface {
	Generate() (string, error)
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines bearer token operations
type TokenService interface {
	Sign(userID uint) (token string, claims *TokenClaims, err error)
	Validate(token string) (*TokenClaims, error)
}

// NotificationService delivers messages to an email address
type NotificationService interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock
var SystemClock Clock = ClockFunc(time.Now)

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID    uint   `json:"id"`
	TokenID   string `json:"jti"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Expiry returns the expiry as a time
func (c *TokenClaims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}
