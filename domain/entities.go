package domain

import (
	"net/mail"
	"strings"
	"time"
)

// User represents an account in the system.
// PasswordHash and the OTP pair never leave the service; use Public for responses.
type User struct {
	ID           uint       `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	OTP          *string    `json:"-"`
	OTPExpires   *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PublicUser is the redacted view of a User returned to callers
type PublicUser struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public returns the redacted view of the user
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Verified:  u.Verified(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// HasPendingOTP reports whether a one-time code is waiting to be verified
func (u *User) HasPendingOTP() bool {
	return u.OTP != nil && u.OTPExpires != nil
}

// Verified reports whether the account has no pending verification code
func (u *User) Verified() bool {
	return !u.HasPendingOTP()
}

// SetOTP sets the code and its deadline together
func (u *User) SetOTP(code string, expires time.Time) {
	u.OTP = &code
	u.OTPExpires = &expires
}

// ClearOTP removes the code and its deadline together
func (u *User) ClearOTP() {
	u.OTP = nil
	u.OTPExpires = nil
}

// OTPMatches reports whether code equals the pending code and the deadline
// has not been reached. A code is invalid at or after OTPExpires.
func (u *User) OTPMatches(code string, now time.Time) bool {
	if !u.HasPendingOTP() {
		return false
	}
	if *u.OTP != code {
		return false
	}
	return now.Before(*u.OTPExpires)
}

// Validate runs the full-document checks applied on validated writes
func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return NewValidationError("name is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return NewValidationError("email is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return NewValidationError("email is not a valid address")
	}
	if u.PasswordHash == "" {
		return NewValidationError("password is required")
	}
	if (u.OTP == nil) != (u.OTPExpires == nil) {
		return NewValidationError("otp and otp expiry must be set together")
	}
	return nil
}

// UserUpdate carries the mutable fields of a partial update; nil means unchanged
type UserUpdate struct {
	Name         *string
	PasswordHash *string
}

// Empty reports whether the update changes nothing
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.PasswordHash == nil
}

// Apply copies the supplied fields onto user
func (u UserUpdate) Apply(user *User) {
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
}

// Session represents a server-side browser session
type Session struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResult represents a successful bearer token issuance
type AuthResult struct {
	User      *User
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// OTPMessage is the content of a one-time code notification
type OTPMessage struct {
	To      string
	Subject string
	HTML    string
}
