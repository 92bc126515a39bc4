package domain

import (
	"errors"
	"net/http"
)

// Repository and infrastructure errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrOTPInvalid        = errors.New("invalid or expired otp")
	ErrPasswordTooLong   = errors.New("password exceeds the hashable length")
)

// Token errors
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenRevoked   = errors.New("token has been revoked")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

// ErrorKind classifies failures surfaced to callers
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindConflict     ErrorKind = "conflict"
	KindInvalidOTP   ErrorKind = "invalid_otp"
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindDelivery     ErrorKind = "delivery"
	KindSession      ErrorKind = "session"
	KindInternal     ErrorKind = "internal"
)

// Caller-facing messages
const (
	MsgFieldsRequired     = "all fields are required"
	MsgPasswordPolicy     = "password must be at least 8 characters and contain at least one letter, one digit and one special character"
	MsgPasswordTooLong    = "password must be at most 72 bytes"
	MsgEmailInUse         = "email is already in use"
	MsgEmailOTPRequired   = "email and otp are required"
	MsgEmailRequired      = "email is required to resend the otp"
	MsgUserNotFound       = "user not found"
	MsgInvalidOTP         = "invalid or expired otp"
	MsgInvalidCredentials = "invalid credentials"
	MsgNoUpdateData       = "no data provided for update"
	MsgRegisterDelivery   = "failed to send the confirmation email, please try again"
	MsgResendDelivery     = "failed to send the otp, please try again"
	MsgLogoutFailed       = "logout failed"
	MsgInternal           = "internal server error"
	MsgAuthRequired       = "authentication required"
)

// AppError is a typed failure carrying an HTTP status and a message that is
// safe to show to the caller. Err keeps the underlying cause for logs.
type AppError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError of the same kind
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newAppError(kind ErrorKind, status int, msg string, cause error) *AppError {
	return &AppError{Kind: kind, Status: status, Message: msg, Err: cause}
}

func NewValidationError(msg string) *AppError {
	return newAppError(KindValidation, http.StatusBadRequest, msg, nil)
}

func NewConflictError(msg string) *AppError {
	return newAppError(KindConflict, http.StatusConflict, msg, nil)
}

// NewInvalidOTPError returns the single error used for both a wrong and an expired code
func NewInvalidOTPError() *AppError {
	return newAppError(KindInvalidOTP, http.StatusBadRequest, MsgInvalidOTP, nil)
}

// NewUnauthorizedError returns the generic credentials error
func NewUnauthorizedError() *AppError {
	return newAppError(KindUnauthorized, http.StatusUnauthorized, MsgInvalidCredentials, nil)
}

func NewNotFoundError(msg string) *AppError {
	return newAppError(KindNotFound, http.StatusNotFound, msg, nil)
}

func NewDeliveryError(msg string, cause error) *AppError {
	return newAppError(KindDelivery, http.StatusInternalServerError, msg, cause)
}

func NewSessionError(cause error) *AppError {
	return newAppError(KindSession, http.StatusInternalServerError, MsgLogoutFailed, cause)
}

// NewInternalError hides cause behind the generic server error message
func NewInternalError(cause error) *AppError {
	return newAppError(KindInternal, http.StatusInternalServerError, MsgInternal, cause)
}

// KindOf returns the kind of err, or KindInternal for untyped errors
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an AppError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
