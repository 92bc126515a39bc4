package domain

import "unicode/utf8"

// Password length bounds. bcrypt reads at most MaxPasswordBytes bytes.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

// ValidatePassword checks the composite password policy: at least
// MinPasswordLength characters, one ASCII letter, one digit and one
// character that is not an ASCII letter or digit. Passwords longer than
// MaxPasswordBytes bytes get their own message.
func ValidatePassword(password string) error {
	if len(password) > MaxPasswordBytes {
		return NewValidationError(MsgPasswordTooLong)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return NewValidationError(MsgPasswordPolicy)
	}

	var hasLetter, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if !hasLetter || !hasDigit || !hasSymbol {
		return NewValidationError(MsgPasswordPolicy)
	}
	return nil
}
