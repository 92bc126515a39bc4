package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/you/accountsvc/domain"
)

// DefaultOTPLength is used when no positive length is configured
const DefaultOTPLength = 6

// NumericOTPGenerator implements domain.OTPGenerator with crypto/rand digits
type NumericOTPGenerator struct {
	length int
}

// NewOTPGenerator creates a generator producing codes of the given length
func NewOTPGenerator(length int) domain.OTPGenerator {
	if length <= 0 {
		length = DefaultOTPLength
	}
	return &NumericOTPGenerator{length: length}
}

// Generate implements domain.OTPGenerator
func (g *NumericOTPGenerator) Generate() (string, error) {
	digits := make([]byte, g.length)

	for i := 0; i < g.length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + num.Int64())
	}

	return string(digits), nil
}
