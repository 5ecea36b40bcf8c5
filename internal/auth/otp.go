package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
)

// OTPDigits is the fixed length of generated codes.
const OTPDigits = 6

// OTPGenerator mints numeric one-time codes. It holds no state besides the expiry windows.
type OTPGenerator struct {
	verifyTTL time.Duration
	resetTTL  time.Duration
}

// NewOTPGenerator builds a generator with per-purpose lifetimes.
func NewOTPGenerator(verifyTTL, resetTTL time.Duration) *OTPGenerator {
	if verifyTTL <= 0 {
		verifyTTL = 24 * time.Hour
	}
	if resetTTL <= 0 {
		resetTTL = 15 * time.Minute
	}
	return &OTPGenerator{verifyTTL: verifyTTL, resetTTL: resetTTL}
}

// Generate returns a uniformly random code of OTPDigits digits.
func (g *OTPGenerator) Generate() (string, error) {
	var b strings.Builder
	b.Grow(OTPDigits)

	max := big.NewInt(10)
	for i := 0; i < OTPDigits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// ExpiryFor returns how long a code for the purpose stays valid.
func (g *OTPGenerator) ExpiryFor(purpose domain.OTPPurpose) time.Duration {
	if purpose == domain.OTPPurposeResetPassword {
		return g.resetTTL
	}
	return g.verifyTTL
}

// OTPMatches compares a submitted code to the stored one in constant time.
func OTPMatches(stored, submitted string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}
