package auth

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/identity-service/internal/domain"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestOTPGenerator_Generate(t *testing.T) {
	gen := NewOTPGenerator(0, 0)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestOTPGenerator_ExpiryFor(t *testing.T) {
	gen := NewOTPGenerator(0, 0)
	assert.Equal(t, 24*time.Hour, gen.ExpiryFor(domain.OTPPurposeVerifyEmail))
	assert.Equal(t, 15*time.Minute, gen.ExpiryFor(domain.OTPPurposeResetPassword))

	custom := NewOTPGenerator(time.Hour, time.Minute)
	assert.Equal(t, time.Hour, custom.ExpiryFor(domain.OTPPurposeVerifyEmail))
	assert.Equal(t, time.Minute, custom.ExpiryFor(domain.OTPPurposeResetPassword))
}

func TestOTPMatches(t *testing.T) {
	assert.True(t, OTPMatches("123456", "123456"))
	assert.False(t, OTPMatches("123456", "123457"))
	assert.False(t, OTPMatches("123456", "12345"))
	assert.False(t, OTPMatches("", ""))
}

func TestPassword_HashAndCompare(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	require.NoError(t, ComparePassword(hash, "hunter22"))

	err = ComparePassword(hash, "hunter23")
	require.Error(t, err)
	assert.True(t, IsMismatch(err))

	err = ComparePassword("not-a-hash", "hunter22")
	require.Error(t, err)
	assert.False(t, IsMismatch(err))
}
