package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/identity-service/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	clock := newClock()
	tm := NewTokenManager("secret", 7*24*time.Hour, WithClock(clock.Now), WithIssuer("identity-service"))

	token, exp, err := tm.Issue("acc-1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(7*24*time.Hour), exp)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID())
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "identity-service", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_ExpiryBoundary(t *testing.T) {
	ttl := 7 * 24 * time.Hour
	clock := newClock()
	tm := NewTokenManager("secret", ttl, WithClock(clock.Now))

	token, _, err := tm.Issue("acc-1", domain.RoleUser)
	require.NoError(t, err)

	clock.Advance(ttl - time.Second)
	_, err = tm.Verify(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenManager_SubSecondIssueMatchesReportedExpiry(t *testing.T) {
	ttl := time.Hour
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 700_000_000, time.UTC)}
	tm := NewTokenManager("secret", ttl, WithClock(clock.Now))

	token, exp, err := tm.Issue("acc-1", domain.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC), exp)

	clock.now = exp.Add(-500 * time.Millisecond)
	_, err = tm.Verify(token)
	require.NoError(t, err)

	clock.now = exp
	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenManager_RejectsForeignTokens(t *testing.T) {
	clock := newClock()
	tm := NewTokenManager("secret", time.Hour, WithClock(clock.Now))
	other := NewTokenManager("other-secret", time.Hour, WithClock(clock.Now))

	foreign, _, err := other.Issue("acc-1", domain.RoleUser)
	require.NoError(t, err)

	claims := &Claims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc-1",
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             domain.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "acc-1"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             domain.Role("root"),
		RegisteredClaims: claims.RegisteredClaims,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":        "",
		"malformed":    "not.a.jwt",
		"wrong secret": foreign,
		"alg none":     unsigned,
		"other alg":    hs512,
		"no expiry":    noExpiry,
		"unknown role": badRole,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tm.Verify(token)
			assert.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}
}

func TestNewTokenManager_DefaultTTL(t *testing.T) {
	tm := NewTokenManager("secret", 0)
	assert.Equal(t, 7*24*time.Hour, tm.TTL())
}
