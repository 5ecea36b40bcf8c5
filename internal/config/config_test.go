package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL())
	assert.Equal(t, 24*time.Hour, cfg.Auth.VerifyOTPTTL())
	assert.Equal(t, 15*time.Minute, cfg.Auth.ResetOTPTTL())
	assert.False(t, cfg.Auth.CookieSecure)
	assert.Equal(t, "Lax", cfg.Auth.CookieSameSite)
	assert.False(t, cfg.Throttle.Enabled)
}

func TestLoad_ProductionCookieFlags(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "a-real-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Auth.CookieSecure)
	assert.Equal(t, "None", cfg.Auth.CookieSameSite)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("AUTH_RESET_OTP_TTL_MINUTES", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ResetOTPTTL())
}
