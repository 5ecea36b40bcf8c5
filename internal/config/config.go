package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DevJWTSecret is the fallback signing secret outside production.
	DevJWTSecret = "dev-secret"

	EnvProduction = "production"

	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	SQLite       SQLiteConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Throttle     ThrottleConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects the account store backend.
type StoreConfig struct {
	Driver         string
	TimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// SQLiteConfig holds the embedded database location.
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds the connection values of the throttle's Redis.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	KeyPrefix      string
	TimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
	Service  string
	Env      string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret            string
	SessionTTLHours      int
	VerifyOTPTTLMinutes  int
	ResetOTPTTLMinutes   int
	BcryptCost           int
	AdminRegistrationKey string
	CookieSecure         bool
	CookieSameSite       string
}

// ThrottleConfig controls Redis backed attempt limiting.
type ThrottleConfig struct {
	Enabled       bool
	MaxAttempts   int
	WindowMinutes int
}

// NotificationConfig holds outbound mail settings.
type NotificationConfig struct {
	EmailFrom      string
	SMTPAddr       string
	SMTPUser       string
	SMTPPassword   string
	SMTPTLS        string
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	env := getEnv("APP_ENV", "development")
	production := env == EnvProduction

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "identity-service"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver:         strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
			TimeoutSeconds: getEnvAsInt("STORE_TIMEOUT_SECONDS", 5),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "identity.db"),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			KeyPrefix:      getEnv("REDIS_KEY_PREFIX", "idt"),
			TimeoutSeconds: getEnvAsInt("REDIS_TIMEOUT_SECONDS", 2),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
			Service:  getEnv("APP_NAME", "identity-service"),
			Env:      env,
		},
		Auth: AuthConfig{
			JWTSecret:            getEnv("AUTH_JWT_SECRET", DevJWTSecret),
			SessionTTLHours:      getEnvAsInt("AUTH_SESSION_TTL_HOURS", 7*24),
			VerifyOTPTTLMinutes:  getEnvAsInt("AUTH_VERIFY_OTP_TTL_MINUTES", 24*60),
			ResetOTPTTLMinutes:   getEnvAsInt("AUTH_RESET_OTP_TTL_MINUTES", 15),
			BcryptCost:           getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminRegistrationKey: os.Getenv("AUTH_ADMIN_REGISTRATION_KEY"),
			CookieSecure:         getEnvAsBool("AUTH_COOKIE_SECURE", production),
			CookieSameSite:       getEnv("AUTH_COOKIE_SAMESITE", sameSiteFor(production)),
		},
		Throttle: ThrottleConfig{
			Enabled:       getEnvAsBool("AUTH_THROTTLE_ENABLED", false),
			MaxAttempts:   getEnvAsInt("AUTH_THROTTLE_MAX_ATTEMPTS", 5),
			WindowMinutes: getEnvAsInt("AUTH_THROTTLE_WINDOW_MINUTES", 15),
		},
		Notification: NotificationConfig{
			EmailFrom:      getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			SMTPAddr:       os.Getenv("NOTIFY_SMTP_ADDR"),
			SMTPUser:       os.Getenv("NOTIFY_SMTP_USER"),
			SMTPPassword:   os.Getenv("NOTIFY_SMTP_PASSWORD"),
			SMTPTLS:        getEnv("NOTIFY_SMTP_TLS", "mandatory"),
			TimeoutSeconds: getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 10),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.App.Env == EnvProduction && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DevJWTSecret) {
		return errors.New("AUTH_JWT_SECRET must be set in production")
	}
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverSQLite:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Store.Driver == StoreDriverPostgres && c.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required for the postgres store")
	}
	return nil
}

func sameSiteFor(production bool) string {
	if production {
		return "None"
	}
	return "Lax"
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout bounds a single store call.
func (s StoreConfig) Timeout() time.Duration {
	return secondsOr(s.TimeoutSeconds, 5*time.Second)
}

// SessionTTL is the lifetime of a session token and its cookie.
func (a AuthConfig) SessionTTL() time.Duration {
	if a.SessionTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(a.SessionTTLHours) * time.Hour
}

// VerifyOTPTTL is the lifetime of an email verification code.
func (a AuthConfig) VerifyOTPTTL() time.Duration {
	if a.VerifyOTPTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.VerifyOTPTTLMinutes) * time.Minute
}

// ResetOTPTTL is the lifetime of a password reset code.
func (a AuthConfig) ResetOTPTTL() time.Duration {
	if a.ResetOTPTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(a.ResetOTPTTLMinutes) * time.Minute
}

// Timeout bounds dial, read and write on the Redis connection.
func (r RedisConfig) Timeout() time.Duration {
	return secondsOr(r.TimeoutSeconds, 2*time.Second)
}

// Window is the fixed throttle window.
func (t ThrottleConfig) Window() time.Duration {
	if t.WindowMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(t.WindowMinutes) * time.Minute
}

// Timeout bounds a single notification delivery.
func (n NotificationConfig) Timeout() time.Duration {
	return secondsOr(n.TimeoutSeconds, 10*time.Second)
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
