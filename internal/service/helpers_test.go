package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/limiter"
	"github.com/spec-kit/identity-service/internal/persistence"
	"github.com/spec-kit/identity-service/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// otpInbox captures codes delivered through the dispatcher.
type otpInbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (i *otpInbox) handle(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OTPIssuedPayload)
	if !ok {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[event.Recipient.Email+"|"+string(payload.Purpose)] = payload.Code
	return nil
}

func (i *otpInbox) code(email string, purpose domain.OTPPurpose) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.codes[email+"|"+string(purpose)]
}

type fixture struct {
	cfg        config.Config
	clock      *fakeClock
	accounts   repository.AccountRepository
	dispatcher events.Dispatcher
	inbox      *otpInbox
	attempts   *limiter.AttemptLimiter
	auth       *AuthService
	admin      *AdminService
}

func testConfig() config.Config {
	return config.Config{
		App:   config.AppConfig{Name: "identity-service"},
		Store: config.StoreConfig{Driver: config.StoreDriverSQLite, TimeoutSeconds: 5},
		Auth: config.AuthConfig{
			JWTSecret:           "test-secret",
			SessionTTLHours:     7 * 24,
			VerifyOTPTTLMinutes: 24 * 60,
			ResetOTPTTLMinutes:  15,
			BcryptCost:          4,
		},
	}
}

func newSQLiteAccounts(t *testing.T) repository.AccountRepository {
	t.Helper()
	ctx := context.Background()
	db, err := persistence.NewSQLite(ctx, config.SQLiteConfig{Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, persistence.RunMigrations(ctx, db.DB, config.StoreDriverSQLite, zap.NewNop()))
	return repository.NewSQLiteAccountRepository(db.DB)
}

func newFixture(t *testing.T, opts ...func(*fixture)) *fixture {
	t.Helper()
	f := &fixture{
		cfg:        testConfig(),
		clock:      &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		accounts:   newSQLiteAccounts(t),
		dispatcher: events.NewInMemoryDispatcher(),
		inbox:      &otpInbox{codes: map[string]string{}},
	}
	f.dispatcher.Subscribe(events.EventVerificationOTPIssued, f.inbox.handle)
	f.dispatcher.Subscribe(events.EventResetOTPIssued, f.inbox.handle)

	for _, opt := range opts {
		opt(f)
	}
	f.auth = NewAuthService(f.cfg, AuthDependencies{
		Accounts:   f.accounts,
		Limiter:    f.attempts,
		Dispatcher: f.dispatcher,
		Clock:      f.clock.Now,
	})
	f.admin = NewAdminService(f.cfg, f.accounts, f.dispatcher, zap.NewNop())
	f.admin.now = f.clock.Now
	return f
}

func (f *fixture) register(t *testing.T, name, email, password string) *domain.Account {
	t.Helper()
	account, _, err := f.auth.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return account
}
