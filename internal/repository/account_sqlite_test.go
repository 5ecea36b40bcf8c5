package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/persistence"
)

func newSQLiteRepo(t *testing.T) AccountRepository {
	t.Helper()
	ctx := context.Background()
	db, err := persistence.NewSQLite(ctx, config.SQLiteConfig{Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, persistence.RunMigrations(ctx, db.DB, config.StoreDriverSQLite, zap.NewNop()))
	return NewSQLiteAccountRepository(db.DB)
}

func newAccount(email string, role domain.Role) *domain.Account {
	return &domain.Account{Name: "Alice", Email: email, PasswordHash: "hash", Role: role}
}

func TestSQLiteAccountRepository_CreateAndFind(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	account := newAccount("alice@example.com", domain.RoleUser)
	require.NoError(t, repo.Create(ctx, account))
	assert.NotEmpty(t, account.ID)
	assert.False(t, account.CreatedAt.IsZero())

	byID, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
	assert.Equal(t, domain.RoleUser, byID.Role)
	assert.False(t, byID.Verified)
	assert.Nil(t, byID.VerifyOTPExpiresAt)

	byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, byEmail.ID)

	_, err = repo.FindByEmail(ctx, "ALICE@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteAccountRepository_DuplicateEmail(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAccount("alice@example.com", domain.RoleUser)))
	err := repo.Create(ctx, newAccount("alice@example.com", domain.RoleAdmin))
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestSQLiteAccountRepository_OTPState(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	account := newAccount("alice@example.com", domain.RoleUser)
	require.NoError(t, repo.Create(ctx, account))

	exp := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetOTP(ctx, account.ID, domain.OTPPurposeVerifyEmail, "123456", exp))
	require.NoError(t, repo.SetOTP(ctx, account.ID, domain.OTPPurposeResetPassword, "654321", exp.Add(time.Hour)))

	stored, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	code, storedExp := stored.OTP(domain.OTPPurposeVerifyEmail)
	assert.Equal(t, "123456", code)
	require.NotNil(t, storedExp)
	assert.True(t, exp.Equal(*storedExp))
	code, _ = stored.OTP(domain.OTPPurposeResetPassword)
	assert.Equal(t, "654321", code)

	// A stale code must not clear a newer one.
	require.NoError(t, repo.ClearOTP(ctx, account.ID, domain.OTPPurposeVerifyEmail, "000000"))
	stored, err = repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	code, _ = stored.OTP(domain.OTPPurposeVerifyEmail)
	assert.Equal(t, "123456", code)

	require.NoError(t, repo.ClearOTP(ctx, account.ID, domain.OTPPurposeVerifyEmail, "123456"))
	stored, err = repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	code, storedExp = stored.OTP(domain.OTPPurposeVerifyEmail)
	assert.Empty(t, code)
	assert.Nil(t, storedExp)
	code, _ = stored.OTP(domain.OTPPurposeResetPassword)
	assert.Equal(t, "654321", code)

	err = repo.SetOTP(ctx, account.ID, domain.OTPPurpose("bogus"), "1", exp)
	assert.Error(t, err)
}

func TestSQLiteAccountRepository_MarkVerifiedAndUpdatePassword(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	account := newAccount("alice@example.com", domain.RoleUser)
	require.NoError(t, repo.Create(ctx, account))
	exp := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetOTP(ctx, account.ID, domain.OTPPurposeVerifyEmail, "123456", exp))
	require.NoError(t, repo.SetOTP(ctx, account.ID, domain.OTPPurposeResetPassword, "654321", exp))

	require.NoError(t, repo.MarkVerified(ctx, account.ID))
	stored, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)
	assert.Empty(t, stored.VerifyOTP)
	assert.Equal(t, "654321", stored.ResetOTP)

	require.NoError(t, repo.UpdatePassword(ctx, account.ID, "new-hash"))
	stored, err = repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", stored.PasswordHash)
	assert.Empty(t, stored.ResetOTP)
	assert.Nil(t, stored.ResetOTPExpiresAt)
	assert.True(t, stored.Verified)
}

func TestSQLiteAccountRepository_UpdatesTouchOnlyTheirColumns(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	account := newAccount("alice@example.com", domain.RoleUser)
	require.NoError(t, repo.Create(ctx, account))

	blocked, err := repo.ToggleBlocked(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordLogin(ctx, account.ID, at))
	require.NoError(t, repo.UpdatePassword(ctx, account.ID, "new-hash"))

	stored, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Blocked)
	assert.Equal(t, "new-hash", stored.PasswordHash)
	require.NotNil(t, stored.LastLoginAt)
	assert.True(t, at.Equal(*stored.LastLoginAt))

	blocked, err = repo.ToggleBlocked(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, blocked)
	stored, err = repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", stored.PasswordHash)
	assert.False(t, stored.Blocked)
}

func TestSQLiteAccountRepository_UpdateMissing(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.RecordLogin(ctx, "missing", time.Now()), domain.ErrNotFound)
	assert.ErrorIs(t, repo.SetOTP(ctx, "missing", domain.OTPPurposeVerifyEmail, "1", time.Now()), domain.ErrNotFound)
	assert.ErrorIs(t, repo.MarkVerified(ctx, "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "hash"), domain.ErrNotFound)
	_, err := repo.ToggleBlocked(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteAccountRepository_ListAndStats(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	admin := newAccount("root@example.com", domain.RoleAdmin)
	require.NoError(t, repo.Create(ctx, admin))

	first := newAccount("a@example.com", domain.RoleUser)
	require.NoError(t, repo.Create(ctx, first))
	time.Sleep(2 * time.Millisecond)
	second := newAccount("b@example.com", domain.RoleUser)
	require.NoError(t, repo.Create(ctx, second))

	require.NoError(t, repo.MarkVerified(ctx, second.ID))
	_, err := repo.ToggleBlocked(ctx, first.ID)
	require.NoError(t, err)

	users, err := repo.ListByRole(ctx, domain.RoleUser)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, second.ID, users[0].ID)
	assert.Equal(t, first.ID, users[1].ID)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStats{TotalUsers: 2, BlockedUsers: 1, VerifiedUsers: 1}, stats)
}
