package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/identity-service/internal/domain"
)

// AccountRepository defines persistence access for accounts.
// Lookups and updates return domain.ErrNotFound when nothing matches; Create
// returns domain.ErrDuplicateEmail on a unique violation. Each update writes
// only the columns it names, so concurrent flows never clobber each other.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	SetOTP(ctx context.Context, id string, purpose domain.OTPPurpose, code string, expiresAt time.Time) error
	// ClearOTP drops the purpose's code only while it still equals code; a
	// code replaced in the meantime is left alone.
	ClearOTP(ctx context.Context, id string, purpose domain.OTPPurpose, code string) error
	MarkVerified(ctx context.Context, id string) error
	// UpdatePassword also drops any outstanding reset code.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// ToggleBlocked flips the blocked flag and returns the stored result.
	ToggleBlocked(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	ListByRole(ctx context.Context, role domain.Role) ([]*domain.Account, error)
	Stats(ctx context.Context) (domain.AccountStats, error)
}

const pgUniqueViolation = "23505"

const accountColumns = `id, name, email, password_hash, role, verified, blocked,
        verify_otp, verify_otp_expires_at, reset_otp, reset_otp_expires_at,
        last_login_at, created_at, updated_at`

const statsQuery = `
        SELECT
            COALESCE(SUM(CASE WHEN role = 'user' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN blocked THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN role = 'user' AND verified THEN 1 ELSE 0 END), 0)
        FROM accounts`

// otpColumns names the code and expiry columns for a purpose.
func otpColumns(purpose domain.OTPPurpose) (code, expiresAt string, err error) {
	switch purpose {
	case domain.OTPPurposeVerifyEmail:
		return "verify_otp", "verify_otp_expires_at", nil
	case domain.OTPPurposeResetPassword:
		return "reset_otp", "reset_otp_expires_at", nil
	default:
		return "", "", fmt.Errorf("unknown otp purpose %q", purpose)
	}
}

type postgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountRepository returns a Postgres-backed implementation.
func NewPostgresAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &postgresAccountRepository{pool: pool}
}

func (r *postgresAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (id, name, email, password_hash, role, verified, blocked)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.Verified,
		account.Blocked,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return mapPgError("create account", err)
	}
	return nil
}

func (r *postgresAccountRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET last_login_at=$1, updated_at=NOW() WHERE id=$2`
	return r.update(ctx, "record login", id, query, at, id)
}

func (r *postgresAccountRepository) SetOTP(ctx context.Context, id string, purpose domain.OTPPurpose, code string, expiresAt time.Time) error {
	codeCol, expCol, err := otpColumns(purpose)
	if err != nil {
		return err
	}
	query := `UPDATE accounts SET ` + codeCol + `=$1, ` + expCol + `=$2, updated_at=NOW() WHERE id=$3`
	return r.update(ctx, "set otp", id, query, code, expiresAt, id)
}

func (r *postgresAccountRepository) ClearOTP(ctx context.Context, id string, purpose domain.OTPPurpose, code string) error {
	codeCol, expCol, err := otpColumns(purpose)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	query := `UPDATE accounts SET ` + codeCol + `='', ` + expCol + `=NULL, updated_at=NOW() WHERE id=$1 AND ` + codeCol + `=$2`
	if _, err := r.pool.Exec(ctx, query, id, code); err != nil {
		return mapPgError("clear otp", err)
	}
	return nil
}

func (r *postgresAccountRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `
        UPDATE accounts SET verified=TRUE, verify_otp='', verify_otp_expires_at=NULL, updated_at=NOW()
        WHERE id=$1`
	return r.update(ctx, "mark verified", id, query, id)
}

func (r *postgresAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `
        UPDATE accounts SET password_hash=$1, reset_otp='', reset_otp_expires_at=NULL, updated_at=NOW()
        WHERE id=$2`
	return r.update(ctx, "update password", id, query, passwordHash, id)
}

func (r *postgresAccountRepository) ToggleBlocked(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE accounts SET blocked = NOT blocked, updated_at=NOW() WHERE id=$1 RETURNING blocked`
	if _, err := uuid.Parse(id); err != nil {
		return false, domain.ErrNotFound
	}
	var blocked bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&blocked); err != nil {
		return false, mapPgError("toggle blocked", err)
	}
	return blocked, nil
}

func (r *postgresAccountRepository) update(ctx context.Context, op, id, query string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapPgError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	account, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError("find account by id", err)
	}
	return account, nil
}

func (r *postgresAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email=$1`
	account, err := scanAccount(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapPgError("find account by email", err)
	}
	return account, nil
}

func (r *postgresAccountRepository) ListByRole(ctx context.Context, role domain.Role) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, mapPgError("list accounts", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, mapPgError("scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError("list accounts", err)
	}
	return accounts, nil
}

func (r *postgresAccountRepository) Stats(ctx context.Context) (domain.AccountStats, error) {
	var stats domain.AccountStats
	if err := r.pool.QueryRow(ctx, statsQuery).Scan(
		&stats.TotalUsers,
		&stats.BlockedUsers,
		&stats.VerifiedUsers,
	); err != nil {
		return domain.AccountStats{}, mapPgError("account stats", err)
	}
	return stats, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.Verified,
		&account.Blocked,
		&account.VerifyOTP,
		&account.VerifyOTPExpiresAt,
		&account.ResetOTP,
		&account.ResetOTPExpiresAt,
		&account.LastLoginAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func mapPgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrDuplicateEmail
	}
	return fmt.Errorf("%s: %w", op, err)
}
