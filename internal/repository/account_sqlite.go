package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/spec-kit/identity-service/internal/domain"
)

type sqliteAccountRepository struct {
	db *sql.DB
}

// NewSQLiteAccountRepository returns an implementation backed by an embedded SQLite database.
func NewSQLiteAccountRepository(db *sql.DB) AccountRepository {
	return &sqliteAccountRepository{db: db}
}

func (r *sqliteAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (id, name, email, password_hash, role, verified, blocked, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		string(account.Role),
		account.Verified,
		account.Blocked,
		now,
		now,
	)
	if err != nil {
		return mapSQLiteError("create account", err)
	}
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

func (r *sqliteAccountRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET last_login_at=?, updated_at=? WHERE id=?`
	return r.update(ctx, "record login", query, at.UTC(), time.Now().UTC(), id)
}

func (r *sqliteAccountRepository) SetOTP(ctx context.Context, id string, purpose domain.OTPPurpose, code string, expiresAt time.Time) error {
	codeCol, expCol, err := otpColumns(purpose)
	if err != nil {
		return err
	}
	query := `UPDATE accounts SET ` + codeCol + `=?, ` + expCol + `=?, updated_at=? WHERE id=?`
	return r.update(ctx, "set otp", query, code, expiresAt.UTC(), time.Now().UTC(), id)
}

func (r *sqliteAccountRepository) ClearOTP(ctx context.Context, id string, purpose domain.OTPPurpose, code string) error {
	codeCol, expCol, err := otpColumns(purpose)
	if err != nil {
		return err
	}
	query := `UPDATE accounts SET ` + codeCol + `='', ` + expCol + `=NULL, updated_at=? WHERE id=? AND ` + codeCol + `=?`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id, code); err != nil {
		return mapSQLiteError("clear otp", err)
	}
	return nil
}

func (r *sqliteAccountRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `
        UPDATE accounts SET verified=1, verify_otp='', verify_otp_expires_at=NULL, updated_at=?
        WHERE id=?`
	return r.update(ctx, "mark verified", query, time.Now().UTC(), id)
}

func (r *sqliteAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `
        UPDATE accounts SET password_hash=?, reset_otp='', reset_otp_expires_at=NULL, updated_at=?
        WHERE id=?`
	return r.update(ctx, "update password", query, passwordHash, time.Now().UTC(), id)
}

func (r *sqliteAccountRepository) ToggleBlocked(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE accounts SET blocked = NOT blocked, updated_at=? WHERE id=? RETURNING blocked`
	var blocked bool
	if err := r.db.QueryRowContext(ctx, query, time.Now().UTC(), id).Scan(&blocked); err != nil {
		return false, mapSQLiteError("toggle blocked", err)
	}
	return blocked, nil
}

func (r *sqliteAccountRepository) update(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapSQLiteError(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapSQLiteError(op, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sqliteAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id=?`
	account, err := scanSQLiteAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapSQLiteError("find account by id", err)
	}
	return account, nil
}

func (r *sqliteAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email=?`
	account, err := scanSQLiteAccount(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, mapSQLiteError("find account by email", err)
	}
	return account, nil
}

func (r *sqliteAccountRepository) ListByRole(ctx context.Context, role domain.Role) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role=? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, mapSQLiteError("list accounts", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanSQLiteAccount(rows)
		if err != nil {
			return nil, mapSQLiteError("scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError("list accounts", err)
	}
	return accounts, nil
}

func (r *sqliteAccountRepository) Stats(ctx context.Context) (domain.AccountStats, error) {
	var stats domain.AccountStats
	if err := r.db.QueryRowContext(ctx, statsQuery).Scan(
		&stats.TotalUsers,
		&stats.BlockedUsers,
		&stats.VerifiedUsers,
	); err != nil {
		return domain.AccountStats{}, mapSQLiteError("account stats", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAccount(row rowScanner) (*domain.Account, error) {
	var (
		account                   domain.Account
		role                      string
		verifyExp, resetExp, last sql.NullTime
	)
	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&role,
		&account.Verified,
		&account.Blocked,
		&account.VerifyOTP,
		&verifyExp,
		&account.ResetOTP,
		&resetExp,
		&last,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	account.Role = domain.Role(role)
	account.VerifyOTPExpiresAt = timePtr(verifyExp)
	account.ResetOTPExpiresAt = timePtr(resetExp)
	account.LastLoginAt = timePtr(last)
	return &account, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func mapSQLiteError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return domain.ErrDuplicateEmail
	}
	return fmt.Errorf("%s: %w", op, err)
}
