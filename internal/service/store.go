package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/limiter"
	"github.com/spec-kit/identity-service/internal/repository"
)

const defaultStoreTimeout = 5 * time.Second

// accountStore bounds every repository call and maps driver failures to ErrUpstreamUnavailable.
type accountStore struct {
	repo    repository.AccountRepository
	timeout time.Duration
}

func newAccountStore(repo repository.AccountRepository, timeout time.Duration) accountStore {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return accountStore{repo: repo, timeout: timeout}
}

func (s accountStore) byID(ctx context.Context, id string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	account, err := s.repo.FindByID(ctx, id)
	return account, storeErr(err)
}

func (s accountStore) byEmail(ctx context.Context, email string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	account, err := s.repo.FindByEmail(ctx, email)
	return account, storeErr(err)
}

func (s accountStore) create(ctx context.Context, account *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return storeErr(s.repo.Create(ctx, account))
}

func (s accountStore) recordLogin(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return storeErr(s.repo.RecordLogin(ctx, id, at))
}

func (s accountStore) setOTP(ctx context.Context, id string, purpose domain.OTPPurpose, code string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return storeErr(s.repo.SetOTP(ctx, id, purpose, code, expiresAt))
}

func (s accountStore) clearOTP(ctx context.Context, id string, purpose domain.OTPPurpose, code string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return storeErr(s.repo.ClearOTP(ctx, id, purpose, code))
}

func (s accountStore) markVerified(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return storeErr(s.repo.MarkVerified(ctx, id))
}

func (s accountStore) updatePassword(ctx context.Context, id, passwordHash string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return storeErr(s.repo.UpdatePassword(ctx, id, passwordHash))
}

func (s accountStore) toggleBlocked(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	blocked, err := s.repo.ToggleBlocked(ctx, id)
	return blocked, storeErr(err)
}

func (s accountStore) listByRole(ctx context.Context, role domain.Role) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	accounts, err := s.repo.ListByRole(ctx, role)
	return accounts, storeErr(err)
}

func (s accountStore) stats(ctx context.Context) (domain.AccountStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	stats, err := s.repo.Stats(ctx)
	return stats, storeErr(err)
}

func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrDuplicateEmail):
		return err
	default:
		return fmt.Errorf("%w: store: %v", domain.ErrUpstreamUnavailable, err)
	}
}

func limitErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, limiter.ErrRateLimited):
		return domain.ErrRateLimited
	default:
		return fmt.Errorf("%w: throttle: %v", domain.ErrUpstreamUnavailable, err)
	}
}
