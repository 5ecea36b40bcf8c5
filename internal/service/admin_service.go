package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/repository"
)

// AdminService serves the admin-gated account management endpoints.
type AdminService struct {
	store      accountStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewAdminService builds the service.
func NewAdminService(cfg config.Config, accounts repository.AccountRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		store:      newAccountStore(accounts, cfg.Store.Timeout()),
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// ListUsers returns every account with the user role, newest first.
func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.Account, error) {
	return s.store.listByRole(ctx, domain.RoleUser)
}

// ToggleBlock flips the blocked flag of the target account. Admins cannot block themselves.
func (s *AdminService) ToggleBlock(ctx context.Context, actorID, targetID string) (*domain.Account, error) {
	if actorID == targetID {
		return nil, domain.ErrForbidden
	}
	account, err := s.store.byID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.store.toggleBlocked(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.Blocked = blocked

	s.logger.Info("account block toggled",
		zap.String("account_id", account.ID),
		zap.String("actor_id", actorID),
		zap.Bool("blocked", account.Blocked))

	if s.dispatcher != nil {
		err := s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventBlockToggled,
			Recipient: events.Recipient{AccountID: account.ID, Name: account.Name, Email: account.Email},
			Timestamp: s.now(),
			Payload:   events.BlockToggledPayload{Blocked: account.Blocked, ActorID: actorID},
		})
		if err != nil {
			s.logger.Warn("block toggled notification failed", zap.Error(err))
		}
	}
	return account, nil
}

// Stats returns dashboard counters.
func (s *AdminService) Stats(ctx context.Context) (domain.AccountStats, error) {
	return s.store.stats(ctx)
}
