package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/limiter"
	"github.com/spec-kit/identity-service/internal/repository"
)

// AuthService coordinates registration, login, email verification and password reset.
type AuthService struct {
	store      accountStore
	tokens     *auth.TokenManager
	otps       *auth.OTPGenerator
	limiter    *limiter.AttemptLimiter
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// AuthDependencies encapsulates collaborators for the auth service.
// Tokens and OTPs are built from config when nil.
type AuthDependencies struct {
	Accounts   repository.AccountRepository
	Tokens     *auth.TokenManager
	OTPs       *auth.OTPGenerator
	Limiter    *limiter.AttemptLimiter
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	s := &AuthService{
		store:      newAccountStore(deps.Accounts, cfg.Store.Timeout()),
		tokens:     deps.Tokens,
		otps:       deps.OTPs,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: cfg.Auth.BcryptCost,
		now:        deps.Clock,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.tokens == nil {
		s.tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL(),
			auth.WithIssuer(cfg.App.Name), auth.WithClock(s.now))
	}
	if s.otps == nil {
		s.otps = auth.NewOTPGenerator(cfg.Auth.VerifyOTPTTL(), cfg.Auth.ResetOTPTTL())
	}
	if s.dispatcher == nil {
		s.dispatcher = events.NewInMemoryDispatcher()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Register creates a self-service account with the user role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Account, domain.Session, error) {
	return s.register(ctx, in, domain.RoleUser)
}

// RegisterAdmin creates an admin account. Callers must gate this path.
func (s *AuthService) RegisterAdmin(ctx context.Context, in RegisterInput) (*domain.Account, domain.Session, error) {
	return s.register(ctx, in, domain.RoleAdmin)
}

func (s *AuthService) register(ctx context.Context, in RegisterInput, role domain.Role) (*domain.Account, domain.Session, error) {
	in = in.normalize()
	if err := validateInput(in); err != nil {
		return nil, domain.Session{}, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, domain.Session{}, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.create(ctx, account); err != nil {
		return nil, domain.Session{}, err
	}

	session, err := s.issue(account)
	if err != nil {
		return nil, domain.Session{}, err
	}

	// welcome mail is best effort; the account stays created
	if err := s.publish(ctx, events.EventAccountRegistered, account, nil); err != nil {
		s.logger.Warn("welcome notification failed", zap.String("account_id", account.ID), zap.Error(err))
	}

	s.logger.Info("account registered", zap.String("account_id", account.ID), zap.String("role", string(role)))
	return account, session, nil
}

// Login authenticates any account.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*domain.Account, domain.Session, error) {
	return s.login(ctx, in, false)
}

// LoginAdmin authenticates an admin account. Non-admins see ErrInvalidCredentials.
func (s *AuthService) LoginAdmin(ctx context.Context, in LoginInput) (*domain.Account, domain.Session, error) {
	return s.login(ctx, in, true)
}

func (s *AuthService) login(ctx context.Context, in LoginInput, adminOnly bool) (*domain.Account, domain.Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, domain.Session{}, err
	}
	if err := limitErr(s.limiter.Check(ctx, limiter.ScopeLogin, in.Email)); err != nil {
		return nil, domain.Session{}, err
	}

	account, err := s.store.byEmail(ctx, in.Email)
	if errors.Is(err, domain.ErrNotFound) {
		// equalize timing with the wrong-password path
		_ = auth.ComparePassword(s.dummyPasswordHash(), in.Password)
		return nil, domain.Session{}, s.loginFailed(ctx, in.Email)
	}
	if err != nil {
		return nil, domain.Session{}, err
	}

	if err := auth.ComparePassword(account.PasswordHash, in.Password); err != nil {
		if !auth.IsMismatch(err) {
			s.logger.Error("stored password hash unusable", zap.String("account_id", account.ID), zap.Error(err))
		}
		return nil, domain.Session{}, s.loginFailed(ctx, in.Email)
	}
	if adminOnly && !account.IsAdmin() {
		return nil, domain.Session{}, s.loginFailed(ctx, in.Email)
	}
	if account.Blocked {
		return nil, domain.Session{}, domain.ErrAccountBlocked
	}

	if err := s.limiter.Reset(ctx, limiter.ScopeLogin, in.Email); err != nil {
		s.logger.Warn("reset login throttle", zap.Error(err))
	}

	now := s.now()
	account.LastLoginAt = &now
	if err := s.store.recordLogin(ctx, account.ID, now); err != nil {
		s.logger.Warn("record last login", zap.String("account_id", account.ID), zap.Error(err))
	}

	session, err := s.issue(account)
	if err != nil {
		return nil, domain.Session{}, err
	}
	return account, session, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email string) error {
	if err := s.limiter.Fail(ctx, limiter.ScopeLogin, email); err != nil {
		s.logger.Warn("record failed login", zap.Error(err))
	}
	return domain.ErrInvalidCredentials
}

// Logout is stateless; the transport clears the client's credential.
func (s *AuthService) Logout(_ context.Context) error {
	return nil
}

// Profile returns the current state of an account.
func (s *AuthService) Profile(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.store.byID(ctx, accountID)
}

// SendVerificationOTP mints an email verification code and delivers it.
func (s *AuthService) SendVerificationOTP(ctx context.Context, accountID string) error {
	account, err := s.store.byID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Verified {
		return domain.ErrAlreadyVerified
	}
	return s.issueOTP(ctx, account, domain.OTPPurposeVerifyEmail, events.EventVerificationOTPIssued)
}

// VerifyEmail consumes the verification code and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, accountID, code string) error {
	if err := requireField("otp", code); err != nil {
		return err
	}
	if err := limitErr(s.limiter.Check(ctx, limiter.ScopeVerifyEmail, accountID)); err != nil {
		return err
	}

	account, err := s.store.byID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.consumeOTP(ctx, account, domain.OTPPurposeVerifyEmail, code); err != nil {
		s.otpFailed(ctx, limiter.ScopeVerifyEmail, accountID, err)
		return err
	}

	if err := s.store.markVerified(ctx, account.ID); err != nil {
		return err
	}
	account.Verified = true
	account.ClearOTP(domain.OTPPurposeVerifyEmail)

	s.afterOTPSuccess(ctx, limiter.ScopeVerifyEmail, accountID)
	if err := s.publish(ctx, events.EventEmailVerified, account, nil); err != nil {
		s.logger.Warn("email verified notification failed", zap.Error(err))
	}
	return nil
}

// SendResetOTP mints a password reset code for the account owning email.
// Unknown addresses yield ErrNotFound.
func (s *AuthService) SendResetOTP(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := requireField("email", email); err != nil {
		return err
	}
	account, err := s.store.byEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.issueOTP(ctx, account, domain.OTPPurposeResetPassword, events.EventResetOTPIssued)
}

// ResetPassword replaces the password after consuming the reset code. The old password is not required.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return err
	}
	if err := limitErr(s.limiter.Check(ctx, limiter.ScopeResetOTP, in.Email)); err != nil {
		return err
	}

	account, err := s.store.byEmail(ctx, in.Email)
	if errors.Is(err, domain.ErrNotFound) {
		s.otpFailed(ctx, limiter.ScopeResetOTP, in.Email, domain.ErrInvalidOTP)
		return domain.ErrInvalidOTP
	}
	if err != nil {
		return err
	}
	if err := s.consumeOTP(ctx, account, domain.OTPPurposeResetPassword, in.OTP); err != nil {
		s.otpFailed(ctx, limiter.ScopeResetOTP, in.Email, err)
		return err
	}

	hash, err := auth.HashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.updatePassword(ctx, account.ID, hash); err != nil {
		return err
	}
	account.PasswordHash = hash
	account.ClearOTP(domain.OTPPurposeResetPassword)

	s.afterOTPSuccess(ctx, limiter.ScopeResetOTP, in.Email)
	if err := s.publish(ctx, events.EventPasswordReset, account, nil); err != nil {
		s.logger.Warn("password reset notification failed", zap.Error(err))
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) issue(account *domain.Account) (domain.Session, error) {
	token, exp, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Token: token, AccountID: account.ID, Role: account.Role, ExpiresAt: exp}, nil
}

// issueOTP overwrites any outstanding code for the purpose, persists it and delivers it.
func (s *AuthService) issueOTP(ctx context.Context, account *domain.Account, purpose domain.OTPPurpose, eventType events.EventType) error {
	code, err := s.otps.Generate()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	expiresAt := s.now().Add(s.otps.ExpiryFor(purpose))
	if err := s.store.setOTP(ctx, account.ID, purpose, code, expiresAt); err != nil {
		return err
	}
	account.SetOTP(purpose, code, expiresAt)

	payload := events.OTPIssuedPayload{Purpose: purpose, Code: code, ExpiresAt: expiresAt}
	if err := s.publish(ctx, eventType, account, payload); err != nil {
		return fmt.Errorf("%w: deliver otp: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// consumeOTP checks a submitted code against the stored one. A stale code is
// cleared as soon as it is seen so it cannot be guessed further.
func (s *AuthService) consumeOTP(ctx context.Context, account *domain.Account, purpose domain.OTPPurpose, submitted string) error {
	stored, expiresAt := account.OTP(purpose)
	if stored == "" {
		return domain.ErrInvalidOTP
	}

	expired := expiresAt == nil || s.now().After(*expiresAt)
	if expired {
		if err := s.store.clearOTP(ctx, account.ID, purpose, stored); err != nil {
			return err
		}
		account.ClearOTP(purpose)
	}
	if !auth.OTPMatches(stored, submitted) {
		return domain.ErrInvalidOTP
	}
	if expired {
		return domain.ErrOTPExpired
	}
	return nil
}

func (s *AuthService) otpFailed(ctx context.Context, scope limiter.Scope, key string, cause error) {
	if !errors.Is(cause, domain.ErrInvalidOTP) && !errors.Is(cause, domain.ErrOTPExpired) {
		return
	}
	if err := s.limiter.Fail(ctx, scope, key); err != nil {
		s.logger.Warn("record failed otp", zap.String("scope", string(scope)), zap.Error(err))
	}
}

func (s *AuthService) afterOTPSuccess(ctx context.Context, scope limiter.Scope, key string) {
	if err := s.limiter.Reset(ctx, scope, key); err != nil {
		s.logger.Warn("reset otp throttle", zap.String("scope", string(scope)), zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, account *domain.Account, payload interface{}) error {
	return s.dispatcher.Publish(ctx, events.Event{
		ID:   uuid.NewString(),
		Type: eventType,
		Recipient: events.Recipient{
			AccountID: account.ID,
			Name:      account.Name,
			Email:     account.Email,
		},
		Timestamp: s.now(),
		Payload:   payload,
	})
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := auth.HashPassword(uuid.NewString(), s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
