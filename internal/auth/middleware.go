package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/repository"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

const (
	principalKey = "auth_principal"

	// AdminKeyHeader carries the bootstrap key for privileged admin registration.
	AdminKeyHeader = "X-Admin-Key"
)

// Principal represents the authenticated caller, resolved from a fresh account read.
type Principal struct {
	AccountID string
	Role      domain.Role
	Account   *domain.Account
}

// IsAdmin reports whether the caller holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == domain.RoleAdmin
}

// AuthMiddleware validates session tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
	timeout  time.Duration
}

// NewAuthMiddleware constructs middleware. Each account lookup is bounded by timeout.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.AccountRepository, timeout time.Duration) *AuthMiddleware {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuthMiddleware{tokens: tokens, accounts: accounts, timeout: timeout}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.authenticate(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// RequireAdminOrKey admits callers presenting the bootstrap admin key or an admin session.
// An empty key disables the key path.
func (m *AuthMiddleware) RequireAdminOrKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if provided := c.Get(AdminKeyHeader); provided != "" {
			if key != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
				return c.Next()
			}
			return apperrors.NewForbidden("invalid admin key")
		}

		principal, err := m.authenticate(c)
		if err != nil {
			return err
		}
		if !principal.IsAdmin() {
			return apperrors.NewForbidden("access denied, admins only")
		}
		c.Locals(principalKey, principal)
		return c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*Principal, error) {
	token := tokenFromRequest(c)
	if token == "" {
		return nil, apperrors.NewUnauthorized("not authorized, login again")
	}

	claims, err := m.tokens.Verify(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired token, login again")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), m.timeout)
	defer cancel()

	// claims are not trusted for status: a block must take effect on live tokens
	account, err := m.accounts.FindByID(ctx, claims.AccountID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("%w: resolve principal: %v", domain.ErrUpstreamUnavailable, err)
	}
	if account.Blocked {
		return nil, domain.ErrAccountBlocked
	}

	return &Principal{AccountID: account.ID, Role: account.Role, Account: account}, nil
}

func tokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookieName); token != "" {
		return token
	}
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
