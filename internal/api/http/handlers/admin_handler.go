package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/service"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// AdminHandler exposes admin login, registration and account moderation.
type AdminHandler struct {
	auth   *service.AuthService
	admin  *service.AdminService
	cookie auth.CookieConfig
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, adminService *service.AdminService, cookie auth.CookieConfig) *AdminHandler {
	return &AdminHandler{auth: authService, admin: adminService, cookie: cookie}
}

// Login handles POST /admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}

	account, session, err := h.auth.LoginAdmin(c.UserContext(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	auth.SetSessionCookie(c, h.cookie, session.Token, session.ExpiresAt)
	return c.JSON(fiber.Map{"success": true, "admin": dto.NewUserResponse(account)})
}

// Register handles POST /admin/register. The route is guarded by RequireAdminOrKey.
func (h *AdminHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}

	account, session, err := h.auth.RegisterAdmin(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	// an admin creating another admin keeps their own session
	if _, ok := auth.PrincipalFromContext(c); !ok {
		auth.SetSessionCookie(c, h.cookie, session.Token, session.ExpiresAt)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "admin": dto.NewUserResponse(account)})
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	accounts, err := h.admin.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	users := make([]dto.AdminUserResponse, 0, len(accounts))
	for _, account := range accounts {
		users = append(users, dto.NewAdminUserResponse(account))
	}
	return c.JSON(fiber.Map{"success": true, "users": users})
}

// ToggleBlock handles PATCH /admin/users/:id/toggle-block.
func (h *AdminHandler) ToggleBlock(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authorized, login again")
	}

	account, err := h.admin.ToggleBlock(c.UserContext(), principal.AccountID, c.Params("id"))
	if err != nil {
		return err
	}

	state := "unblocked"
	if account.Blocked {
		state = "blocked"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("User %s successfully", state),
		"user":    dto.NewAdminUserResponse(account),
	})
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "stats": dto.NewStatsResponse(stats)})
}
