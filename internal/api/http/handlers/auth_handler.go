package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/service"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// AuthHandler exposes the account lifecycle endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	cookie auth.CookieConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookie auth.CookieConfig) *AuthHandler {
	return &AuthHandler{auth: authService, cookie: cookie}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}

	account, session, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return h.respondWithSession(c, fiber.StatusCreated, account, session)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}

	account, session, err := h.auth.Login(c.UserContext(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return h.respondWithSession(c, fiber.StatusOK, account, session)
}

// Logout handles GET /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext()); err != nil {
		return err
	}
	auth.ClearSessionCookie(c, h.cookie)
	return c.JSON(fiber.Map{"success": true, "message": "Logged out"})
}

// IsAuthenticated handles GET /auth/is-auth and GET /auth/me.
func (h *AuthHandler) IsAuthenticated(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authorized, login again")
	}
	return c.JSON(fiber.Map{"success": true, "user": dto.NewUserResponse(principal.Account)})
}

// SendVerifyOTP handles POST /auth/send-verify-otp.
func (h *AuthHandler) SendVerifyOTP(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authorized, login again")
	}
	if err := h.auth.SendVerificationOTP(c.UserContext(), principal.AccountID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Verification OTP sent to email"})
}

// VerifyEmail handles POST /auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authorized, login again")
	}
	var req dto.VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if err := h.auth.VerifyEmail(c.UserContext(), principal.AccountID, req.OTP); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Email verified successfully"})
}

// SendResetOTP handles POST /auth/send-reset-otp.
func (h *AuthHandler) SendResetOTP(c *fiber.Ctx) error {
	var req dto.SendResetOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if err := h.auth.SendResetOTP(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "OTP sent to email"})
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	err := h.auth.ResetPassword(c.UserContext(), service.ResetPasswordInput{
		Email:       req.Email,
		OTP:         req.OTP,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Password reset successfully"})
}

func (h *AuthHandler) respondWithSession(c *fiber.Ctx, status int, account *domain.Account, session domain.Session) error {
	auth.SetSessionCookie(c, h.cookie, session.Token, session.ExpiresAt)
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"user":    dto.NewUserResponse(account),
	})
}
