package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/http/handlers"
	"github.com/spec-kit/identity-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health               *handlers.HealthHandler
	Auth                 *handlers.AuthHandler
	Admin                *handlers.AdminHandler
	AuthMiddleware       *auth.AuthMiddleware
	AdminRegistrationKey string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/send-reset-otp", cfg.Auth.SendResetOTP)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)

	session := authGroup.Group("", cfg.AuthMiddleware.Handle)
	session.Get("/logout", cfg.Auth.Logout)
	session.Get("/is-auth", cfg.Auth.IsAuthenticated)
	session.Get("/me", cfg.Auth.IsAuthenticated)
	session.Post("/send-verify-otp", cfg.Auth.SendVerifyOTP)
	session.Post("/verify-email", cfg.Auth.VerifyEmail)

	adminGroup := app.Group("/admin")
	adminGroup.Post("/login", cfg.Admin.Login)
	adminGroup.Post("/register", cfg.AuthMiddleware.RequireAdminOrKey(cfg.AdminRegistrationKey), cfg.Admin.Register)

	protected := adminGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	protected.Get("/users", cfg.Admin.ListUsers)
	protected.Patch("/users/:id/toggle-block", cfg.Admin.ToggleBlock)
	protected.Get("/stats", cfg.Admin.Stats)
}
