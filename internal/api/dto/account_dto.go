package dto

import (
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyEmailRequest payload.
type VerifyEmailRequest struct {
	OTP string `json:"otp"`
}

// SendResetOTPRequest payload.
type SendResetOTPRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest payload.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// UserResponse is the public projection of an account.
type UserResponse struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	Verified bool        `json:"isAccountVerified"`
}

// AdminUserResponse adds moderation fields for admin listings.
type AdminUserResponse struct {
	UserResponse
	Blocked     bool       `json:"isBlocked"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// StatsResponse carries dashboard counters.
type StatsResponse struct {
	TotalUsers    int64 `json:"totalUsers"`
	BlockedUsers  int64 `json:"blockedUsers"`
	VerifiedUsers int64 `json:"verifiedUsers"`
}

// NewUserResponse projects an account.
func NewUserResponse(a *domain.Account) UserResponse {
	return UserResponse{
		ID:       a.ID,
		Name:     a.Name,
		Email:    a.Email,
		Role:     a.Role,
		Verified: a.Verified,
	}
}

// NewAdminUserResponse projects an account for admins.
func NewAdminUserResponse(a *domain.Account) AdminUserResponse {
	return AdminUserResponse{
		UserResponse: NewUserResponse(a),
		Blocked:      a.Blocked,
		LastLoginAt:  a.LastLoginAt,
		CreatedAt:    a.CreatedAt,
	}
}

// NewStatsResponse projects dashboard counters.
func NewStatsResponse(s domain.AccountStats) StatsResponse {
	return StatsResponse{
		TotalUsers:    s.TotalUsers,
		BlockedUsers:  s.BlockedUsers,
		VerifiedUsers: s.VerifiedUsers,
	}
}
