package domain

import "time"

// OTPPurpose binds a one-time code to a single flow.
type OTPPurpose string

const (
	OTPPurposeVerifyEmail   OTPPurpose = "verify-email"
	OTPPurposeResetPassword OTPPurpose = "reset-password"
)

// Session describes an issued session token.
type Session struct {
	Token     string
	AccountID string
	Role      Role
	ExpiresAt time.Time
}
