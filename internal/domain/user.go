package domain

import "time"

// Role is the coarse authorization tier carried on an account and echoed into tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is the domain model for a registrant.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Verified     bool
	Blocked      bool

	VerifyOTP          string
	VerifyOTPExpiresAt *time.Time
	ResetOTP           string
	ResetOTPExpiresAt  *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsAdmin reports whether the account carries the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SetOTP stores a code for the purpose, replacing any outstanding one.
func (a *Account) SetOTP(purpose OTPPurpose, code string, expiresAt time.Time) {
	switch purpose {
	case OTPPurposeVerifyEmail:
		a.VerifyOTP = code
		a.VerifyOTPExpiresAt = &expiresAt
	case OTPPurposeResetPassword:
		a.ResetOTP = code
		a.ResetOTPExpiresAt = &expiresAt
	}
}

// ClearOTP removes the code and its expiry for the purpose.
func (a *Account) ClearOTP(purpose OTPPurpose) {
	switch purpose {
	case OTPPurposeVerifyEmail:
		a.VerifyOTP = ""
		a.VerifyOTPExpiresAt = nil
	case OTPPurposeResetPassword:
		a.ResetOTP = ""
		a.ResetOTPExpiresAt = nil
	}
}

// OTP returns the stored code and expiry for the purpose.
func (a *Account) OTP(purpose OTPPurpose) (string, *time.Time) {
	switch purpose {
	case OTPPurposeVerifyEmail:
		return a.VerifyOTP, a.VerifyOTPExpiresAt
	case OTPPurposeResetPassword:
		return a.ResetOTP, a.ResetOTPExpiresAt
	}
	return "", nil
}

// AccountStats aggregates counters for the admin dashboard.
type AccountStats struct {
	TotalUsers    int64
	BlockedUsers  int64
	VerifiedUsers int64
}
