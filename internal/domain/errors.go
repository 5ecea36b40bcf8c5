package domain

import "errors"

// Errors crossing the service boundary. Every failure is wrapped into one of these.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidOTP          = errors.New("invalid otp")
	ErrOTPExpired          = errors.New("otp expired")
	ErrAlreadyVerified     = errors.New("account already verified")
	ErrAccountBlocked      = errors.New("account blocked")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidToken        = errors.New("invalid token")
	ErrRateLimited         = errors.New("too many attempts")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ValidationError lists per-field problems with a request. It matches ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "invalid input"
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
