package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/domain"
)

// DomainError standardizes application errors at the HTTP boundary.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewBadRequest(message string) error {
	return NewDomainError("INVALID_INPUT", message, http.StatusBadRequest, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

type mapping struct {
	target  error
	code    string
	message string
	status  int
}

// ordered: the first sentinel matched by errors.Is wins
var mappings = []mapping{
	{domain.ErrInvalidInput, "INVALID_INPUT", "missing or malformed fields", http.StatusBadRequest},
	{domain.ErrDuplicateEmail, "DUPLICATE_EMAIL", "an account with this email already exists", http.StatusConflict},
	{domain.ErrInvalidCredentials, "INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized},
	{domain.ErrInvalidToken, "UNAUTHORIZED", "not authorized, login again", http.StatusUnauthorized},
	{domain.ErrInvalidOTP, "INVALID_OTP", "invalid otp", http.StatusBadRequest},
	{domain.ErrOTPExpired, "OTP_EXPIRED", "otp expired", http.StatusBadRequest},
	{domain.ErrAlreadyVerified, "ALREADY_VERIFIED", "account already verified", http.StatusConflict},
	{domain.ErrAccountBlocked, "ACCOUNT_BLOCKED", "account is blocked", http.StatusForbidden},
	{domain.ErrForbidden, "FORBIDDEN", "access denied", http.StatusForbidden},
	{domain.ErrNotFound, "NOT_FOUND", "account not found", http.StatusNotFound},
	{domain.ErrRateLimited, "RATE_LIMITED", "too many attempts, try again later", http.StatusTooManyRequests},
	{domain.ErrUpstreamUnavailable, "UPSTREAM_UNAVAILABLE", "service temporarily unavailable, retry later", http.StatusServiceUnavailable},
}

// ToDomainError converts any error to a DomainError. Unknown errors become
// INTERNAL_ERROR and their text never reaches the client.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{
			Code:       codeForStatus(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}

	for _, m := range mappings {
		if !errors.Is(err, m.target) {
			continue
		}
		de := &DomainError{Code: m.code, Message: m.message, HTTPStatus: m.status, Err: err}
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && len(validationErr.Fields) > 0 {
			de.Details = make(map[string]any, len(validationErr.Fields))
			for field, msg := range validationErr.Fields {
				de.Details[field] = msg
			}
		}
		return de
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_INPUT"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestTimeout:
		return "TIMEOUT"
	default:
		if status >= 500 {
			return "INTERNAL_ERROR"
		}
		return "REQUEST_FAILED"
	}
}
