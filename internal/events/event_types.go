package events

import (
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered     EventType = "account_registered"
	EventVerificationOTPIssued EventType = "verification_otp_issued"
	EventResetOTPIssued        EventType = "reset_otp_issued"
	EventPasswordReset         EventType = "password_reset"
	EventEmailVerified         EventType = "email_verified"
	EventBlockToggled          EventType = "block_toggled"
)

// Recipient identifies the account an event concerns.
type Recipient struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Recipient Recipient   `json:"recipient"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// OTPIssuedPayload carries a freshly minted code to the delivery handler.
type OTPIssuedPayload struct {
	Purpose   domain.OTPPurpose `json:"purpose"`
	Code      string            `json:"-"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// BlockToggledPayload payload.
type BlockToggledPayload struct {
	Blocked bool   `json:"blocked"`
	ActorID string `json:"actor_id"`
}
