package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/notify"
)

// NotificationService turns account events into outbound mail.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     notify.Mailer
	logger     *zap.Logger
	timeout    time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer notify.Mailer, logger *zap.Logger, timeout time.Duration) *NotificationService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
		timeout:    timeout,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccountRegistered, n.handleAccountRegistered)
	n.dispatcher.Subscribe(events.EventVerificationOTPIssued, n.handleOTPIssued)
	n.dispatcher.Subscribe(events.EventResetOTPIssued, n.handleOTPIssued)
	n.dispatcher.Subscribe(events.EventEmailVerified, n.logEvent)
	n.dispatcher.Subscribe(events.EventPasswordReset, n.logEvent)
	n.dispatcher.Subscribe(events.EventBlockToggled, n.logEvent)
}

func (n *NotificationService) handleAccountRegistered(ctx context.Context, event events.Event) error {
	n.logEvent(ctx, event) //nolint:errcheck
	return n.send(ctx, notify.Message{
		To:      event.Recipient.Email,
		Subject: "Welcome",
		Body:    fmt.Sprintf("Welcome, %s! Your account has been created with email: %s", event.Recipient.Name, event.Recipient.Email),
	})
}

func (n *NotificationService) handleOTPIssued(ctx context.Context, event events.Event) error {
	n.logEvent(ctx, event) //nolint:errcheck
	payload, ok := event.Payload.(events.OTPIssuedPayload)
	if !ok || payload.Code == "" {
		return errors.New("otp event without code")
	}

	msg := notify.Message{To: event.Recipient.Email}
	switch event.Type {
	case events.EventResetOTPIssued:
		msg.Subject = "Password Reset OTP"
		msg.Body = fmt.Sprintf("Your OTP for resetting your password is %s. It expires at %s.",
			payload.Code, payload.ExpiresAt.UTC().Format(time.RFC1123))
	default:
		msg.Subject = "Account Verification OTP"
		msg.Body = fmt.Sprintf("Your verification OTP is %s. It expires at %s.",
			payload.Code, payload.ExpiresAt.UTC().Format(time.RFC1123))
	}
	return n.send(ctx, msg)
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("account_id", event.Recipient.AccountID))
	return nil
}

func (n *NotificationService) send(ctx context.Context, msg notify.Message) error {
	if n.mailer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.mailer.Send(ctx, msg); err != nil {
		n.logger.Warn("mail delivery failed", zap.String("subject", msg.Subject), zap.Error(err))
		return err
	}
	return nil
}
