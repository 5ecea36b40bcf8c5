package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/notify"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestNotificationService_DeliversOTPMail(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	mailer := &recordingMailer{}
	NewNotificationService(dispatcher, mailer, zap.NewNop(), time.Second).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:      events.EventResetOTPIssued,
		Recipient: events.Recipient{AccountID: "acc-1", Name: "Alice", Email: "alice@example.com"},
		Payload: events.OTPIssuedPayload{
			Purpose:   domain.OTPPurposeResetPassword,
			Code:      "654321",
			ExpiresAt: time.Date(2024, 3, 1, 12, 15, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "alice@example.com", mailer.sent[0].To)
	assert.Equal(t, "Password Reset OTP", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].Body, "654321")
}

func TestNotificationService_WelcomeMail(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	mailer := &recordingMailer{}
	NewNotificationService(dispatcher, mailer, zap.NewNop(), time.Second).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:      events.EventAccountRegistered,
		Recipient: events.Recipient{AccountID: "acc-1", Name: "Alice", Email: "alice@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Welcome", mailer.sent[0].Subject)
}

func TestNotificationService_PropagatesDeliveryFailure(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	mailer := &recordingMailer{err: errors.New("relay refused")}
	NewNotificationService(dispatcher, mailer, zap.NewNop(), time.Second).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:      events.EventVerificationOTPIssued,
		Recipient: events.Recipient{Email: "alice@example.com"},
		Payload:   events.OTPIssuedPayload{Purpose: domain.OTPPurposeVerifyEmail, Code: "123456"},
	})
	assert.Error(t, err)

	err = dispatcher.Publish(context.Background(), events.Event{
		Type:      events.EventVerificationOTPIssued,
		Recipient: events.Recipient{Email: "alice@example.com"},
	})
	assert.Error(t, err)
}
