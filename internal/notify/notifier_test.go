// internal/notify/notifier_test.go
package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norbert250/ORION-2-sub000/internal/common/config"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/models"
)

type smsCall struct {
	phone, message, senderID string
}

type fakeSMS struct {
	calls []smsCall
	err   error
}

func (f *fakeSMS) PublishSMS(ctx context.Context, phoneNumber, message, senderID string) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, smsCall{phone: phoneNumber, message: message, senderID: senderID})
	return nil
}

type emailCall struct {
	from, to, subject, body string
}

type fakeEmail struct {
	calls []emailCall
}

func (f *fakeEmail) SendPlain(ctx context.Context, from, to, subject, body string) error {
	f.calls = append(f.calls, emailCall{from: from, to: to, subject: subject, body: body})
	return nil
}

func notifierConfig(smsEnabled, emailEnabled bool) config.NotificationConfig {
	var cfg config.NotificationConfig
	cfg.SMS.Enabled = smsEnabled
	cfg.SMS.SenderID = "LOANS"
	cfg.Email.Enabled = emailEnabled
	cfg.Email.FromEmail = "noreply@example.com"
	cfg.Email.OpsEmail = "ops@example.com"
	return cfg
}

func sampleApp() models.Application {
	return models.Application{
		ID:             "app-1",
		PhoneNumber:    "254700000001",
		FullName:       "Jane Wambui",
		Status:         models.StatusApproved,
		CompositeScore: 65,
	}
}

func TestSubmittedSendsSMS(t *testing.T) {
	sms := &fakeSMS{}
	n := NewNotifier(notifierConfig(true, false), sms, nil, logger.NewTestLogger(t))

	require.NoError(t, n.Submitted(context.Background(), sampleApp()))
	require.Len(t, sms.calls, 1)
	assert.Equal(t, "254700000001", sms.calls[0].phone)
	assert.Contains(t, sms.calls[0].message, "app-1")
	assert.Equal(t, "LOANS", sms.calls[0].senderID)
}

func TestSubmittedDisabledIsNoOp(t *testing.T) {
	sms := &fakeSMS{}
	n := NewNotifier(notifierConfig(false, false), sms, nil, logger.NewTestLogger(t))

	require.NoError(t, n.Submitted(context.Background(), sampleApp()))
	assert.Empty(t, sms.calls)
}

func TestSubmittedReturnsPublishError(t *testing.T) {
	sms := &fakeSMS{err: errors.New("throttled")}
	n := NewNotifier(notifierConfig(true, false), sms, nil, logger.NewTestLogger(t))

	assert.Error(t, n.Submitted(context.Background(), sampleApp()))
}

func TestStatusChangedSendsEmail(t *testing.T) {
	email := &fakeEmail{}
	n := NewNotifier(notifierConfig(false, true), nil, email, logger.NewTestLogger(t))

	require.NoError(t, n.StatusChanged(context.Background(), sampleApp()))
	require.Len(t, email.calls, 1)
	assert.Equal(t, "noreply@example.com", email.calls[0].from)
	assert.Equal(t, "ops@example.com", email.calls[0].to)
	assert.Contains(t, email.calls[0].subject, "approved")
	assert.Contains(t, email.calls[0].body, "Jane Wambui")
}

func TestStatusChangedDisabledIsNoOp(t *testing.T) {
	email := &fakeEmail{}
	n := NewNotifier(notifierConfig(false, false), nil, email, logger.NewTestLogger(t))

	require.NoError(t, n.StatusChanged(context.Background(), sampleApp()))
	assert.Empty(t, email.calls)
}
