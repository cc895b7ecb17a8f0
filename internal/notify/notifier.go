// internal/notify/notifier.go

// Package notify sends applicant and ops notifications: an SMS when an
// application is submitted and an email when its status changes. Both
// channels are gated by configuration and fail soft.
package notify

import (
	"context"
	"fmt"

	"github.com/Norbert250/ORION-2-sub000/internal/common/config"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/models"
)

// SMSPublisher is satisfied by the SNS client wrapper.
type SMSPublisher interface {
	PublishSMS(ctx context.Context, phoneNumber, message, senderID string) error
}

// EmailSender is satisfied by the SES client wrapper.
type EmailSender interface {
	SendPlain(ctx context.Context, from, to, subject, body string) error
}

type Notifier struct {
	cfg    config.NotificationConfig
	sms    SMSPublisher
	email  EmailSender
	logger logger.Logger
}

func NewNotifier(cfg config.NotificationConfig, sms SMSPublisher, email EmailSender, log logger.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		sms:    sms,
		email:  email,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// Submitted texts the applicant a confirmation with their application id.
func (n *Notifier) Submitted(ctx context.Context, app models.Application) error {
	if !n.cfg.SMS.Enabled || n.sms == nil {
		return nil
	}

	message := fmt.Sprintf(
		"Your loan application has been received. Reference: %s. You will be notified once it has been reviewed.",
		app.ID)

	if err := n.sms.PublishSMS(ctx, app.PhoneNumber, message, n.cfg.SMS.SenderID); err != nil {
		n.logger.Warn("submission sms failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
		return err
	}
	return nil
}

// StatusChanged emails the ops mailbox when an application's status is
// updated from the dashboard.
func (n *Notifier) StatusChanged(ctx context.Context, app models.Application) error {
	if !n.cfg.Email.Enabled || n.email == nil {
		return nil
	}

	subject := fmt.Sprintf("Application %s is now %s", app.ID, app.Status)
	body := fmt.Sprintf(
		"Application %s (%s, %s) changed status to %s.\nComposite score: %d.",
		app.ID, app.FullName, app.PhoneNumber, app.Status, app.CompositeScore)

	if err := n.email.SendPlain(ctx, n.cfg.Email.FromEmail, n.cfg.Email.OpsEmail, subject, body); err != nil {
		n.logger.Warn("status email failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
		return err
	}
	return nil
}
