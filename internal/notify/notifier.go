// internal/notify/notifier.go
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"origination-intake/internal/common/config"
	"origination-intake/internal/common/logger"
	"origination-intake/internal/records"
)

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Confirmation identifies one sent (or skipped) submission
// confirmation.
type Confirmation struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"`
	SentAt         string `json:"sentAt"`
}

// Recipient is the contact information pulled from the draft's personal
// section by the caller.
type Recipient struct {
	Email string
	Phone string
}

// Notifier sends submission confirmations over SES email and, for
// larger offers, SNS SMS. Failures are reported in the confirmation
// status, not as errors, so a flaky mail path never unwinds an already
// accepted submission.
type Notifier struct {
	config    config.NotificationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Notifier{
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "submission-notifier"}),
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
	}, nil
}

// NewNotifierWithClients wires explicit SES/SNS implementations, used
// by tests.
func NewNotifierWithClients(cfg config.NotificationConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	return &Notifier{
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "submission-notifier"}),
		sesClient: sesClient,
		snsClient: snsClient,
	}
}

// SendConfirmation notifies the applicant that their submission was
// accepted. SMS goes out only when enabled and the offer meets the
// configured minimum.
func (n *Notifier) SendConfirmation(ctx context.Context, recipient Recipient, record *records.SubmissionRecord) *Confirmation {
	notificationID := uuid.New().String()
	sentAt := time.Now().UTC().Format(time.RFC3339)

	subject := "Your financing application has been submitted"
	body := fmt.Sprintf(
		"Your application %s was submitted successfully. Reference: %s.",
		record.AccountKey, record.ID,
	)

	emailSent := false
	smsSent := false

	if n.config.Email.Enabled && recipient.Email != "" {
		if err := n.sendEmail(ctx, recipient.Email, subject, body); err != nil {
			n.logger.Error("email send failed", map[string]interface{}{
				"error": err.Error(),
				"email": recipient.Email,
			})
			return &Confirmation{NotificationID: notificationID, Status: StatusFailed, SentAt: sentAt}
		}
		emailSent = true
	}

	if n.config.SMS.Enabled && recipient.Phone != "" && record.OfferAmount >= n.config.SMS.MinOfferAmount {
		if err := n.sendSMS(ctx, recipient.Phone, body); err != nil {
			n.logger.Error("SMS send failed", map[string]interface{}{
				"error": err.Error(),
				"phone": recipient.Phone,
			})
			return &Confirmation{NotificationID: notificationID, Status: StatusFailed, SentAt: sentAt}
		}
		smsSent = true
	}

	status := StatusDisabled
	if emailSent || smsSent {
		status = StatusSent
	}

	n.logger.Info("submission confirmation processed", map[string]interface{}{
		"notificationId": notificationID,
		"accountKey":     record.AccountKey,
		"status":         status,
		"emailSent":      emailSent,
		"smsSent":        smsSent,
	})

	return &Confirmation{
		NotificationID: notificationID,
		Status:         status,
		SentAt:         sentAt,
	}
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.Email.FromEmail),
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, to, message string) error {
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}
