// Package notify announces accepted jobs over SNS and SES. Delivery is
// best-effort; a failed notification is logged, never returned to the
// pipeline as a fault.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"jobingest/internal/common/aws"
	"jobingest/internal/common/config"
	"jobingest/internal/common/logger"
	"jobingest/internal/models"
)

// SNSPublisher is the subset of the SNS client the notifier uses.
type SNSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// SESSender is the subset of the SES client the notifier uses.
type SESSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// Notifier fans one accepted job out to the enabled channels.
type Notifier struct {
	cfg    config.NotificationConfig
	sns    SNSPublisher
	ses    SESSender
	logger logger.Logger
}

// New builds a Notifier with real AWS clients for the enabled channels.
// With both channels disabled no AWS configuration is loaded at all.
func New(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	n := &Notifier{cfg: cfg, logger: log}

	if cfg.AWS.SNS.Enabled {
		client, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("init sns client: %w", err)
		}
		n.sns = client
	}
	if cfg.AWS.SES.Enabled {
		client, err := aws.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("init ses client: %w", err)
		}
		n.ses = client
	}

	return n, nil
}

// NewWithClients is the injection seam for tests.
func NewWithClients(cfg config.NotificationConfig, snsClient SNSPublisher, sesClient SESSender, log logger.Logger) *Notifier {
	return &Notifier{cfg: cfg, sns: snsClient, ses: sesClient, logger: log}
}

// JobAccepted announces a freshly persisted job. Errors are swallowed after
// logging; the job is already durable at this point.
func (n *Notifier) JobAccepted(ctx context.Context, job models.PersistedJob) {
	if n.sns != nil && n.cfg.AWS.SNS.Enabled {
		n.publishSNS(ctx, job)
	}
	if n.ses != nil && n.cfg.AWS.SES.Enabled {
		n.sendEmail(ctx, job)
	}
}

func (n *Notifier) publishSNS(ctx context.Context, job models.PersistedJob) {
	payload, err := json.Marshal(job)
	if err != nil {
		n.logger.Warn("sns payload marshal failed", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
		return
	}

	_, err = n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.cfg.AWS.SNS.TopicARN),
		Subject:  awssdk.String("New job accepted: " + job.Title),
		Message:  awssdk.String(string(payload)),
	})
	if err != nil {
		n.logger.Warn("sns publish failed", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
		return
	}
	n.logger.Debug("sns notification sent", map[string]interface{}{"job_id": job.ID})
}

func (n *Notifier) sendEmail(ctx context.Context, job models.PersistedJob) {
	body := fmt.Sprintf(
		"A new job posting was accepted.\n\nTitle: %s\nCompany: %s\nLocation: %s, %s\nURL: %s\nQuality score: %.2f\n",
		job.Title, job.CompanyName, job.City, job.Country, job.URL, job.QualityScore,
	)

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: awssdk.String(n.cfg.AWS.SES.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{n.cfg.AWS.SES.ToEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String("New job accepted: " + job.Title)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body)},
			},
		},
	})
	if err != nil {
		n.logger.Warn("ses send failed", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
		return
	}
	n.logger.Debug("ses notification sent", map[string]interface{}{"job_id": job.ID})
}
