// Package mail wraps the Resend API for the transactional notifications the
// platform sends, verification outcomes and welcome emails today.
package mail

import (
	"context"
	"errors"
	"fmt"

	"fanforge-server/internal/observability"

	"github.com/resendlabs/resend-go"
)

// Display name stamped on every outgoing message.
const senderName = "FanForge"

type ResendClient struct {
	client *resend.Client
	from   string
	logger *observability.Logger
}

// NewResendClient builds a client sending from the given address. The
// address must belong to a domain verified with Resend or sends are
// rejected upstream.
func NewResendClient(apiKey, senderAddress string, logger *observability.Logger) (*ResendClient, error) {
	if senderAddress == "" {
		return nil, errors.New("sender address is required")
	}
	client := resend.NewClient(apiKey)
	if client == nil {
		return nil, errors.New("failed to create Resend client")
	}

	return &ResendClient{
		client: client,
		from:   fmt.Sprintf("%s <%s>", senderName, senderAddress),
		logger: logger,
	}, nil
}

// SendEmail delivers a single HTML message and returns the Resend id.
func (c *ResendClient) SendEmail(ctx context.Context, to, subject, htmlContent string) (string, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "email_to", Value: to},
		observability.Field{Key: "email_subject", Value: subject},
	)

	res, err := c.client.Emails.Send(&resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlContent,
	})
	if err != nil {
		c.logger.Error(ctx, "failed to send email", err)
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.Info(ctx, "email sent")
	return res.Id, nil
}
