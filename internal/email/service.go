package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"fanforge-server/internal/clients/mail"
	"fanforge-server/internal/observability"
)

var (
	ErrSendingEmail  = errors.New("error sending email")
	ErrEmptyTemplate = errors.New("email template is empty")
)

// EmailService handles sending emails
type EmailService struct {
	mailClient *mail.ResendClient
	logger     *observability.Logger
	templates  map[string]string
}

// TemplateData represents the data that can be used in templates
type TemplateData struct {
	FirstName        string
	Email            string
	Platform         string
	Username         string
	VerificationCode string
	ProfileURL       string
	AttemptCount     int
}

// New creates a new EmailService
func New(mailClient *mail.ResendClient, logger *observability.Logger) *EmailService {
	return &EmailService{
		mailClient: mailClient,
		logger:     logger,
		templates: map[string]string{
			"welcome": `
			<html>
				<body>
					<h1>Welcome, {{.FirstName}}!</h1>
					<p>Thanks for joining. Claim your social accounts and start entering contests.</p>
				</body>
			</html>
			`,
			"verification_code": `
			<html>
				<body>
					<h1>Verify your {{.Platform}} account</h1>
					<p>Add the code below to the bio of <strong>{{.Username}}</strong>, then trigger verification.</p>
					<p style="font-size: 24px; letter-spacing: 4px;"><strong>{{.VerificationCode}}</strong></p>
					<p>You can remove the code as soon as the account shows as verified.</p>
				</body>
			</html>
			`,
			"verification_succeeded": `
			<html>
				<body>
					<h1>Your {{.Platform}} account is verified</h1>
					<p><strong>{{.Username}}</strong> is now linked to your profile. You can remove the code from your bio.</p>
				</body>
			</html>
			`,
			"verification_failed": `
			<html>
				<body>
					<h1>We couldn't verify your {{.Platform}} account</h1>
					<p>The code <strong>{{.VerificationCode}}</strong> was not found in the bio of <strong>{{.Username}}</strong>.</p>
					<p>Make sure the code is saved in your bio on one line, then trigger verification again.</p>
				</body>
			</html>
			`,
		},
	}
}

func (s *EmailService) renderTemplate(templateName string, data TemplateData) (string, error) {
	tmplStr, ok := s.templates[templateName]
	if !ok {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	tmpl, err := template.New(templateName).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

func (s *EmailService) send(ctx context.Context, to, subject, templateName string, data TemplateData) error {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "email_type", Value: templateName},
		observability.Field{Key: "recipient", Value: to},
	)

	htmlContent, err := s.renderTemplate(templateName, data)
	if err != nil {
		s.logger.Error(ctx, "failed to render email template", err)
		return fmt.Errorf("%w: %s", ErrEmptyTemplate, err.Error())
	}

	if _, err := s.mailClient.SendEmail(ctx, to, subject, htmlContent); err != nil {
		s.logger.Error(ctx, "failed to send email", err)
		return fmt.Errorf("%w: %s", ErrSendingEmail, err.Error())
	}
	return nil
}

// SendWelcomeEmail sends a welcome email to a new user
func (s *EmailService) SendWelcomeEmail(ctx context.Context, to, firstName string) error {
	return s.send(ctx, to, "Welcome", "welcome", TemplateData{FirstName: firstName, Email: to})
}

// SendVerificationCodeEmail tells the user which code to place in their bio
func (s *EmailService) SendVerificationCodeEmail(ctx context.Context, to, platform, username, code string) error {
	return s.send(ctx, to, "Verify your social account", "verification_code", TemplateData{
		Platform:         platform,
		Username:         username,
		VerificationCode: code,
	})
}

// SendVerificationSucceededEmail notifies the user their account is verified
func (s *EmailService) SendVerificationSucceededEmail(ctx context.Context, to, platform, username string) error {
	return s.send(ctx, to, "Your account is verified", "verification_succeeded", TemplateData{
		Platform: platform,
		Username: username,
	})
}

// SendVerificationFailedEmail notifies the user the code was not found
func (s *EmailService) SendVerificationFailedEmail(ctx context.Context, to, platform, username, code string) error {
	return s.send(ctx, to, "Verification did not complete", "verification_failed", TemplateData{
		Platform:         platform,
		Username:         username,
		VerificationCode: code,
	})
}
