package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"
)

// sesSender is the part of the SES v2 client the service uses
type sesSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	log        logrus.FieldLogger
}

// NewEmailService creates a new email service. Without a sender address the
// service is disabled and every send is a logged no-op.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool, log logrus.FieldLogger) (*EmailService, error) {
	if debug {
		log = log.WithField("email_debug", true)
	}

	if fromEmail == "" {
		log.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, log: log}, nil
	}

	log.WithFields(logrus.Fields{
		"region":   awsRegion,
		"from":     fromEmail,
		"base_url": appBaseURL,
	}).Debug("Initializing email service with AWS SES")

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.WithFields(logrus.Fields{"from": fromEmail, "region": awsRegion}).Info("Email service enabled")
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, log), nil
}

func newEmailService(client sesSender, fromEmail, fromName, appBaseURL string, log logrus.FieldLogger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		log:        log,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s != nil && s.enabled
}

const emailStyle = `
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #c0392b; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #c0392b; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>`

func renderEmail(heading, body string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">%s
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>%s</h1>
		</div>
		<div class="content">
%s
		</div>
		<div class="footer">
			<p>This is an automated email from VocaFlow. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, emailStyle, html.EscapeString(heading), body)
}

// SendWelcomeEmail greets a newly registered teacher
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.IsEnabled() {
		s.log.WithField("to", toEmail).Debug("Skipping welcome email (service disabled)")
		return nil
	}

	subject := "Welcome to VocaFlow!"
	htmlBody := renderEmail("Welcome to VocaFlow!", fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>Your teacher account is ready. Your students can now practice real Spanish conversations with an AI partner, by text or by voice.</p>
			<ul>
				<li>Create a classroom and share its join code</li>
				<li>Write conversation assignments with vocabulary and a character for the tutor to play</li>
				<li>Review transcripts your students submit for grading</li>
			</ul>
			<p style="text-align: center;">
				<a href="%s/login" class="button">Get Started</a>
			</p>`, html.EscapeString(toName), s.appBaseURL))

	textBody := fmt.Sprintf(`Hi %s,

Your teacher account is ready. Your students can now practice real Spanish conversations with an AI partner, by text or by voice.

- Create a classroom and share its join code
- Write conversation assignments with vocabulary and a character for the tutor to play
- Review transcripts your students submit for grading

Get started: %s/login

---
This is an automated email from VocaFlow. Please do not reply.
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendSubmissionNotification tells a teacher a student submitted a session
func (s *EmailService) SendSubmissionNotification(ctx context.Context, toEmail, toName, studentName, assignmentTitle, sessionID string) error {
	if !s.IsEnabled() {
		s.log.WithField("to", toEmail).Debug("Skipping submission email (service disabled)")
		return nil
	}

	link := fmt.Sprintf("%s/sessions/%s", s.appBaseURL, sessionID)
	subject := fmt.Sprintf("%s submitted \"%s\"", studentName, assignmentTitle)
	htmlBody := renderEmail("New submission", fmt.Sprintf(`
			<p>Hi %s,</p>
			<p><strong>%s</strong> submitted a conversation for <strong>%s</strong>.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Review Transcript</a>
			</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>`,
		html.EscapeString(toName), html.EscapeString(studentName), html.EscapeString(assignmentTitle), link, link))

	textBody := fmt.Sprintf(`Hi %s,

%s submitted a conversation for "%s".

Review the transcript: %s

---
This is an automated email from VocaFlow. Please do not reply.
`, toName, studentName, assignmentTitle, link)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	log := s.log.WithFields(logrus.Fields{"to": toEmail, "subject": subject})
	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if result.MessageId != nil {
		log = log.WithField("message_id", *result.MessageId)
	}
	log.Info("Email sent")
	return nil
}
