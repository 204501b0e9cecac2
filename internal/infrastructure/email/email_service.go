package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"path/filepath"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	config "github.com/treefam/treefam-backend/configs"
	"github.com/treefam/treefam-backend/internal/core/ports"
)

// EmailService delivers verification and password-reset links via SendGrid.
type EmailService struct {
	config    *config.EmailConfig
	logger    *logrus.Logger
	client    *sendgrid.Client
	templates map[string]*template.Template
}

type templateData struct {
	Name string
	Link string
}

// NewEmailService creates a new email service instance
func NewEmailService(cfg *config.EmailConfig, logger *logrus.Logger) (ports.EmailService, error) {
	client := sendgrid.NewSendClient(cfg.SendGridAPIKey)

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}

	return &EmailService{
		config:    cfg,
		logger:    logger,
		client:    client,
		templates: templates,
	}, nil
}

func loadTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	templateDir := "templates/email"
	templateFiles := []string{
		"verification.html",
		"password_reset.html",
	}

	for _, file := range templateFiles {
		name := file[:len(file)-len(filepath.Ext(file))]

		tmpl, err := template.ParseFiles(filepath.Join(templateDir, file))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}

		templates[name] = tmpl
	}

	return templates, nil
}

// SendVerificationEmail mails a confirmation link carrying the raw secret.
// The secret appears only in this message; storage holds its hash.
func (e *EmailService) SendVerificationEmail(ctx context.Context, to, name, rawToken string) error {
	link := fmt.Sprintf("%s/confirm?token=%s", e.config.BaseURL, url.QueryEscape(rawToken))
	return e.renderAndSend(ctx, "verification", to, "Confirm your TreeFam registration", templateData{Name: name, Link: link})
}

// SendPasswordResetEmail mails a password reset link carrying the raw secret.
func (e *EmailService) SendPasswordResetEmail(ctx context.Context, to, name, rawToken string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", e.config.BaseURL, url.QueryEscape(rawToken))
	return e.renderAndSend(ctx, "password_reset", to, "Reset your TreeFam password", templateData{Name: name, Link: link})
}

func (e *EmailService) renderAndSend(ctx context.Context, templateName, to, subject string, data templateData) error {
	tmpl, ok := e.templates[templateName]
	if !ok {
		return fmt.Errorf("unknown email template %q", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email template %q: %w", templateName, err)
	}

	return e.sendEmail(ctx, to, subject, body.String())
}

func (e *EmailService) sendEmail(ctx context.Context, to, subject, htmlContent string) error {
	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	recipient := mail.NewEmail("", to)

	message := mail.NewSingleEmail(from, subject, recipient, "", htmlContent)

	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{"to": to, "subject": subject}).WithError(err).Error("failed to send email")
		}
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{"to": to, "status": response.StatusCode}).Error("email provider rejected message")
		}
		return fmt.Errorf("email provider rejected message: status %d", response.StatusCode)
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("email sent")
	}
	return nil
}
