package services

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"

	"writ_docket_go/config"
)

//go:embed templates/emails/*
var emailTemplates embed.FS

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// loadTemplate renders templates/emails/<name>.html and .txt with data
func loadTemplate(templateName string, data interface{}) (html string, text string, err error) {
	htmlSrc, err := emailTemplates.ReadFile("templates/emails/" + templateName + ".html")
	if err != nil {
		return "", "", fmt.Errorf("failed to read template %s.html: %w", templateName, err)
	}
	textSrc, err := emailTemplates.ReadFile("templates/emails/" + templateName + ".txt")
	if err != nil {
		return "", "", fmt.Errorf("failed to read template %s.txt: %w", templateName, err)
	}

	htmlTmpl, err := htmltemplate.New(templateName).Parse(string(htmlSrc))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s.html: %w", templateName, err)
	}
	textTmpl, err := texttemplate.New(templateName).Parse(string(textSrc))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s.txt: %w", templateName, err)
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.html: %w", templateName, err)
	}
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.txt: %w", templateName, err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}

	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Info().Str("resend_id", sent.Id).Strs("to", email.To).Msg("Email sent")
	return nil
}

// logEmailToConsole logs email details in development mode
func logEmailToConsole(email *Email) {
	log.Info().
		Strs("to", email.To).
		Str("subject", email.Subject).
		Str("text", email.TextBody).
		Str("html", truncate(email.HTMLBody, 500)).
		Msg("Email logged (test mode, not sent)")
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// SendEmailAsync sends an email in a goroutine so the response is not held up
func SendEmailAsync(cfg *config.Config, email *Email) {
	emailCopy := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	go func(cfg *config.Config, email *Email) {
		if err := SendEmail(cfg, email); err != nil {
			log.Error().Err(err).Strs("to", email.To).Msg("Error sending async email")
		}
	}(cfg, emailCopy)
}

// BuildStatusChangeEmail tells a case owner their writ has a new status
func BuildStatusChangeEmail(change StatusChange) (*Email, error) {
	html, text, err := loadTemplate("status_change", change)
	if err != nil {
		return nil, err
	}
	return &Email{
		To:       []string{change.OwnerEmail},
		Subject:  fmt.Sprintf("Case %s is now %s", change.CaseNumber, strings.ToLower(change.To)),
		HTMLBody: html,
		TextBody: text,
	}, nil
}

// StatusNotifier is told about every case status change after it commits
type StatusNotifier interface {
	NotifyStatusChange(change StatusChange) error
}

// EmailNotifier emails the case owner through Resend
type EmailNotifier struct {
	Config *config.Config
}

// NotifyStatusChange builds the email and queues it for delivery
func (n *EmailNotifier) NotifyStatusChange(change StatusChange) error {
	if change.OwnerEmail == "" {
		return nil
	}
	email, err := BuildStatusChangeEmail(change)
	if err != nil {
		return err
	}
	SendEmailAsync(n.Config, email)
	return nil
}
