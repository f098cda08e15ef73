package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Template names a notification layout
type Template string

const (
	TemplateRSVP         Template = "rsvp"
	TemplateAnnouncement Template = "announcement"
	TemplateJoinApproved Template = "join_approved"
)

// Recipient is the addressee of a notification
type Recipient struct {
	Email string
	Name  string
}

// Notification carries the template and the values it renders
type Notification struct {
	Template      Template
	ActorName     string
	CommunityName string
	EventName     string
	Status        string
	Title         string
	Content       string
}

// Notifier delivers a single rendered notification
type Notifier interface {
	SendNotification(ctx context.Context, to Recipient, n Notification) error
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool
	BaseURL   string
}

// SMTPNotifier implements Notifier over SMTP
type SMTPNotifier struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewSMTPNotifier creates a new SMTP-backed Notifier
func NewSMTPNotifier(config SMTPConfig, logger zerolog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		config: config,
		logger: logger.With().Str("component", "email").Logger(),
	}
}

var layouts = map[Template]struct {
	subject func(n Notification) string
	body    *template.Template
}{
	TemplateRSVP: {
		subject: func(n Notification) string { return "New RSVP for " + n.EventName },
		body: template.Must(template.New("rsvp").Parse(
			`<p>Hello {{.RecipientName}},</p>
<p><strong>{{.ActorName}}</strong> responded <strong>{{.Status}}</strong> to your event <strong>{{.EventName}}</strong> in {{.CommunityName}}.</p>`)),
	},
	TemplateAnnouncement: {
		subject: func(n Notification) string { return fmt.Sprintf("[%s] %s", n.CommunityName, n.Title) },
		body: template.Must(template.New("announcement").Parse(
			`<p>Hello {{.RecipientName}},</p>
<p>{{.ActorName}} posted an announcement in <strong>{{.CommunityName}}</strong>:</p>
<h3>{{.Title}}</h3>
<p>{{.Content}}</p>`)),
	},
	TemplateJoinApproved: {
		subject: func(n Notification) string { return "You have joined " + n.CommunityName },
		body: template.Must(template.New("join_approved").Parse(
			`<p>Hello {{.RecipientName}},</p>
<p>Your request to join <strong>{{.CommunityName}}</strong> was approved.</p>`)),
	},
}

type renderData struct {
	Notification
	RecipientName string
}

// Render produces the subject and HTML body for n
func Render(to Recipient, n Notification) (subject, body string, err error) {
	layout, ok := layouts[n.Template]
	if !ok {
		return "", "", fmt.Errorf("unknown notification template %q", n.Template)
	}

	data := renderData{Notification: n, RecipientName: to.Name}

	subject = layout.subject(n)

	var buf bytes.Buffer
	buf.WriteString(`<html><body><div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	if err := layout.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render %s notification: %w", n.Template, err)
	}
	buf.WriteString(`<p>Best regards,<br>The UniHub Team</p></div></body></html>`)

	return subject, buf.String(), nil
}

// SendNotification renders n and sends it to the recipient
func (s *SMTPNotifier) SendNotification(ctx context.Context, to Recipient, n Notification) error {
	subject, body, err := Render(to, n)
	if err != nil {
		return err
	}

	// Without credentials the mail is only logged (development)
	if s.config.Username == "" || s.config.Password == "" {
		s.logger.Warn().
			Str("toEmail", to.Email).
			Str("template", string(n.Template)).
			Str("subject", subject).
			Msg("SMTP credentials not configured - notification not sent")
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.sendHTMLEmail(to.Email, subject, body)
}

func (s *SMTPNotifier) buildMessage(toEmail, subject, htmlBody string) string {
	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail),
		"To":           toEmail,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headers[k])
	}
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.String()
}

// sendHTMLEmail sends an HTML email
func (s *SMTPNotifier) sendHTMLEmail(toEmail, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	message := s.buildMessage(toEmail, subject, htmlBody)
	serverAddress := s.config.Host + ":" + strconv.Itoa(s.config.Port)

	if !s.config.UseTLS {
		if err := smtp.SendMail(serverAddress, auth, s.config.FromEmail, []string{toEmail}, []byte(message)); err != nil {
			s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to send email")
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", serverAddress, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to connect to SMTP server")
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if err = client.Auth(auth); err != nil {
		s.logger.Error().Err(err).Msg("SMTP authentication failed")
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(toEmail); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to write email message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return nil
}
