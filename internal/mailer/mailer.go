// Package mailer sends the three transactional emails the auth flows
// trigger. All sends are best-effort side effects: callers log a failure
// and carry on — a lost email never rolls back a committed state change.
package mailer

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/nahiyan/tasktrail/internal/config"
)

// Notifier is the narrow interface the auth service depends on. Exactly
// three verbs; anything richer belongs to a different subsystem.
type Notifier interface {
	SendVerification(to, token string, ttl time.Duration) error
	SendPasswordReset(to, token string, ttl time.Duration) error
	SendWelcome(to, displayName string) error
}

// Mailer delivers notifications over SMTP via gomail.
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

var _ Notifier = (*Mailer)(nil)

// New creates an SMTP-backed Mailer. baseURL is the frontend origin the
// emailed links point at.
func New(cfg config.SMTPConfig, baseURL string) *Mailer {
	return &Mailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		baseURL: baseURL,
	}
}

func (m *Mailer) SendVerification(to, token string, ttl time.Duration) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.baseURL, token)
	body := fmt.Sprintf(`
		<p>Hi,</p>
		<p>Thanks for signing up. Please confirm your email address by clicking the link below:</p>
		<p><a href="%s">%s</a></p>
		<p>This link expires in %s.</p>
		<p>If you did not create an account, you can safely ignore this email.</p>
	`, link, link, ttl)

	return m.send(to, "Verify your email address", body)
}

func (m *Mailer) SendPasswordReset(to, token string, ttl time.Duration) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, token)
	body := fmt.Sprintf(`
		<p>Hi,</p>
		<p>We received a request to reset the password for your account.</p>
		<p>If you made this request, click the link below to choose a new password:</p>
		<p><a href="%s">%s</a></p>
		<p>This link expires in %s.</p>
		<p>If you did not request a password reset, you can safely ignore this email.</p>
	`, link, link, ttl)

	return m.send(to, "Password reset request", body)
}

func (m *Mailer) SendWelcome(to, displayName string) error {
	name := displayName
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your email is verified and your account is ready.</p>
		<p>Log in and start tracking: <a href="%s">%s</a></p>
	`, name, m.baseURL, m.baseURL)

	return m.send(to, "Welcome to tasktrail", body)
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mailer: sending %q to %s: %w", subject, to, err)
	}
	return nil
}

// LogNotifier logs instead of sending. Used when no SMTP host is
// configured so local development works without a mail account. It never
// logs the token itself.
type LogNotifier struct {
	Logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) SendVerification(to, _ string, _ time.Duration) error {
	n.Logger.Info("email transport not configured, skipping verification email", slog.String("to", to))
	return nil
}

func (n *LogNotifier) SendPasswordReset(to, _ string, _ time.Duration) error {
	n.Logger.Info("email transport not configured, skipping reset email", slog.String("to", to))
	return nil
}

func (n *LogNotifier) SendWelcome(to, _ string) error {
	n.Logger.Info("email transport not configured, skipping welcome email", slog.String("to", to))
	return nil
}
