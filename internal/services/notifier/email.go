package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pkg/errors"

	"krakendca/config"
	"krakendca/internal/domain"
)

// Email delivers messages over SMTP, one session per event.
type Email struct {
	cfg config.EmailConfig
}

func NewEmail(cfg config.EmailConfig) *Email {
	return &Email{cfg: cfg}
}

func (e *Email) Name() string { return "email" }

// Send opens an SMTP session and submits a plain-text message. STARTTLS is
// negotiated by the transport when the server offers it.
func (e *Email) Send(_ context.Context, rec domain.TransactionRecord) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPServer, e.cfg.SMTPPort)

	headers := []string{
		"From: " + e.cfg.FromEmail,
		"To: " + e.cfg.ToEmail,
		"Subject: " + subject(rec),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
	}
	// The blank line after the headers is mandatory; without it the body is
	// swallowed into the header section.
	body := strings.Join(headers, "\r\n") + "\r\n\r\n" + Message(rec) + "\r\n"

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.SMTPServer)
	}

	if err := smtp.SendMail(addr, auth, e.cfg.FromEmail, []string{e.cfg.ToEmail}, []byte(body)); err != nil {
		return errors.Wrapf(err, "failed to send mail via %s", addr)
	}

	return nil
}
