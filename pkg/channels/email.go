package channels

import (
	"context"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/prospexa-ai/platform/pkg/common/config"
	"github.com/prospexa-ai/platform/pkg/common/models"
)

// Mailer sends plain-text email over SMTP. It is shared by the email channel
// adapter and the human-alert transport.
type Mailer struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.SMTPFrom,
	}
}

func (m *Mailer) Deliver(_ context.Context, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n",
		m.from, strings.Join(recipients, ", "), subject)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	return smtp.SendMail(addr, auth, m.from, recipients, []byte(headers+body))
}

// EmailAdapter delivers an outreach message over SMTP.
type EmailAdapter struct {
	mailer *Mailer
}

func NewEmailAdapter(mailer *Mailer) *EmailAdapter {
	return &EmailAdapter{mailer: mailer}
}

func (a *EmailAdapter) Channel() models.Channel { return models.ChannelEmail }

func (a *EmailAdapter) Send(ctx context.Context, msg models.OutreachMessage, recipient string) SendResult {
	if _, err := mail.ParseAddress(recipient); err != nil {
		return fatal(fmt.Sprintf("invalid email address %q", recipient))
	}

	subject := msg.Subject
	if subject == "" {
		subject = "Hello from Prospexa"
	}

	if err := a.mailer.Deliver(ctx, []string{recipient}, subject, msg.Body); err != nil {
		return classifySMTPError(err)
	}

	// SMTP gives no provider id; synthesize one for the audit trail.
	return delivered("smtp-" + uuid.New().String())
}

// Permanent SMTP rejections (5xx) mean the mailbox will never accept this
// message; everything else is worth a retry or a fallback channel.
func classifySMTPError(err error) SendResult {
	detail := err.Error()
	for _, code := range []string{"550", "551", "553", "554"} {
		if strings.Contains(detail, code) {
			return fatal(detail)
		}
	}
	return recoverable(detail)
}
