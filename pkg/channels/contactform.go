package channels

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/prospexa-ai/platform/pkg/common/config"
	"github.com/prospexa-ai/platform/pkg/common/httpclient"
	"github.com/prospexa-ai/platform/pkg/common/models"
)

// ContactFormAdapter submits the message through the lead's website contact
// form. The recipient address is the form URL itself.
type ContactFormAdapter struct {
	client    *http.Client
	userAgent string
	fromEmail string
	fromName  string
}

func NewContactFormAdapter(cfg *config.Config) *ContactFormAdapter {
	return &ContactFormAdapter{
		client:    httpclient.New(cfg.RequestTimeout),
		userAgent: cfg.ContactFormUserAgent,
		fromEmail: cfg.SMTPFrom,
		fromName:  "Prospexa Outreach",
	}
}

func (a *ContactFormAdapter) Channel() models.Channel { return models.ChannelContactForm }

func (a *ContactFormAdapter) Send(ctx context.Context, msg models.OutreachMessage, recipient string) SendResult {
	formURL, err := url.Parse(recipient)
	if err != nil || formURL.Scheme == "" || formURL.Host == "" {
		return fatal(fmt.Sprintf("invalid contact form URL %q", recipient))
	}

	form := url.Values{}
	form.Set("name", a.fromName)
	form.Set("email", a.fromEmail)
	if msg.Subject != "" {
		form.Set("subject", msg.Subject)
	}
	form.Set("message", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, formURL.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return fatal(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return recoverable(err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		// Forms commonly redirect to a thank-you page on success.
		return delivered("")
	case resp.StatusCode == http.StatusTooManyRequests:
		return recoverable("contact form rate limited")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fatal(fmt.Sprintf("contact form rejected submission: status %d", resp.StatusCode))
	default:
		return recoverable(fmt.Sprintf("contact form error: status %d", resp.StatusCode))
	}
}
