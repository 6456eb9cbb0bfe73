package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prospexa-ai/platform/pkg/common/config"
	"github.com/prospexa-ai/platform/pkg/common/httpclient"
	"github.com/prospexa-ai/platform/pkg/common/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// NetworkAdapter delivers a direct message through the professional network's
// REST messaging API, authenticated with client-credentials OAuth2.
type NetworkAdapter struct {
	baseURL string
	client  *http.Client
}

func NewNetworkAdapter(cfg *config.Config) *NetworkAdapter {
	creds := &clientcredentials.Config{
		ClientID:     cfg.NetworkClientID,
		ClientSecret: cfg.NetworkClientSecret,
		TokenURL:     cfg.NetworkTokenURL,
		Scopes:       []string{"w_member_messages"},
	}

	// Token refresh rides on the tuned transport.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpclient.New(cfg.RequestTimeout))
	client := creds.Client(ctx)
	client.Timeout = cfg.RequestTimeout

	return &NetworkAdapter{
		baseURL: strings.TrimRight(cfg.NetworkAPIBaseURL, "/"),
		client:  client,
	}
}

func (a *NetworkAdapter) Channel() models.Channel { return models.ChannelNetwork }

type networkMessageRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

type networkMessageResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

func (a *NetworkAdapter) Send(ctx context.Context, msg models.OutreachMessage, recipient string) SendResult {
	if recipient == "" {
		return fatal("empty network handle")
	}
	if a.baseURL == "" {
		return recoverable("network API not configured")
	}

	payload, err := json.Marshal(networkMessageRequest{
		Recipient: recipient,
		Subject:   msg.Subject,
		Body:      msg.Body,
	})
	if err != nil {
		return fatal(fmt.Sprintf("marshal message: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v2/messages", bytes.NewReader(payload))
	if err != nil {
		return fatal(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		// Timeouts and connection resets are transient.
		return recoverable(err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return classifyNetworkResponse(resp.StatusCode, body)
}

func classifyNetworkResponse(status int, body []byte) SendResult {
	switch {
	case status >= 200 && status < 300:
		var parsed networkMessageResponse
		_ = json.Unmarshal(body, &parsed)
		return delivered(parsed.MessageID)
	case status == http.StatusTooManyRequests:
		return recoverable("network API quota exceeded")
	case status == http.StatusForbidden, status == http.StatusNotFound, status == http.StatusGone:
		// Recipient opted out, blocked us, or the handle no longer exists.
		return fatal(fmt.Sprintf("network API rejected recipient: status %d", status))
	case status >= 400 && status < 500:
		return fatal(fmt.Sprintf("network API rejected request: status %d %s", status, strings.TrimSpace(string(body))))
	default:
		return recoverable(fmt.Sprintf("network API error: status %d", status))
	}
}
