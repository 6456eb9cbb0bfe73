// Package inbox wraps the mailbox collaborator that collects replies to our
// outreach. The orchestrator polls it once per cycle with the last durable
// checkpoint.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prospexa-ai/platform/pkg/common/config"
	"github.com/prospexa-ai/platform/pkg/common/httpclient"
	"github.com/prospexa-ai/platform/pkg/common/models"
)

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient returns nil when no inbox endpoint is configured; the
// orchestrator treats a nil inbox as "ingest disabled".
func NewClient(cfg *config.Config) *Client {
	if cfg.InboxBaseURL == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.InboxBaseURL, "/"),
		apiKey:  cfg.InboxAPIKey,
		client:  httpclient.New(cfg.RequestTimeout),
	}
}

type repliesResponse struct {
	Replies []struct {
		ThreadID   string    `json:"thread_id"`
		From       string    `json:"from"`
		BodyText   string    `json:"body_text"`
		ReceivedAt time.Time `json:"received_at"`
	} `json:"replies"`
}

func (c *Client) FetchNewReplies(ctx context.Context, since time.Time) ([]models.InboundReply, error) {
	endpoint := fmt.Sprintf("%s/api/v1/replies?since=%s", c.baseURL, url.QueryEscape(since.UTC().Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	// A transient poll failure would otherwise cost a whole cycle; anything
	// the provider will keep rejecting aborts the remaining attempts.
	var parsed repliesResponse
	err = httpclient.Retry(ctx, 3, 200*time.Millisecond, func() error {
		resp, err := c.client.Do(req)
		if err != nil {
			if httpclient.IsRetriable(err) {
				return fmt.Errorf("inbox poll: %w", err)
			}
			return httpclient.Permanent(fmt.Errorf("inbox poll: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("inbox poll: unexpected status %d", resp.StatusCode)
		default:
			return httpclient.Permanent(fmt.Errorf("inbox poll: unexpected status %d", resp.StatusCode))
		}

		parsed = repliesResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return httpclient.Permanent(fmt.Errorf("inbox poll: decode response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	replies := make([]models.InboundReply, 0, len(parsed.Replies))
	for _, r := range parsed.Replies {
		replies = append(replies, models.InboundReply{
			ThreadID:   r.ThreadID,
			From:       r.From,
			BodyText:   r.BodyText,
			ReceivedAt: r.ReceivedAt,
		})
	}
	return replies, nil
}
