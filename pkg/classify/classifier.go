// Package classify turns reply text into a structured verdict. An LLM does
// the classification when configured; a keyword heuristic covers the rest so
// the reply-routing step degrades instead of failing.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/prospexa-ai/platform/pkg/common/config"
	"github.com/prospexa-ai/platform/pkg/common/httpclient"
	"github.com/prospexa-ai/platform/pkg/common/logger"
	"github.com/prospexa-ai/platform/pkg/common/models"
)

type Classifier struct {
	apiKey    string
	baseURL   string
	modelName string
	client    *http.Client
}

func NewClassifier(cfg *config.Config) *Classifier {
	return &Classifier{
		apiKey:    cfg.LLMAPIKey,
		baseURL:   strings.TrimRight(cfg.LLMBaseURL, "/"),
		modelName: cfg.LLMModelName,
		client:    httpclient.New(cfg.RequestTimeout),
	}
}

const systemPrompt = `You classify replies to business outreach messages.
Respond with a single JSON object: {"category": one of POSITIVE, NEGATIVE, NEUTRAL, OUT_OF_OFFICE, AUTO_REPLY, "confidence": 0.0-1.0}.`

func (c *Classifier) Classify(ctx context.Context, replyText string) (models.ReplyVerdict, error) {
	if c.apiKey == "" {
		return ClassifyKeywords(replyText), nil
	}

	verdict, err := c.classifyLLM(ctx, replyText)
	if err != nil {
		logger.Log.WithError(err).Warn("LLM classification failed, falling back to keyword heuristic")
		return ClassifyKeywords(replyText), nil
	}
	return verdict, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Classifier) classifyLLM(ctx context.Context, replyText string) (models.ReplyVerdict, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.modelName,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: replyText},
		},
	})
	if err != nil {
		return models.ReplyVerdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return models.ReplyVerdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return models.ReplyVerdict{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ReplyVerdict{}, fmt.Errorf("llm status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.ReplyVerdict{}, err
	}
	if len(parsed.Choices) == 0 {
		return models.ReplyVerdict{}, fmt.Errorf("llm returned no choices")
	}

	var verdict models.ReplyVerdict
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return models.ReplyVerdict{}, fmt.Errorf("llm returned unparseable verdict: %w", err)
	}
	switch verdict.Category {
	case models.ReplyPositive, models.ReplyNegative, models.ReplyNeutral, models.ReplyOutOfOffice, models.ReplyAutoReply:
		return verdict, nil
	default:
		return models.ReplyVerdict{}, fmt.Errorf("llm returned unknown category %q", verdict.Category)
	}
}

var (
	outOfOfficeMarkers = []string{"out of office", "out of the office", "on vacation", "annual leave", "parental leave", "maternity leave"}
	autoReplyMarkers   = []string{"auto-reply", "automatic reply", "autoreply", "do not reply to this", "no-reply"}
	negativeMarkers    = []string{"not interested", "no thanks", "unsubscribe", "remove me", "stop contacting", "don't contact", "no longer with"}
	positiveMarkers    = []string{"interested", "sounds good", "let's talk", "lets talk", "schedule a call", "book a time", "tell me more", "happy to chat", "send more details"}
)

// ClassifyKeywords is the deterministic fallback. Marker order matters:
// out-of-office and auto-replies often contain otherwise positive phrasing,
// and "not interested" must win over "interested".
func ClassifyKeywords(replyText string) models.ReplyVerdict {
	text := strings.ToLower(replyText)

	for _, marker := range outOfOfficeMarkers {
		if strings.Contains(text, marker) {
			return models.ReplyVerdict{Category: models.ReplyOutOfOffice, Confidence: 0.7}
		}
	}
	for _, marker := range autoReplyMarkers {
		if strings.Contains(text, marker) {
			return models.ReplyVerdict{Category: models.ReplyAutoReply, Confidence: 0.7}
		}
	}
	for _, marker := range negativeMarkers {
		if strings.Contains(text, marker) {
			return models.ReplyVerdict{Category: models.ReplyNegative, Confidence: 0.6}
		}
	}
	for _, marker := range positiveMarkers {
		if strings.Contains(text, marker) {
			return models.ReplyVerdict{Category: models.ReplyPositive, Confidence: 0.6}
		}
	}
	return models.ReplyVerdict{Category: models.ReplyNeutral, Confidence: 0.3}
}
