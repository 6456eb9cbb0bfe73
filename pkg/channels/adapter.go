// Package channels implements one delivery adapter per outreach channel.
// Every adapter converts provider errors into a three-way outcome so the
// sequencer never sees a raw transport error: DELIVERED ends the sequence,
// RECOVERABLE_FAILURE falls through to the next channel, FATAL_FAILURE ends
// the message permanently.
package channels

import (
	"context"

	"github.com/prospexa-ai/platform/pkg/common/models"
)

type SendResult struct {
	Outcome           models.Outcome
	ErrorDetail       string
	ProviderMessageID string
}

type Adapter interface {
	Channel() models.Channel
	Send(ctx context.Context, msg models.OutreachMessage, recipient string) SendResult
}

func delivered(providerID string) SendResult {
	return SendResult{Outcome: models.OutcomeDelivered, ProviderMessageID: providerID}
}

func recoverable(detail string) SendResult {
	return SendResult{Outcome: models.OutcomeRecoverable, ErrorDetail: detail}
}

func fatal(detail string) SendResult {
	return SendResult{Outcome: models.OutcomeFatal, ErrorDetail: detail}
}
