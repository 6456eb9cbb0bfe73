package outreach

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prospexa-ai/platform/pkg/channels"
	"github.com/prospexa-ai/platform/pkg/common/logger"
	"github.com/prospexa-ai/platform/pkg/common/models"
	"github.com/prospexa-ai/platform/pkg/observability/metrics"
	"github.com/sirupsen/logrus"
)

// SendGate answers "may this channel/recipient send now" and consumes quota
// after a successful delivery.
type SendGate interface {
	AllowSend(ctx context.Context, channel, recipient string) (bool, error)
	RecordSend(ctx context.Context, channel, recipient string) error
}

// AttemptRecorder appends one immutable audit row per delivery attempt.
type AttemptRecorder interface {
	AppendAttempt(ctx context.Context, attempt models.OutreachAttempt) error
}

// EventPublisher pushes audit events onto the outreach stream.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Sequencer walks the configured channel list for one message, consulting the
// send gate before each adapter and recording every attempt. Channel order in
// the sequence config is the sole priority signal.
type Sequencer struct {
	adapters map[models.Channel]channels.Adapter
	gate     SendGate
	recorder AttemptRecorder
	events   EventPublisher
	now      func() time.Time
}

func NewSequencer(adapters []channels.Adapter, gate SendGate, recorder AttemptRecorder, events EventPublisher) *Sequencer {
	byChannel := make(map[models.Channel]channels.Adapter, len(adapters))
	for _, a := range adapters {
		byChannel[a.Channel()] = a
	}
	return &Sequencer{
		adapters: byChannel,
		gate:     gate,
		recorder: recorder,
		events:   events,
		now:      time.Now,
	}
}

// SetClock overrides the sequencer clock. Test hook.
func (s *Sequencer) SetClock(now func() time.Time) { s.now = now }

// ExecuteSequence attempts delivery of msg over each configured step in
// order. It mutates msg's delivery state (status, attempt counters, retry
// schedule) and returns the structured result; the caller persists both.
//
// Outcome handling: DELIVERED stops the sequence with success. FATAL_FAILURE
// stops it immediately with no retry. RECOVERABLE_FAILURE falls through to
// the next step when the step policy is FALLBACK_NEXT. If every step is
// exhausted without success, a retry is scheduled with exponential backoff
// until max_retries is reached.
func (s *Sequencer) ExecuteSequence(ctx context.Context, msg *models.OutreachMessage, addresses map[models.Channel]string, cfg models.SequenceConfig) models.SequenceResult {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	result := models.SequenceResult{}
	fatalChannel := models.Channel("")

steps:
	for _, step := range cfg.Steps {
		adapter, ok := s.adapters[step.Channel]
		if !ok {
			continue
		}

		log := logger.WithFields(logrus.Fields{
			"message_id": msg.ID.String(),
			"channel":    string(step.Channel),
		})

		recipient, ok := addresses[step.Channel]
		if !ok || recipient == "" {
			s.record(ctx, &result, msg, step.Channel, channels.SendResult{
				Outcome:     models.OutcomeRecoverable,
				ErrorDetail: "no recipient address for channel",
			})
			continue
		}

		allowed, err := s.gate.AllowSend(ctx, string(step.Channel), recipient)
		if err != nil {
			log.WithError(err).Warn("rate limit check failed, skipping channel")
			allowed = false
		}
		if !allowed {
			metrics.RateLimitRejection()
			s.record(ctx, &result, msg, step.Channel, channels.SendResult{
				Outcome:     models.OutcomeRateLimited,
				ErrorDetail: "rate limit reached",
			})
			if step.OnFailure == models.StopSequence {
				break
			}
			continue
		}

		sendResult := adapter.Send(ctx, *msg, recipient)
		s.record(ctx, &result, msg, step.Channel, sendResult)

		switch sendResult.Outcome {
		case models.OutcomeDelivered:
			if err := s.gate.RecordSend(ctx, string(step.Channel), recipient); err != nil {
				log.WithError(err).Warn("failed to record send against quota")
			}
			result.Success = true
			result.ChannelUsed = step.Channel
			break steps
		case models.OutcomeFatal:
			log.WithField("detail", sendResult.ErrorDetail).Warn("fatal delivery failure, stopping sequence")
			result.Fatal = true
			fatalChannel = step.Channel
			break steps
		default:
			log.WithField("detail", sendResult.ErrorDetail).Info("recoverable delivery failure")
			if step.OnFailure == models.StopSequence {
				break steps
			}
		}
	}

	s.resolve(msg, &result, fatalChannel, cfg)
	return result
}

// record builds and persists one attempt row and mirrors it into the result.
func (s *Sequencer) record(ctx context.Context, result *models.SequenceResult, msg *models.OutreachMessage, channel models.Channel, sendResult channels.SendResult) {
	attempt := models.OutreachAttempt{
		ID:          uuid.New(),
		MessageID:   msg.ID,
		Channel:     channel,
		Outcome:     sendResult.Outcome,
		ErrorDetail: sendResult.ErrorDetail,
		ProviderID:  sendResult.ProviderMessageID,
		RetryCount:  msg.RetryCount,
		AttemptedAt: s.now().UTC(),
	}
	msg.AttemptCount++

	if err := s.recorder.AppendAttempt(ctx, attempt); err != nil {
		logger.Log.WithError(err).WithField("message_id", msg.ID.String()).Error("failed to record outreach attempt")
	}
	if s.events != nil {
		_ = s.events.PublishEvent(ctx, "outreach.attempt", "sequencer", map[string]interface{}{
			"message_id": msg.ID.String(),
			"channel":    string(channel),
			"outcome":    string(sendResult.Outcome),
		})
	}
	result.Attempts = append(result.Attempts, attempt)
}

// resolve finalizes the message's delivery state after the step walk.
func (s *Sequencer) resolve(msg *models.OutreachMessage, result *models.SequenceResult, fatalChannel models.Channel, cfg models.SequenceConfig) {
	now := s.now().UTC()

	switch {
	case result.Success:
		msg.Status = models.MessageSent
		msg.ChannelUsed = result.ChannelUsed
		msg.SentAt = &now
		msg.NextRetryAt = nil
	case result.Fatal:
		// A permanent rejection on email is a bounce; elsewhere just failed.
		if fatalChannel == models.ChannelEmail {
			msg.Status = models.MessageBounced
		} else {
			msg.Status = models.MessageFailed
		}
		msg.NextRetryAt = nil
	default:
		if msg.RetryCount < cfg.MaxRetries {
			msg.RetryCount++
			retryAt := now.Add(NextBackoff(cfg.Backoff, msg.RetryCount))
			msg.NextRetryAt = &retryAt
			msg.Status = models.MessagePending
		} else {
			msg.Status = models.MessageFailed
			msg.NextRetryAt = nil
		}
	}
}
