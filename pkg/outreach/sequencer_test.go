package outreach

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prospexa-ai/platform/pkg/channels"
	"github.com/prospexa-ai/platform/pkg/common/logger"
	"github.com/prospexa-ai/platform/pkg/common/models"
)

func init() {
	logger.Init()
}

type scriptedAdapter struct {
	channel models.Channel
	result  channels.SendResult
	calls   int
}

func (a *scriptedAdapter) Channel() models.Channel { return a.channel }

func (a *scriptedAdapter) Send(_ context.Context, _ models.OutreachMessage, _ string) channels.SendResult {
	a.calls++
	return a.result
}

type openGate struct {
	denied   map[string]bool
	recorded []string
}

func (g *openGate) AllowSend(_ context.Context, channel, _ string) (bool, error) {
	if g.denied[channel] {
		return false, nil
	}
	return true, nil
}

func (g *openGate) RecordSend(_ context.Context, channel, _ string) error {
	g.recorded = append(g.recorded, channel)
	return nil
}

type memRecorder struct {
	attempts []models.OutreachAttempt
}

func (r *memRecorder) AppendAttempt(_ context.Context, attempt models.OutreachAttempt) error {
	r.attempts = append(r.attempts, attempt)
	return nil
}

func testAddresses() map[models.Channel]string {
	return map[models.Channel]string{
		models.ChannelEmail:       "jane@example.com",
		models.ChannelNetwork:     "jane-doe-123",
		models.ChannelContactForm: "https://example.com/contact",
	}
}

func testMessage() models.OutreachMessage {
	return models.OutreachMessage{
		ID:     uuid.New(),
		LeadID: uuid.New(),
		Status: models.MessagePending,
		Body:   "hello",
	}
}

func newTestSequencer(recorder *memRecorder, gate *openGate, adapters ...channels.Adapter) *Sequencer {
	return NewSequencer(adapters, gate, recorder, nil)
}

func TestFallbackToNextChannelOnRecoverableFailure(t *testing.T) {
	email := &scriptedAdapter{channel: models.ChannelEmail, result: channels.SendResult{
		Outcome: models.OutcomeRecoverable, ErrorDetail: "quota exceeded",
	}}
	network := &scriptedAdapter{channel: models.ChannelNetwork, result: channels.SendResult{
		Outcome: models.OutcomeDelivered, ProviderMessageID: "m-1",
	}}
	form := &scriptedAdapter{channel: models.ChannelContactForm, result: channels.SendResult{
		Outcome: models.OutcomeDelivered,
	}}

	recorder := &memRecorder{}
	seq := newTestSequencer(recorder, &openGate{}, email, network, form)

	msg := testMessage()
	result := seq.ExecuteSequence(context.Background(), &msg, testAddresses(), DefaultSequenceConfig())

	if !result.Success {
		t.Fatal("expected sequence success")
	}
	if result.ChannelUsed != models.ChannelNetwork {
		t.Fatalf("expected network channel used, got %s", result.ChannelUsed)
	}
	if len(recorder.attempts) != 2 {
		t.Fatalf("expected 2 attempt rows, got %d", len(recorder.attempts))
	}
	if recorder.attempts[0].Channel != models.ChannelEmail || recorder.attempts[1].Channel != models.ChannelNetwork {
		t.Fatalf("attempt rows out of order: %v", recorder.attempts)
	}
	if form.calls != 0 {
		t.Fatal("contact form should not be attempted after success")
	}
	if msg.Status != models.MessageSent {
		t.Fatalf("expected SENT, got %s", msg.Status)
	}
	if msg.SentAt == nil || msg.NextRetryAt != nil {
		t.Fatal("sent message should have sent_at set and no retry scheduled")
	}
}

func TestFatalFailureStopsSequenceWithoutRetry(t *testing.T) {
	network := &scriptedAdapter{channel: models.ChannelNetwork, result: channels.SendResult{
		Outcome: models.OutcomeFatal, ErrorDetail: "recipient opted out",
	}}
	form := &scriptedAdapter{channel: models.ChannelContactForm, result: channels.SendResult{
		Outcome: models.OutcomeDelivered,
	}}

	recorder := &memRecorder{}
	seq := newTestSequencer(recorder, &openGate{}, network, form)

	cfg := models.SequenceConfig{
		Steps: []models.SequenceStep{
			{Channel: models.ChannelNetwork, OnFailure: models.FallbackNext},
			{Channel: models.ChannelContactForm, OnFailure: models.FallbackNext},
		},
		MaxRetries: 3,
	}

	msg := testMessage()
	result := seq.ExecuteSequence(context.Background(), &msg, testAddresses(), cfg)

	if result.Success {
		t.Fatal("expected failure")
	}
	if !result.Fatal {
		t.Fatal("expected fatal result")
	}
	if form.calls != 0 {
		t.Fatal("no channel after a fatal failure may be attempted")
	}
	if msg.Status != models.MessageFailed {
		t.Fatalf("expected FAILED, got %s", msg.Status)
	}
	if msg.NextRetryAt != nil || msg.RetryCount != 0 {
		t.Fatal("fatal failure must not schedule a retry")
	}
}

func TestFatalEmailFailureMarksBounced(t *testing.T) {
	email := &scriptedAdapter{channel: models.ChannelEmail, result: channels.SendResult{
		Outcome: models.OutcomeFatal, ErrorDetail: "550 user unknown",
	}}
	recorder := &memRecorder{}
	seq := newTestSequencer(recorder, &openGate{}, email)

	msg := testMessage()
	seq.ExecuteSequence(context.Background(), &msg, testAddresses(), DefaultSequenceConfig())

	if msg.Status != models.MessageBounced {
		t.Fatalf("expected BOUNCED, got %s", msg.Status)
	}
}

func TestExhaustedSequenceSchedulesBackoffRetry(t *testing.T) {
	recoverable := channels.SendResult{Outcome: models.OutcomeRecoverable, ErrorDetail: "transient"}
	email := &scriptedAdapter{channel: models.ChannelEmail, result: recoverable}
	network := &scriptedAdapter{channel: models.ChannelNetwork, result: recoverable}
	form := &scriptedAdapter{channel: models.ChannelContactForm, result: recoverable}

	recorder := &memRecorder{}
	seq := newTestSequencer(recorder, &openGate{}, email, network, form)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seq.SetClock(func() time.Time { return now })

	cfg := DefaultSequenceConfig()
	msg := testMessage()
	result := seq.ExecuteSequence(context.Background(), &msg, testAddresses(), cfg)

	if result.Success || result.Fatal {
		t.Fatal("expected non-fatal overall failure")
	}
	if len(recorder.attempts) != 3 {
		t.Fatalf("expected 3 attempt rows, got %d", len(recorder.attempts))
	}
	if msg.Status != models.MessagePending {
		t.Fatalf("message should stay PENDING for retry, got %s", msg.Status)
	}
	if msg.RetryCount != 1 {
		t.Fatalf("expected retry_count 1, got %d", msg.RetryCount)
	}
	wantRetry := now.Add(cfg.Backoff[0])
	if msg.NextRetryAt == nil || !msg.NextRetryAt.Equal(wantRetry) {
		t.Fatalf("expected next_retry_at %v, got %v", wantRetry, msg.NextRetryAt)
	}
}

func TestExhaustedRetriesMarksFailed(t *testing.T) {
	recoverable := channels.SendResult{Outcome: models.OutcomeRecoverable, ErrorDetail: "transient"}
	email := &scriptedAdapter{channel: models.ChannelEmail, result: recoverable}

	recorder := &memRecorder{}
	seq := newTestSequencer(recorder, &openGate{}, email)

	cfg := DefaultSequenceConfig()
	msg := testMessage()
	msg.RetryCount = cfg.MaxRetries

	seq.ExecuteSequence(context.Background(), &msg, testAddresses(), cfg)

	if msg.Status != models.MessageFailed {
		t.Fatalf("expected FAILED after max retries, got %s", msg.Status)
	}
	if msg.NextRetryAt != nil {
		t.Fatal("no further retry may be scheduled")
	}
}

func TestRateLimitedChannelIsSkippedAsRecoverable(t *testing.T) {
	email := &scriptedAdapter{channel: models.ChannelEmail, result: channels.SendResult{
		Outcome: models.OutcomeDelivered,
	}}
	network := &scriptedAdapter{channel: models.ChannelNetwork, result: channels.SendResult{
		Outcome: models.OutcomeDelivered, ProviderMessageID: "m-2",
	}}

	recorder := &memRecorder{}
	gate := &openGate{denied: map[string]bool{string(models.ChannelEmail): true}}
	seq := newTestSequencer(recorder, gate, email, network)

	msg := testMessage()
	result := seq.ExecuteSequence(context.Background(), &msg, testAddresses(), DefaultSequenceConfig())

	if !result.Success || result.ChannelUsed != models.ChannelNetwork {
		t.Fatalf("expected fallback to network, got %+v", result)
	}
	if email.calls != 0 {
		t.Fatal("rate-limited channel must not invoke its adapter")
	}
	if len(recorder.attempts) != 2 {
		t.Fatalf("expected audit rows for the skip and the send, got %d", len(recorder.attempts))
	}
	if recorder.attempts[0].Outcome != models.OutcomeRateLimited {
		t.Fatalf("expected RATE_LIMITED audit row, got %s", recorder.attempts[0].Outcome)
	}
	if len(gate.recorded) != 1 || gate.recorded[0] != string(models.ChannelNetwork) {
		t.Fatalf("quota should be consumed only for the delivering channel, got %v", gate.recorded)
	}
}

func TestStopPolicyEndsSequenceEarly(t *testing.T) {
	email := &scriptedAdapter{channel: models.ChannelEmail, result: channels.SendResult{
		Outcome: models.OutcomeRecoverable, ErrorDetail: "greylisted",
	}}
	network := &scriptedAdapter{channel: models.ChannelNetwork, result: channels.SendResult{
		Outcome: models.OutcomeDelivered,
	}}

	recorder := &memRecorder{}
	seq := newTestSequencer(recorder, &openGate{}, email, network)

	cfg := models.SequenceConfig{
		Steps: []models.SequenceStep{
			{Channel: models.ChannelEmail, OnFailure: models.StopSequence},
			{Channel: models.ChannelNetwork, OnFailure: models.FallbackNext},
		},
		MaxRetries: 3,
	}

	msg := testMessage()
	result := seq.ExecuteSequence(context.Background(), &msg, testAddresses(), cfg)

	if result.Success {
		t.Fatal("STOP policy should prevent fallback")
	}
	if network.calls != 0 {
		t.Fatal("network adapter should not run after STOP")
	}
	if msg.Status != models.MessagePending || msg.RetryCount != 1 {
		t.Fatalf("stopped sequence should still schedule a retry, got %s retry=%d", msg.Status, msg.RetryCount)
	}
}
