package models

import (
	"time"

	"github.com/google/uuid"
)

// Channels
type Channel string

const (
	ChannelEmail       Channel = "email"
	ChannelNetwork     Channel = "network"
	ChannelContactForm Channel = "contact_form"
)

// Lead lifecycle
type LeadStatus string

const (
	LeadNew       LeadStatus = "NEW"
	LeadContacted LeadStatus = "CONTACTED"
	LeadEngaged   LeadStatus = "ENGAGED"
	LeadQualified LeadStatus = "QUALIFIED"
	LeadNurture   LeadStatus = "NURTURE"
	LeadLost      LeadStatus = "LOST"
	LeadDead      LeadStatus = "DEAD"
)

// Message lifecycle
type MessageStatus string

const (
	MessagePending   MessageStatus = "PENDING"
	MessageSent      MessageStatus = "SENT"
	MessageDelivered MessageStatus = "DELIVERED"
	MessageReplied   MessageStatus = "REPLIED"
	MessageBounced   MessageStatus = "BOUNCED"
	MessageFailed    MessageStatus = "FAILED"
	MessageSkipped   MessageStatus = "SKIPPED"
)

// Delivery outcome of a single channel attempt. A fatal outcome stops the
// sequence and suppresses retries; a recoverable one falls through to the
// next channel.
type Outcome string

const (
	OutcomeDelivered   Outcome = "DELIVERED"
	OutcomeRecoverable Outcome = "RECOVERABLE_FAILURE"
	OutcomeFatal       Outcome = "FATAL_FAILURE"
	OutcomeRateLimited Outcome = "RATE_LIMITED"
)

type Lead struct {
	ID             uuid.UUID              `json:"id"`
	CampaignID     uuid.UUID              `json:"campaign_id"`
	Name           string                 `json:"name"`
	Company        string                 `json:"company,omitempty"`
	Email          string                 `json:"email,omitempty"`
	NetworkHandle  string                 `json:"network_handle,omitempty"`
	ContactFormURL string                 `json:"contact_form_url,omitempty"`
	Status         LeadStatus             `json:"status"`
	Alerted        bool                   `json:"alerted"`
	LastOutreachAt *time.Time             `json:"last_outreach_at,omitempty"`
	NextActionAt   *time.Time             `json:"next_action_at,omitempty"`
	Attributes     map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Addresses extracted from a lead, one per channel.
func (l Lead) Addresses() map[Channel]string {
	addrs := map[Channel]string{}
	if l.Email != "" {
		addrs[ChannelEmail] = l.Email
	}
	if l.NetworkHandle != "" {
		addrs[ChannelNetwork] = l.NetworkHandle
	}
	if l.ContactFormURL != "" {
		addrs[ChannelContactForm] = l.ContactFormURL
	}
	return addrs
}

type OutreachMessage struct {
	ID              uuid.UUID              `json:"id"`
	LeadID          uuid.UUID              `json:"lead_id"`
	CampaignID      uuid.UUID              `json:"campaign_id"`
	Channel         Channel                `json:"channel"`
	Subject         string                 `json:"subject,omitempty"`
	Body            string                 `json:"body"`
	Personalization map[string]interface{} `json:"personalization,omitempty"`
	Status          MessageStatus          `json:"status"`
	ChannelUsed     Channel                `json:"channel_used,omitempty"`
	AttemptCount    int                    `json:"attempt_count"`
	RetryCount      int                    `json:"retry_count"`
	NextRetryAt     *time.Time             `json:"next_retry_at,omitempty"`
	SentAt          *time.Time             `json:"sent_at,omitempty"`
	RepliedAt       *time.Time             `json:"replied_at,omitempty"`
	ThreadID        string                 `json:"thread_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

type OutreachAttempt struct {
	ID          uuid.UUID              `json:"id"`
	MessageID   uuid.UUID              `json:"message_id"`
	Channel     Channel                `json:"channel"`
	Outcome     Outcome                `json:"outcome"`
	ErrorDetail string                 `json:"error_detail,omitempty"`
	ProviderID  string                 `json:"provider_message_id,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	NextRetryAt *time.Time             `json:"next_retry_at,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	AttemptedAt time.Time              `json:"attempted_at"`
}

type ChannelConfig struct {
	Channel     Channel   `json:"channel"`
	Enabled     bool      `json:"enabled"`
	HourlyLimit int       `json:"hourly_limit"`
	DailyLimit  int       `json:"daily_limit"`
	MaxRetries  int       `json:"max_retries"`
	Template    string    `json:"template,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FailurePolicy controls what the sequencer does after a recoverable failure
// on a step.
type FailurePolicy string

const (
	FallbackNext FailurePolicy = "FALLBACK_NEXT"
	StopSequence FailurePolicy = "STOP"
)

type SequenceStep struct {
	Channel   Channel       `json:"channel" yaml:"channel"`
	OnFailure FailurePolicy `json:"on_failure" yaml:"on_failure"`
}

type SequenceConfig struct {
	Steps      []SequenceStep  `json:"steps" yaml:"steps"`
	MaxRetries int             `json:"max_retries" yaml:"max_retries"`
	Backoff    []time.Duration `json:"backoff" yaml:"backoff"`
	Timeout    time.Duration   `json:"timeout" yaml:"timeout"`
}

type WorkerHeartbeat struct {
	WorkerID   string    `json:"worker_id"`
	Status     string    `json:"status"`
	LockHolder bool      `json:"lock_holder"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
}

type HumanAlertLog struct {
	ID               uuid.UUID              `json:"id"`
	IdempotencyKey   string                 `json:"idempotency_key"`
	AlertType        string                 `json:"alert_type"`
	Payload          map[string]interface{} `json:"payload,omitempty"`
	SentSuccessfully bool                   `json:"sent_successfully"`
	CreatedAt        time.Time              `json:"created_at"`
}

type Campaign struct {
	ID          uuid.UUID              `json:"id"`
	Name        string                 `json:"name"`
	Active      bool                   `json:"active"`
	PausedAt    *time.Time             `json:"paused_at,omitempty"`
	PauseReason string                 `json:"pause_reason,omitempty"`
	Settings    map[string]interface{} `json:"settings,omitempty"`
	Metrics     CampaignMetrics        `json:"metrics"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// CampaignMetrics holds derived counters recomputed every cycle.
type CampaignMetrics struct {
	Sent          int       `json:"sent"`
	Delivered     int       `json:"delivered"`
	Replied       int       `json:"replied"`
	Bounced       int       `json:"bounced"`
	Failed        int       `json:"failed"`
	PositiveReply int       `json:"positive_replies"`
	RecomputedAt  time.Time `json:"recomputed_at"`
}

// Inbound reply as returned by the inbox collaborator.
type InboundReply struct {
	ThreadID   string    `json:"thread_id"`
	From       string    `json:"from,omitempty"`
	BodyText   string    `json:"body_text"`
	ReceivedAt time.Time `json:"received_at"`
}

// Reply classification verdict.
type ReplyCategory string

const (
	ReplyPositive    ReplyCategory = "POSITIVE"
	ReplyNegative    ReplyCategory = "NEGATIVE"
	ReplyNeutral     ReplyCategory = "NEUTRAL"
	ReplyOutOfOffice ReplyCategory = "OUT_OF_OFFICE"
	ReplyAutoReply   ReplyCategory = "AUTO_REPLY"
)

type ReplyVerdict struct {
	Category   ReplyCategory `json:"category"`
	Confidence float64       `json:"confidence"`
}

// SequenceResult is the outcome of one full sequencer pass over a message.
type SequenceResult struct {
	Success     bool              `json:"success"`
	ChannelUsed Channel           `json:"channel_used,omitempty"`
	Fatal       bool              `json:"fatal"`
	Attempts    []OutreachAttempt `json:"attempts"`
}

// Event on the outreach audit stream.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // attempt, reply, campaign_paused, alert
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
