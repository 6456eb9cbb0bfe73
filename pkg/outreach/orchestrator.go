package outreach

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prospexa-ai/platform/pkg/common/logger"
	"github.com/prospexa-ai/platform/pkg/common/models"
	"github.com/prospexa-ai/platform/pkg/observability/metrics"
	"github.com/sirupsen/logrus"
)

// Store is the durable-state surface the orchestrator needs. *Repository
// satisfies it; tests use an in-memory substitute.
type Store interface {
	PendingMessages(ctx context.Context, now time.Time, limit int) ([]models.OutreachMessage, error)
	SaveMessageState(ctx context.Context, msg *models.OutreachMessage) error
	FindMessageByThread(ctx context.Context, threadID string) (*models.OutreachMessage, error)
	MarkMessageReplied(ctx context.Context, messageID uuid.UUID, at time.Time) (bool, error)

	GetLead(ctx context.Context, leadID uuid.UUID) (models.Lead, error)
	MarkLeadContacted(ctx context.Context, leadID uuid.UUID, at time.Time, nextActionAt time.Time) error
	TransitionLead(ctx context.Context, leadID uuid.UUID, from []models.LeadStatus, to models.LeadStatus) (bool, error)
	SetLeadNextAction(ctx context.Context, leadID uuid.UUID, at *time.Time) error
	LeadsDueForTimeout(ctx context.Context, now time.Time, limit int) ([]models.Lead, error)
	UnalertedQualifiedLeads(ctx context.Context, limit int) ([]models.Lead, error)
	MarkLeadAlerted(ctx context.Context, leadID uuid.UUID) error

	ListChannelConfigs(ctx context.Context) ([]models.ChannelConfig, error)
	ListCampaigns(ctx context.Context) ([]models.Campaign, error)
	RecomputeCampaignMetrics(ctx context.Context, campaignID uuid.UUID, now time.Time) (models.CampaignMetrics, error)
	PauseCampaign(ctx context.Context, campaignID uuid.UUID, reason string, at time.Time) (bool, error)

	GetCheckpoint(ctx context.Context, name string) (time.Time, error)
	SetCheckpoint(ctx context.Context, name string, position time.Time) error
}

// Inbox is the external mailbox collaborator.
type Inbox interface {
	FetchNewReplies(ctx context.Context, since time.Time) ([]models.InboundReply, error)
}

// ReplyClassifier is the external sentiment/category collaborator.
type ReplyClassifier interface {
	Classify(ctx context.Context, replyText string) (models.ReplyVerdict, error)
}

// Alerter dispatches a deduplicated notification to a human.
type Alerter interface {
	SendAlert(ctx context.Context, alertType string, payload map[string]interface{}, idempotencyKey string) (bool, error)
}

// RuleConfig holds the operator thresholds applied by the rule-evaluation
// step against recomputed campaign metrics.
type RuleConfig struct {
	MinSendsForEval int
	MaxBounceRate   float64
	MinReplyRate    float64
}

func DefaultRules() RuleConfig {
	return RuleConfig{MinSendsForEval: 20, MaxBounceRate: 0.25, MinReplyRate: 0}
}

const inboxCheckpoint = "inbox"

// Orchestrator runs the recurring outreach cycle: acquire the advisory lock,
// execute seven fault-isolated steps, renew the heartbeat, release, sleep.
// Every write it performs is guarded so a crash between steps re-runs
// cleanly on the next cycle.
type Orchestrator struct {
	store      Store
	lock       *AdvisoryLock
	sequencer  *Sequencer
	inbox      Inbox
	classifier ReplyClassifier
	alerter    Alerter
	events     EventPublisher

	workerID     string
	seqConfig    models.SequenceConfig
	rules        RuleConfig
	interval     time.Duration
	batchSize    int
	nurtureAfter time.Duration
	deadAfter    time.Duration
	lookback     time.Duration

	now func() time.Time

	// replies carried from the ingest step to the classify step of the same
	// cycle. The inbox checkpoint only advances after classification, so a
	// crash in between replays them.
	cycleReplies []models.InboundReply
	// metrics carried from the recompute step to the rule step.
	cycleMetrics map[uuid.UUID]models.CampaignMetrics
}

type OrchestratorParams struct {
	Store        Store
	Lock         *AdvisoryLock
	Sequencer    *Sequencer
	Inbox        Inbox
	Classifier   ReplyClassifier
	Alerter      Alerter
	Events       EventPublisher
	WorkerID     string
	Sequence     models.SequenceConfig
	Rules        RuleConfig
	Interval     time.Duration
	BatchSize    int
	NurtureAfter time.Duration
	DeadAfter    time.Duration
	Lookback     time.Duration
}

func NewOrchestrator(p OrchestratorParams) *Orchestrator {
	if p.Interval <= 0 {
		p.Interval = time.Minute
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 25
	}
	if p.NurtureAfter <= 0 {
		p.NurtureAfter = 7 * 24 * time.Hour
	}
	if p.DeadAfter <= 0 {
		p.DeadAfter = 30 * 24 * time.Hour
	}
	if p.Lookback <= 0 {
		p.Lookback = 24 * time.Hour
	}
	return &Orchestrator{
		store:        p.Store,
		lock:         p.Lock,
		sequencer:    p.Sequencer,
		inbox:        p.Inbox,
		classifier:   p.Classifier,
		alerter:      p.Alerter,
		events:       p.Events,
		workerID:     p.WorkerID,
		seqConfig:    p.Sequence,
		rules:        p.Rules,
		interval:     p.Interval,
		batchSize:    p.BatchSize,
		nurtureAfter: p.NurtureAfter,
		deadAfter:    p.DeadAfter,
		lookback:     p.Lookback,
		now:          time.Now,
	}
}

// SetClock overrides the orchestrator clock. Test hook.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// Run executes cycles until ctx is cancelled. Lock contention is a normal
// scheduling signal, not an error: the worker sleeps and tries again.
func (o *Orchestrator) Run(ctx context.Context) {
	log := logger.WithFields(logrus.Fields{"worker_id": o.workerID})
	log.WithField("interval", o.interval.String()).Info("outreach orchestrator started")

	for {
		acquired, err := o.lock.Acquire(ctx)
		switch {
		case err != nil:
			log.WithError(err).Error("lock acquisition failed")
		case !acquired:
			metrics.CycleSkipped()
			log.Debug("another worker is active, skipping cycle")
		default:
			o.RunCycle(ctx)

			if renewed, err := o.lock.Renew(ctx); err != nil {
				log.WithError(err).Error("heartbeat renewal failed")
			} else if !renewed {
				log.Warn("lost cycle lock during cycle")
			}
			if err := o.lock.Release(ctx); err != nil {
				log.WithError(err).Error("lock release failed")
			}
		}

		select {
		case <-ctx.Done():
			log.Info("outreach orchestrator stopped")
			return
		case <-time.After(o.interval):
		}
	}
}

// RunCycle executes the seven pipeline steps in fixed order. Each step runs
// inside its own fault boundary: a panic or collaborator failure is logged
// with the step identity and does not prevent later steps. A persistence
// error ends the cycle early; the next cycle re-runs cleanly.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	cycleID := uuid.New().String()
	log := logger.WithFields(logrus.Fields{"worker_id": o.workerID, "cycle_id": cycleID})
	started := o.now()
	log.Debug("cycle started")

	o.cycleReplies = nil
	o.cycleMetrics = nil

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"send_pending", o.stepSendPending},
		{"ingest_inbound", o.stepIngestInbound},
		{"classify_and_route", o.stepClassifyAndRoute},
		{"timeout_sweep", o.stepTimeoutSweep},
		{"metrics_recompute", o.stepMetricsRecompute},
		{"rule_evaluation", o.stepRuleEvaluation},
		{"alert_dispatch", o.stepAlertDispatch},
	}

	for _, step := range steps {
		if err := o.runStep(ctx, cycleID, step.name, step.fn); err != nil {
			log.WithError(err).WithField("step", step.name).Error("persistence failure, ending cycle early")
			log.WithField("elapsed", o.now().Sub(started).String()).Warn("cycle ended early")
			return
		}
		if ctx.Err() != nil {
			return
		}
	}

	metrics.CycleCompleted()
	log.WithField("elapsed", o.now().Sub(started).String()).Info("cycle completed")
}

// runStep contains panics and logs failures with the step identity. The
// returned error is reserved for persistence failures that should end the
// cycle; collaborator failures are handled inside the step.
func (o *Orchestrator) runStep(ctx context.Context, cycleID, name string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.StepFailed()
			logger.WithFields(logrus.Fields{
				"worker_id": o.workerID,
				"cycle_id":  cycleID,
				"step":      name,
			}).Errorf("step panicked: %v", r)
			err = nil
		}
	}()

	if err = fn(ctx); err != nil {
		metrics.StepFailed()
		return fmt.Errorf("step %s: %w", name, err)
	}
	return nil
}

// Step 1: send every due message through the channel sequencer.
func (o *Orchestrator) stepSendPending(ctx context.Context) error {
	now := o.now().UTC()

	cfg, err := o.effectiveSequence(ctx)
	if err != nil {
		return err
	}
	if len(cfg.Steps) == 0 {
		logger.Log.Warn("no enabled channels, skipping send step")
		return nil
	}

	messages, err := o.store.PendingMessages(ctx, now, o.batchSize)
	if err != nil {
		return err
	}

	for i := range messages {
		msg := messages[i]
		log := logger.WithFields(logrus.Fields{"message_id": msg.ID.String(), "lead_id": msg.LeadID.String()})

		lead, err := o.store.GetLead(ctx, msg.LeadID)
		if err != nil {
			log.WithError(err).Error("failed to load lead for message")
			continue
		}

		result := o.sequencer.ExecuteSequence(ctx, &msg, lead.Addresses(), cfg)
		if err := o.store.SaveMessageState(ctx, &msg); err != nil {
			return err
		}

		switch {
		case result.Success:
			metrics.MessageDelivered()
			if err := o.store.MarkLeadContacted(ctx, lead.ID, now, now.Add(o.nurtureAfter)); err != nil {
				return err
			}
		case msg.Status == models.MessagePending:
			metrics.MessageRetried()
		default:
			metrics.MessageFailed()
		}
	}
	return nil
}

// effectiveSequence filters the configured steps down to channels the
// operator has enabled. With no channel_configs rows every configured step
// stays active.
func (o *Orchestrator) effectiveSequence(ctx context.Context) (models.SequenceConfig, error) {
	configs, err := o.store.ListChannelConfigs(ctx)
	if err != nil {
		return models.SequenceConfig{}, err
	}
	if len(configs) == 0 {
		return o.seqConfig, nil
	}

	enabled := map[models.Channel]bool{}
	for _, c := range configs {
		enabled[c.Channel] = c.Enabled
	}

	cfg := o.seqConfig
	cfg.Steps = nil
	for _, step := range o.seqConfig.Steps {
		if on, known := enabled[step.Channel]; !known || on {
			cfg.Steps = append(cfg.Steps, step)
		}
	}
	return cfg, nil
}

// Step 2: poll the inbox collaborator for replies since the last checkpoint.
// The checkpoint advances in the classify step so a crash here replays.
func (o *Orchestrator) stepIngestInbound(ctx context.Context) error {
	if o.inbox == nil {
		logger.Log.Debug("inbox collaborator not configured, skipping ingest")
		return nil
	}

	since, err := o.store.GetCheckpoint(ctx, inboxCheckpoint)
	if err != nil {
		return err
	}
	if since.IsZero() {
		since = o.now().UTC().Add(-o.lookback)
	}

	replies, err := o.inbox.FetchNewReplies(ctx, since)
	if err != nil {
		// Collaborator failure: log and carry on, next cycle re-polls.
		metrics.StepFailed()
		logger.Log.WithError(err).Error("inbox poll failed")
		return nil
	}

	o.cycleReplies = replies
	for range replies {
		metrics.ReplyIngested()
	}
	return nil
}

// Step 3: classify each ingested reply and route the lead accordingly. The
// checkpoint only covers replies that were fully processed: a classification
// failure stops it from advancing so the inbox returns the reply again next
// cycle, where the guarded writes make any partial re-processing a no-op.
func (o *Orchestrator) stepClassifyAndRoute(ctx context.Context) error {
	if len(o.cycleReplies) == 0 {
		return nil
	}

	sort.Slice(o.cycleReplies, func(i, j int) bool {
		return o.cycleReplies[i].ReceivedAt.Before(o.cycleReplies[j].ReceivedAt)
	})

	checkpoint := time.Time{}
	dropped := false
	for _, reply := range o.cycleReplies {
		msg, err := o.store.FindMessageByThread(ctx, reply.ThreadID)
		if err != nil {
			return err
		}
		if msg == nil {
			logger.Log.WithField("thread_id", reply.ThreadID).Debug("reply does not match an outreach thread")
			if !dropped {
				checkpoint = reply.ReceivedAt
			}
			continue
		}

		verdict, err := o.classifier.Classify(ctx, reply.BodyText)
		if err != nil {
			logger.Log.WithError(err).WithField("thread_id", reply.ThreadID).Error("reply classification failed, will replay next cycle")
			dropped = true
			continue
		}

		if _, err := o.store.MarkMessageReplied(ctx, msg.ID, reply.ReceivedAt); err != nil {
			return err
		}

		if err := o.routeReply(ctx, msg.LeadID, verdict); err != nil {
			return err
		}

		if o.events != nil {
			_ = o.events.PublishEvent(ctx, "outreach.reply", "orchestrator", map[string]interface{}{
				"lead_id":   msg.LeadID.String(),
				"thread_id": reply.ThreadID,
				"category":  string(verdict.Category),
			})
		}

		if !dropped {
			checkpoint = reply.ReceivedAt
		}
	}

	o.cycleReplies = nil
	if !checkpoint.IsZero() {
		return o.store.SetCheckpoint(ctx, inboxCheckpoint, checkpoint)
	}
	return nil
}

func (o *Orchestrator) routeReply(ctx context.Context, leadID uuid.UUID, verdict models.ReplyVerdict) error {
	active := []models.LeadStatus{models.LeadNew, models.LeadContacted, models.LeadEngaged, models.LeadNurture}

	switch verdict.Category {
	case models.ReplyPositive:
		changed, err := o.store.TransitionLead(ctx, leadID, active, models.LeadQualified)
		if err != nil {
			return err
		}
		if changed {
			metrics.ReplyPositive()
		}
		return nil
	case models.ReplyNegative:
		_, err := o.store.TransitionLead(ctx, leadID, active, models.LeadLost)
		return err
	case models.ReplyOutOfOffice:
		// Push the follow-up out instead of changing status.
		followUp := o.now().UTC().Add(7 * 24 * time.Hour)
		return o.store.SetLeadNextAction(ctx, leadID, &followUp)
	default:
		// NEUTRAL and AUTO_REPLY leave the lead where it is, but a human
		// reply means the lead is at least engaged.
		if verdict.Category == models.ReplyNeutral {
			_, err := o.store.TransitionLead(ctx, leadID, []models.LeadStatus{models.LeadContacted}, models.LeadEngaged)
			return err
		}
		return nil
	}
}

// Step 4: move silent leads to NURTURE, and long-silent ones to DEAD.
func (o *Orchestrator) stepTimeoutSweep(ctx context.Context) error {
	now := o.now().UTC()
	leads, err := o.store.LeadsDueForTimeout(ctx, now, o.batchSize)
	if err != nil {
		return err
	}

	for _, lead := range leads {
		silentFor := time.Duration(0)
		if lead.LastOutreachAt != nil {
			silentFor = now.Sub(*lead.LastOutreachAt)
		}

		if silentFor >= o.deadAfter {
			changed, err := o.store.TransitionLead(ctx, lead.ID,
				[]models.LeadStatus{models.LeadContacted, models.LeadEngaged, models.LeadNurture}, models.LeadDead)
			if err != nil {
				return err
			}
			if changed {
				metrics.LeadTimedOut()
				if err := o.store.SetLeadNextAction(ctx, lead.ID, nil); err != nil {
					return err
				}
			}
			continue
		}

		changed, err := o.store.TransitionLead(ctx, lead.ID,
			[]models.LeadStatus{models.LeadContacted, models.LeadEngaged}, models.LeadNurture)
		if err != nil {
			return err
		}
		if changed {
			metrics.LeadTimedOut()
		}
		// Re-check after the next nurture window either way.
		next := now.Add(o.nurtureAfter)
		if err := o.store.SetLeadNextAction(ctx, lead.ID, &next); err != nil {
			return err
		}
	}
	return nil
}

// Step 5: recompute derived per-campaign counters.
func (o *Orchestrator) stepMetricsRecompute(ctx context.Context) error {
	now := o.now().UTC()
	campaigns, err := o.store.ListCampaigns(ctx)
	if err != nil {
		return err
	}

	o.cycleMetrics = make(map[uuid.UUID]models.CampaignMetrics, len(campaigns))
	for _, campaign := range campaigns {
		recomputed, err := o.store.RecomputeCampaignMetrics(ctx, campaign.ID, now)
		if err != nil {
			return err
		}
		o.cycleMetrics[campaign.ID] = recomputed
	}
	return nil
}

// Step 6: apply operator pause rules against the recomputed metrics.
func (o *Orchestrator) stepRuleEvaluation(ctx context.Context) error {
	if o.cycleMetrics == nil {
		return nil
	}
	now := o.now().UTC()

	campaigns, err := o.store.ListCampaigns(ctx)
	if err != nil {
		return err
	}

	for _, campaign := range campaigns {
		if !campaign.Active {
			continue
		}
		m, ok := o.cycleMetrics[campaign.ID]
		if !ok || m.Sent < o.rules.MinSendsForEval {
			continue
		}

		var reason string
		bounceRate := float64(m.Bounced) / float64(m.Sent)
		replyRate := float64(m.Replied) / float64(m.Sent)

		switch {
		case o.rules.MaxBounceRate > 0 && bounceRate > o.rules.MaxBounceRate:
			reason = fmt.Sprintf("bounce rate %.0f%% above threshold", bounceRate*100)
		case o.rules.MinReplyRate > 0 && replyRate < o.rules.MinReplyRate:
			reason = fmt.Sprintf("reply rate %.1f%% below threshold", replyRate*100)
		default:
			continue
		}

		paused, err := o.store.PauseCampaign(ctx, campaign.ID, reason, now)
		if err != nil {
			return err
		}
		if paused {
			metrics.CampaignPaused()
			logger.WithFields(logrus.Fields{
				"campaign_id": campaign.ID.String(),
				"reason":      reason,
			}).Warn("campaign paused by rule")
			if o.events != nil {
				_ = o.events.PublishEvent(ctx, "outreach.campaign_paused", "orchestrator", map[string]interface{}{
					"campaign_id": campaign.ID.String(),
					"reason":      reason,
				})
			}
		}
	}
	return nil
}

// Step 7: alert a human about unalerted qualified leads. The dispatcher is
// idempotent, so marking the lead afterwards is safe even across crashes.
func (o *Orchestrator) stepAlertDispatch(ctx context.Context) error {
	if o.alerter == nil {
		return nil
	}

	leads, err := o.store.UnalertedQualifiedLeads(ctx, o.batchSize)
	if err != nil {
		return err
	}

	for _, lead := range leads {
		key := "positive-reply-" + lead.ID.String()
		payload := map[string]interface{}{
			"lead_id":   lead.ID.String(),
			"lead_name": lead.Name,
			"company":   lead.Company,
			"email":     lead.Email,
		}

		sent, err := o.alerter.SendAlert(ctx, "positive_reply", payload, key)
		if err != nil {
			logger.Log.WithError(err).WithField("lead_id", lead.ID.String()).Error("alert dispatch failed")
			continue
		}
		if sent {
			metrics.AlertDispatched()
			if err := o.store.MarkLeadAlerted(ctx, lead.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
