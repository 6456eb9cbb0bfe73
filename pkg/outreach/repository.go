package outreach

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prospexa-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type leadRow struct {
	ID             uuid.UUID      `gorm:"primaryKey;column:id"`
	CampaignID     uuid.UUID      `gorm:"column:campaign_id;index"`
	Name           string         `gorm:"column:name"`
	Company        string         `gorm:"column:company"`
	Email          string         `gorm:"column:email"`
	NetworkHandle  string         `gorm:"column:network_handle"`
	ContactFormURL string         `gorm:"column:contact_form_url"`
	Status         string         `gorm:"column:status;index"`
	Alerted        bool           `gorm:"column:alerted"`
	LastOutreachAt *time.Time     `gorm:"column:last_outreach_at"`
	NextActionAt   *time.Time     `gorm:"column:next_action_at;index"`
	Attributes     datatypes.JSON `gorm:"column:attributes"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (leadRow) TableName() string { return "leads" }

type messageRow struct {
	ID              uuid.UUID      `gorm:"primaryKey;column:id"`
	LeadID          uuid.UUID      `gorm:"column:lead_id;index"`
	CampaignID      uuid.UUID      `gorm:"column:campaign_id;index"`
	Channel         string         `gorm:"column:channel"`
	Subject         string         `gorm:"column:subject"`
	Body            string         `gorm:"column:body"`
	Personalization datatypes.JSON `gorm:"column:personalization"`
	Status          string         `gorm:"column:status;index"`
	ChannelUsed     string         `gorm:"column:channel_used"`
	AttemptCount    int            `gorm:"column:attempt_count"`
	RetryCount      int            `gorm:"column:retry_count"`
	NextRetryAt     *time.Time     `gorm:"column:next_retry_at;index"`
	SentAt          *time.Time     `gorm:"column:sent_at"`
	RepliedAt       *time.Time     `gorm:"column:replied_at"`
	ThreadID        string         `gorm:"column:thread_id;index"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at"`
}

func (messageRow) TableName() string { return "outreach_messages" }

type attemptRow struct {
	ID          uuid.UUID      `gorm:"primaryKey;column:id"`
	MessageID   uuid.UUID      `gorm:"column:message_id;index"`
	Channel     string         `gorm:"column:channel"`
	Outcome     string         `gorm:"column:outcome"`
	ErrorDetail string         `gorm:"column:error_detail"`
	ProviderID  string         `gorm:"column:provider_message_id"`
	RetryCount  int            `gorm:"column:retry_count"`
	NextRetryAt *time.Time     `gorm:"column:next_retry_at"`
	Metadata    datatypes.JSON `gorm:"column:metadata"`
	AttemptedAt time.Time      `gorm:"column:attempted_at"`
}

func (attemptRow) TableName() string { return "outreach_attempts" }

type channelConfigRow struct {
	Channel     string    `gorm:"primaryKey;column:channel"`
	Enabled     bool      `gorm:"column:enabled"`
	HourlyLimit int       `gorm:"column:hourly_limit"`
	DailyLimit  int       `gorm:"column:daily_limit"`
	MaxRetries  int       `gorm:"column:max_retries"`
	Template    string    `gorm:"column:template"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (channelConfigRow) TableName() string { return "channel_configs" }

type campaignRow struct {
	ID          uuid.UUID      `gorm:"primaryKey;column:id"`
	Name        string         `gorm:"column:name"`
	Active      bool           `gorm:"column:active;index"`
	PausedAt    *time.Time     `gorm:"column:paused_at"`
	PauseReason string         `gorm:"column:pause_reason"`
	Settings    datatypes.JSON `gorm:"column:settings"`
	Metrics     datatypes.JSON `gorm:"column:metrics"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (campaignRow) TableName() string { return "campaigns" }

type heartbeatRow struct {
	WorkerID   string    `gorm:"primaryKey;column:worker_id"`
	Status     string    `gorm:"column:status"`
	LockHolder bool      `gorm:"column:lock_holder;index"`
	LastSeenAt time.Time `gorm:"column:last_seen_at"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (heartbeatRow) TableName() string { return "worker_heartbeats" }

type alertLogRow struct {
	ID               uuid.UUID      `gorm:"primaryKey;column:id"`
	IdempotencyKey   string         `gorm:"column:idempotency_key;uniqueIndex"`
	AlertType        string         `gorm:"column:alert_type"`
	Payload          datatypes.JSON `gorm:"column:payload"`
	SentSuccessfully bool           `gorm:"column:sent_successfully"`
	CreatedAt        time.Time      `gorm:"column:created_at"`
}

func (alertLogRow) TableName() string { return "human_alert_logs" }

type checkpointRow struct {
	Name      string    `gorm:"primaryKey;column:name"`
	Position  time.Time `gorm:"column:position"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (checkpointRow) TableName() string { return "sync_checkpoints" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&leadRow{},
		&messageRow{},
		&attemptRow{},
		&channelConfigRow{},
		&campaignRow{},
		&heartbeatRow{},
		&alertLogRow{},
		&checkpointRow{},
	)
}

// --- Messages ---

// PendingMessages returns messages ready for a send attempt: PENDING status,
// no retry scheduled or the retry is due, belonging to active campaigns.
func (r *Repository) PendingMessages(ctx context.Context, now time.Time, limit int) ([]models.OutreachMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []messageRow
	err := r.db.WithContext(ctx).
		Where("status = ?", string(models.MessagePending)).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Where("campaign_id IN (?)", r.db.Model(&campaignRow{}).Select("id").Where("active = ?", true)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	messages := make([]models.OutreachMessage, 0, len(rows))
	for i := range rows {
		messages = append(messages, buildMessage(&rows[i]))
	}
	return messages, nil
}

func (r *Repository) CreateMessage(ctx context.Context, msg models.OutreachMessage) (models.OutreachMessage, error) {
	now := time.Now().UTC()
	row := &messageRow{
		ID:          uuid.New(),
		LeadID:      msg.LeadID,
		CampaignID:  msg.CampaignID,
		Channel:     string(msg.Channel),
		Subject:     msg.Subject,
		Body:        msg.Body,
		Status:      string(models.MessagePending),
		ThreadID:    msg.ThreadID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if msg.ID != uuid.Nil {
		row.ID = msg.ID
	}
	if msg.Personalization != nil {
		if data, err := json.Marshal(msg.Personalization); err == nil {
			row.Personalization = datatypes.JSON(data)
		}
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.OutreachMessage{}, err
	}
	return buildMessage(row), nil
}

// SaveMessageState persists the mutable delivery fields after a sequencer
// pass.
func (r *Repository) SaveMessageState(ctx context.Context, msg *models.OutreachMessage) error {
	return r.db.WithContext(ctx).Model(&messageRow{}).Where("id = ?", msg.ID).Updates(map[string]interface{}{
		"status":        string(msg.Status),
		"channel_used":  string(msg.ChannelUsed),
		"attempt_count": msg.AttemptCount,
		"retry_count":   msg.RetryCount,
		"next_retry_at": msg.NextRetryAt,
		"sent_at":       msg.SentAt,
		"thread_id":     msg.ThreadID,
		"updated_at":    time.Now().UTC(),
	}).Error
}

// MarkMessageReplied flips a sent message to REPLIED. Safe to re-run: only
// messages still in SENT or DELIVERED transition.
func (r *Repository) MarkMessageReplied(ctx context.Context, messageID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&messageRow{}).
		Where("id = ? AND status IN ?", messageID, []string{string(models.MessageSent), string(models.MessageDelivered)}).
		Updates(map[string]interface{}{
			"status":     string(models.MessageReplied),
			"replied_at": at,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) FindMessageByThread(ctx context.Context, threadID string) (*models.OutreachMessage, error) {
	var row messageRow
	err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	msg := buildMessage(&row)
	return &msg, nil
}

// --- Attempts ---

func (r *Repository) AppendAttempt(ctx context.Context, attempt models.OutreachAttempt) error {
	row := &attemptRow{
		ID:          attempt.ID,
		MessageID:   attempt.MessageID,
		Channel:     string(attempt.Channel),
		Outcome:     string(attempt.Outcome),
		ErrorDetail: attempt.ErrorDetail,
		ProviderID:  attempt.ProviderID,
		RetryCount:  attempt.RetryCount,
		NextRetryAt: attempt.NextRetryAt,
		AttemptedAt: attempt.AttemptedAt,
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if attempt.Metadata != nil {
		if data, err := json.Marshal(attempt.Metadata); err == nil {
			row.Metadata = datatypes.JSON(data)
		}
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) AttemptsForMessage(ctx context.Context, messageID uuid.UUID) ([]models.OutreachAttempt, error) {
	var rows []attemptRow
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).Order("attempted_at ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	attempts := make([]models.OutreachAttempt, 0, len(rows))
	for i := range rows {
		attempts = append(attempts, buildAttempt(&rows[i]))
	}
	return attempts, nil
}

// --- Leads ---

func (r *Repository) CreateLead(ctx context.Context, lead models.Lead) (models.Lead, error) {
	now := time.Now().UTC()
	row := &leadRow{
		ID:             uuid.New(),
		CampaignID:     lead.CampaignID,
		Name:           lead.Name,
		Company:        lead.Company,
		Email:          lead.Email,
		NetworkHandle:  lead.NetworkHandle,
		ContactFormURL: lead.ContactFormURL,
		Status:         string(models.LeadNew),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if lead.ID != uuid.Nil {
		row.ID = lead.ID
	}
	if lead.Attributes != nil {
		if data, err := json.Marshal(lead.Attributes); err == nil {
			row.Attributes = datatypes.JSON(data)
		}
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.Lead{}, err
	}
	return buildLead(row), nil
}

func (r *Repository) GetLead(ctx context.Context, leadID uuid.UUID) (models.Lead, error) {
	var row leadRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", leadID).Error; err != nil {
		return models.Lead{}, err
	}
	return buildLead(&row), nil
}

// MarkLeadContacted transitions NEW -> CONTACTED and stamps the outreach
// bookkeeping fields. Leads already past NEW keep their status but still get
// the timestamps refreshed.
func (r *Repository) MarkLeadContacted(ctx context.Context, leadID uuid.UUID, at time.Time, nextActionAt time.Time) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Model(&leadRow{}).
		Where("id = ? AND status = ?", leadID, string(models.LeadNew)).
		Update("status", string(models.LeadContacted)).Error; err != nil {
		return err
	}
	return tx.Model(&leadRow{}).Where("id = ?", leadID).Updates(map[string]interface{}{
		"last_outreach_at": at,
		"next_action_at":   nextActionAt,
		"updated_at":       time.Now().UTC(),
	}).Error
}

// TransitionLead performs a guarded status change. Returns false when the
// lead was not in any of the expected source states, which makes re-runs
// after a crash no-ops.
func (r *Repository) TransitionLead(ctx context.Context, leadID uuid.UUID, from []models.LeadStatus, to models.LeadStatus) (bool, error) {
	sources := make([]string, 0, len(from))
	for _, s := range from {
		sources = append(sources, string(s))
	}
	result := r.db.WithContext(ctx).Model(&leadRow{}).
		Where("id = ? AND status IN ?", leadID, sources).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}

// LeadsDueForTimeout returns contacted leads whose follow-up window elapsed
// with no reply.
func (r *Repository) LeadsDueForTimeout(ctx context.Context, now time.Time, limit int) ([]models.Lead, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []leadRow
	err := r.db.WithContext(ctx).
		Where("next_action_at IS NOT NULL AND next_action_at <= ?", now).
		Where("status IN ?", []string{string(models.LeadContacted), string(models.LeadEngaged), string(models.LeadNurture)}).
		Order("next_action_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	leads := make([]models.Lead, 0, len(rows))
	for i := range rows {
		leads = append(leads, buildLead(&rows[i]))
	}
	return leads, nil
}

func (r *Repository) SetLeadNextAction(ctx context.Context, leadID uuid.UUID, at *time.Time) error {
	return r.db.WithContext(ctx).Model(&leadRow{}).Where("id = ?", leadID).Updates(map[string]interface{}{
		"next_action_at": at,
		"updated_at":     time.Now().UTC(),
	}).Error
}

func (r *Repository) UnalertedQualifiedLeads(ctx context.Context, limit int) ([]models.Lead, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []leadRow
	err := r.db.WithContext(ctx).
		Where("status = ? AND alerted = ?", string(models.LeadQualified), false).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	leads := make([]models.Lead, 0, len(rows))
	for i := range rows {
		leads = append(leads, buildLead(&rows[i]))
	}
	return leads, nil
}

func (r *Repository) MarkLeadAlerted(ctx context.Context, leadID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&leadRow{}).Where("id = ?", leadID).Updates(map[string]interface{}{
		"alerted":    true,
		"updated_at": time.Now().UTC(),
	}).Error
}

// --- Channel configs ---

func (r *Repository) ListChannelConfigs(ctx context.Context) ([]models.ChannelConfig, error) {
	var rows []channelConfigRow
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	configs := make([]models.ChannelConfig, 0, len(rows))
	for _, row := range rows {
		configs = append(configs, models.ChannelConfig{
			Channel:     models.Channel(row.Channel),
			Enabled:     row.Enabled,
			HourlyLimit: row.HourlyLimit,
			DailyLimit:  row.DailyLimit,
			MaxRetries:  row.MaxRetries,
			Template:    row.Template,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return configs, nil
}

// SeedChannelConfigs inserts defaults for channels that have no operator row
// yet. Existing rows are left untouched.
func (r *Repository) SeedChannelConfigs(ctx context.Context, defaults []models.ChannelConfig) error {
	for _, cfg := range defaults {
		row := channelConfigRow{
			Channel:     string(cfg.Channel),
			Enabled:     cfg.Enabled,
			HourlyLimit: cfg.HourlyLimit,
			DailyLimit:  cfg.DailyLimit,
			MaxRetries:  cfg.MaxRetries,
			Template:    cfg.Template,
			UpdatedAt:   time.Now().UTC(),
		}
		err := r.db.WithContext(ctx).
			Where("channel = ?", row.Channel).
			FirstOrCreate(&channelConfigRow{}, row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// --- Campaigns ---

func (r *Repository) CreateCampaign(ctx context.Context, campaign models.Campaign) (models.Campaign, error) {
	now := time.Now().UTC()
	row := &campaignRow{
		ID:        uuid.New(),
		Name:      campaign.Name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if campaign.ID != uuid.Nil {
		row.ID = campaign.ID
	}
	if campaign.Settings != nil {
		if data, err := json.Marshal(campaign.Settings); err == nil {
			row.Settings = datatypes.JSON(data)
		}
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.Campaign{}, err
	}
	return buildCampaign(row), nil
}

func (r *Repository) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var rows []campaignRow
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	campaigns := make([]models.Campaign, 0, len(rows))
	for i := range rows {
		campaigns = append(campaigns, buildCampaign(&rows[i]))
	}
	return campaigns, nil
}

type campaignCounts struct {
	Sent      int
	Delivered int
	Replied   int
	Bounced   int
	Failed    int
	Positive  int
}

// RecomputeCampaignMetrics aggregates message and lead counters for one
// campaign and stores the result on the campaign row.
func (r *Repository) RecomputeCampaignMetrics(ctx context.Context, campaignID uuid.UUID, now time.Time) (models.CampaignMetrics, error) {
	var counts campaignCounts
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) FILTER (WHERE status IN ('SENT','DELIVERED','REPLIED')) AS sent,
			COUNT(*) FILTER (WHERE status IN ('DELIVERED','REPLIED'))        AS delivered,
			COUNT(*) FILTER (WHERE status = 'REPLIED')                       AS replied,
			COUNT(*) FILTER (WHERE status = 'BOUNCED')                       AS bounced,
			COUNT(*) FILTER (WHERE status = 'FAILED')                        AS failed
		FROM outreach_messages WHERE campaign_id = ?`, campaignID).Scan(&counts).Error
	if err != nil {
		return models.CampaignMetrics{}, err
	}

	var positive int64
	err = r.db.WithContext(ctx).Model(&leadRow{}).
		Where("campaign_id = ? AND status = ?", campaignID, string(models.LeadQualified)).
		Count(&positive).Error
	if err != nil {
		return models.CampaignMetrics{}, err
	}

	metrics := models.CampaignMetrics{
		Sent:          counts.Sent,
		Delivered:     counts.Delivered,
		Replied:       counts.Replied,
		Bounced:       counts.Bounced,
		Failed:        counts.Failed,
		PositiveReply: int(positive),
		RecomputedAt:  now,
	}

	data, err := json.Marshal(metrics)
	if err != nil {
		return models.CampaignMetrics{}, err
	}
	err = r.db.WithContext(ctx).Model(&campaignRow{}).Where("id = ?", campaignID).Updates(map[string]interface{}{
		"metrics":    datatypes.JSON(data),
		"updated_at": time.Now().UTC(),
	}).Error
	return metrics, err
}

// PauseCampaign deactivates an active campaign. Already-paused campaigns are
// left as-is so the first pause reason survives re-runs.
func (r *Repository) PauseCampaign(ctx context.Context, campaignID uuid.UUID, reason string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&campaignRow{}).
		Where("id = ? AND active = ?", campaignID, true).
		Updates(map[string]interface{}{
			"active":       false,
			"paused_at":    at,
			"pause_reason": reason,
			"updated_at":   time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}

// --- Alerts ---

func (r *Repository) FindAlertByKey(ctx context.Context, idempotencyKey string) (*models.HumanAlertLog, error) {
	var row alertLogRow
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", idempotencyKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	alert := buildAlertLog(&row)
	return &alert, nil
}

func (r *Repository) InsertAlertLog(ctx context.Context, alert models.HumanAlertLog) error {
	row := &alertLogRow{
		ID:               alert.ID,
		IdempotencyKey:   alert.IdempotencyKey,
		AlertType:        alert.AlertType,
		SentSuccessfully: alert.SentSuccessfully,
		CreatedAt:        alert.CreatedAt,
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if alert.Payload != nil {
		if data, err := json.Marshal(alert.Payload); err == nil {
			row.Payload = datatypes.JSON(data)
		}
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// --- Checkpoints ---

func (r *Repository) GetCheckpoint(ctx context.Context, name string) (time.Time, error) {
	var row checkpointRow
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return row.Position, nil
}

func (r *Repository) SetCheckpoint(ctx context.Context, name string, position time.Time) error {
	row := checkpointRow{Name: name, Position: position, UpdatedAt: time.Now().UTC()}
	result := r.db.WithContext(ctx).Model(&checkpointRow{}).Where("name = ?", name).Updates(map[string]interface{}{
		"position":   position,
		"updated_at": row.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.db.WithContext(ctx).Create(&row).Error
	}
	return nil
}

// --- Builders ---

func buildLead(row *leadRow) models.Lead {
	lead := models.Lead{
		ID:             row.ID,
		CampaignID:     row.CampaignID,
		Name:           row.Name,
		Company:        row.Company,
		Email:          row.Email,
		NetworkHandle:  row.NetworkHandle,
		ContactFormURL: row.ContactFormURL,
		Status:         models.LeadStatus(row.Status),
		Alerted:        row.Alerted,
		LastOutreachAt: row.LastOutreachAt,
		NextActionAt:   row.NextActionAt,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if len(row.Attributes) > 0 {
		var payload map[string]interface{}
		_ = json.Unmarshal(row.Attributes, &payload)
		lead.Attributes = payload
	}
	return lead
}

func buildMessage(row *messageRow) models.OutreachMessage {
	msg := models.OutreachMessage{
		ID:           row.ID,
		LeadID:       row.LeadID,
		CampaignID:   row.CampaignID,
		Channel:      models.Channel(row.Channel),
		Subject:      row.Subject,
		Body:         row.Body,
		Status:       models.MessageStatus(row.Status),
		ChannelUsed:  models.Channel(row.ChannelUsed),
		AttemptCount: row.AttemptCount,
		RetryCount:   row.RetryCount,
		NextRetryAt:  row.NextRetryAt,
		SentAt:       row.SentAt,
		RepliedAt:    row.RepliedAt,
		ThreadID:     row.ThreadID,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if len(row.Personalization) > 0 {
		var payload map[string]interface{}
		_ = json.Unmarshal(row.Personalization, &payload)
		msg.Personalization = payload
	}
	return msg
}

func buildAttempt(row *attemptRow) models.OutreachAttempt {
	attempt := models.OutreachAttempt{
		ID:          row.ID,
		MessageID:   row.MessageID,
		Channel:     models.Channel(row.Channel),
		Outcome:     models.Outcome(row.Outcome),
		ErrorDetail: row.ErrorDetail,
		ProviderID:  row.ProviderID,
		RetryCount:  row.RetryCount,
		NextRetryAt: row.NextRetryAt,
		AttemptedAt: row.AttemptedAt,
	}
	if len(row.Metadata) > 0 {
		var payload map[string]interface{}
		_ = json.Unmarshal(row.Metadata, &payload)
		attempt.Metadata = payload
	}
	return attempt
}

func buildCampaign(row *campaignRow) models.Campaign {
	campaign := models.Campaign{
		ID:          row.ID,
		Name:        row.Name,
		Active:      row.Active,
		PausedAt:    row.PausedAt,
		PauseReason: row.PauseReason,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if len(row.Settings) > 0 {
		var payload map[string]interface{}
		_ = json.Unmarshal(row.Settings, &payload)
		campaign.Settings = payload
	}
	if len(row.Metrics) > 0 {
		_ = json.Unmarshal(row.Metrics, &campaign.Metrics)
	}
	return campaign
}

func buildAlertLog(row *alertLogRow) models.HumanAlertLog {
	alert := models.HumanAlertLog{
		ID:               row.ID,
		IdempotencyKey:   row.IdempotencyKey,
		AlertType:        row.AlertType,
		SentSuccessfully: row.SentSuccessfully,
		CreatedAt:        row.CreatedAt,
	}
	if len(row.Payload) > 0 {
		var payload map[string]interface{}
		_ = json.Unmarshal(row.Payload, &payload)
		alert.Payload = payload
	}
	return alert
}
