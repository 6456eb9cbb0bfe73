// Package alerts notifies a human when the pipeline finds something worth
// their attention, e.g. a positive reply. Dispatch is idempotent: the unique
// idempotency key in human_alert_logs guarantees at most one delivery per
// qualifying event, no matter how often a cycle re-runs.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prospexa-ai/platform/pkg/common/logger"
	"github.com/prospexa-ai/platform/pkg/common/models"
	"github.com/sirupsen/logrus"
)

// AlertStore is the audit-log side of the dispatcher. *outreach.Repository
// satisfies it.
type AlertStore interface {
	FindAlertByKey(ctx context.Context, idempotencyKey string) (*models.HumanAlertLog, error)
	InsertAlertLog(ctx context.Context, alert models.HumanAlertLog) error
}

// Transport delivers the notification, e.g. email to the operators.
type Transport interface {
	Deliver(ctx context.Context, recipients []string, subject, body string) error
}

type Dispatcher struct {
	store      AlertStore
	transport  Transport
	recipients []string
	subjectTag string
	now        func() time.Time
}

func NewDispatcher(store AlertStore, transport Transport, recipients []string, subjectTag string) *Dispatcher {
	return &Dispatcher{
		store:      store,
		transport:  transport,
		recipients: recipients,
		subjectTag: subjectTag,
		now:        time.Now,
	}
}

// SendAlert delivers one notification per idempotency key. A key that already
// has an audit row returns success without resending. A failed delivery still
// writes the audit row with sent_successfully=false so an operator can see
// what never reached them.
func (d *Dispatcher) SendAlert(ctx context.Context, alertType string, payload map[string]interface{}, idempotencyKey string) (bool, error) {
	existing, err := d.store.FindAlertByKey(ctx, idempotencyKey)
	if err != nil {
		return false, fmt.Errorf("alert dedupe lookup: %w", err)
	}
	if existing != nil {
		logger.WithFields(logrus.Fields{
			"idempotency_key": idempotencyKey,
			"alert_type":      alertType,
		}).Debug("alert already dispatched, skipping")
		return true, nil
	}

	subject := fmt.Sprintf("%s %s", d.subjectTag, alertType)
	body := renderBody(alertType, payload)

	sendErr := d.transport.Deliver(ctx, d.recipients, subject, body)

	entry := models.HumanAlertLog{
		ID:               uuid.New(),
		IdempotencyKey:   idempotencyKey,
		AlertType:        alertType,
		Payload:          payload,
		SentSuccessfully: sendErr == nil,
		CreatedAt:        d.now().UTC(),
	}
	if err := d.store.InsertAlertLog(ctx, entry); err != nil {
		// Unique-key collision means a concurrent dispatch won; the alert
		// went out exactly once either way.
		return false, fmt.Errorf("alert audit write: %w", err)
	}

	if sendErr != nil {
		logger.Log.WithError(sendErr).WithField("alert_type", alertType).Error("alert delivery failed")
		return false, nil
	}
	return true, nil
}

func renderBody(alertType string, payload map[string]interface{}) string {
	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		pretty = []byte("{}")
	}
	return fmt.Sprintf("Alert: %s\n\n%s\n", alertType, pretty)
}
