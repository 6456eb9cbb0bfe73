package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/prospexa-ai/platform/pkg/common/logger"
	"github.com/prospexa-ai/platform/pkg/common/models"
)

func init() {
	logger.Init()
}

type memAlertStore struct {
	rows map[string]models.HumanAlertLog
}

func newMemAlertStore() *memAlertStore {
	return &memAlertStore{rows: map[string]models.HumanAlertLog{}}
}

func (s *memAlertStore) FindAlertByKey(_ context.Context, key string) (*models.HumanAlertLog, error) {
	if row, ok := s.rows[key]; ok {
		return &row, nil
	}
	return nil, nil
}

func (s *memAlertStore) InsertAlertLog(_ context.Context, alert models.HumanAlertLog) error {
	if _, ok := s.rows[alert.IdempotencyKey]; ok {
		return errors.New("duplicate idempotency key")
	}
	s.rows[alert.IdempotencyKey] = alert
	return nil
}

type countingTransport struct {
	deliveries int
	fail       bool
}

func (t *countingTransport) Deliver(_ context.Context, _ []string, _, _ string) error {
	t.deliveries++
	if t.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

func TestSendAlertIsIdempotent(t *testing.T) {
	store := newMemAlertStore()
	transport := &countingTransport{}
	d := NewDispatcher(store, transport, []string{"ops@prospexa.ai"}, "[test]")

	payload := map[string]interface{}{"lead_id": "abc"}

	ok, err := d.SendAlert(context.Background(), "positive_reply", payload, "positive-reply-abc")
	if err != nil || !ok {
		t.Fatalf("first dispatch: ok=%v err=%v", ok, err)
	}

	ok, err = d.SendAlert(context.Background(), "positive_reply", payload, "positive-reply-abc")
	if err != nil || !ok {
		t.Fatalf("second dispatch: ok=%v err=%v", ok, err)
	}

	if transport.deliveries != 1 {
		t.Fatalf("expected exactly one delivery, got %d", transport.deliveries)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected exactly one audit row, got %d", len(store.rows))
	}
}

func TestFailedDeliveryStillWritesAuditRow(t *testing.T) {
	store := newMemAlertStore()
	transport := &countingTransport{fail: true}
	d := NewDispatcher(store, transport, []string{"ops@prospexa.ai"}, "[test]")

	ok, err := d.SendAlert(context.Background(), "positive_reply", nil, "positive-reply-xyz")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if ok {
		t.Fatal("failed delivery should report not-sent")
	}

	row, _ := store.FindAlertByKey(context.Background(), "positive-reply-xyz")
	if row == nil {
		t.Fatal("audit row must exist even when delivery fails")
	}
	if row.SentSuccessfully {
		t.Fatal("audit row must record the failed delivery")
	}
}

func TestDuplicateKeyAfterFailureDoesNotRedeliver(t *testing.T) {
	store := newMemAlertStore()
	transport := &countingTransport{fail: true}
	d := NewDispatcher(store, transport, []string{"ops@prospexa.ai"}, "[test]")

	_, _ = d.SendAlert(context.Background(), "positive_reply", nil, "k-1")

	// Repeat calls dedupe on the audit row regardless of delivery outcome;
	// a stuck alert is retried manually by an operator, never automatically.
	ok, err := d.SendAlert(context.Background(), "positive_reply", nil, "k-1")
	if err != nil || !ok {
		t.Fatalf("dedupe call: ok=%v err=%v", ok, err)
	}
	if transport.deliveries != 1 {
		t.Fatalf("expected one delivery attempt total, got %d", transport.deliveries)
	}
}
