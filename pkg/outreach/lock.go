package outreach

import (
	"context"
	"time"

	"github.com/prospexa-ai/platform/pkg/common/logger"
	"github.com/prospexa-ai/platform/pkg/common/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LockStore is the durable side of the advisory lock: one heartbeat row per
// worker, at most one row flagged as lock holder among live workers. A holder
// whose last_seen_at is older than the TTL is stale and loses the lock to the
// next acquirer.
type LockStore interface {
	TryAcquireLock(ctx context.Context, workerID string, ttl time.Duration) (bool, error)
	RenewLock(ctx context.Context, workerID string) (bool, error)
	ReleaseLock(ctx context.Context, workerID string) error
	ForceReleaseLock(ctx context.Context) (int64, error)
}

// AdvisoryLock gives one worker at a time the right to run a cycle.
// Acquire returning false is not an error: it means another instance is
// active and this worker should sleep through the cycle.
type AdvisoryLock struct {
	store    LockStore
	workerID string
	ttl      time.Duration
}

func NewAdvisoryLock(store LockStore, workerID string, ttl time.Duration) *AdvisoryLock {
	return &AdvisoryLock{store: store, workerID: workerID, ttl: ttl}
}

func (l *AdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	acquired, err := l.store.TryAcquireLock(ctx, l.workerID, l.ttl)
	if err != nil {
		return false, err
	}
	if acquired {
		logger.Log.WithFields(logrus.Fields{"worker_id": l.workerID, "ttl": l.ttl.String()}).Debug("cycle lock acquired")
	}
	return acquired, nil
}

func (l *AdvisoryLock) Renew(ctx context.Context) (bool, error) {
	return l.store.RenewLock(ctx, l.workerID)
}

func (l *AdvisoryLock) Release(ctx context.Context) error {
	return l.store.ReleaseLock(ctx, l.workerID)
}

// --- gorm-backed LockStore ---

// TryAcquireLock performs the conditional write in one transaction:
// clear stale holder flags, upsert our heartbeat, then claim the holder flag
// only if no other live holder exists. The transaction is serialized through
// a Postgres advisory lock so two concurrent acquirers cannot both pass the
// liveness check.
func (r *Repository) TryAcquireLock(ctx context.Context, workerID string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	staleBefore := now.Add(-ttl)
	acquired := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext('outreach-cycle-lock'))`).Error; err != nil {
			return err
		}

		if err := tx.Model(&heartbeatRow{}).
			Where("lock_holder = ? AND last_seen_at < ?", true, staleBefore).
			Update("lock_holder", false).Error; err != nil {
			return err
		}

		if err := tx.Exec(`
			INSERT INTO worker_heartbeats (worker_id, status, lock_holder, last_seen_at, created_at)
			VALUES (?, 'active', FALSE, ?, ?)
			ON CONFLICT (worker_id) DO UPDATE SET status = 'active', last_seen_at = EXCLUDED.last_seen_at`,
			workerID, now, now).Error; err != nil {
			return err
		}

		result := tx.Exec(`
			UPDATE worker_heartbeats SET lock_holder = TRUE, last_seen_at = ?
			WHERE worker_id = ?
			  AND NOT EXISTS (
				SELECT 1 FROM worker_heartbeats h
				WHERE h.lock_holder AND h.worker_id <> ? AND h.last_seen_at >= ?
			  )`, now, workerID, workerID, staleBefore)
		if result.Error != nil {
			return result.Error
		}
		acquired = result.RowsAffected > 0
		return nil
	})
	return acquired, err
}

// RenewLock refreshes the heartbeat. Returns false if this worker no longer
// holds the lock, e.g. after a takeover.
func (r *Repository) RenewLock(ctx context.Context, workerID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&heartbeatRow{}).
		Where("worker_id = ? AND lock_holder = ?", workerID, true).
		Update("last_seen_at", time.Now().UTC())
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) ReleaseLock(ctx context.Context, workerID string) error {
	return r.db.WithContext(ctx).Model(&heartbeatRow{}).
		Where("worker_id = ? AND lock_holder = ?", workerID, true).
		Updates(map[string]interface{}{
			"lock_holder":  false,
			"status":       "idle",
			"last_seen_at": time.Now().UTC(),
		}).Error
}

// ForceReleaseLock is the operator recovery hatch: it strips the holder flag
// from every worker regardless of liveness.
func (r *Repository) ForceReleaseLock(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&heartbeatRow{}).
		Where("lock_holder = ?", true).
		Update("lock_holder", false)
	return result.RowsAffected, result.Error
}

func (r *Repository) ListHeartbeats(ctx context.Context) ([]models.WorkerHeartbeat, error) {
	var rows []heartbeatRow
	if err := r.db.WithContext(ctx).Order("worker_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	beats := make([]models.WorkerHeartbeat, 0, len(rows))
	for _, row := range rows {
		beats = append(beats, models.WorkerHeartbeat{
			WorkerID:   row.WorkerID,
			Status:     row.Status,
			LockHolder: row.LockHolder,
			LastSeenAt: row.LastSeenAt,
			CreatedAt:  row.CreatedAt,
		})
	}
	return beats, nil
}
