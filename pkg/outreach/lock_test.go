package outreach

import (
	"context"
	"sync"
	"testing"
	"time"
)

// memLockStore mirrors the durable lock semantics in memory: one heartbeat
// per worker, at most one live holder, stale holders lose to the next
// acquirer. The clock is injectable so tests can age a holder past the TTL.
type memLockStore struct {
	mu    sync.Mutex
	now   func() time.Time
	beats map[string]*memHeartbeat
}

type memHeartbeat struct {
	lockHolder bool
	lastSeenAt time.Time
}

func newMemLockStore(now func() time.Time) *memLockStore {
	return &memLockStore{now: now, beats: make(map[string]*memHeartbeat)}
}

func (s *memLockStore) TryAcquireLock(_ context.Context, workerID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	staleBefore := now.Add(-ttl)

	for _, beat := range s.beats {
		if beat.lockHolder && beat.lastSeenAt.Before(staleBefore) {
			beat.lockHolder = false
		}
	}
	if _, ok := s.beats[workerID]; !ok {
		s.beats[workerID] = &memHeartbeat{}
	}
	s.beats[workerID].lastSeenAt = now

	for id, beat := range s.beats {
		if beat.lockHolder && id != workerID {
			return false, nil
		}
	}
	s.beats[workerID].lockHolder = true
	return true, nil
}

func (s *memLockStore) RenewLock(_ context.Context, workerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	beat, ok := s.beats[workerID]
	if !ok || !beat.lockHolder {
		return false, nil
	}
	beat.lastSeenAt = s.now()
	return true, nil
}

func (s *memLockStore) ReleaseLock(_ context.Context, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if beat, ok := s.beats[workerID]; ok && beat.lockHolder {
		beat.lockHolder = false
	}
	return nil
}

func (s *memLockStore) ForceReleaseLock(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var released int64
	for _, beat := range s.beats {
		if beat.lockHolder {
			beat.lockHolder = false
			released++
		}
	}
	return released, nil
}

func TestAdvisoryLockSingleHolder(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := newMemLockStore(func() time.Time { return now })
	ctx := context.Background()

	first := NewAdvisoryLock(store, "worker-1", 5*time.Minute)
	second := NewAdvisoryLock(store, "worker-2", 5*time.Minute)

	acquired, err := first.Acquire(ctx)
	if err != nil || !acquired {
		t.Fatalf("first acquire = (%v, %v), want (true, nil)", acquired, err)
	}
	acquired, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}
	if acquired {
		t.Fatal("second worker acquired the lock while the first still holds it")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	acquired, err = second.Acquire(ctx)
	if err != nil || !acquired {
		t.Fatalf("acquire after release = (%v, %v), want (true, nil)", acquired, err)
	}
}

func TestAdvisoryLockStaleHolderLosesLock(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := newMemLockStore(func() time.Time { return now })
	ctx := context.Background()

	crashed := NewAdvisoryLock(store, "worker-1", 5*time.Minute)
	if acquired, _ := crashed.Acquire(ctx); !acquired {
		t.Fatal("initial acquire failed")
	}

	// worker-1 crashes without releasing; its heartbeat ages past the TTL.
	now = now.Add(6 * time.Minute)

	successor := NewAdvisoryLock(store, "worker-2", 5*time.Minute)
	acquired, err := successor.Acquire(ctx)
	if err != nil || !acquired {
		t.Fatalf("takeover acquire = (%v, %v), want (true, nil)", acquired, err)
	}

	// The crashed worker coming back must see the lock gone.
	renewed, err := crashed.Renew(ctx)
	if err != nil {
		t.Fatalf("renew failed: %v", err)
	}
	if renewed {
		t.Fatal("stale worker renewed a lock it no longer holds")
	}
}

func TestAdvisoryLockRenewKeepsHolderAlive(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := newMemLockStore(func() time.Time { return now })
	ctx := context.Background()

	holder := NewAdvisoryLock(store, "worker-1", 5*time.Minute)
	if acquired, _ := holder.Acquire(ctx); !acquired {
		t.Fatal("initial acquire failed")
	}

	// Renew inside the TTL window, then advance so the original timestamp
	// would have been stale but the renewed one is not.
	now = now.Add(4 * time.Minute)
	if renewed, _ := holder.Renew(ctx); !renewed {
		t.Fatal("renew inside TTL window failed")
	}
	now = now.Add(4 * time.Minute)

	rival := NewAdvisoryLock(store, "worker-2", 5*time.Minute)
	acquired, err := rival.Acquire(ctx)
	if err != nil {
		t.Fatalf("rival acquire failed: %v", err)
	}
	if acquired {
		t.Fatal("rival acquired the lock from a renewed live holder")
	}
}

func TestForceReleaseLock(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := newMemLockStore(func() time.Time { return now })
	ctx := context.Background()

	holder := NewAdvisoryLock(store, "worker-1", 5*time.Minute)
	if acquired, _ := holder.Acquire(ctx); !acquired {
		t.Fatal("initial acquire failed")
	}

	released, err := store.ForceReleaseLock(ctx)
	if err != nil {
		t.Fatalf("force release failed: %v", err)
	}
	if released != 1 {
		t.Fatalf("released = %d, want 1", released)
	}

	rival := NewAdvisoryLock(store, "worker-2", 5*time.Minute)
	if acquired, _ := rival.Acquire(ctx); !acquired {
		t.Fatal("acquire after force release failed")
	}
}
