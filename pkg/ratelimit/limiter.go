// Package ratelimit enforces send quotas across three scopes: per channel,
// per recipient, and global. Counters live in fixed hour/day buckets rather
// than a true sliding window; a burst straddling a bucket boundary can
// briefly exceed the nominal rate. That trade keeps every check a single
// O(1) counter read.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

type Scope string

const (
	ScopeChannel   Scope = "channel"
	ScopeRecipient Scope = "recipient"
	ScopeGlobal    Scope = "global"
)

type Window string

const (
	WindowHour Window = "hour"
	WindowDay  Window = "day"
)

// CounterStore is the backing store for bucket counters. The Redis
// implementation is used in production; the in-memory one serves tests and
// deployments without Redis.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

// Limits holds the operator-configured thresholds. A zero threshold disables
// that check.
type Limits struct {
	GlobalHourly   int
	GlobalDaily    int
	ChannelHourly  int
	ChannelDaily   int
	RecipientDaily int
}

type Limiter struct {
	store  CounterStore
	limits Limits
	now    func() time.Time
}

func NewLimiter(store CounterStore, limits Limits) *Limiter {
	return &Limiter{store: store, limits: limits, now: time.Now}
}

// Allow reports whether one more send within the given scope/key/window would
// stay under the threshold. It does not consume quota; Record does.
func (l *Limiter) Allow(ctx context.Context, scope Scope, key string, window Window, threshold int) (bool, error) {
	if threshold <= 0 {
		return true, nil
	}
	count, err := l.store.Get(ctx, l.bucketKey(scope, key, window))
	if err != nil {
		return false, fmt.Errorf("rate limit lookup: %w", err)
	}
	return count < int64(threshold), nil
}

// Record consumes one unit of quota in the given scope/key/window.
func (l *Limiter) Record(ctx context.Context, scope Scope, key string, window Window) error {
	_, err := l.store.Incr(ctx, l.bucketKey(scope, key, window), bucketTTL(window))
	if err != nil {
		return fmt.Errorf("rate limit record: %w", err)
	}
	return nil
}

// AllowSend checks every scope that applies to a channel/recipient pair. All
// scopes must be under threshold simultaneously.
func (l *Limiter) AllowSend(ctx context.Context, channel, recipient string) (bool, error) {
	checks := []struct {
		scope     Scope
		key       string
		window    Window
		threshold int
	}{
		{ScopeGlobal, "all", WindowHour, l.limits.GlobalHourly},
		{ScopeGlobal, "all", WindowDay, l.limits.GlobalDaily},
		{ScopeChannel, channel, WindowHour, l.limits.ChannelHourly},
		{ScopeChannel, channel, WindowDay, l.limits.ChannelDaily},
		{ScopeRecipient, recipient, WindowDay, l.limits.RecipientDaily},
	}
	for _, c := range checks {
		ok, err := l.Allow(ctx, c.scope, c.key, c.window, c.threshold)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// RecordSend increments every scope that applies to a channel/recipient pair.
func (l *Limiter) RecordSend(ctx context.Context, channel, recipient string) error {
	records := []struct {
		scope  Scope
		key    string
		window Window
	}{
		{ScopeGlobal, "all", WindowHour},
		{ScopeGlobal, "all", WindowDay},
		{ScopeChannel, channel, WindowHour},
		{ScopeChannel, channel, WindowDay},
		{ScopeRecipient, recipient, WindowDay},
	}
	for _, rec := range records {
		if err := l.Record(ctx, rec.scope, rec.key, rec.window); err != nil {
			return err
		}
	}
	return nil
}

// SetClock overrides the bucket clock. Test hook.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

func (l *Limiter) bucketKey(scope Scope, key string, window Window) string {
	var bucket string
	switch window {
	case WindowHour:
		bucket = l.now().UTC().Format("2006010215")
	default:
		bucket = l.now().UTC().Format("20060102")
	}
	return fmt.Sprintf("rl:%s:%s:%s:%s", scope, key, window, bucket)
}

// TTL is twice the window so a bucket survives until it can no longer be read.
func bucketTTL(window Window) time.Duration {
	if window == WindowHour {
		return 2 * time.Hour
	}
	return 48 * time.Hour
}
