package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowDeniesAboveThreshold(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(NewMemoryStore(), Limits{})

	const threshold = 3
	for i := 0; i < threshold; i++ {
		ok, err := limiter.Allow(ctx, ScopeChannel, "email", WindowHour, threshold)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !ok {
			t.Fatalf("send %d should be allowed", i+1)
		}
		if err := limiter.Record(ctx, ScopeChannel, "email", WindowHour); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	ok, err := limiter.Allow(ctx, ScopeChannel, "email", WindowHour, threshold)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok {
		t.Fatal("send above threshold should be denied")
	}
}

func TestAllowResetsAfterBucketRollover(t *testing.T) {
	// Buckets are fixed hour windows, not sliding ones: the counter resets at
	// the top of the hour regardless of when the quota was consumed. Accepted
	// simplification, see package doc.
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 59, 0, 0, time.UTC)
	limiter := NewLimiter(NewMemoryStore(), Limits{})
	limiter.SetClock(func() time.Time { return now })

	if err := limiter.Record(ctx, ScopeChannel, "email", WindowHour); err != nil {
		t.Fatalf("record: %v", err)
	}
	ok, _ := limiter.Allow(ctx, ScopeChannel, "email", WindowHour, 1)
	if ok {
		t.Fatal("threshold of one should deny the second send")
	}

	now = now.Add(2 * time.Minute) // crosses into the 11:00 bucket
	ok, _ = limiter.Allow(ctx, ScopeChannel, "email", WindowHour, 1)
	if !ok {
		t.Fatal("new bucket should reset the counter")
	}
}

func TestAllowSendIsConjunctionOverScopes(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(NewMemoryStore(), Limits{
		GlobalHourly:   10,
		GlobalDaily:    10,
		ChannelHourly:  10,
		ChannelDaily:   10,
		RecipientDaily: 1,
	})

	ok, err := limiter.AllowSend(ctx, "email", "jane@example.com")
	if err != nil {
		t.Fatalf("allow send: %v", err)
	}
	if !ok {
		t.Fatal("first send should pass every scope")
	}
	if err := limiter.RecordSend(ctx, "email", "jane@example.com"); err != nil {
		t.Fatalf("record send: %v", err)
	}

	// Recipient scope is exhausted even though channel and global are not.
	ok, _ = limiter.AllowSend(ctx, "email", "jane@example.com")
	if ok {
		t.Fatal("recipient daily limit should deny the send")
	}

	// A different recipient still passes.
	ok, _ = limiter.AllowSend(ctx, "email", "sam@example.com")
	if !ok {
		t.Fatal("other recipients should be unaffected")
	}
}

func TestZeroThresholdDisablesCheck(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(NewMemoryStore(), Limits{})

	for i := 0; i < 50; i++ {
		if err := limiter.RecordSend(ctx, "email", "jane@example.com"); err != nil {
			t.Fatalf("record send: %v", err)
		}
	}
	ok, err := limiter.AllowSend(ctx, "email", "jane@example.com")
	if err != nil {
		t.Fatalf("allow send: %v", err)
	}
	if !ok {
		t.Fatal("unset thresholds should never deny")
	}
}
