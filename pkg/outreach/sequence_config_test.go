package outreach

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prospexa-ai/platform/pkg/common/models"
)

func writeSequenceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sequence.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write sequence file: %v", err)
	}
	return path
}

func TestLoadSequenceConfig(t *testing.T) {
	path := writeSequenceFile(t, `
steps:
  - channel: network
    on_failure: STOP
  - channel: email
max_retries: 5
backoff: ["15m", "2h"]
timeout: 90s
`)

	cfg, err := LoadSequenceConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(cfg.Steps))
	}
	if cfg.Steps[0].Channel != models.ChannelNetwork || cfg.Steps[0].OnFailure != models.StopSequence {
		t.Fatalf("step 0 = %+v", cfg.Steps[0])
	}
	// on_failure defaults to fallback when omitted.
	if cfg.Steps[1].OnFailure != models.FallbackNext {
		t.Fatalf("step 1 on_failure = %s, want FALLBACK_NEXT", cfg.Steps[1].OnFailure)
	}
	if cfg.MaxRetries != 5 {
		t.Fatalf("max_retries = %d, want 5", cfg.MaxRetries)
	}
	if len(cfg.Backoff) != 2 || cfg.Backoff[0] != 15*time.Minute || cfg.Backoff[1] != 2*time.Hour {
		t.Fatalf("backoff = %v", cfg.Backoff)
	}
	if cfg.Timeout != 90*time.Second {
		t.Fatalf("timeout = %v, want 90s", cfg.Timeout)
	}
}

func TestLoadSequenceConfigRejectsUnknownChannel(t *testing.T) {
	path := writeSequenceFile(t, `
steps:
  - channel: carrier_pigeon
`)
	if _, err := LoadSequenceConfig(path); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}

func TestLoadSequenceConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadSequenceConfig("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	want := DefaultSequenceConfig()
	if len(cfg.Steps) != len(want.Steps) || cfg.MaxRetries != want.MaxRetries {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestNextBackoff(t *testing.T) {
	schedule := []time.Duration{10 * time.Minute, time.Hour, 6 * time.Hour}

	cases := []struct {
		retry int
		want  time.Duration
	}{
		{1, 10 * time.Minute},
		{2, time.Hour},
		{3, 6 * time.Hour},
		{4, 12 * time.Hour},
		{5, 24 * time.Hour},
		{6, 48 * time.Hour},
		{10, 48 * time.Hour}, // capped
	}
	for _, tc := range cases {
		if got := NextBackoff(schedule, tc.retry); got != tc.want {
			t.Errorf("NextBackoff(retry=%d) = %v, want %v", tc.retry, got, tc.want)
		}
	}
}
