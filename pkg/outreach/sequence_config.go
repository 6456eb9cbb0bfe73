package outreach

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prospexa-ai/platform/pkg/common/models"
	"gopkg.in/yaml.v3"
)

type yamlSequenceStep struct {
	Channel   string `yaml:"channel"`
	OnFailure string `yaml:"on_failure"`
}

type yamlSequenceConfig struct {
	Steps      []yamlSequenceStep `yaml:"steps"`
	MaxRetries int                `yaml:"max_retries"`
	Backoff    []string           `yaml:"backoff"`
	Timeout    string             `yaml:"timeout"`
}

// LoadSequenceConfig reads the operator-edited channel sequence from a yaml
// file. An empty path yields the compiled-in defaults.
func LoadSequenceConfig(path string) (models.SequenceConfig, error) {
	if path == "" {
		return DefaultSequenceConfig(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultSequenceConfig(), err
	}

	var raw yamlSequenceConfig
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return models.SequenceConfig{}, err
	}
	if len(raw.Steps) == 0 {
		return models.SequenceConfig{}, errors.New("sequence config has no steps")
	}

	cfg := models.SequenceConfig{MaxRetries: raw.MaxRetries}
	for _, step := range raw.Steps {
		channel := models.Channel(step.Channel)
		switch channel {
		case models.ChannelEmail, models.ChannelNetwork, models.ChannelContactForm:
		default:
			return models.SequenceConfig{}, fmt.Errorf("unknown channel %q in sequence config", step.Channel)
		}
		policy := models.FailurePolicy(step.OnFailure)
		if policy == "" {
			policy = models.FallbackNext
		}
		if policy != models.FallbackNext && policy != models.StopSequence {
			return models.SequenceConfig{}, fmt.Errorf("unknown on_failure policy %q", step.OnFailure)
		}
		cfg.Steps = append(cfg.Steps, models.SequenceStep{Channel: channel, OnFailure: policy})
	}

	for _, d := range raw.Backoff {
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return models.SequenceConfig{}, fmt.Errorf("invalid backoff duration %q: %w", d, err)
		}
		cfg.Backoff = append(cfg.Backoff, parsed)
	}
	if raw.Timeout != "" {
		parsed, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return models.SequenceConfig{}, fmt.Errorf("invalid timeout %q: %w", raw.Timeout, err)
		}
		cfg.Timeout = parsed
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = DefaultBackoff()
	}
	return cfg, nil
}

func DefaultSequenceConfig() models.SequenceConfig {
	return models.SequenceConfig{
		Steps: []models.SequenceStep{
			{Channel: models.ChannelEmail, OnFailure: models.FallbackNext},
			{Channel: models.ChannelNetwork, OnFailure: models.FallbackNext},
			{Channel: models.ChannelContactForm, OnFailure: models.FallbackNext},
		},
		MaxRetries: 3,
		Backoff:    DefaultBackoff(),
		Timeout:    2 * time.Minute,
	}
}

func DefaultBackoff() []time.Duration {
	return []time.Duration{10 * time.Minute, time.Hour, 6 * time.Hour}
}

// NextBackoff returns the delay before retry number retryCount (1-based).
// Past the end of the schedule the last interval doubles per extra retry.
func NextBackoff(schedule []time.Duration, retryCount int) time.Duration {
	if len(schedule) == 0 {
		schedule = DefaultBackoff()
	}
	if retryCount < 1 {
		retryCount = 1
	}
	idx := retryCount - 1
	if idx < len(schedule) {
		return schedule[idx]
	}
	delay := schedule[len(schedule)-1]
	for i := len(schedule); i <= idx; i++ {
		delay *= 2
		if delay > 48*time.Hour {
			return 48 * time.Hour
		}
	}
	return delay
}
