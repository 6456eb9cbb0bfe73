package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Worker
	WorkerID       string
	CycleInterval  time.Duration
	LockTTL        time.Duration
	SendBatchSize  int
	NurtureAfter   time.Duration
	DeadAfter      time.Duration
	SequenceConfig string
	RequestTimeout time.Duration
	ReplyLookback  time.Duration

	// Ops server
	OpsHost      string
	OpsPort      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers    []string
	KafkaEventTopic string

	// Email channel
	SMTPHost    string
	SMTPPort    string
	SMTPUser    string
	SMTPPass    string
	SMTPFrom    string
	SMTPEnabled bool

	// Professional-network channel
	NetworkAPIBaseURL   string
	NetworkTokenURL     string
	NetworkClientID     string
	NetworkClientSecret string
	NetworkEnabled      bool

	// Contact-form channel
	ContactFormEnabled   bool
	ContactFormUserAgent string

	// Rate limits
	GlobalHourlyLimit   int
	GlobalDailyLimit    int
	ChannelHourlyLimit  int
	ChannelDailyLimit   int
	RecipientDailyLimit int

	// Inbox collaborator
	InboxBaseURL string
	InboxAPIKey  string

	// Reply classifier
	LLMAPIKey    string
	LLMBaseURL   string
	LLMModelName string

	// Alerting
	AlertRecipients []string
	AlertSubjectTag string
}

func Load() *Config {
	return &Config{
		WorkerID:       getEnv("WORKER_ID", hostnameOr("outreach-worker-1")),
		CycleInterval:  getDuration("CYCLE_INTERVAL", 60*time.Second),
		LockTTL:        getDuration("LOCK_TTL", 5*time.Minute),
		SendBatchSize:  getIntEnv("SEND_BATCH_SIZE", 25),
		NurtureAfter:   getDuration("NURTURE_AFTER", 7*24*time.Hour),
		DeadAfter:      getDuration("DEAD_AFTER", 30*24*time.Hour),
		SequenceConfig: getEnv("SEQUENCE_CONFIG_PATH", ""),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 15*time.Second),
		ReplyLookback:  getDuration("REPLY_LOOKBACK", 24*time.Hour),

		OpsHost:      getEnv("OPS_HOST", "0.0.0.0"),
		OpsPort:      getEnv("OPS_PORT", "8090"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "prospexa"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "prospexa123"),
		PostgresDB:       getEnv("POSTGRES_DB", "prospexa"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaEventTopic: getEnv("KAFKA_EVENT_TOPIC", "outreach-events"),

		SMTPHost:    getEnv("SMTP_HOST", "localhost"),
		SMTPPort:    getEnv("SMTP_PORT", "587"),
		SMTPUser:    getEnv("SMTP_USER", ""),
		SMTPPass:    getEnv("SMTP_PASS", ""),
		SMTPFrom:    getEnv("SMTP_FROM", "outreach@prospexa.ai"),
		SMTPEnabled: getBoolEnv("CHANNEL_EMAIL_ENABLED", true),

		NetworkAPIBaseURL:   getEnv("NETWORK_API_BASE_URL", ""),
		NetworkTokenURL:     getEnv("NETWORK_TOKEN_URL", ""),
		NetworkClientID:     getEnv("NETWORK_CLIENT_ID", ""),
		NetworkClientSecret: getEnv("NETWORK_CLIENT_SECRET", ""),
		NetworkEnabled:      getBoolEnv("CHANNEL_NETWORK_ENABLED", false),

		ContactFormEnabled:   getBoolEnv("CHANNEL_CONTACT_FORM_ENABLED", false),
		ContactFormUserAgent: getEnv("CONTACT_FORM_USER_AGENT", "ProspexaOutreach/1.0"),

		GlobalHourlyLimit:   getIntEnv("GLOBAL_HOURLY_LIMIT", 50),
		GlobalDailyLimit:    getIntEnv("GLOBAL_DAILY_LIMIT", 400),
		ChannelHourlyLimit:  getIntEnv("CHANNEL_HOURLY_LIMIT", 20),
		ChannelDailyLimit:   getIntEnv("CHANNEL_DAILY_LIMIT", 150),
		RecipientDailyLimit: getIntEnv("RECIPIENT_DAILY_LIMIT", 1),

		InboxBaseURL: getEnv("INBOX_BASE_URL", ""),
		InboxAPIKey:  getEnv("INBOX_API_KEY", ""),

		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModelName: getEnv("LLM_MODEL_NAME", "gpt-4o-mini"),

		AlertRecipients: getStringSliceEnv("ALERT_RECIPIENTS", nil),
		AlertSubjectTag: getEnv("ALERT_SUBJECT_TAG", "[prospexa]"),
	}
}

func hostnameOr(fallback string) string {
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return fallback
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
