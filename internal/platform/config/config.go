package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	// ResolutionAPIKey guards the manual resolution trigger endpoint.
	ResolutionAPIKey string
	// ResolutionCron is a robfig/cron spec for the scheduled sweep.
	ResolutionCron     string
	OutboxPollInterval time.Duration

	RewardPool        float64
	AccuracyThreshold float64
	RoundInterval     time.Duration
	DefaultStake      float64
	VoteBonus         float64

	EnableResolutionJob bool
	EnableOutboxRelay   bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "scarab"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	cronSpec := strings.TrimSpace(os.Getenv("RESOLUTION_CRON"))
	if cronSpec == "" {
		cronSpec = "@hourly"
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		ResolutionAPIKey:   strings.TrimSpace(os.Getenv("RESOLUTION_API_KEY")),
		ResolutionCron:     cronSpec,
		OutboxPollInterval: envDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),

		RewardPool:        envFloat("REWARD_POOL", 500),
		AccuracyThreshold: envFloat("ACCURACY_THRESHOLD", 0.5),
		RoundInterval:     envDuration("ROUND_INTERVAL", 7*24*time.Hour),
		DefaultStake:      envFloat("DEFAULT_STAKE", 10),
		VoteBonus:         envFloat("VOTE_BONUS", 10),

		EnableResolutionJob: envBool("ENABLE_RESOLUTION_JOB", true),
		EnableOutboxRelay:   envBool("ENABLE_OUTBOX_RELAY", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
