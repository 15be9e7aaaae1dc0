package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port                string
	PostgresDSN         string
	RedisAddr           string
	DirectoryBaseURL    string
	OutboxPollSeconds   int
	IdempotencyTTLHours int
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		DirectoryBaseURL:  strings.TrimSpace(os.Getenv("DIRECTORY_BASE_URL")),
		OutboxPollSeconds: 5,
	}
	if raw := strings.TrimSpace(os.Getenv("OUTBOX_POLL_INTERVAL_SECONDS")); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("OUTBOX_POLL_INTERVAL_SECONDS must be a positive integer")
		}
		cfg.OutboxPollSeconds = seconds
	}
	if raw := strings.TrimSpace(os.Getenv("IDEMPOTENCY_TTL_HOURS")); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("IDEMPOTENCY_TTL_HOURS must be a positive integer")
		}
		cfg.IdempotencyTTLHours = hours
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
