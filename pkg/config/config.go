// Package config loads environment-variable configuration for both
// EventPulse processes, grounded on the teacher's getEnvOrDefault /
// strconv / time.ParseDuration idiom (pkg/database/config.go in the
// teacher repository this module started from).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// APIConfig configures the HTTP ingest/query process.
type APIConfig struct {
	DatabaseURL string
	RedisURL    string
	Host        string
	Port        int
	LogLevel    string
	StreamKey   string
}

// LoadAPIConfig reads the API process's environment variables.
func LoadAPIConfig() (*APIConfig, error) {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	cfg := &APIConfig{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		Host:        getEnvOrDefault("HOST", "0.0.0.0"),
		Port:        port,
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		StreamKey:   getEnvOrDefault("STREAM_KEY", "events:stream"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// WorkerConfig configures the stream-consumer/evaluator process.
type WorkerConfig struct {
	DatabaseURL     string
	RedisURL        string
	LogLevel        string
	WorkerID        string
	StreamKey       string
	ConsumerGroup   string
	BatchSize       int64
	BlockDuration   time.Duration
	SlackWebhookURL string
	EmailRecipients []string
}

// LoadWorkerConfig reads the worker process's environment variables.
func LoadWorkerConfig() (*WorkerConfig, error) {
	batchSize, err := strconv.ParseInt(getEnvOrDefault("STREAM_BATCH_SIZE", "50"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_BATCH_SIZE: %w", err)
	}
	blockMs, err := strconv.Atoi(getEnvOrDefault("STREAM_BLOCK_MS", "5000"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_BLOCK_MS: %w", err)
	}

	workerID := os.Getenv("WORKER_ID")
	if workerID == "" {
		hostname, _ := os.Hostname()
		workerID = "worker-" + hostname
	}

	var recipients []string
	if raw := os.Getenv("NOTIFICATION_EMAIL_RECIPIENTS"); raw != "" {
		recipients = strings.Split(raw, ",")
	}

	cfg := &WorkerConfig{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		WorkerID:        workerID,
		StreamKey:       getEnvOrDefault("STREAM_KEY", "events:stream"),
		ConsumerGroup:   getEnvOrDefault("CONSUMER_GROUP", "eventpulse-workers"),
		BatchSize:       batchSize,
		BlockDuration:   time.Duration(blockMs) * time.Millisecond,
		SlackWebhookURL: os.Getenv("NOTIFICATION_SLACK_WEBHOOK_URL"),
		EmailRecipients: recipients,
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
