package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAPIConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := LoadAPIConfig()
	assert.Error(t, err)
}

func TestLoadAPIConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/eventpulse")
	t.Setenv("PORT", "")
	t.Setenv("HOST", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("STREAM_KEY", "")

	cfg, err := LoadAPIConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "events:stream", cfg.StreamKey)
}

func TestLoadWorkerConfigDefaultsAndRecipients(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/eventpulse")
	t.Setenv("NOTIFICATION_EMAIL_RECIPIENTS", "a@example.com,b@example.com")
	t.Setenv("STREAM_BATCH_SIZE", "")
	t.Setenv("STREAM_BLOCK_MS", "")

	cfg, err := LoadWorkerConfig()
	require.NoError(t, err)
	assert.EqualValues(t, 50, cfg.BatchSize)
	assert.Equal(t, "eventpulse-workers", cfg.ConsumerGroup)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.EmailRecipients)
}

func TestLoadWorkerConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := LoadWorkerConfig()
	assert.Error(t, err)
}
