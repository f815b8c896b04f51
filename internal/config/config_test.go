package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SWEEP_GRACE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.Grace)
	assert.Contains(t, cfg.Database.DSN(), "dbname=")
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/quiz")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("SENDGRID_API_KEY", "key")
	t.Setenv("SWEEP_GRACE", "90s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "postgres://u:p@db:5432/quiz", cfg.Database.DSN())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Mail.Enabled())
	assert.Equal(t, 90*time.Second, cfg.Sweeper.Grace)
}

func TestLoadConfig_RejectsBadSweeperDuration(t *testing.T) {
	t.Setenv("UNTIMED_ATTEMPT_MAX_AGE", "-1h")

	_, err := LoadConfig()
	assert.Error(t, err)
}
