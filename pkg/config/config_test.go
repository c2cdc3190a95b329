package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalYAML = `
environment: test
pipeline:
  symbol: ETHUSDT
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "ETHUSDT", cfg.Pipeline.Symbol)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "fincast", cfg.ClickHouse.Database)
	assert.Equal(t, "candles", cfg.ClickHouse.CandlesTable)
	assert.Equal(t, "fincast.signals", cfg.Kafka.Topic)
	assert.Equal(t, "15m", cfg.Pipeline.Timeframe)
	assert.Equal(t, 10, cfg.Pipeline.Horizon)
	assert.Equal(t, 500, cfg.Pipeline.Lookback)
	assert.Equal(t, 100, cfg.Forecast.Forest.NEstimators)
	assert.Equal(t, int64(42), cfg.Forecast.Forest.Seed)
	assert.Equal(t, 7, cfg.Models.MaxAgeDays)
	assert.Equal(t, 10, cfg.Retrain.MinValidations)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateKafkaBrokersRequiredWhenEnabled(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
kafka:
  enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.brokers")
}

func TestValidateLookbackMustExceedMinDataPoints(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
pipeline:
  lookback: 50
  min_data_points: 100
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookback")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "SOLUSDT")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "kafka1:9092,kafka2:9092")
	t.Setenv("MODEL_DIR", "/var/lib/fincast/models")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "SOLUSDT", cfg.Pipeline.Symbol)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"kafka1:9092", "kafka2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "/var/lib/fincast/models", cfg.Models.Dir)
}
