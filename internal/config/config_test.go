package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "economy", cfg.Economy.KeyPrefix)
	assert.Equal(t, 100, cfg.Economy.ServerCapacity)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 3, cfg.Scheduler.PreflightRetries)
	assert.Equal(t, 4, cfg.Scheduler.Workers)
	assert.Equal(t, 0.01, cfg.Scheduler.WriteEpsilon)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
economy:
  key_prefix: world7
  server_capacity: 400
scheduler:
  interval: 5m
  workers: 8
redis:
  addr: redis.internal:6379
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "world7", cfg.Economy.KeyPrefix)
	assert.Equal(t, 400, cfg.Economy.ServerCapacity)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 8, cfg.Scheduler.Workers)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)

	// Untouched keys keep their defaults.
	assert.Equal(t, 0.01, cfg.Scheduler.WriteEpsilon)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  workers: 0\n"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "scheduler.workers")
}
