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
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_DefaultsAndDurations(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
database:
  driver: sqlite
  path: ":memory:"
jwt:
  secret: test-secret
  expire_hours: 2
storage:
  type: minio
outbox:
  journal: memory
  base_backoff: 250ms
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.BaseBackoff)
	assert.Equal(t, 30*time.Second, cfg.Outbox.MaxBackoff)
	assert.Equal(t, 8, cfg.Outbox.MaxAttempts)
	assert.Equal(t, 1500*time.Millisecond, cfg.Attempt.FeedbackDelay)
	assert.True(t, cfg.Attempt.RequireRating)
	assert.Equal(t, 5*time.Minute, cfg.Leaderboard.CacheTTL)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: sqlite
storage:
  type: minio
outbox:
  journal: memory
`)
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("WATCHLEARN_OUTBOX_MAX_ATTEMPTS", "3")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Outbox.MaxAttempts)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "mysql"},
			Outbox:   OutboxConfig{Journal: "redis", MaxAttempts: 3, BaseBackoff: time.Second, MaxBackoff: time.Minute},
		}
	}
	require.NoError(t, base().Validate())

	c := base()
	c.Server.Mode = "release"
	c.JWT.Secret = "short"
	require.Error(t, c.Validate())

	c = base()
	c.Database.Driver = "oracle"
	require.Error(t, c.Validate())

	c = base()
	c.Outbox.Journal = "kafka"
	require.Error(t, c.Validate())

	c = base()
	c.Outbox.MaxBackoff = time.Millisecond
	require.Error(t, c.Validate())

	c = base()
	c.Attempt.FeedbackDelay = -time.Second
	require.Error(t, c.Validate())
}
