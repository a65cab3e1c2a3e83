package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
database:
  postgres:
    host: localhost
    database: rewards
    user: rewards
  redis:
    host: localhost
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0 0 * * 1", cfg.Scheduler.Weekly)
	assert.Equal(t, "0 0 1 * *", cfg.Scheduler.Monthly)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.LockTTL)
	assert.Equal(t, DefaultRewards(), cfg.Rewards)
	assert.Equal(t, DefaultLevelThresholds, cfg.Levels.Thresholds)
	assert.Equal(t, 20, cfg.Leaderboard.DefaultLimit)
	assert.True(t, cfg.Metrics.Prometheus.Enabled)
}

func TestLoad_FileOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
rewards:
  event_registrant_xp: 80
  unannounced_window: 10m
  event_winner_xp: [60, 30]
scheduler:
  timezone: UTC
  weekly: "30 1 * * 1"
`))
	require.NoError(t, err)

	assert.Equal(t, int64(80), cfg.Rewards.EventRegistrantXP)
	assert.Equal(t, 10*time.Minute, cfg.Rewards.UnannouncedWindow)
	assert.Equal(t, []int64{60, 30}, cfg.Rewards.EventWinnerXP)
	assert.Equal(t, "30 1 * * 1", cfg.Scheduler.Weekly)
	assert.Equal(t, int64(15), cfg.Rewards.EventGuestPoints)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.False(t, cfg.Scheduler.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing postgres host", "database:\n  redis:\n    host: localhost\n"},
		{"negative reward", minimalConfig + "rewards:\n  daily_login_xp: -5\n"},
		{"level table not from zero", minimalConfig + "levels:\n  thresholds: [10, 20]\n"},
		{"decreasing level table", minimalConfig + "levels:\n  thresholds: [0, 50, 40]\n"},
		{"share above one", minimalConfig + "rewards:\n  collaborator_share: 1.5\n"},
		{"bad timezone", minimalConfig + "scheduler:\n  timezone: Mars/Olympus\n"},
		{"mattermost without url", minimalConfig + "mattermost:\n  enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestPostgresURL(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5432, Database: "rewards", User: "svc", Password: "secret", SSLMode: "disable"}
	assert.Contains(t, cfg.URL(), "postgres://svc:secret@db:5432/rewards")
	assert.Contains(t, cfg.DSN(), "host=db")
}
