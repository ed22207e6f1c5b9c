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

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "data/charity_fund.db", cfg.Database.SQLitePath)
	assert.Equal(t, 10*time.Second, cfg.Lock.Expiry)
	assert.Equal(t, "0 0 * * * *", cfg.Schedule.SnapshotCron)
	assert.False(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":9000"
  admin_token: from-file
database:
  sqlite_path: /tmp/fund.db
lock:
  redis_addr: localhost:6379
  expiry: 3s
telegram:
  bot_token: abc
  chat_id: "1"
`)
	t.Setenv("ADMIN_TOKEN", "from-env")
	t.Setenv("CRON_REPORT", "0 30 8 * * *")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "from-env", cfg.HTTP.AdminToken)
	assert.Equal(t, "/tmp/fund.db", cfg.Database.SQLitePath)
	assert.Equal(t, "localhost:6379", cfg.Lock.RedisAddr)
	assert.Equal(t, 3*time.Second, cfg.Lock.Expiry)
	assert.Equal(t, "0 30 8 * * *", cfg.Schedule.ReportCron)
	assert.True(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "http: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_BadEnvDuration(t *testing.T) {
	t.Setenv("LOCK_EXPIRY", "soon")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_TelegramPair(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cfg.Telegram.BotToken = "only-token"
	assert.Error(t, cfg.Validate())
}
