package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsOnly(t *testing.T) {
	t.Parallel()

	cfg, err := load("", envMap(nil))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_FileLocalOverrideAndEnv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "bot.yaml", `
source:
  timeout: 45s
monitor:
  skip_headers: ["reserve"]
notify:
  kind: webhook
  webhook_url: ${HOOK}
storage:
  kind: postgres
  dsn: postgres://bot@db/${DB_NAME}
schedule:
  cron: "@every 10m"
`)
	writeFile(t, dir, "bot.local.yaml", `
notify:
  username: Local Bot
schedule:
  run_on_start: true
`)

	cfg, err := load(path, envMap(map[string]string{
		"HOOK":            "https://hooks.example.test/x",
		"DB_NAME":         "tickets",
		"DISCORD_USER_ID": " 42 ",
		"METRICS_TAGS":    "env:test, team:tickets,",
	}))
	require.NoError(t, err)

	require.Equal(t, 45*time.Second, cfg.Source.Timeout)
	require.Equal(t, DefaultSourceURL, cfg.Source.URL)
	require.Equal(t, []string{"reserve"}, cfg.Monitor.SkipHeaders)
	require.Equal(t, "webhook", cfg.Notify.Kind)
	require.Equal(t, "https://hooks.example.test/x", cfg.Notify.WebhookURL)
	require.Equal(t, "Local Bot", cfg.Notify.Username)
	require.Equal(t, "42", cfg.Notify.MentionUserID)
	require.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	require.Equal(t, "postgres://bot@db/tickets", cfg.Storage.DSN)
	require.Equal(t, "onsale_state", cfg.Storage.Table)
	require.Equal(t, "@every 10m", cfg.Schedule.Cron)
	require.True(t, cfg.Schedule.RunOnStart)
	require.Equal(t, []string{"env:test", "team:tickets"}, cfg.Metrics.Tags)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "bot.json", `{"notify": {"webhook_url": "https://file.example.test"}, "storage": {"dsn": "file.db"}}`)
	cfg, err := load(path, envMap(map[string]string{
		"DISCORD_WEBHOOK_URL": "https://env.example.test",
		"ONSALEBOT_DSN":       "env.db",
		"PORT":                "9000",
	}))
	require.NoError(t, err)
	require.Equal(t, "https://env.example.test", cfg.Notify.WebhookURL)
	require.Equal(t, "env.db", cfg.Storage.DSN)
	require.Equal(t, ":9000", cfg.HTTP.Addr)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := writeFile(t, t.TempDir(), "bot.yaml", "notify:\n  webhok_url: typo\n")
	_, err = load(path, envMap(nil))
	require.ErrorContains(t, err, "webhok_url")
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "bot.yaml", "")
	cfg, err := load(path, envMap(nil))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadDotEnv_MissingIsIgnored(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))

	p := writeFile(t, t.TempDir(), ".env", "ONSALEBOT_TEST_DOTENV=yes\n")
	t.Cleanup(func() { _ = os.Unsetenv("ONSALEBOT_TEST_DOTENV") })
	require.NoError(t, LoadDotEnv(p))
	require.Equal(t, "yes", os.Getenv("ONSALEBOT_TEST_DOTENV"))
}

func TestLocalPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "configs/bot.local.yaml", localPath("configs/bot.yaml"))
	require.Equal(t, "bot.local", localPath("bot"))
}
