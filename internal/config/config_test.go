package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DISCORD_DASHBOARD_CONFIG",
		"DISCORD_TOKEN",
		"DISCORD_TOKEN_FILE",
		"DISCORD_GUILD_ID",
		"DISCORD_CHANNEL_ID",
		"DISCORD_API_BASE_URL",
		"DISCORD_DASHBOARD_POLL_INTERVAL",
		"DISCORD_DASHBOARD_DEBOUNCE",
		"DISCORD_DASHBOARD_MESSAGE_LIMIT",
		"DISCORD_DASHBOARD_TIMEZONE",
		"DISCORD_DASHBOARD_TITLE",
	} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEnablesDemoModeWithoutToken(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.DemoMode)
	assert.Empty(t, cfg.DiscordToken)
	assert.Empty(t, cfg.GuildID)
	assert.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, 500*time.Millisecond, cfg.Cooldown)
	assert.Equal(t, 5, cfg.MessageLimit)
	assert.Equal(t, 7, cfg.StatsDays)
	assert.Equal(t, time.Local, cfg.Location)
	assert.Equal(t, "Discord Server Dashboard", cfg.PageTitle)
}

func TestLoadReadsDiscordSettingsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "bot-token")
	t.Setenv("DISCORD_GUILD_ID", "111")
	t.Setenv("DISCORD_CHANNEL_ID", "222")
	t.Setenv("DISCORD_API_BASE_URL", "http://localhost:9000/api/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.DemoMode)
	assert.Equal(t, "bot-token", cfg.DiscordToken)
	assert.Equal(t, "111", cfg.GuildID)
	assert.Equal(t, "222", cfg.ChannelID)
	assert.Equal(t, "http://localhost:9000/api", cfg.APIBaseURL)
}

func TestLoadAcceptsNumericPollIntervalInSeconds(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_DASHBOARD_POLL_INTERVAL", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}

func TestLoadRejectsNonPositivePollInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_DASHBOARD_POLL_INTERVAL", "0s")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsRelativeBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_API_BASE_URL", "discord.com/api")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_DASHBOARD_TIMEZONE", "Mars/Olympus_Mons")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadResolvesNamedTimezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_DASHBOARD_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Location.String())
}

func TestLoadReadsTokenFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN_FILE", writeFile(t, "token", "  secret-token\n"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.DiscordToken)
	assert.False(t, cfg.DemoMode)
}

func TestLoadFailsOnMissingTokenFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN_FILE", filepath.Join(t.TempDir(), "absent"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoadReadsYAMLFileAndEnvWins(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "dashboard.yaml", `
discord:
  token: file-token
  guild_id: "333"
  channel_id: "444"
dashboard:
  poll_interval: 30s
  debounce: 250ms
  message_limit: 3
page:
  title: From File
`)
	t.Setenv("DISCORD_DASHBOARD_CONFIG", path)
	t.Setenv("DISCORD_DASHBOARD_TITLE", "From Env")
	t.Setenv("DISCORD_DASHBOARD_DEBOUNCE", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.DiscordToken)
	assert.Equal(t, "333", cfg.GuildID)
	assert.Equal(t, "444", cfg.ChannelID)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Debounce)
	assert.Equal(t, 3, cfg.MessageLimit)
	assert.Equal(t, "From Env", cfg.PageTitle)
}

func TestLoadFailsOnMalformedYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_DASHBOARD_CONFIG", writeFile(t, "bad.yaml", "discord: [unterminated"))

	_, err := Load()
	require.Error(t, err)
}
