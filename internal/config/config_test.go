package config

import (
	"os"
	"path/filepath"
	"testing"

	"token-alert-bot/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "TELEGRAM_BOT_TOKEN", "DATABASE_URL", "REDIS_URL", "HTTP_ADDR", "API_KEY",
	"POLL_INTERVAL_SECS", "PIPELINE_WORKERS", "LEDGER_MARK_POLICY",
	"FEED_URL", "FEED_VALIDATE_ADDRESSES", "SAFETY_URL", "SAFETY_ACCEPT_STATUSES",
	"ENRICHMENT_URL", "PROVIDER_TIMEOUT_SECS", "PROVIDER_MAX_RPM", "ANALYSIS_CACHE_TTL_SECS",
	"TOKEN_LINK_BASE", "JOURNAL_CAPACITY", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, 30, cfg.PollIntervalSecs)
	assert.Equal(t, 4, cfg.PipelineWorkers)
	assert.Equal(t, service.MarkOnAttempt, cfg.LedgerMarkPolicy)
	assert.Equal(t, []string{"GOOD"}, cfg.SafetyAcceptStatuses)
	assert.Equal(t, 10, cfg.ProviderTimeoutSecs)
	assert.Equal(t, 0, cfg.ProviderMaxRPM)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.FeedURL)
	assert.False(t, cfg.FeedValidateAddresses)
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("POLL_INTERVAL_SECS", "5")
	t.Setenv("PIPELINE_WORKERS", "8")
	t.Setenv("LEDGER_MARK_POLICY", "Delivered")
	t.Setenv("FEED_VALIDATE_ADDRESSES", "true")
	t.Setenv("SAFETY_ACCEPT_STATUSES", "GOOD, WARN ,")
	t.Setenv("PROVIDER_MAX_RPM", "120")
	t.Setenv("LOG_FORMAT", "console")

	cfg := Load()
	assert.Equal(t, "token", cfg.TelegramBotToken)
	assert.Equal(t, "postgres://example", cfg.DatabaseURL)
	assert.Equal(t, "redis:6379", cfg.RedisURL)
	assert.Equal(t, 5, cfg.PollIntervalSecs)
	assert.Equal(t, 8, cfg.PipelineWorkers)
	assert.Equal(t, service.MarkOnDelivery, cfg.LedgerMarkPolicy)
	assert.True(t, cfg.FeedValidateAddresses)
	assert.Equal(t, []string{"GOOD", "WARN"}, cfg.SafetyAcceptStatuses)
	assert.Equal(t, 120, cfg.ProviderMaxRPM)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL_SECS", "bad")
	t.Setenv("PIPELINE_WORKERS", "-3")
	t.Setenv("LEDGER_MARK_POLICY", "sometimes")
	t.Setenv("PROVIDER_TIMEOUT_SECS", "0")
	t.Setenv("PROVIDER_MAX_RPM", "-1")
	t.Setenv("LOG_FORMAT", "xml")

	cfg := Load()
	assert.Equal(t, 30, cfg.PollIntervalSecs)
	assert.Equal(t, 4, cfg.PipelineWorkers)
	assert.Equal(t, service.MarkOnAttempt, cfg.LedgerMarkPolicy)
	assert.Equal(t, 10, cfg.ProviderTimeoutSecs)
	assert.Equal(t, 0, cfg.ProviderMaxRPM)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfigFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
poll_interval_secs: 12
pipeline_workers: 2
feed_url: http://feed.test/tokens
safety_accept_statuses: [GOOD, OK]
token_link_base: ${LINK_BASE}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LINK_BASE", "https://example.test/t")
	t.Setenv("PIPELINE_WORKERS", "6")

	cfg := Load()
	assert.Equal(t, 12, cfg.PollIntervalSecs)
	assert.Equal(t, 6, cfg.PipelineWorkers, "environment wins over file")
	assert.Equal(t, "http://feed.test/tokens", cfg.FeedURL)
	assert.Equal(t, []string{"GOOD", "OK"}, cfg.SafetyAcceptStatuses)
	assert.Equal(t, "https://example.test/t", cfg.TokenLinkBase)
}

func TestLoadMissingConfigFileIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	assert.Equal(t, 30, cfg.PollIntervalSecs)
}
