package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"token-alert-bot/internal/service"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	TelegramBotToken string `yaml:"telegram_bot_token"`
	DatabaseURL      string `yaml:"database_url"`
	RedisURL         string `yaml:"redis_url"`
	HTTPAddr         string `yaml:"http_addr"`
	APIKey           string `yaml:"api_key"`

	PollIntervalSecs int                `yaml:"poll_interval_secs"`
	PipelineWorkers  int                `yaml:"pipeline_workers"`
	LedgerMarkPolicy service.MarkPolicy `yaml:"ledger_mark_policy"`

	FeedURL               string   `yaml:"feed_url"`
	FeedValidateAddresses bool     `yaml:"feed_validate_addresses"`
	SafetyURL             string   `yaml:"safety_url"`
	SafetyAcceptStatuses  []string `yaml:"safety_accept_statuses"`
	EnrichmentURL         string   `yaml:"enrichment_url"`
	ProviderTimeoutSecs   int      `yaml:"provider_timeout_secs"`
	ProviderMaxRPM        int      `yaml:"provider_max_rpm"`
	AnalysisCacheTTLSecs  int      `yaml:"analysis_cache_ttl_secs"`

	TokenLinkBase   string `yaml:"token_link_base"`
	JournalCapacity int    `yaml:"journal_capacity"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json|console
}

func defaults() *Config {
	return &Config{
		HTTPAddr:             ":8080",
		PollIntervalSecs:     30,
		PipelineWorkers:      4,
		LedgerMarkPolicy:     service.MarkOnAttempt,
		SafetyAcceptStatuses: []string{"GOOD"},
		ProviderTimeoutSecs:  10,
		AnalysisCacheTTLSecs: 60,
		JournalCapacity:      500,
		LogLevel:             "info",
		LogFormat:            "json",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then the environment. Invalid values fall back to
// their defaults with a warning.
func Load() *Config {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("ignoring config file")
		}
	}

	cfg.applyEnv()
	cfg.validate()

	if cfg.TelegramBotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Info().Msg("DATABASE_URL not set, journal kept in memory")
	}
	if cfg.RedisURL == "" {
		log.Info().Msg("REDIS_URL not set, analysis cache disabled")
	}
	return cfg
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	envString("TELEGRAM_BOT_TOKEN", &c.TelegramBotToken)
	envString("DATABASE_URL", &c.DatabaseURL)
	envString("REDIS_URL", &c.RedisURL)
	envString("HTTP_ADDR", &c.HTTPAddr)
	envString("API_KEY", &c.APIKey)

	envInt("POLL_INTERVAL_SECS", &c.PollIntervalSecs)
	envInt("PIPELINE_WORKERS", &c.PipelineWorkers)
	if v := os.Getenv("LEDGER_MARK_POLICY"); v != "" {
		c.LedgerMarkPolicy = service.MarkPolicy(v)
	}

	envString("FEED_URL", &c.FeedURL)
	envBool("FEED_VALIDATE_ADDRESSES", &c.FeedValidateAddresses)
	envString("SAFETY_URL", &c.SafetyURL)
	if v := strings.TrimSpace(os.Getenv("SAFETY_ACCEPT_STATUSES")); v != "" {
		c.SafetyAcceptStatuses = splitList(v)
	}
	envString("ENRICHMENT_URL", &c.EnrichmentURL)
	envInt("PROVIDER_TIMEOUT_SECS", &c.ProviderTimeoutSecs)
	envInt("PROVIDER_MAX_RPM", &c.ProviderMaxRPM)
	envInt("ANALYSIS_CACHE_TTL_SECS", &c.AnalysisCacheTTLSecs)

	envString("TOKEN_LINK_BASE", &c.TokenLinkBase)
	envInt("JOURNAL_CAPACITY", &c.JournalCapacity)

	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_FORMAT", &c.LogFormat)
}

func (c *Config) validate() {
	d := defaults()

	if c.PollIntervalSecs <= 0 {
		log.Warn().Int("value", c.PollIntervalSecs).Msg("invalid POLL_INTERVAL_SECS, using default")
		c.PollIntervalSecs = d.PollIntervalSecs
	}
	if c.PipelineWorkers <= 0 {
		log.Warn().Int("value", c.PipelineWorkers).Msg("invalid PIPELINE_WORKERS, using default")
		c.PipelineWorkers = d.PipelineWorkers
	}
	if c.ProviderTimeoutSecs <= 0 {
		c.ProviderTimeoutSecs = d.ProviderTimeoutSecs
	}
	if c.ProviderMaxRPM < 0 {
		c.ProviderMaxRPM = 0
	}
	if c.AnalysisCacheTTLSecs <= 0 {
		c.AnalysisCacheTTLSecs = d.AnalysisCacheTTLSecs
	}
	if c.JournalCapacity <= 0 {
		c.JournalCapacity = d.JournalCapacity
	}

	policy, err := service.ParseMarkPolicy(string(c.LedgerMarkPolicy))
	if err != nil {
		log.Warn().Err(err).Msg("unsupported LEDGER_MARK_POLICY, using attempt")
		policy = service.MarkOnAttempt
	}
	c.LedgerMarkPolicy = policy

	if len(c.SafetyAcceptStatuses) == 0 {
		c.SafetyAcceptStatuses = d.SafetyAcceptStatuses
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "json" && c.LogFormat != "console" {
		c.LogFormat = d.LogFormat
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = d.LogLevel
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		c.HTTPAddr = d.HTTPAddr
	}
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// envInt leaves dst unchanged when the variable is unset. Unparseable values
// are written as 0 so validate resets them to the default.
func envInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer")
		n = 0
	}
	*dst = n
}

func envBool(key string, dst *bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	*dst = strings.EqualFold(v, "true") || v == "1"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
