package config

import (
	"os"
	"testing"
	"time"

	"github.com/rewired-gh/gemonitor/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
feed:
  timeout: 10s
  requests_per_minute: 60

settings:
  standard_deviation_threshold: 2.5
  rolling_window_size: 48
  discord_notifications_enabled: true
  discord_webhook_url: "https://discord.com/api/webhooks/123/abc"

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

notify:
  default_cooldown: 10s

storage:
  db_path: "./data/test.db"

report:
  schedule: "0 9 * * *"
  timezone: "Europe/London"

logging:
  level: "debug"
  format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.Timeout != 10*time.Second {
		t.Errorf("Unexpected feed timeout: %v", cfg.Feed.Timeout)
	}
	if cfg.Feed.BaseURL != "https://prices.runescape.wiki/api/v1/osrs" {
		t.Errorf("Unexpected feed base url: %s", cfg.Feed.BaseURL)
	}
	if cfg.Settings.StandardDeviationThreshold != 2.5 {
		t.Errorf("Unexpected threshold: %f", cfg.Settings.StandardDeviationThreshold)
	}
	if cfg.Settings.RollingWindowSize != 48 {
		t.Errorf("Unexpected window size: %d", cfg.Settings.RollingWindowSize)
	}
	// untouched settings keep their defaults
	if cfg.Settings.RecoveryStandardDeviationThreshold != models.DefaultGlobalConfig().RecoveryStandardDeviationThreshold {
		t.Errorf("Unexpected recovery threshold: %f", cfg.Settings.RecoveryStandardDeviationThreshold)
	}
	if cfg.Notify.DefaultCooldown != 10*time.Second || cfg.Notify.MinCooldown != time.Second {
		t.Errorf("Unexpected cooldowns: %+v", cfg.Notify)
	}
	if !cfg.API.Enabled || cfg.API.Listen != ":8080" {
		t.Errorf("Unexpected api config: %+v", cfg.API)
	}
	if cfg.Location().String() != "Europe/London" {
		t.Errorf("Unexpected location: %s", cfg.Location())
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GEMONITOR_TELEGRAM_BOT_TOKEN", "from_env")
	t.Setenv("GEMONITOR_SETTINGS_FETCH_INTERVAL_SECONDS", "120")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Telegram.BotToken != "from_env" {
		t.Errorf("Unexpected bot token: %q", cfg.Telegram.BotToken)
	}
	if cfg.Settings.FetchIntervalSeconds != 120 {
		t.Errorf("Unexpected fetch interval: %d", cfg.Settings.FetchIntervalSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func validConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			BaseURL:    "https://example.com",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Settings: models.DefaultGlobalConfig(),
		API:      APIConfig{Enabled: true, Listen: ":8080"},
		Report:   ReportConfig{Timezone: "UTC"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing feed url",
			mutate:  func(c *Config) { c.Feed.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.Feed.MaxRetries = 0 },
			wantErr: true,
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Feed.RequestsPerMinute = -1 },
			wantErr: true,
		},
		{
			name:    "zero threshold",
			mutate:  func(c *Config) { c.Settings.StandardDeviationThreshold = 0 },
			wantErr: true,
		},
		{
			name: "discord enabled with a foreign url",
			mutate: func(c *Config) {
				c.Settings.DiscordNotificationsEnabled = true
				c.Settings.DiscordWebhookURL = "https://example.com/hook"
			},
			wantErr: true,
		},
		{
			name:    "small window is clamped, not rejected",
			mutate:  func(c *Config) { c.Settings.RollingWindowSize = 0 },
			wantErr: false,
		},
		{
			name:    "missing telegram token when enabled",
			mutate:  func(c *Config) { c.Telegram = TelegramConfig{Enabled: true, ChatID: "1"} },
			wantErr: true,
		},
		{
			name:    "missing telegram chat when enabled",
			mutate:  func(c *Config) { c.Telegram = TelegramConfig{Enabled: true, BotToken: "t"} },
			wantErr: true,
		},
		{
			name:    "api enabled without listen address",
			mutate:  func(c *Config) { c.API.Listen = "" },
			wantErr: true,
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Report.Timezone = "Mars/Olympus" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
