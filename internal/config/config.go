package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rewired-gh/gemonitor/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	Feed     FeedConfig          `mapstructure:"feed"`
	Settings models.GlobalConfig `mapstructure:"settings"`
	Telegram TelegramConfig      `mapstructure:"telegram"`
	Notify   NotifyConfig        `mapstructure:"notify"`
	Storage  StorageConfig       `mapstructure:"storage"`
	API      APIConfig           `mapstructure:"api"`
	Report   ReportConfig        `mapstructure:"report"`
	Logging  LoggingConfig       `mapstructure:"logging"`
}

// FeedConfig holds the price feed client configuration
type FeedConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"` // 0 = unlimited
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Enabled  bool   `mapstructure:"enabled"`
}

// NotifyConfig bounds the cooldown a sink observes after being throttled
type NotifyConfig struct {
	MinCooldown     time.Duration `mapstructure:"min_cooldown"`
	DefaultCooldown time.Duration `mapstructure:"default_cooldown"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"` // empty = $TMPDIR/gemonitor/data.db
}

// APIConfig holds the HTTP API configuration
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// ReportConfig schedules the periodic profit report
type ReportConfig struct {
	Schedule string `mapstructure:"schedule"` // cron spec, empty = disabled
	Timezone string `mapstructure:"timezone"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. A .env file in
// the working directory is loaded first when present. An empty path skips the
// config file and uses defaults plus the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override, e.g. GEMONITOR_TELEGRAM_BOT_TOKEN
	v.SetEnvPrefix("GEMONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Feed defaults
	v.SetDefault("feed.base_url", "https://prices.runescape.wiki/api/v1/osrs")
	v.SetDefault("feed.timeout", "30s")
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.retry_delay", "1s")
	v.SetDefault("feed.requests_per_minute", 30)

	// Runtime settings defaults; the persisted settings override these
	d := models.DefaultGlobalConfig()
	v.SetDefault("settings.standard_deviation_threshold", d.StandardDeviationThreshold)
	v.SetDefault("settings.recovery_standard_deviation_threshold", d.RecoveryStandardDeviationThreshold)
	v.SetDefault("settings.rolling_window_size", d.RollingWindowSize)
	v.SetDefault("settings.fetch_interval_seconds", d.FetchIntervalSeconds)
	v.SetDefault("settings.profit_target_percent", d.ProfitTargetPercent)
	v.SetDefault("settings.user_agent", d.UserAgent)
	v.SetDefault("settings.discord_notifications_enabled", d.DiscordNotificationsEnabled)
	v.SetDefault("settings.discord_webhook_url", d.DiscordWebhookURL)
	v.SetDefault("settings.alert_grace_minutes", d.AlertGraceMinutes)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")

	// Notify defaults
	v.SetDefault("notify.min_cooldown", "1s")
	v.SetDefault("notify.default_cooldown", "5s")

	// Storage defaults
	v.SetDefault("storage.db_path", "")

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.listen", ":8080")

	// Report defaults
	v.SetDefault("report.schedule", "")
	v.SetDefault("report.timezone", "UTC")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Feed config
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be positive")
	}
	if c.Feed.MaxRetries < 1 {
		return fmt.Errorf("feed.max_retries must be at least 1")
	}
	if c.Feed.RetryDelay < 0 {
		return fmt.Errorf("feed.retry_delay must not be negative")
	}
	if c.Feed.RequestsPerMinute < 0 {
		return fmt.Errorf("feed.requests_per_minute must not be negative")
	}

	// Validate runtime settings
	if err := c.Settings.Normalize().Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Notify config
	if c.Notify.MinCooldown < 0 || c.Notify.DefaultCooldown < 0 {
		return fmt.Errorf("notify cooldowns must not be negative")
	}

	// Validate API config
	if c.API.Enabled && c.API.Listen == "" {
		return fmt.Errorf("api.listen is required when the api is enabled")
	}

	// Validate Report config
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("report.timezone is invalid: %w", err)
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Location returns the report timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
