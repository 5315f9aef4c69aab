package models

import (
	"regexp"
	"strings"
	"time"
)

const (
	MinRollingWindowSize    = 1
	MinFetchIntervalSeconds = 5
	DefaultUserAgent        = "gemonitor/1.0 (https://github.com/rewired-gh/gemonitor)"
)

var discordWebhookPattern = regexp.MustCompile(`^https://(?:(?:ptb|canary)\.)?discord(?:app)?\.com/api/webhooks/(\d+)/([A-Za-z0-9_\-]+)/?$`)

// GlobalConfig holds the runtime-tunable settings. It is a value type: readers
// receive copies and updates replace the whole value.
type GlobalConfig struct {
	StandardDeviationThreshold         float64 `json:"standardDeviationThreshold" mapstructure:"standard_deviation_threshold"`
	RecoveryStandardDeviationThreshold float64 `json:"recoveryStandardDeviationThreshold" mapstructure:"recovery_standard_deviation_threshold"`
	RollingWindowSize                  int     `json:"rollingWindowSize" mapstructure:"rolling_window_size"`
	FetchIntervalSeconds               int     `json:"fetchIntervalSeconds" mapstructure:"fetch_interval_seconds"`
	ProfitTargetPercent                float64 `json:"profitTargetPercent" mapstructure:"profit_target_percent"`
	UserAgent                          string  `json:"userAgent" mapstructure:"user_agent"`
	DiscordNotificationsEnabled        bool    `json:"discordNotificationsEnabled" mapstructure:"discord_notifications_enabled"`
	DiscordWebhookURL                  string  `json:"discordWebhookUrl" mapstructure:"discord_webhook_url"`
	AlertGraceMinutes                  int     `json:"alertGraceMinutes" mapstructure:"alert_grace_minutes"`
}

// DefaultGlobalConfig returns the built-in settings.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		StandardDeviationThreshold:         3.5,
		RecoveryStandardDeviationThreshold: 0.75,
		RollingWindowSize:                  30,
		FetchIntervalSeconds:               60,
		ProfitTargetPercent:                0.02,
		UserAgent:                          DefaultUserAgent,
		AlertGraceMinutes:                  10,
	}
}

// Normalize clamps numeric settings into their legal ranges.
func (c GlobalConfig) Normalize() GlobalConfig {
	if c.RollingWindowSize < MinRollingWindowSize {
		c.RollingWindowSize = MinRollingWindowSize
	}
	if c.FetchIntervalSeconds < MinFetchIntervalSeconds {
		c.FetchIntervalSeconds = MinFetchIntervalSeconds
	}
	if c.ProfitTargetPercent < 0 {
		c.ProfitTargetPercent = 0
	}
	if c.AlertGraceMinutes < 0 {
		c.AlertGraceMinutes = 0
	}
	c.UserAgent = strings.TrimSpace(c.UserAgent)
	c.DiscordWebhookURL = strings.TrimSpace(c.DiscordWebhookURL)
	return c
}

// Validate checks the settings that cannot be clamped.
func (c GlobalConfig) Validate() error {
	if c.StandardDeviationThreshold <= 0 {
		return Invalid("standardDeviationThreshold", "must be greater than 0")
	}
	if c.RecoveryStandardDeviationThreshold < 0 {
		return Invalid("recoveryStandardDeviationThreshold", "must not be negative")
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return Invalid("userAgent", "must not be empty")
	}
	if c.DiscordNotificationsEnabled {
		if c.DiscordWebhookURL == "" {
			return Invalid("discordWebhookUrl", "is required when discord notifications are enabled")
		}
		if !IsDiscordWebhookURL(c.DiscordWebhookURL) {
			return Invalid("discordWebhookUrl", "must be a https://discord.com/api/webhooks/... URL")
		}
	}
	return nil
}

// FetchInterval returns the polling period, never shorter than the minimum.
func (c GlobalConfig) FetchInterval() time.Duration {
	secs := c.FetchIntervalSeconds
	if secs < MinFetchIntervalSeconds {
		secs = MinFetchIntervalSeconds
	}
	return time.Duration(secs) * time.Second
}

// AlertGrace returns how long a recovered alert remains active.
func (c GlobalConfig) AlertGrace() time.Duration {
	if c.AlertGraceMinutes <= 0 {
		return 0
	}
	return time.Duration(c.AlertGraceMinutes) * time.Minute
}

// WindowSize returns the rolling window bound, never below the minimum.
func (c GlobalConfig) WindowSize() int {
	if c.RollingWindowSize < MinRollingWindowSize {
		return MinRollingWindowSize
	}
	return c.RollingWindowSize
}

// DiscordReady reports whether outbound Discord delivery is configured.
func (c GlobalConfig) DiscordReady() bool {
	return c.DiscordNotificationsEnabled && IsDiscordWebhookURL(c.DiscordWebhookURL)
}

// IsDiscordWebhookURL reports whether raw looks like a Discord webhook URL.
func IsDiscordWebhookURL(raw string) bool {
	return discordWebhookPattern.MatchString(strings.TrimSpace(raw))
}

// ParseDiscordWebhook extracts the webhook id and token from a webhook URL.
func ParseDiscordWebhook(raw string) (id, token string, ok bool) {
	m := discordWebhookPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ConfigUpdate is a partial settings change; nil fields keep their value.
type ConfigUpdate struct {
	StandardDeviationThreshold         *float64 `json:"standardDeviationThreshold,omitempty"`
	RecoveryStandardDeviationThreshold *float64 `json:"recoveryStandardDeviationThreshold,omitempty"`
	RollingWindowSize                  *int     `json:"rollingWindowSize,omitempty"`
	FetchIntervalSeconds               *int     `json:"fetchIntervalSeconds,omitempty"`
	ProfitTargetPercent                *float64 `json:"profitTargetPercent,omitempty"`
	UserAgent                          *string  `json:"userAgent,omitempty"`
	DiscordNotificationsEnabled        *bool    `json:"discordNotificationsEnabled,omitempty"`
	DiscordWebhookURL                  *string  `json:"discordWebhookUrl,omitempty"`
	AlertGraceMinutes                  *int     `json:"alertGraceMinutes,omitempty"`
}

// Apply returns a new config with the non-nil fields of u applied.
func (c GlobalConfig) Apply(u ConfigUpdate) GlobalConfig {
	if u.StandardDeviationThreshold != nil {
		c.StandardDeviationThreshold = *u.StandardDeviationThreshold
	}
	if u.RecoveryStandardDeviationThreshold != nil {
		c.RecoveryStandardDeviationThreshold = *u.RecoveryStandardDeviationThreshold
	}
	if u.RollingWindowSize != nil {
		c.RollingWindowSize = *u.RollingWindowSize
	}
	if u.FetchIntervalSeconds != nil {
		c.FetchIntervalSeconds = *u.FetchIntervalSeconds
	}
	if u.ProfitTargetPercent != nil {
		c.ProfitTargetPercent = *u.ProfitTargetPercent
	}
	if u.UserAgent != nil {
		c.UserAgent = *u.UserAgent
	}
	if u.DiscordNotificationsEnabled != nil {
		c.DiscordNotificationsEnabled = *u.DiscordNotificationsEnabled
	}
	if u.DiscordWebhookURL != nil {
		c.DiscordWebhookURL = *u.DiscordWebhookURL
	}
	if u.AlertGraceMinutes != nil {
		c.AlertGraceMinutes = *u.AlertGraceMinutes
	}
	return c
}
