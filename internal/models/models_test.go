package models

import (
	"errors"
	"testing"
	"time"
)

func TestGlobalConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *GlobalConfig)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(c *GlobalConfig) {},
			wantErr: false,
		},
		{
			name:    "zero threshold",
			mutate:  func(c *GlobalConfig) { c.StandardDeviationThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "negative recovery threshold",
			mutate:  func(c *GlobalConfig) { c.RecoveryStandardDeviationThreshold = -1 },
			wantErr: true,
		},
		{
			name:    "blank user agent",
			mutate:  func(c *GlobalConfig) { c.UserAgent = "   " },
			wantErr: true,
		},
		{
			name: "discord enabled without url",
			mutate: func(c *GlobalConfig) {
				c.DiscordNotificationsEnabled = true
			},
			wantErr: true,
		},
		{
			name: "discord enabled with foreign url",
			mutate: func(c *GlobalConfig) {
				c.DiscordNotificationsEnabled = true
				c.DiscordWebhookURL = "https://example.com/api/webhooks/1/abc"
			},
			wantErr: true,
		},
		{
			name: "discord enabled with webhook url",
			mutate: func(c *GlobalConfig) {
				c.DiscordNotificationsEnabled = true
				c.DiscordWebhookURL = "https://discord.com/api/webhooks/1234567890/testtoken"
			},
			wantErr: false,
		},
		{
			name: "discordapp host accepted",
			mutate: func(c *GlobalConfig) {
				c.DiscordNotificationsEnabled = true
				c.DiscordWebhookURL = "https://discordapp.com/api/webhooks/1/a-b_c"
			},
			wantErr: false,
		},
		{
			name: "disabled discord ignores url",
			mutate: func(c *GlobalConfig) {
				c.DiscordWebhookURL = "not a url"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGlobalConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("Validate() error %v should wrap ErrValidation", err)
			}
		})
	}
}

func TestGlobalConfigNormalize(t *testing.T) {
	cfg := GlobalConfig{
		StandardDeviationThreshold: 2,
		RollingWindowSize:          0,
		FetchIntervalSeconds:       1,
		ProfitTargetPercent:        -0.5,
		AlertGraceMinutes:          -3,
		UserAgent:                  "  ua  ",
	}.Normalize()

	if cfg.RollingWindowSize != 1 {
		t.Errorf("RollingWindowSize = %d, want 1", cfg.RollingWindowSize)
	}
	if cfg.FetchIntervalSeconds != 5 {
		t.Errorf("FetchIntervalSeconds = %d, want 5", cfg.FetchIntervalSeconds)
	}
	if cfg.ProfitTargetPercent != 0 {
		t.Errorf("ProfitTargetPercent = %v, want 0", cfg.ProfitTargetPercent)
	}
	if cfg.AlertGraceMinutes != 0 {
		t.Errorf("AlertGraceMinutes = %d, want 0", cfg.AlertGraceMinutes)
	}
	if cfg.UserAgent != "ua" {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, "ua")
	}
	if cfg.FetchInterval() != 5*time.Second {
		t.Errorf("FetchInterval() = %v, want 5s", cfg.FetchInterval())
	}
}

func TestGlobalConfigApply(t *testing.T) {
	base := DefaultGlobalConfig()
	window := 12
	enabled := true
	next := base.Apply(ConfigUpdate{RollingWindowSize: &window, DiscordNotificationsEnabled: &enabled})

	if next.RollingWindowSize != 12 || !next.DiscordNotificationsEnabled {
		t.Errorf("Apply did not set fields: %+v", next)
	}
	if base.RollingWindowSize != 30 || base.DiscordNotificationsEnabled {
		t.Errorf("Apply mutated the receiver: %+v", base)
	}
	if next.StandardDeviationThreshold != base.StandardDeviationThreshold {
		t.Errorf("untouched field changed: got %v, want %v", next.StandardDeviationThreshold, base.StandardDeviationThreshold)
	}
}

func TestParseDiscordWebhook(t *testing.T) {
	id, token, ok := ParseDiscordWebhook("https://discord.com/api/webhooks/1234567890/abc-DEF_9")
	if !ok || id != "1234567890" || token != "abc-DEF_9" {
		t.Errorf("ParseDiscordWebhook = (%q, %q, %v)", id, token, ok)
	}
	if _, _, ok := ParseDiscordWebhook("http://discord.com/api/webhooks/1/x"); ok {
		t.Error("plain http webhook should be rejected")
	}
}

func TestLatestPriceRepresentative(t *testing.T) {
	tests := []struct {
		name   string
		price  LatestPrice
		want   float64
		wantOK bool
	}{
		{"both sides", LatestPrice{High: Float(110), Low: Float(90)}, 100, true},
		{"high only", LatestPrice{High: Float(110)}, 110, true},
		{"low only", LatestPrice{Low: Float(90)}, 90, true},
		{"neither", LatestPrice{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.price.Representative()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Representative() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAlertIsActive(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	open := Alert{}
	if !open.IsActive(now, 0) {
		t.Error("open alert should be active")
	}

	recovered := Alert{RecoveredAt: Time(now.Add(-5 * time.Minute))}
	if !recovered.IsActive(now, 10*time.Minute) {
		t.Error("recovered alert inside grace should be active")
	}
	if recovered.IsActive(now, 5*time.Minute) {
		t.Error("recovered alert at grace boundary should not be active")
	}
	if recovered.IsActive(now, 0) {
		t.Error("recovered alert with no grace should not be active")
	}
}

func TestPositionCloneIsDeep(t *testing.T) {
	p := Position{SellPrice: Float(10), SoldAt: Time(time.Now())}
	c := p.Clone()
	*c.SellPrice = 20
	if *p.SellPrice != 10 {
		t.Errorf("clone shares SellPrice pointer")
	}
}

func TestErrorHelpers(t *testing.T) {
	err := NotFound("position", 7)
	if !IsNotFound(err) || IsValidation(err) {
		t.Errorf("NotFound classification wrong: %v", err)
	}
	var ve *ValidationError
	if !errors.As(Invalid("quantity", "must be > %d", 0), &ve) || ve.Field != "quantity" {
		t.Errorf("Invalid did not produce a ValidationError")
	}
}
