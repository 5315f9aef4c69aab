// Package discord delivers notifications through a Discord channel webhook.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/rewired-gh/gemonitor/internal/models"
	"github.com/rewired-gh/gemonitor/internal/notify"
)

// maxContentLength is Discord's limit on message content.
const maxContentLength = 2000

// Webhook posts messages to the webhook URL found in the live settings.
// It implements notify.Sender.
type Webhook struct {
	session   *discordgo.Session
	settings  func() models.GlobalConfig
	transport http.RoundTripper
	timeout   time.Duration
	logger    *zap.Logger
}

type Option func(*Webhook)

// WithTransport routes webhook calls through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(w *Webhook) { w.transport = rt }
}

// WithTimeout bounds each webhook call.
func WithTimeout(d time.Duration) Option {
	return func(w *Webhook) { w.timeout = d }
}

func NewWebhook(settings func() models.GlobalConfig, logger *zap.Logger, opts ...Option) (*Webhook, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// webhooks authenticate with the token in the URL, so no bot token is needed
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.ShouldRetryOnRateLimit = false
	session.MaxRestRetries = 0

	w := &Webhook{
		session:   session,
		settings:  settings,
		transport: http.DefaultTransport,
		timeout:   15 * time.Second,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Webhook) Name() string { return "discord" }

// Ready reports whether Discord delivery is enabled with a valid webhook URL.
func (w *Webhook) Ready() bool {
	return w.settings().DiscordReady()
}

// Send posts m to the configured webhook. A 429 response is reported as a
// *notify.ThrottledError carrying Discord's retry_after.
func (w *Webhook) Send(ctx context.Context, m notify.Message) error {
	cfg := w.settings()
	id, token, ok := models.ParseDiscordWebhook(cfg.DiscordWebhookURL)
	if !ok {
		return fmt.Errorf("discord webhook url is not configured")
	}

	rec := &statusRecorder{base: w.transport}
	client := &http.Client{Transport: rec, Timeout: w.timeout}
	params := &discordgo.WebhookParams{Content: truncate(m.Render(), maxContentLength)}

	_, err := w.session.WebhookExecute(id, token, false, params,
		discordgo.WithClient(client),
		discordgo.WithRetryOnRatelimit(false),
		discordgo.WithRestRetries(0),
		discordgo.WithContext(ctx),
	)
	if err == nil {
		return nil
	}

	var rle *discordgo.RateLimitError
	if errors.As(err, &rle) && rle.RateLimit != nil && rle.TooManyRequests != nil {
		return &notify.ThrottledError{RetryAfter: rle.RetryAfter}
	}
	if rec.status == http.StatusTooManyRequests {
		// body was not a rate-limit payload; fall back to the header or the default
		return &notify.ThrottledError{RetryAfter: parseRetryAfter(rec.retryAfter)}
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return fmt.Errorf("discord webhook returned %d: %w", restErr.Response.StatusCode, err)
	}
	return fmt.Errorf("failed to execute discord webhook: %w", err)
}

// statusRecorder remembers the status of the last response it carried.
type statusRecorder struct {
	base       http.RoundTripper
	status     int
	retryAfter string
}

func (r *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.base.RoundTrip(req)
	if resp != nil {
		r.status = resp.StatusCode
		r.retryAfter = resp.Header.Get("Retry-After")
	}
	return resp, err
}

// parseRetryAfter reads a Retry-After header in seconds. Zero means unknown.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
