// Package telegram provides a client for sending notifications via Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/rewired-gh/gemonitor/internal/notify"
)

// Config configures a Client.
type Config struct {
	BotToken       string
	ChatID         string
	APIEndpoint    string
	MaxRetries     int
	RetryDelayBase time.Duration
}

// Client handles Telegram notifications. It implements notify.Sender.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	logger         *zap.Logger

	// Summary renders the reply to /summary; nil disables the command.
	Summary func() string
}

// NewClient creates a new Telegram client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	chatIDInt, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.BotToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelayBase := cfg.RetryDelayBase
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		logger:         logger,
	}, nil
}

func (c *Client) Name() string { return "telegram" }

// Ready is true once the bot has been created.
func (c *Client) Ready() bool { return c != nil && c.bot != nil }

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	var text string
	switch msg.Command() {
	case "ping":
		text = "Pong"
	case "summary":
		if c.Summary == nil {
			return
		}
		text = c.Summary()
	default:
		return
	}
	if _, err := c.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, text)); err != nil {
		c.logger.Warn("failed to reply to command", zap.String("command", msg.Command()), zap.Error(err))
	}
}

// Send delivers m as a MarkdownV2 message.
func (c *Client) Send(ctx context.Context, m notify.Message) error {
	return c.sendMarkdownV2(ctx, formatMessage(m))
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
// A 429 is returned immediately as a *notify.ThrottledError.
func (c *Client) sendMarkdownV2(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 429 {
			return &notify.ThrottledError{RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second}
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// formatMessage formats a notification into a Telegram MarkdownV2 message.
func formatMessage(m notify.Message) string {
	var title string
	switch m.Kind {
	case notify.KindDrop:
		title = "📉 *Price drop*"
	case notify.KindRecovery:
		title = "📈 *Recovered*"
	case notify.KindTest:
		title = "🔔 *Test*"
	case notify.KindReport:
		title = "📊 *Report*"
	default:
		title = "*Notification*"
	}

	body := m.Render()
	if !m.Timestamp.IsZero() {
		body += "\n" + m.Timestamp.UTC().Format("2006-01-02 15:04:05") + " UTC"
	}
	return title + "\n" + escapeMarkdownV2(body)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
