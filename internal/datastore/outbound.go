package datastore

import (
	"fmt"
	"strings"

	"github.com/rewired-gh/gemonitor/internal/ledger"
	"github.com/rewired-gh/gemonitor/internal/models"
	"github.com/rewired-gh/gemonitor/internal/notify"
)

func discordConfigured(cfg models.GlobalConfig) error {
	if !cfg.DiscordNotificationsEnabled {
		return models.Invalid("discordNotificationsEnabled", "discord notifications are disabled")
	}
	if strings.TrimSpace(cfg.DiscordWebhookURL) == "" {
		return models.Invalid("discordWebhookUrl", "is not configured")
	}
	return nil
}

// SendTestNotification queues a test message for the configured webhook.
func (s *Store) SendTestNotification(text string) error {
	if err := discordConfigured(s.Config()); err != nil {
		return err
	}
	s.enqueue(notify.TestMessage(strings.TrimSpace(text)))
	return nil
}

// SendItemReport queues a market snapshot of a watched item.
func (s *Store) SendItemReport(itemID int) error {
	s.mu.RLock()
	cfg := s.config
	item, watched := s.items[itemID]
	latest, priced := s.latest[itemID]
	s.mu.RUnlock()

	if err := discordConfigured(cfg); err != nil {
		return err
	}
	if !watched {
		return models.NotFound("item", itemID)
	}
	if !priced {
		return models.Invalid("itemId", "no market data for item %d yet", itemID)
	}

	stats := s.stats.GetRollingStats(itemID)
	s.enqueue(notify.ReportMessage(itemID, item.Name, ItemReport(item, latest, stats.Mean, stats.StdDev, stats.SampleSize)))
	return nil
}

// ItemReport renders a market snapshot of one item.
func ItemReport(item models.MonitoredItem, latest models.LatestPrice, mean, stdDev float64, samples int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 REPORT: %s (#%d)\n", item.Name, item.ID)
	fmt.Fprintf(&b, "High: %s gp | Low: %s gp", gpOrDash(latest.High), gpOrDash(latest.Low))
	if samples > 0 {
		fmt.Fprintf(&b, "\nMean: %s gp | σ: %.2f | samples: %d", notify.GP(mean), stdDev, samples)
	}
	return b.String()
}

// SummaryReport renders realized profit for the scheduled report.
func SummaryReport(sum ledger.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 P&L REPORT: profit %s gp, tax %s gp", notify.GP(sum.TotalProfit), notify.GP(sum.TotalTax))
	for i, it := range sum.PerItem {
		if i == 5 {
			fmt.Fprintf(&b, "\n…and %d more", len(sum.PerItem)-i)
			break
		}
		fmt.Fprintf(&b, "\n• %s: %s gp over %d sales (%.0f%% wins)", it.ItemName, notify.GP(it.TotalProfit), it.Count, it.WinRate*100)
	}
	return b.String()
}

// SendSummaryReport queues a realized P&L report.
func (s *Store) SendSummaryReport() {
	s.enqueue(notify.ReportMessage(0, "P&L", SummaryReport(s.PositionSummary())))
}

func gpOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return notify.GP(*v)
}
