// Package monitor turns polled prices into rolling baselines and drop/recovery
// transitions for the watched items.
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rewired-gh/gemonitor/internal/models"
)

// PriceFeed fetches the latest price snapshots for a batch of items.
type PriceFeed interface {
	LatestPrices(ctx context.Context, itemIDs []int) (map[int]models.LatestPrice, error)
}

// Store is the state the monitor reads and mutates each tick.
type Store interface {
	Config() models.GlobalConfig
	Items() []models.MonitoredItem
	UpdateLatestPrices(prices map[int]models.LatestPrice)
	RecordPrice(itemID int, point models.PricePoint) Stats
	TriggerDrop(ctx context.Context, item models.MonitoredItem, price float64, stats Stats) (models.Alert, bool)
	RecoverAlert(ctx context.Context, itemID int, price float64) (models.Alert, bool)
}

type Monitor struct {
	store  Store
	feed   PriceFeed
	logger *zap.Logger
	now    func() time.Time

	consecutiveFailures int
}

func New(store Store, feed PriceFeed, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		store:  store,
		feed:   feed,
		logger: logger,
		now:    time.Now,
	}
}

// Run ticks immediately and then once per fetch interval until ctx is done.
// Tick failures are logged; they never stop the loop.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("price monitor started",
		zap.Duration("interval", m.store.Config().FetchInterval()))

	for {
		m.handleTickResult(m.Tick(ctx))

		timer := time.NewTimer(m.store.Config().FetchInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info("price monitor stopped")
			return
		case <-timer.C:
		}
	}
}

func (m *Monitor) handleTickResult(err error) {
	if err != nil {
		m.consecutiveFailures++
		if m.consecutiveFailures == 1 {
			m.logger.Warn("price fetch failed", zap.Error(err))
		} else {
			m.logger.Debug("price fetch still failing",
				zap.Int("consecutive_failures", m.consecutiveFailures), zap.Error(err))
		}
		return
	}
	if m.consecutiveFailures > 0 {
		m.logger.Info("price fetch recovered",
			zap.Int("consecutive_failures", m.consecutiveFailures))
	}
	m.consecutiveFailures = 0
}

// Tick runs one fetch-and-evaluate cycle over the watchlist.
func (m *Monitor) Tick(ctx context.Context) error {
	items := m.store.Items()
	if len(items) == 0 {
		return nil
	}

	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	prices, err := m.feed.LatestPrices(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch latest prices: %w", err)
	}
	m.store.UpdateLatestPrices(prices)

	now := m.now()
	for _, item := range items {
		if ctx.Err() != nil {
			return nil
		}
		latest, ok := prices[item.ID]
		if !ok {
			continue
		}
		price, ok := latest.Representative()
		if !ok {
			continue
		}
		m.processItem(ctx, item, price, now)
	}
	return nil
}

func (m *Monitor) processItem(ctx context.Context, item models.MonitoredItem, price float64, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("item processing panicked",
				zap.Int("item_id", item.ID), zap.Any("panic", r))
		}
	}()

	stats := m.store.RecordPrice(item.ID, models.PricePoint{Timestamp: now, Price: price})
	cfg := m.store.Config()

	switch Evaluate(price, stats, cfg) {
	case Drop:
		if alert, created := m.store.TriggerDrop(ctx, item, price, stats); created {
			m.logger.Info("drop alert triggered",
				zap.Int("item_id", item.ID),
				zap.String("item", item.Name),
				zap.Float64("price", price),
				zap.Float64("mean", stats.Mean),
				zap.Float64("std_dev", stats.StdDev),
				zap.String("alert_id", alert.ID.String()))
			return
		}
		if RecoveryReached(price, stats, cfg) {
			m.recover(ctx, item, price)
		}
	case Recover:
		m.recover(ctx, item, price)
	}
}

func (m *Monitor) recover(ctx context.Context, item models.MonitoredItem, price float64) {
	if alert, ok := m.store.RecoverAlert(ctx, item.ID, price); ok {
		m.logger.Info("alert recovered",
			zap.Int("item_id", item.ID),
			zap.String("item", item.Name),
			zap.Float64("price", price),
			zap.String("alert_id", alert.ID.String()))
	}
}
