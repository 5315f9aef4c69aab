package datastore

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rewired-gh/gemonitor/internal/models"
	"github.com/rewired-gh/gemonitor/internal/monitor"
)

// Items returns the watchlist ordered by item id.
func (s *Store) Items() []models.MonitoredItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MonitoredItem, 0, len(s.items))
	for _, id := range sortedIDs(s.items) {
		out = append(out, s.items[id])
	}
	return out
}

func (s *Store) Item(itemID int) (models.MonitoredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok {
		return models.MonitoredItem{}, models.NotFound("item", itemID)
	}
	return it, nil
}

// AddItem watches an item. Adding an already watched item updates its name
// and keeps its original AddedAt.
func (s *Store) AddItem(ctx context.Context, itemID int, name string) (models.MonitoredItem, error) {
	it := models.MonitoredItem{ID: itemID, Name: strings.TrimSpace(name), AddedAt: s.now()}
	if err := it.Validate(); err != nil {
		return models.MonitoredItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[itemID]; ok {
		it.AddedAt = existing.AddedAt
	}
	s.items[itemID] = it
	if err := s.persist.UpsertWatchItem(ctx, it); err != nil {
		s.logger.Error("failed to persist watch item", zap.Int("item_id", itemID), zap.Error(err))
	}
	return it, nil
}

// RemoveItem stops watching an item and forgets its price history.
func (s *Store) RemoveItem(ctx context.Context, itemID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[itemID]; !ok {
		return models.NotFound("item", itemID)
	}
	delete(s.items, itemID)
	delete(s.latest, itemID)
	s.stats.Remove(itemID)
	if err := s.persist.RemoveWatchItem(ctx, itemID); err != nil {
		s.logger.Error("failed to persist watch item removal", zap.Int("item_id", itemID), zap.Error(err))
	}
	return nil
}

// RecordPrice feeds a sample into the item's rolling window and returns the
// updated baseline.
func (s *Store) RecordPrice(itemID int, point models.PricePoint) monitor.Stats {
	s.stats.AddPricePoint(itemID, point)
	return s.stats.GetRollingStats(itemID)
}

// RollingStats returns the current baseline of an item.
func (s *Store) RollingStats(itemID int) monitor.Stats {
	return s.stats.GetRollingStats(itemID)
}

// PriceWindow returns the samples behind the item's baseline, oldest first.
func (s *Store) PriceWindow(itemID int) []models.PricePoint {
	return s.stats.Window(itemID)
}

// UpdateLatestPrices stores the newest snapshots of watched items.
func (s *Store) UpdateLatestPrices(prices map[int]models.LatestPrice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, lp := range prices {
		if _, ok := s.items[id]; !ok {
			continue
		}
		lp.ItemID = id
		s.latest[id] = lp.Clone()
	}
}

// LatestPrice returns the newest snapshot of an item.
func (s *Store) LatestPrice(itemID int) (models.LatestPrice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lp, ok := s.latest[itemID]
	if !ok {
		return models.LatestPrice{}, false
	}
	return lp.Clone(), true
}

// LatestPrices returns the snapshots known for ids. A nil ids returns all.
func (s *Store) LatestPrices(ids []int) map[int]models.LatestPrice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]models.LatestPrice)
	if ids == nil {
		for id, lp := range s.latest {
			out[id] = lp.Clone()
		}
		return out
	}
	for _, id := range ids {
		if lp, ok := s.latest[id]; ok {
			out[id] = lp.Clone()
		}
	}
	return out
}
