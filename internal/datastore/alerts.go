package datastore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rewired-gh/gemonitor/internal/ledger"
	"github.com/rewired-gh/gemonitor/internal/models"
	"github.com/rewired-gh/gemonitor/internal/monitor"
	"github.com/rewired-gh/gemonitor/internal/notify"
)

// Alert list filters.
const (
	AlertsAll       = "all"
	AlertsActive    = "active"
	AlertsRecovered = "recovered"
)

// openAlert returns the most recently triggered open alert of an item.
// Callers hold s.mu.
func (s *Store) openAlert(itemID int) *models.Alert {
	var latest *models.Alert
	for _, a := range s.alerts {
		if a.ItemID != itemID || !a.IsOpen() {
			continue
		}
		if latest == nil || !a.TriggeredAt.Before(latest.TriggeredAt) {
			latest = a
		}
	}
	return latest
}

// TriggerDrop opens a drop alert for item unless one is already open. It
// returns false when nothing was created.
func (s *Store) TriggerDrop(ctx context.Context, item models.MonitoredItem, price float64, stats monitor.Stats) (models.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openAlert(item.ID) != nil {
		return models.Alert{}, false
	}

	name := item.Name
	if it, ok := s.items[item.ID]; ok {
		name = it.Name
	}
	alert := &models.Alert{
		ID:                uuid.New(),
		ItemID:            item.ID,
		ItemName:          name,
		TriggerPrice:      price,
		Mean:              stats.Mean,
		StandardDeviation: stats.StdDev,
		TriggeredAt:       s.now(),
	}
	s.alerts = append(s.alerts, alert)

	if _, suppressed := s.suppressed[item.ID]; suppressed {
		s.logger.Debug("drop notification suppressed", zap.Int("item_id", item.ID))
	} else {
		s.addNotification(models.Notification{
			ID:        uuid.New(),
			Type:      models.NotificationDrop,
			ItemID:    item.ID,
			Title:     fmt.Sprintf("%s dropped", name),
			Message:   fmt.Sprintf("Triggered at %s gp (mean %s, sigma %.2f).", notify.GP(price), notify.GP(stats.Mean), stats.StdDev),
			CreatedAt: alert.TriggeredAt,
		})
	}

	s.enqueue(notify.DropMessage(alert.Clone()))
	return alert.Clone(), true
}

// RecoverAlert closes the most recent open alert of an item, clears its drop
// suppression and stamps the recovery on its open positions.
func (s *Store) RecoverAlert(ctx context.Context, itemID int, price float64) (models.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert := s.openAlert(itemID)
	if alert == nil {
		return models.Alert{}, false
	}
	now := s.now()
	alert.RecoveredAt = models.Time(now)
	alert.RecoveredPrice = models.Float(price)

	s.addNotification(models.Notification{
		ID:        uuid.New(),
		Type:      models.NotificationRecovery,
		ItemID:    itemID,
		Title:     fmt.Sprintf("%s recovered", alert.ItemName),
		Message:   fmt.Sprintf("Recovered at %s gp after the drop alert.", notify.GP(price)),
		CreatedAt: now,
	})
	delete(s.suppressed, itemID)

	for _, p := range s.ledger.MarkRecovered(itemID, price, now) {
		s.savePosition(ctx, p)
	}

	s.enqueue(notify.RecoveryMessage(alert.Clone()))
	return alert.Clone(), true
}

// Alerts lists alerts newest first. status is AlertsActive, AlertsRecovered
// or anything else for all alerts. Active includes recovered alerts still
// within the grace period.
func (s *Store) Alerts(status string) []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	grace := s.config.AlertGrace()
	status = strings.ToLower(strings.TrimSpace(status))

	out := make([]models.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		switch status {
		case AlertsActive:
			if !a.IsActive(now, grace) {
				continue
			}
		case AlertsRecovered:
			if a.IsOpen() {
				continue
			}
		}
		out = append(out, a.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TriggeredAt.After(out[j].TriggeredAt) })
	return out
}

func (s *Store) findAlert(id uuid.UUID) (int, *models.Alert) {
	for i, a := range s.alerts {
		if a.ID == id {
			return i, a
		}
	}
	return -1, nil
}

func (s *Store) Alert(id uuid.UUID) (models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, a := s.findAlert(id)
	if a == nil {
		return models.Alert{}, models.NotFound("alert", id)
	}
	return a.Clone(), nil
}

// AcknowledgeAlert marks an alert as seen. A positive quantity also records
// a position bought at the trigger price.
func (s *Store) AcknowledgeAlert(ctx context.Context, id uuid.UUID, quantity int) (models.Alert, *models.Position, error) {
	if quantity < 0 {
		return models.Alert{}, nil, models.Invalid("quantity", "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, a := s.findAlert(id)
	if a == nil {
		return models.Alert{}, nil, models.NotFound("alert", id)
	}
	now := s.now()
	a.AcknowledgedAt = models.Time(now)

	if quantity == 0 {
		return a.Clone(), nil, nil
	}
	p, err := s.ledger.Add(ledger.NewPosition{
		ItemID:         a.ItemID,
		ItemName:       a.ItemName,
		Quantity:       quantity,
		BuyPrice:       a.TriggerPrice,
		AcknowledgedAt: models.Time(now),
	})
	if err != nil {
		return models.Alert{}, nil, err
	}
	s.savePosition(ctx, p)
	return a.Clone(), &p, nil
}

func (s *Store) RemoveAlert(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, a := s.findAlert(id)
	if a == nil {
		return models.NotFound("alert", id)
	}
	s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
	return nil
}
