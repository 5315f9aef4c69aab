package datastore

import (
	"sort"

	"github.com/google/uuid"

	"github.com/rewired-gh/gemonitor/internal/models"
)

// addNotification records a notification. Callers hold s.mu.
func (s *Store) addNotification(n models.Notification) {
	s.notifications = append(s.notifications, n)
}

// Notifications returns the stored notifications, newest first.
func (s *Store) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.Notification(nil), s.notifications...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) ClearNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
}

// RemoveNotification deletes a notification. Removing a drop notification
// suppresses further drop notifications for its item until the item
// recovers; removing a recovery notification lifts that suppression.
func (s *Store) RemoveNotification(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.ID != id {
			continue
		}
		s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
		switch n.Type {
		case models.NotificationDrop:
			s.suppressed[n.ItemID] = struct{}{}
		case models.NotificationRecovery:
			delete(s.suppressed, n.ItemID)
		}
		return nil
	}
	return models.NotFound("notification", id)
}

// SuppressedDropItems returns the ids of items whose drop notifications are
// suppressed, ascending.
func (s *Store) SuppressedDropItems() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.suppressed)
}

// ClearDropSuppression lifts the suppression for an item. It reports whether
// the item was suppressed.
func (s *Store) ClearDropSuppression(itemID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.suppressed[itemID]
	delete(s.suppressed, itemID)
	return ok
}
