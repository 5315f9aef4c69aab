// Package models defines the core domain entities: watched items, price points,
// alerts, positions, notifications and the runtime settings.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MonitoredItem is a tradeable item on the user's watchlist.
type MonitoredItem struct {
	ID      int       `json:"itemId"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"addedAt"`
}

// Validate checks item field constraints.
func (i *MonitoredItem) Validate() error {
	if i.ID <= 0 {
		return Invalid("itemId", "must be positive")
	}
	if i.Name == "" {
		return Invalid("name", "must not be empty")
	}
	return nil
}

// PricePoint is a single observed price.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// LatestPrice is the most recent high/low snapshot for an item.
type LatestPrice struct {
	ItemID   int        `json:"itemId"`
	High     *float64   `json:"high,omitempty"`
	Low      *float64   `json:"low,omitempty"`
	HighTime *time.Time `json:"highTime,omitempty"`
	LowTime  *time.Time `json:"lowTime,omitempty"`
}

// Representative returns the mid price when both sides are known, otherwise
// whichever side is present. ok is false when neither side is known.
func (l LatestPrice) Representative() (price float64, ok bool) {
	switch {
	case l.High != nil && l.Low != nil:
		return (*l.High + *l.Low) / 2, true
	case l.High != nil:
		return *l.High, true
	case l.Low != nil:
		return *l.Low, true
	default:
		return 0, false
	}
}

// NotificationType distinguishes stored notification records.
type NotificationType string

const (
	NotificationDrop     NotificationType = "drop"
	NotificationRecovery NotificationType = "recovery"
)

// Notification is a user-visible record of an alert transition.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Type      NotificationType `json:"type"`
	ItemID    int              `json:"itemId"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }
