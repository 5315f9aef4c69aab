package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert records a statistically significant price drop for an item.
// An alert is open until RecoveredAt is set; it is never reopened.
type Alert struct {
	ID                uuid.UUID  `json:"id"`
	ItemID            int        `json:"itemId"`
	ItemName          string     `json:"itemName"`
	TriggerPrice      float64    `json:"triggerPrice"`
	Mean              float64    `json:"mean"`
	StandardDeviation float64    `json:"standardDeviation"`
	TriggeredAt       time.Time  `json:"triggeredAt"`
	RecoveredAt       *time.Time `json:"recoveredAt,omitempty"`
	RecoveredPrice    *float64   `json:"recoveredPrice,omitempty"`
	AcknowledgedAt    *time.Time `json:"acknowledgedAt,omitempty"`
}

// IsOpen reports whether the alert has not recovered yet.
func (a *Alert) IsOpen() bool {
	return a.RecoveredAt == nil
}

// IsActive reports whether the alert should still be listed as active at now.
// Recovered alerts linger for grace after recovery.
func (a *Alert) IsActive(now time.Time, grace time.Duration) bool {
	if a.RecoveredAt == nil {
		return true
	}
	return now.Before(a.RecoveredAt.Add(grace))
}
