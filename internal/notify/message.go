// Package notify delivers alert notifications through an unbounded queue and
// a single worker per sink that honors the sink's rate limits.
package notify

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/rewired-gh/gemonitor/internal/models"
)

// Kind identifies what a message reports.
type Kind string

const (
	KindDrop     Kind = "drop"
	KindRecovery Kind = "recovery"
	KindTest     Kind = "test"
	KindReport   Kind = "report"
)

const defaultTestText = "Discord alerts are configured correctly."

// Message is one outbound notification.
type Message struct {
	ID            uuid.UUID
	Kind          Kind
	ItemID        int
	ItemName      string
	TriggerPrice  float64
	Mean          float64
	StdDev        float64
	RecoveryPrice *float64
	Text          string
	Timestamp     time.Time
	Attempts      int
}

// DropMessage builds the message announcing a new drop alert.
func DropMessage(a models.Alert) Message {
	return Message{
		ID:           uuid.New(),
		Kind:         KindDrop,
		ItemID:       a.ItemID,
		ItemName:     a.ItemName,
		TriggerPrice: a.TriggerPrice,
		Mean:         a.Mean,
		StdDev:       a.StandardDeviation,
		Timestamp:    a.TriggeredAt,
	}
}

// RecoveryMessage builds the message announcing that an alert recovered.
func RecoveryMessage(a models.Alert) Message {
	ts := time.Now()
	if a.RecoveredAt != nil {
		ts = *a.RecoveredAt
	}
	return Message{
		ID:            uuid.New(),
		Kind:          KindRecovery,
		ItemID:        a.ItemID,
		ItemName:      a.ItemName,
		TriggerPrice:  a.TriggerPrice,
		Mean:          a.Mean,
		StdDev:        a.StandardDeviation,
		RecoveryPrice: a.RecoveredPrice,
		Timestamp:     ts,
	}
}

// TestMessage builds a connectivity check message.
func TestMessage(text string) Message {
	return Message{ID: uuid.New(), Kind: KindTest, ItemName: "Test", Text: text, Timestamp: time.Now()}
}

// ReportMessage builds a free-form report message.
func ReportMessage(itemID int, itemName, text string) Message {
	return Message{ID: uuid.New(), Kind: KindReport, ItemID: itemID, ItemName: itemName, Text: text, Timestamp: time.Now()}
}

// Render returns the plain-text body delivered to chat sinks.
func (m Message) Render() string {
	switch m.Kind {
	case KindDrop:
		return fmt.Sprintf("📉🔥 DROP ALERT: %s @ %s gp (mean %s, σ %.2f)",
			m.ItemName, GP(m.TriggerPrice), GP(m.Mean), m.StdDev)
	case KindRecovery:
		var price float64
		if m.RecoveryPrice != nil {
			price = *m.RecoveryPrice
		}
		return fmt.Sprintf("📈✨ RECOVERY: %s @ %s gp (mean %s)", m.ItemName, GP(price), GP(m.Mean))
	case KindTest:
		text := m.Text
		if text == "" {
			text = defaultTestText
		}
		return "[TEST] " + text
	case KindReport:
		return m.Text
	default:
		return m.ItemName
	}
}

// GP formats a coin amount rounded to whole gold pieces with thousands separators.
func GP(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
