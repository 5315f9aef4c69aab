package models

import (
	"time"

	"github.com/google/uuid"
)

// Position is a user-entered trade lot. A position is sold once SoldAt is set;
// the sale fields are then populated together.
type Position struct {
	ID             uuid.UUID  `json:"id"`
	ItemID         int        `json:"itemId"`
	ItemName       string     `json:"itemName"`
	Quantity       int        `json:"quantity"`
	BuyPrice       float64    `json:"buyPrice"`
	BoughtAt       time.Time  `json:"boughtAt"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	RecoveredAt    *time.Time `json:"recoveredAt,omitempty"`
	RecoveryPrice  *float64   `json:"recoveryPrice,omitempty"`
	SellPrice      *float64   `json:"sellPrice,omitempty"`
	SoldAt         *time.Time `json:"soldAt,omitempty"`
	TaxRateApplied *float64   `json:"taxRateApplied,omitempty"`
	TaxPaid        *float64   `json:"taxPaid,omitempty"`
	Profit         *float64   `json:"profit,omitempty"`
}

// IsSold reports whether the position has been closed by a sale.
func (p *Position) IsSold() bool {
	return p.SoldAt != nil
}

// Clone returns a deep copy so callers never share pointer fields with the ledger.
func (p Position) Clone() Position {
	c := p
	c.AcknowledgedAt = cloneTime(p.AcknowledgedAt)
	c.RecoveredAt = cloneTime(p.RecoveredAt)
	c.SoldAt = cloneTime(p.SoldAt)
	c.RecoveryPrice = cloneFloat(p.RecoveryPrice)
	c.SellPrice = cloneFloat(p.SellPrice)
	c.TaxRateApplied = cloneFloat(p.TaxRateApplied)
	c.TaxPaid = cloneFloat(p.TaxPaid)
	c.Profit = cloneFloat(p.Profit)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Clone returns a deep copy of the alert.
func (a Alert) Clone() Alert {
	c := a
	c.RecoveredAt = cloneTime(a.RecoveredAt)
	c.RecoveredPrice = cloneFloat(a.RecoveredPrice)
	c.AcknowledgedAt = cloneTime(a.AcknowledgedAt)
	return c
}

// Clone returns a deep copy of the snapshot.
func (l LatestPrice) Clone() LatestPrice {
	c := l
	c.High = cloneFloat(l.High)
	c.Low = cloneFloat(l.Low)
	c.HighTime = cloneTime(l.HighTime)
	c.LowTime = cloneTime(l.LowTime)
	return c
}
