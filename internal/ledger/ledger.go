// Package ledger tracks trade positions and their tax-adjusted profit.
//
// A Ledger is not safe for concurrent use; callers serialize access. Every
// method hands out copies, so returned positions can be kept freely.
package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/gemonitor/internal/models"
)

type Ledger struct {
	positions map[uuid.UUID]*models.Position
	order     []uuid.UUID
	now       func() time.Time
}

func New() *Ledger {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Ledger {
	return &Ledger{
		positions: make(map[uuid.UUID]*models.Position),
		now:       now,
	}
}

// Restore replaces the ledger contents with previously persisted positions.
func (l *Ledger) Restore(positions []models.Position) {
	l.positions = make(map[uuid.UUID]*models.Position, len(positions))
	l.order = l.order[:0]
	for _, p := range positions {
		c := p.Clone()
		l.positions[c.ID] = &c
		l.order = append(l.order, c.ID)
	}
}

// NewPosition describes a position to open.
type NewPosition struct {
	ItemID         int
	ItemName       string
	Quantity       int
	BuyPrice       float64
	BoughtAt       *time.Time
	AcknowledgedAt *time.Time
}

// Add opens a new position.
func (l *Ledger) Add(in NewPosition) (models.Position, error) {
	if in.Quantity <= 0 {
		return models.Position{}, models.Invalid("quantity", "must be greater than zero")
	}
	if in.BuyPrice <= 0 {
		return models.Position{}, models.Invalid("buyPrice", "must be greater than zero")
	}
	boughtAt := l.now()
	if in.BoughtAt != nil {
		boughtAt = *in.BoughtAt
	}
	p := &models.Position{
		ID:             uuid.New(),
		ItemID:         in.ItemID,
		ItemName:       in.ItemName,
		Quantity:       in.Quantity,
		BuyPrice:       in.BuyPrice,
		BoughtAt:       boughtAt,
		AcknowledgedAt: in.AcknowledgedAt,
	}
	l.insert(p)
	return p.Clone(), nil
}

func (l *Ledger) insert(p *models.Position) {
	l.positions[p.ID] = p
	l.order = append(l.order, p.ID)
}

// Get returns the position with id.
func (l *Ledger) Get(id uuid.UUID) (models.Position, error) {
	p, ok := l.positions[id]
	if !ok {
		return models.Position{}, models.NotFound("position", id)
	}
	return p.Clone(), nil
}

// All returns every position, most recently bought first.
func (l *Ledger) All() []models.Position {
	out := make([]models.Position, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.positions[id].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BoughtAt.After(out[j].BoughtAt)
	})
	return out
}

// OpenForItem returns the unsold positions of itemID in insertion order.
func (l *Ledger) OpenForItem(itemID int) []models.Position {
	var out []models.Position
	for _, id := range l.order {
		p := l.positions[id]
		if p.ItemID == itemID && !p.IsSold() {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Sell closes qty units of position id at sellPrice. A nil qty sells the whole
// position. Selling part of a position leaves the original open with the
// remaining quantity and records the sold part as a new position; remaining is
// nil when nothing is left open.
func (l *Ledger) Sell(id uuid.UUID, sellPrice float64, qty *int) (sold models.Position, remaining *models.Position, err error) {
	if sellPrice <= 0 {
		return models.Position{}, nil, models.Invalid("sellPrice", "must be greater than zero")
	}
	p, ok := l.positions[id]
	if !ok || p.IsSold() {
		return models.Position{}, nil, models.NotFound("open position", id)
	}

	sellQty := p.Quantity
	if qty != nil {
		sellQty = *qty
	}
	if sellQty <= 0 {
		return models.Position{}, nil, models.Invalid("quantity", "must be greater than zero")
	}
	if sellQty > p.Quantity {
		return models.Position{}, nil, models.Invalid("quantity", "cannot sell %d of %d", sellQty, p.Quantity)
	}

	now := l.now()
	sale := Settle(p.BuyPrice, sellPrice, sellQty)

	if sellQty == p.Quantity {
		applySale(p, sellPrice, now, sale)
		return p.Clone(), nil, nil
	}

	part := p.Clone()
	part.ID = uuid.New()
	part.Quantity = sellQty
	applySale(&part, sellPrice, now, sale)
	l.insert(&part)

	p.Quantity -= sellQty
	rest := p.Clone()
	return part.Clone(), &rest, nil
}

func applySale(p *models.Position, sellPrice float64, at time.Time, sale Sale) {
	p.SellPrice = models.Float(sellPrice)
	p.SoldAt = models.Time(at)
	p.TaxRateApplied = models.Float(sale.TaxRate)
	p.TaxPaid = models.Float(sale.TaxPaid)
	p.Profit = models.Float(sale.Profit)
}

// UpdateBuyPrice corrects the buy price. For a sold position profit is
// recomputed against the tax already paid.
func (l *Ledger) UpdateBuyPrice(id uuid.UUID, buyPrice float64) (models.Position, error) {
	if buyPrice <= 0 {
		return models.Position{}, models.Invalid("buyPrice", "must be greater than zero")
	}
	p, ok := l.positions[id]
	if !ok {
		return models.Position{}, models.NotFound("position", id)
	}
	p.BuyPrice = buyPrice
	if p.IsSold() && p.SellPrice != nil {
		var taxPaid float64
		if p.TaxPaid != nil {
			taxPaid = *p.TaxPaid
		}
		p.Profit = models.Float(Reprice(buyPrice, *p.SellPrice, taxPaid, p.Quantity))
	}
	return p.Clone(), nil
}

// IncreaseQuantity adds qty units to an open position bought at exactly the
// same price. Differently priced lots must be tracked as separate positions.
func (l *Ledger) IncreaseQuantity(id uuid.UUID, qty int, buyPrice float64) (models.Position, error) {
	if qty <= 0 {
		return models.Position{}, models.Invalid("quantity", "must be greater than zero")
	}
	if buyPrice <= 0 {
		return models.Position{}, models.Invalid("buyPrice", "must be greater than zero")
	}
	p, ok := l.positions[id]
	if !ok {
		return models.Position{}, models.NotFound("position", id)
	}
	if p.IsSold() {
		return models.Position{}, models.Invalid("position", "already sold")
	}
	if p.BuyPrice != buyPrice {
		return models.Position{}, models.Invalid("buyPrice", "must match the existing buy price %.0f", p.BuyPrice)
	}
	p.Quantity += qty
	return p.Clone(), nil
}

// Acknowledge marks the position as seen.
func (l *Ledger) Acknowledge(id uuid.UUID) (models.Position, error) {
	p, ok := l.positions[id]
	if !ok {
		return models.Position{}, models.NotFound("position", id)
	}
	p.AcknowledgedAt = models.Time(l.now())
	return p.Clone(), nil
}

// MarkRecovered stamps the recovery on every open position of itemID and
// returns the updated positions.
func (l *Ledger) MarkRecovered(itemID int, price float64, at time.Time) []models.Position {
	var out []models.Position
	for _, id := range l.order {
		p := l.positions[id]
		if p.ItemID != itemID || p.IsSold() {
			continue
		}
		p.RecoveredAt = models.Time(at)
		p.RecoveryPrice = models.Float(price)
		out = append(out, p.Clone())
	}
	return out
}

// Remove deletes a position.
func (l *Ledger) Remove(id uuid.UUID) error {
	if _, ok := l.positions[id]; !ok {
		return models.NotFound("position", id)
	}
	delete(l.positions, id)
	for i, oid := range l.order {
		if oid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of positions held.
func (l *Ledger) Len() int {
	return len(l.positions)
}
