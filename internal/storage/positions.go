package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/gemonitor/internal/models"
)

// positionRow mirrors the positions table. Times are Unix nanoseconds.
type positionRow struct {
	ID             string   `db:"id"`
	ItemID         int      `db:"item_id"`
	ItemName       string   `db:"item_name"`
	Quantity       int      `db:"quantity"`
	BuyPrice       float64  `db:"buy_price"`
	BoughtAt       int64    `db:"bought_at"`
	AcknowledgedAt *int64   `db:"acknowledged_at"`
	RecoveredAt    *int64   `db:"recovered_at"`
	RecoveryPrice  *float64 `db:"recovery_price"`
	SellPrice      *float64 `db:"sell_price"`
	SoldAt         *int64   `db:"sold_at"`
	TaxRateApplied *float64 `db:"tax_rate_applied"`
	TaxPaid        *float64 `db:"tax_paid"`
	Profit         *float64 `db:"profit"`
}

const positionCols = `id, item_id, item_name, quantity, buy_price, bought_at, acknowledged_at,
	recovered_at, recovery_price, sell_price, sold_at, tax_rate_applied, tax_paid, profit`

func toPositionRow(p models.Position) positionRow {
	return positionRow{
		ID:             p.ID.String(),
		ItemID:         p.ItemID,
		ItemName:       p.ItemName,
		Quantity:       p.Quantity,
		BuyPrice:       p.BuyPrice,
		BoughtAt:       p.BoughtAt.UnixNano(),
		AcknowledgedAt: toNano(p.AcknowledgedAt),
		RecoveredAt:    toNano(p.RecoveredAt),
		RecoveryPrice:  p.RecoveryPrice,
		SellPrice:      p.SellPrice,
		SoldAt:         toNano(p.SoldAt),
		TaxRateApplied: p.TaxRateApplied,
		TaxPaid:        p.TaxPaid,
		Profit:         p.Profit,
	}
}

func (r positionRow) position() (models.Position, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return models.Position{}, fmt.Errorf("invalid position id %q: %w", r.ID, err)
	}
	return models.Position{
		ID:             id,
		ItemID:         r.ItemID,
		ItemName:       r.ItemName,
		Quantity:       r.Quantity,
		BuyPrice:       r.BuyPrice,
		BoughtAt:       time.Unix(0, r.BoughtAt),
		AcknowledgedAt: fromNano(r.AcknowledgedAt),
		RecoveredAt:    fromNano(r.RecoveredAt),
		RecoveryPrice:  r.RecoveryPrice,
		SellPrice:      r.SellPrice,
		SoldAt:         fromNano(r.SoldAt),
		TaxRateApplied: r.TaxRateApplied,
		TaxPaid:        r.TaxPaid,
		Profit:         r.Profit,
	}, nil
}

func (s *Storage) UpsertPosition(ctx context.Context, p models.Position) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO positions (`+positionCols+`)
		VALUES (:id, :item_id, :item_name, :quantity, :buy_price, :bought_at, :acknowledged_at,
			:recovered_at, :recovery_price, :sell_price, :sold_at, :tax_rate_applied, :tax_paid, :profit)`,
		toPositionRow(p),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

func (s *Storage) RemovePosition(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to remove position: %w", err)
	}
	return nil
}

func (s *Storage) LoadAllPositions(ctx context.Context) ([]models.Position, error) {
	var rows []positionRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+positionCols+` FROM positions ORDER BY bought_at DESC`); err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	positions := make([]models.Position, 0, len(rows))
	for _, r := range rows {
		p, err := r.position()
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, nil
}

func toNano(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.UnixNano()
	return &v
}

func fromNano(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(0, *v)
	return &t
}
