package datastore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rewired-gh/gemonitor/internal/ledger"
	"github.com/rewired-gh/gemonitor/internal/models"
)

// savePosition mirrors p to persistence. Callers hold s.mu.
func (s *Store) savePosition(ctx context.Context, p models.Position) {
	if err := s.persist.UpsertPosition(ctx, p); err != nil {
		s.logger.Error("failed to persist position", zap.String("position_id", p.ID.String()), zap.Error(err))
	}
}

// Positions returns every position, most recently bought first.
func (s *Store) Positions() []models.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.All()
}

func (s *Store) Position(id uuid.UUID) (models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Get(id)
}

func (s *Store) AddPosition(ctx context.Context, in ledger.NewPosition) (models.Position, error) {
	if in.ItemID <= 0 {
		return models.Position{}, models.Invalid("itemId", "must be positive")
	}
	in.ItemName = strings.TrimSpace(in.ItemName)
	if in.ItemName == "" {
		return models.Position{}, models.Invalid("itemName", "must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ledger.Add(in)
	if err != nil {
		return models.Position{}, err
	}
	s.savePosition(ctx, p)
	return p, nil
}

// SellPosition sells qty units, or everything when qty is nil. See
// ledger.Ledger.Sell for the split semantics.
func (s *Store) SellPosition(ctx context.Context, id uuid.UUID, sellPrice float64, qty *int) (models.Position, *models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sold, remaining, err := s.ledger.Sell(id, sellPrice, qty)
	if err != nil {
		return models.Position{}, nil, err
	}
	s.savePosition(ctx, sold)
	if remaining != nil {
		s.savePosition(ctx, *remaining)
	}
	return sold, remaining, nil
}

func (s *Store) UpdateBuyPrice(ctx context.Context, id uuid.UUID, buyPrice float64) (models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ledger.UpdateBuyPrice(id, buyPrice)
	if err != nil {
		return models.Position{}, err
	}
	s.savePosition(ctx, p)
	return p, nil
}

func (s *Store) IncreaseQuantity(ctx context.Context, id uuid.UUID, qty int, buyPrice float64) (models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ledger.IncreaseQuantity(id, qty, buyPrice)
	if err != nil {
		return models.Position{}, err
	}
	s.savePosition(ctx, p)
	return p, nil
}

func (s *Store) AcknowledgePosition(ctx context.Context, id uuid.UUID) (models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ledger.Acknowledge(id)
	if err != nil {
		return models.Position{}, err
	}
	s.savePosition(ctx, p)
	return p, nil
}

func (s *Store) RemovePosition(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.Remove(id); err != nil {
		return err
	}
	if err := s.persist.RemovePosition(ctx, id); err != nil {
		s.logger.Error("failed to persist position removal", zap.String("position_id", id.String()), zap.Error(err))
	}
	return nil
}

func (s *Store) PositionSummary() ledger.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Summary()
}

// ProfitHistory returns daily realized profit, optionally for one item.
func (s *Store) ProfitHistory(itemID *int) []ledger.ProfitPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.ProfitHistory(itemID)
}
