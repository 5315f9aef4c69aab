package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rewired-gh/gemonitor/internal/models"
)

type watchRow struct {
	ItemID  int    `db:"item_id"`
	Name    string `db:"name"`
	AddedAt int64  `db:"added_at"`
}

func (s *Storage) UpsertWatchItem(ctx context.Context, item models.MonitoredItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO watchlist (item_id, name, added_at) VALUES (:item_id, :name, :added_at)
		ON CONFLICT(item_id) DO UPDATE SET name = excluded.name`,
		watchRow{ItemID: item.ID, Name: item.Name, AddedAt: item.AddedAt.UnixNano()},
	)
	if err != nil {
		return fmt.Errorf("failed to upsert watch item: %w", err)
	}
	return nil
}

func (s *Storage) RemoveWatchItem(ctx context.Context, itemID int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("failed to remove watch item: %w", err)
	}
	return nil
}

func (s *Storage) LoadWatchItems(ctx context.Context) ([]models.MonitoredItem, error) {
	var rows []watchRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT item_id, name, added_at FROM watchlist ORDER BY item_id`); err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	items := make([]models.MonitoredItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, models.MonitoredItem{
			ID:      r.ItemID,
			Name:    r.Name,
			AddedAt: time.Unix(0, r.AddedAt),
		})
	}
	return items, nil
}
