package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rewired-gh/gemonitor/internal/models"
)

type seriesRow struct {
	FetchedAt int64  `db:"fetched_at"`
	Points    string `db:"points"`
}

// LoadSeries returns a cached time series. ok is false on a miss.
func (s *Storage) LoadSeries(ctx context.Context, itemID int, timestep string) (time.Time, []models.PricePoint, bool, error) {
	var row seriesRow
	err := s.db.GetContext(ctx, &row,
		`SELECT fetched_at, points FROM timeseries_cache WHERE item_id = ? AND timestep = ?`, itemID, timestep)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil, false, nil
	}
	if err != nil {
		return time.Time{}, nil, false, fmt.Errorf("failed to load time series: %w", err)
	}
	var points []models.PricePoint
	if err := json.Unmarshal([]byte(row.Points), &points); err != nil {
		return time.Time{}, nil, false, fmt.Errorf("failed to unmarshal time series: %w", err)
	}
	return time.Unix(0, row.FetchedAt), points, true, nil
}

// SaveSeries stores a fetched time series, replacing any previous copy.
func (s *Storage) SaveSeries(ctx context.Context, itemID int, timestep string, fetchedAt time.Time, points []models.PricePoint) error {
	if points == nil {
		points = []models.PricePoint{}
	}
	data, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to marshal time series: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO timeseries_cache (item_id, timestep, fetched_at, points)
		VALUES (?, ?, ?, ?)`,
		itemID, timestep, fetchedAt.UnixNano(), string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save time series: %w", err)
	}
	return nil
}
