package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rewired-gh/gemonitor/internal/models"
)

// SaveConfig replaces the persisted runtime settings.
func (s *Storage) SaveConfig(ctx context.Context, cfg models.GlobalConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, data, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// LoadConfig returns the persisted settings. ok is false when none were saved.
func (s *Storage) LoadConfig(ctx context.Context) (models.GlobalConfig, bool, error) {
	var cfg models.GlobalConfig
	ok, err := s.getJSON(ctx, &cfg, `SELECT data FROM settings WHERE id = 1`)
	if err != nil {
		return models.GlobalConfig{}, false, fmt.Errorf("failed to load settings: %w", err)
	}
	return cfg, ok, nil
}
