// Package datastore is the single authoritative in-memory state of the
// monitor: settings, watchlist, alerts, positions and notifications. Every
// mutation is mirrored to a Persistence backend; memory stays authoritative
// when a write fails.
package datastore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rewired-gh/gemonitor/internal/ledger"
	"github.com/rewired-gh/gemonitor/internal/models"
	"github.com/rewired-gh/gemonitor/internal/monitor"
	"github.com/rewired-gh/gemonitor/internal/notify"
)

// Persistence stores the durable part of the state.
type Persistence interface {
	SaveConfig(ctx context.Context, cfg models.GlobalConfig) error
	LoadConfig(ctx context.Context) (models.GlobalConfig, bool, error)
	UpsertPosition(ctx context.Context, p models.Position) error
	RemovePosition(ctx context.Context, id uuid.UUID) error
	LoadAllPositions(ctx context.Context) ([]models.Position, error)
	UpsertWatchItem(ctx context.Context, item models.MonitoredItem) error
	RemoveWatchItem(ctx context.Context, itemID int) error
	LoadWatchItems(ctx context.Context) ([]models.MonitoredItem, error)
}

// Notifier accepts outbound messages. Enqueue must not block.
type Notifier interface {
	Enqueue(m notify.Message)
}

var _ monitor.Store = (*Store)(nil)

type Store struct {
	mu            sync.RWMutex
	config        models.GlobalConfig
	items         map[int]models.MonitoredItem
	alerts        []*models.Alert
	notifications []models.Notification
	suppressed    map[int]struct{}
	latest        map[int]models.LatestPrice
	ledger        *ledger.Ledger
	stats         *monitor.RollingStats

	persist  Persistence
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store seeded with defaults. A nil Persistence or Notifier
// disables durability or outbound delivery.
func New(p Persistence, n Notifier, defaults models.GlobalConfig, opts ...Option) *Store {
	if p == nil {
		p = NopPersistence{}
	}
	s := &Store{
		config:     defaults.Normalize(),
		items:      make(map[int]models.MonitoredItem),
		suppressed: make(map[int]struct{}),
		latest:     make(map[int]models.LatestPrice),
		persist:    p,
		notifier:   n,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.NewWithClock(s.now)
	s.stats = monitor.NewRollingStats(func() int { return s.Config().WindowSize() })
	return s
}

// Load restores settings, watchlist and positions from persistence.
func (s *Store) Load(ctx context.Context) error {
	cfg, ok, err := s.persist.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	items, err := s.persist.LoadWatchItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to load watchlist: %w", err)
	}
	positions, err := s.persist.LoadAllPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load positions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		cfg = cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			s.logger.Warn("ignoring invalid persisted settings", zap.Error(err))
		} else {
			s.config = cfg
		}
	}
	for _, it := range items {
		s.items[it.ID] = it
	}
	s.ledger.Restore(positions)

	s.logger.Info("state restored",
		zap.Int("items", len(items)),
		zap.Int("positions", len(positions)),
		zap.Bool("persisted_settings", ok))
	return nil
}

// Config returns a copy of the current settings.
func (s *Store) Config() models.GlobalConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateConfig applies a partial update. The new settings replace the old
// ones only if they validate.
func (s *Store) UpdateConfig(ctx context.Context, u models.ConfigUpdate) (models.GlobalConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.config.Apply(u).Normalize()
	if err := next.Validate(); err != nil {
		return models.GlobalConfig{}, err
	}
	s.config = next
	if err := s.persist.SaveConfig(ctx, next); err != nil {
		s.logger.Error("failed to persist settings", zap.Error(err))
	}
	return next, nil
}

func (s *Store) enqueue(m notify.Message) {
	if s.notifier != nil {
		s.notifier.Enqueue(m)
	}
}

// NopPersistence keeps nothing.
type NopPersistence struct{}

func (NopPersistence) SaveConfig(context.Context, models.GlobalConfig) error { return nil }

func (NopPersistence) LoadConfig(context.Context) (models.GlobalConfig, bool, error) {
	return models.GlobalConfig{}, false, nil
}

func (NopPersistence) UpsertPosition(context.Context, models.Position) error { return nil }

func (NopPersistence) RemovePosition(context.Context, uuid.UUID) error { return nil }

func (NopPersistence) LoadAllPositions(context.Context) ([]models.Position, error) { return nil, nil }

func (NopPersistence) UpsertWatchItem(context.Context, models.MonitoredItem) error { return nil }

func (NopPersistence) RemoveWatchItem(context.Context, int) error { return nil }

func (NopPersistence) LoadWatchItems(context.Context) ([]models.MonitoredItem, error) { return nil, nil }

func sortedIDs[T any](m map[int]T) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
