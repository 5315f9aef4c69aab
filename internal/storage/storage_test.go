package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/gemonitor/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorage_ConfigRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if _, ok, err := s.LoadConfig(ctx); err != nil || ok {
		t.Fatalf("LoadConfig on empty db: ok=%v err=%v", ok, err)
	}

	cfg := models.DefaultGlobalConfig()
	cfg.RollingWindowSize = 12
	cfg.DiscordNotificationsEnabled = true
	cfg.DiscordWebhookURL = "https://discord.com/api/webhooks/1/abc"
	if err := s.SaveConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	cfg.RollingWindowSize = 15
	if err := s.SaveConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveConfig (overwrite): %v", err)
	}

	got, ok, err := s.LoadConfig(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadConfig: ok=%v err=%v", ok, err)
	}
	if got != cfg {
		t.Errorf("got %+v, want %+v", got, cfg)
	}
}

func TestStorage_Watchlist(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	added := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, it := range []models.MonitoredItem{
		{ID: 4151, Name: "Abyssal whip", AddedAt: added},
		{ID: 2, Name: "Cannonball", AddedAt: added.Add(time.Hour)},
	} {
		if err := s.UpsertWatchItem(ctx, it); err != nil {
			t.Fatalf("UpsertWatchItem: %v", err)
		}
	}
	// renaming keeps the original AddedAt
	if err := s.UpsertWatchItem(ctx, models.MonitoredItem{ID: 4151, Name: "Whip", AddedAt: added.Add(48 * time.Hour)}); err != nil {
		t.Fatalf("UpsertWatchItem (rename): %v", err)
	}

	items, err := s.LoadWatchItems(ctx)
	if err != nil {
		t.Fatalf("LoadWatchItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != 2 || items[1].ID != 4151 {
		t.Errorf("unexpected order: %+v", items)
	}
	if items[1].Name != "Whip" {
		t.Errorf("name not updated: %q", items[1].Name)
	}
	if !items[1].AddedAt.Equal(added) {
		t.Errorf("AddedAt changed: %v", items[1].AddedAt)
	}

	if err := s.RemoveWatchItem(ctx, 2); err != nil {
		t.Fatalf("RemoveWatchItem: %v", err)
	}
	items, _ = s.LoadWatchItems(ctx)
	if len(items) != 1 {
		t.Errorf("expected 1 item after remove, got %d", len(items))
	}
}

func TestStorage_UpsertWatchItem_Invalid(t *testing.T) {
	s := newTestStorage(t)
	err := s.UpsertWatchItem(context.Background(), models.MonitoredItem{ID: 0, Name: "x"})
	if !models.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestStorage_Positions(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	bought := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	open := models.Position{
		ID:       uuid.New(),
		ItemID:   1515,
		ItemName: "Yew logs",
		Quantity: 100,
		BuyPrice: 300,
		BoughtAt: bought,
	}
	sold := models.Position{
		ID:             uuid.New(),
		ItemID:         1515,
		ItemName:       "Yew logs",
		Quantity:       50,
		BuyPrice:       300,
		BoughtAt:       bought.Add(-time.Hour),
		AcknowledgedAt: models.Time(bought),
		SellPrice:      models.Float(350),
		SoldAt:         models.Time(bought.Add(time.Hour)),
		TaxRateApplied: models.Float(0.02),
		TaxPaid:        models.Float(350),
		Profit:         models.Float(2150),
	}
	for _, p := range []models.Position{open, sold} {
		if err := s.UpsertPosition(ctx, p); err != nil {
			t.Fatalf("UpsertPosition: %v", err)
		}
	}
	open.Quantity = 80
	if err := s.UpsertPosition(ctx, open); err != nil {
		t.Fatalf("UpsertPosition (update): %v", err)
	}

	got, err := s.LoadAllPositions(ctx)
	if err != nil {
		t.Fatalf("LoadAllPositions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(got))
	}
	if got[0].ID != open.ID || got[0].Quantity != 80 {
		t.Errorf("unexpected first position: %+v", got[0])
	}
	if got[0].SoldAt != nil || got[0].Profit != nil {
		t.Errorf("open position should have no sale fields: %+v", got[0])
	}
	s2 := got[1]
	if !s2.IsSold() || *s2.Profit != 2150 || *s2.TaxPaid != 350 || *s2.SellPrice != 350 {
		t.Errorf("sold position not restored: %+v", s2)
	}
	if !s2.AcknowledgedAt.Equal(bought) {
		t.Errorf("AcknowledgedAt = %v, want %v", s2.AcknowledgedAt, bought)
	}

	if err := s.RemovePosition(ctx, sold.ID); err != nil {
		t.Fatalf("RemovePosition: %v", err)
	}
	got, _ = s.LoadAllPositions(ctx)
	if len(got) != 1 {
		t.Errorf("expected 1 position after remove, got %d", len(got))
	}
}

func TestStorage_SeriesCache(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if _, _, ok, err := s.LoadSeries(ctx, 2, "5m"); err != nil || ok {
		t.Fatalf("LoadSeries miss: ok=%v err=%v", ok, err)
	}

	fetched := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []models.PricePoint{
		{Timestamp: fetched.Add(-10 * time.Minute), Price: 190},
		{Timestamp: fetched.Add(-5 * time.Minute), Price: 195.5},
	}
	if err := s.SaveSeries(ctx, 2, "5m", fetched, points); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}
	if err := s.SaveSeries(ctx, 2, "1h", fetched, nil); err != nil {
		t.Fatalf("SaveSeries (empty): %v", err)
	}

	at, got, ok, err := s.LoadSeries(ctx, 2, "5m")
	if err != nil || !ok {
		t.Fatalf("LoadSeries: ok=%v err=%v", ok, err)
	}
	if !at.Equal(fetched) {
		t.Errorf("fetchedAt = %v, want %v", at, fetched)
	}
	if len(got) != 2 || got[1].Price != 195.5 || !got[0].Timestamp.Equal(points[0].Timestamp) {
		t.Errorf("unexpected points: %+v", got)
	}

	_, got, ok, _ = s.LoadSeries(ctx, 2, "1h")
	if !ok || len(got) != 0 {
		t.Errorf("expected empty cached series, got ok=%v %+v", ok, got)
	}
}

func TestStorage_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.UpsertWatchItem(ctx, models.MonitoredItem{ID: 2, Name: "Cannonball", AddedAt: time.Now()}); err != nil {
		t.Fatalf("UpsertWatchItem: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	items, err := s.LoadWatchItems(ctx)
	if err != nil {
		t.Fatalf("LoadWatchItems: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Cannonball" {
		t.Errorf("unexpected items after reopen: %+v", items)
	}
}
