package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/gemonitor/internal/models"
)

type fakeFeed struct {
	mu     sync.Mutex
	prices map[int]models.LatestPrice
	err    error
	calls  int
	ids    [][]int
}

func (f *fakeFeed) LatestPrices(_ context.Context, ids []int) (map[int]models.LatestPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ids = append(f.ids, ids)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int]models.LatestPrice, len(f.prices))
	for k, v := range f.prices {
		out[k] = v
	}
	return out, nil
}

func (f *fakeFeed) set(itemID int, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[itemID] = models.LatestPrice{ItemID: itemID, High: models.Float(price), Low: models.Float(price)}
}

type fakeStore struct {
	cfg       models.GlobalConfig
	items     []models.MonitoredItem
	stats     *RollingStats
	latest    map[int]models.LatestPrice
	open      map[int]models.Alert
	drops     []models.Alert
	recovered []models.Alert
	panicOn   int
}

func newFakeStore(items ...models.MonitoredItem) *fakeStore {
	s := &fakeStore{
		cfg:    models.DefaultGlobalConfig(),
		items:  items,
		latest: map[int]models.LatestPrice{},
		open:   map[int]models.Alert{},
	}
	s.stats = NewRollingStats(func() int { return s.cfg.RollingWindowSize })
	return s
}

func (s *fakeStore) Config() models.GlobalConfig  { return s.cfg }
func (s *fakeStore) Items() []models.MonitoredItem { return s.items }

func (s *fakeStore) UpdateLatestPrices(p map[int]models.LatestPrice) {
	for k, v := range p {
		s.latest[k] = v
	}
}

func (s *fakeStore) RecordPrice(itemID int, p models.PricePoint) Stats {
	if itemID == s.panicOn {
		panic("boom")
	}
	s.stats.AddPricePoint(itemID, p)
	return s.stats.GetRollingStats(itemID)
}

func (s *fakeStore) TriggerDrop(_ context.Context, item models.MonitoredItem, price float64, st Stats) (models.Alert, bool) {
	if _, ok := s.open[item.ID]; ok {
		return models.Alert{}, false
	}
	a := models.Alert{ID: uuid.New(), ItemID: item.ID, ItemName: item.Name, TriggerPrice: price, Mean: st.Mean, StandardDeviation: st.StdDev}
	s.open[item.ID] = a
	s.drops = append(s.drops, a)
	return a, true
}

func (s *fakeStore) RecoverAlert(_ context.Context, itemID int, price float64) (models.Alert, bool) {
	a, ok := s.open[itemID]
	if !ok {
		return models.Alert{}, false
	}
	delete(s.open, itemID)
	a.RecoveredPrice = models.Float(price)
	s.recovered = append(s.recovered, a)
	return a, true
}

func TestTick_EmptyWatchlistSkipsFetch(t *testing.T) {
	feed := &fakeFeed{prices: map[int]models.LatestPrice{}}
	m := New(newFakeStore(), feed, nil)
	if err := m.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if feed.calls != 0 {
		t.Errorf("feed called %d times for empty watchlist", feed.calls)
	}
}

func TestTick_BatchesAllItems(t *testing.T) {
	store := newFakeStore(models.MonitoredItem{ID: 1, Name: "a"}, models.MonitoredItem{ID: 2, Name: "b"})
	feed := &fakeFeed{prices: map[int]models.LatestPrice{}}
	feed.set(1, 100)
	m := New(store, feed, nil)

	if err := m.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if feed.calls != 1 || len(feed.ids[0]) != 2 {
		t.Errorf("expected one batched call for 2 ids, got %d calls %v", feed.calls, feed.ids)
	}
	if store.stats.GetRollingStats(1).SampleSize != 1 {
		t.Error("item 1 should have one sample")
	}
	if store.stats.GetRollingStats(2).SampleSize != 0 {
		t.Error("item 2 had no price and should have no samples")
	}
	if _, ok := store.latest[1]; !ok {
		t.Error("latest snapshot not stored")
	}
}

func TestTick_FetchErrorIsReturned(t *testing.T) {
	store := newFakeStore(models.MonitoredItem{ID: 1, Name: "a"})
	feed := &fakeFeed{err: errors.New("upstream down")}
	m := New(store, feed, nil)
	if err := m.Tick(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
}

func TestTick_DropThenRecover(t *testing.T) {
	item := models.MonitoredItem{ID: 4151, Name: "Abyssal whip"}
	store := newFakeStore(item)
	feed := &fakeFeed{prices: map[int]models.LatestPrice{}}
	m := New(store, feed, nil)
	ctx := context.Background()

	// 20 samples of 1000±10 so a single outlier can clear 3.5σ
	for i := 0; i < 20; i++ {
		p := 1010.0
		if i%2 == 1 {
			p = 990
		}
		feed.set(item.ID, p)
		if err := m.Tick(ctx); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if len(store.drops) != 0 {
		t.Fatalf("baseline produced %d drops", len(store.drops))
	}

	feed.set(item.ID, 700)
	_ = m.Tick(ctx)
	if len(store.drops) != 1 {
		t.Fatalf("expected 1 drop, got %d", len(store.drops))
	}

	// still depressed: the open alert suppresses a second drop
	feed.set(item.ID, 690)
	_ = m.Tick(ctx)
	if len(store.drops) != 1 {
		t.Errorf("re-trigger while open created another alert")
	}

	feed.set(item.ID, 1100)
	_ = m.Tick(ctx)
	if len(store.recovered) != 1 {
		t.Fatalf("expected recovery, got %d", len(store.recovered))
	}
	if got := *store.recovered[0].RecoveredPrice; got != 1100 {
		t.Errorf("recovered price = %v, want 1100", got)
	}
}

func TestTick_PanicInOneItemDoesNotStopOthers(t *testing.T) {
	store := newFakeStore(models.MonitoredItem{ID: 1, Name: "bad"}, models.MonitoredItem{ID: 2, Name: "good"})
	store.panicOn = 1
	feed := &fakeFeed{prices: map[int]models.LatestPrice{}}
	feed.set(1, 10)
	feed.set(2, 20)
	m := New(store, feed, nil)

	if err := m.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if store.stats.GetRollingStats(2).SampleSize != 1 {
		t.Error("item 2 was not processed after item 1 panicked")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := newFakeStore(models.MonitoredItem{ID: 1, Name: "a"})
	feed := &fakeFeed{err: errors.New("offline")}
	m := New(store, feed, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if feed.calls < 1 {
		t.Error("Run should tick immediately")
	}
}
