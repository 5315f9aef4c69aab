package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	l := New()
	sell := func(itemID int, name string, qty int, buy, sellAt float64) {
		t.Helper()
		p, err := l.Add(NewPosition{ItemID: itemID, ItemName: name, Quantity: qty, BuyPrice: buy})
		require.NoError(t, err)
		_, _, err = l.Sell(p.ID, sellAt, nil)
		require.NoError(t, err)
	}

	sell(1515, "Yew logs", 2, 900, 1000)                // +160, tax 40
	sell(1515, "Yew logs", 1, 1000, 900)                // -118, tax 18
	sell(4151, "Abyssal whip", 1, 1_500_000, 1_600_000) // +68000, tax 32000
	_, err := l.Add(NewPosition{ItemID: 1515, ItemName: "Yew logs", Quantity: 9, BuyPrice: 1})
	require.NoError(t, err)

	s := l.Summary()
	assert.Equal(t, 160.0-118.0+68000.0, s.TotalProfit)
	assert.Equal(t, 40.0+18.0+32000.0, s.TotalTax)
	require.Len(t, s.PerItem, 2)

	whip := s.PerItem[0]
	assert.Equal(t, 4151, whip.ItemID)
	assert.Equal(t, 1, whip.Count)
	assert.Equal(t, 1.0, whip.WinRate)

	logs := s.PerItem[1]
	assert.Equal(t, 2, logs.Count)
	assert.Equal(t, 42.0, logs.TotalProfit)
	assert.Equal(t, 21.0, logs.AverageProfit)
	assert.Equal(t, 0.5, logs.WinRate)
}

func TestSummary_Empty(t *testing.T) {
	s := New().Summary()
	assert.Zero(t, s.TotalProfit)
	assert.Zero(t, s.TotalTax)
	assert.Empty(t, s.PerItem)
}

func TestProfitHistory(t *testing.T) {
	day1 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 3, 23, 0, 0, 0, time.UTC)
	clock := day2
	l := NewWithClock(func() time.Time { return clock })

	sellAt := func(at time.Time, itemID, qty int, buy, sellPrice float64) {
		t.Helper()
		clock = at
		p, err := l.Add(NewPosition{ItemID: itemID, ItemName: "x", Quantity: qty, BuyPrice: buy})
		require.NoError(t, err)
		_, _, err = l.Sell(p.ID, sellPrice, nil)
		require.NoError(t, err)
	}

	// registered out of order to exercise sorting
	sellAt(day2, 1, 2, 900, 1000)               // +160
	sellAt(day1, 1, 1, 50, 80)                  // +30
	sellAt(day1.Add(2*time.Hour), 2, 1, 50, 60) // +10

	all := l.ProfitHistory(nil)
	require.Len(t, all, 2)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), all[0].Date)
	assert.Equal(t, 40.0, all[0].Profit)
	assert.Equal(t, 40.0, all[0].Cumulative)
	assert.Equal(t, 160.0, all[1].Profit)
	assert.Equal(t, 200.0, all[1].Cumulative)

	item := 1
	only := l.ProfitHistory(&item)
	require.Len(t, only, 2)
	assert.Equal(t, 30.0, only[0].Profit)
	assert.Equal(t, 190.0, only[1].Cumulative)
}
