package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ItemSummary aggregates the sold positions of one item.
type ItemSummary struct {
	ItemID        int     `json:"itemId"`
	ItemName      string  `json:"itemName"`
	Count         int     `json:"count"`
	TotalProfit   float64 `json:"totalProfit"`
	AverageProfit float64 `json:"averageProfit"`
	WinRate       float64 `json:"winRate"`
}

// Summary aggregates realized results over all sold positions.
type Summary struct {
	TotalProfit float64       `json:"totalProfit"`
	TotalTax    float64       `json:"totalTax"`
	PerItem     []ItemSummary `json:"perItem"`
}

// ProfitPoint is one day of realized profit.
type ProfitPoint struct {
	Date       time.Time `json:"date"`
	Profit     float64   `json:"profit"`
	Cumulative float64   `json:"cumulative"`
}

type itemAgg struct {
	name   string
	count  int
	wins   int
	profit decimal.Decimal
}

// Summary totals profit and tax over sold positions, with a per-item
// breakdown ordered by total profit.
func (l *Ledger) Summary() Summary {
	totalProfit := decimal.Zero
	totalTax := decimal.Zero
	byItem := make(map[int]*itemAgg)

	for _, id := range l.order {
		p := l.positions[id]
		if !p.IsSold() {
			continue
		}
		profit := decimalOf(p.Profit)
		totalProfit = totalProfit.Add(profit)
		totalTax = totalTax.Add(decimalOf(p.TaxPaid))

		agg, ok := byItem[p.ItemID]
		if !ok {
			agg = &itemAgg{name: p.ItemName, profit: decimal.Zero}
			byItem[p.ItemID] = agg
		}
		agg.count++
		agg.profit = agg.profit.Add(profit)
		if profit.IsPositive() {
			agg.wins++
		}
	}

	perItem := make([]ItemSummary, 0, len(byItem))
	for itemID, agg := range byItem {
		n := decimal.NewFromInt(int64(agg.count))
		perItem = append(perItem, ItemSummary{
			ItemID:        itemID,
			ItemName:      agg.name,
			Count:         agg.count,
			TotalProfit:   agg.profit.InexactFloat64(),
			AverageProfit: agg.profit.Div(n).InexactFloat64(),
			WinRate:       float64(agg.wins) / float64(agg.count),
		})
	}
	sort.Slice(perItem, func(i, j int) bool {
		if perItem[i].TotalProfit != perItem[j].TotalProfit {
			return perItem[i].TotalProfit > perItem[j].TotalProfit
		}
		return perItem[i].ItemID < perItem[j].ItemID
	})

	return Summary{
		TotalProfit: totalProfit.InexactFloat64(),
		TotalTax:    totalTax.InexactFloat64(),
		PerItem:     perItem,
	}
}

// ProfitHistory buckets realized profit by UTC sale day, oldest first, with a
// running total. A non-nil itemID restricts it to that item.
func (l *Ledger) ProfitHistory(itemID *int) []ProfitPoint {
	byDay := make(map[time.Time]decimal.Decimal)
	for _, id := range l.order {
		p := l.positions[id]
		if !p.IsSold() || (itemID != nil && p.ItemID != *itemID) {
			continue
		}
		s := p.SoldAt.UTC()
		day := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] = byDay[day].Add(decimalOf(p.Profit))
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]ProfitPoint, 0, len(days))
	running := decimal.Zero
	for _, d := range days {
		running = running.Add(byDay[d])
		out = append(out, ProfitPoint{
			Date:       d,
			Profit:     byDay[d].InexactFloat64(),
			Cumulative: running.InexactFloat64(),
		})
	}
	return out
}

func decimalOf(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}
