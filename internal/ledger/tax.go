package ledger

import (
	"github.com/shopspring/decimal"
)

const (
	// TaxRate is the Grand Exchange sale tax.
	TaxRate = 0.02
	// TaxFreeBelow is the unit price under which no tax is charged.
	TaxFreeBelow = 100
	// MaxTaxPerUnit caps the tax on a single unit.
	MaxTaxPerUnit = 5_000_000
)

var (
	taxRate       = decimal.NewFromFloat(TaxRate)
	taxFreeBelow  = decimal.NewFromInt(TaxFreeBelow)
	maxTaxPerUnit = decimal.NewFromInt(MaxTaxPerUnit)
)

// TaxPerUnit returns the tax charged on one unit sold at price.
func TaxPerUnit(price float64) float64 {
	return taxPerUnit(decimal.NewFromFloat(price)).InexactFloat64()
}

func taxPerUnit(price decimal.Decimal) decimal.Decimal {
	if price.LessThan(taxFreeBelow) {
		return decimal.Zero
	}
	return decimal.Min(price.Mul(taxRate).Floor(), maxTaxPerUnit)
}

// Sale is the settlement of selling qty units bought at buyPrice for sellPrice.
type Sale struct {
	TaxPerUnit float64
	TaxRate    float64
	TaxPaid    float64
	Profit     float64
}

// Settle computes tax and net profit for a sale.
func Settle(buyPrice, sellPrice float64, qty int) Sale {
	sell := decimal.NewFromFloat(sellPrice)
	buy := decimal.NewFromFloat(buyPrice)
	q := decimal.NewFromInt(int64(qty))

	perUnit := taxPerUnit(sell)
	paid := perUnit.Mul(q)
	profit := sell.Mul(q).Sub(buy.Mul(q)).Sub(paid)

	rate := 0.0
	if perUnit.IsPositive() {
		rate = TaxRate
	}
	return Sale{
		TaxPerUnit: perUnit.InexactFloat64(),
		TaxRate:    rate,
		TaxPaid:    paid.InexactFloat64(),
		Profit:     profit.InexactFloat64(),
	}
}

// Reprice recomputes profit after a buy-price correction, keeping the tax
// that was charged at sale time.
func Reprice(buyPrice, sellPrice, taxPaid float64, qty int) float64 {
	q := decimal.NewFromInt(int64(qty))
	return decimal.NewFromFloat(sellPrice).Mul(q).
		Sub(decimal.NewFromFloat(buyPrice).Mul(q)).
		Sub(decimal.NewFromFloat(taxPaid)).
		InexactFloat64()
}
