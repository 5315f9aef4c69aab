package monitor

import (
	"math"

	"github.com/rewired-gh/gemonitor/internal/models"
)

// GETaxRate is the flat Grand Exchange sale tax applied to the drop floor.
const GETaxRate = 0.02

// minimum absolute drop once the mean is at least smallPriceCutoff
const (
	minDropAmount    = 10.0
	smallPriceCutoff = 100.0
)

// Decision is the outcome of evaluating one price against an item's baseline.
type Decision int

const (
	// Skip means the baseline is not usable yet.
	Skip Decision = iota
	// Hold means neither transition applies.
	Hold
	// Drop means the price fell far enough to open an alert.
	Drop
	// Recover means the price is back inside the recovery band.
	Recover
)

func (d Decision) String() string {
	switch d {
	case Skip:
		return "skip"
	case Hold:
		return "hold"
	case Drop:
		return "drop"
	case Recover:
		return "recover"
	default:
		return "unknown"
	}
}

// RequiredDrop returns the minimum fractional and absolute drop below mean
// that still leaves a profit after tax and the configured target.
func RequiredDrop(mean float64, cfg models.GlobalConfig) (fraction, amount float64) {
	fraction = GETaxRate + math.Max(0, cfg.ProfitTargetPercent)
	amount = mean * fraction
	if mean >= smallPriceCutoff {
		amount = math.Max(minDropAmount, amount)
	}
	return fraction, amount
}

// DropThreshold is the price below which a drop may trigger.
func DropThreshold(stats Stats, cfg models.GlobalConfig) float64 {
	return stats.Mean - cfg.StandardDeviationThreshold*stats.StdDev
}

// RecoveryThreshold is the price at or above which an open alert recovers.
func RecoveryThreshold(stats Stats, cfg models.GlobalConfig) float64 {
	return stats.Mean - cfg.RecoveryStandardDeviationThreshold*stats.StdDev
}

// ClearsProfitFloor reports whether price sits far enough under mean for a
// flip to pay for itself.
func ClearsProfitFloor(price, mean float64, cfg models.GlobalConfig) bool {
	if mean <= 0 {
		return false
	}
	fraction, amount := RequiredDrop(mean, cfg)
	drop := mean - price
	return drop >= amount && drop/mean >= fraction
}

// Evaluate classifies price against stats. Drop takes precedence over Recover.
func Evaluate(price float64, stats Stats, cfg models.GlobalConfig) Decision {
	if stats.SampleSize < 2 || stats.StdDev <= 0 {
		return Skip
	}
	if price < DropThreshold(stats, cfg) && ClearsProfitFloor(price, stats.Mean, cfg) {
		return Drop
	}
	if RecoveryReached(price, stats, cfg) {
		return Recover
	}
	return Hold
}

// RecoveryReached reports whether price is inside the recovery band.
func RecoveryReached(price float64, stats Stats, cfg models.GlobalConfig) bool {
	return price >= RecoveryThreshold(stats, cfg)
}
