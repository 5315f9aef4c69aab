package monitor

import (
	"math"
	"sync"

	"github.com/rewired-gh/gemonitor/internal/models"
)

// Stats summarizes a rolling window with population statistics.
type Stats struct {
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"standardDeviation"`
	SampleSize int     `json:"sampleSize"`
}

// RollingStats keeps a bounded price history per item. The bound is read from
// windowSize on every insert, so a smaller setting trims the window on the next
// observation.
type RollingStats struct {
	mu         sync.RWMutex
	windows    map[int][]models.PricePoint
	windowSize func() int
}

func NewRollingStats(windowSize func() int) *RollingStats {
	if windowSize == nil {
		windowSize = func() int { return models.DefaultGlobalConfig().RollingWindowSize }
	}
	return &RollingStats{
		windows:    make(map[int][]models.PricePoint),
		windowSize: windowSize,
	}
}

// AddPricePoint appends point and evicts the oldest points beyond the bound.
func (r *RollingStats) AddPricePoint(itemID int, point models.PricePoint) {
	bound := r.windowSize()
	if bound < models.MinRollingWindowSize {
		bound = models.MinRollingWindowSize
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	w := append(r.windows[itemID], point)
	if over := len(w) - bound; over > 0 {
		// copy so the evicted prefix can be collected
		w = append([]models.PricePoint(nil), w[over:]...)
	}
	r.windows[itemID] = w
}

// GetRollingStats returns the mean, standard deviation and sample size for
// itemID. An item with no samples yields the zero Stats.
func (r *RollingStats) GetRollingStats(itemID int) Stats {
	r.mu.RLock()
	w := r.windows[itemID]
	prices := make([]float64, len(w))
	for i, p := range w {
		prices[i] = p.Price
	}
	r.mu.RUnlock()
	return ComputeStats(prices)
}

// Window returns a copy of the points currently held for itemID, oldest first.
func (r *RollingStats) Window(itemID int) []models.PricePoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.PricePoint(nil), r.windows[itemID]...)
}

// Remove forgets the history of itemID.
func (r *RollingStats) Remove(itemID int) {
	r.mu.Lock()
	delete(r.windows, itemID)
	r.mu.Unlock()
}

// ComputeStats returns the population mean and standard deviation of prices.
func ComputeStats(prices []float64) Stats {
	n := len(prices)
	if n == 0 {
		return Stats{}
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(n)

	var sq float64
	for _, p := range prices {
		d := p - mean
		sq += d * d
	}
	return Stats{
		Mean:       mean,
		StdDev:     math.Sqrt(sq / float64(n)),
		SampleSize: n,
	}
}
