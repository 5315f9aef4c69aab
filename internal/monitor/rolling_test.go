package monitor

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rewired-gh/gemonitor/internal/models"
)

func point(price float64) models.PricePoint {
	return models.PricePoint{Timestamp: time.Now(), Price: price}
}

func TestComputeStats_Population(t *testing.T) {
	s := ComputeStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Mean != 5 {
		t.Errorf("Mean = %v, want 5", s.Mean)
	}
	if s.StdDev != 2 {
		t.Errorf("StdDev = %v, want 2 (population)", s.StdDev)
	}
	if s.SampleSize != 8 {
		t.Errorf("SampleSize = %d, want 8", s.SampleSize)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	if s := ComputeStats(nil); s != (Stats{}) {
		t.Errorf("ComputeStats(nil) = %+v, want zero", s)
	}
}

func TestRollingStats_EvictsOldest(t *testing.T) {
	r := NewRollingStats(func() int { return 3 })
	for _, p := range []float64{100, 200, 300, 400} {
		r.AddPricePoint(1, point(p))
	}

	w := r.Window(1)
	if len(w) != 3 {
		t.Fatalf("window length = %d, want 3", len(w))
	}
	if w[0].Price != 200 || w[2].Price != 400 {
		t.Errorf("window = %v, want [200 300 400]", w)
	}
	s := r.GetRollingStats(1)
	if s.Mean != 300 || s.SampleSize != 3 {
		t.Errorf("stats = %+v, want mean 300 over 3", s)
	}
}

func TestRollingStats_BoundReadOnInsert(t *testing.T) {
	size := 5
	r := NewRollingStats(func() int { return size })
	for i := 0; i < 5; i++ {
		r.AddPricePoint(1, point(float64(i)))
	}
	size = 2
	if n := r.GetRollingStats(1).SampleSize; n != 5 {
		t.Errorf("shrinking bound should not trim before insert, got %d", n)
	}
	r.AddPricePoint(1, point(10))
	if n := r.GetRollingStats(1).SampleSize; n != 2 {
		t.Errorf("SampleSize = %d after insert, want 2", n)
	}
}

func TestRollingStats_MinimumBound(t *testing.T) {
	r := NewRollingStats(func() int { return 0 })
	r.AddPricePoint(1, point(1))
	r.AddPricePoint(1, point(2))
	s := r.GetRollingStats(1)
	if s.SampleSize != 1 || s.Mean != 2 {
		t.Errorf("stats = %+v, want single newest sample", s)
	}
}

func TestRollingStats_UnknownAndRemoved(t *testing.T) {
	r := NewRollingStats(nil)
	if s := r.GetRollingStats(42); s != (Stats{}) {
		t.Errorf("unknown item stats = %+v, want zero", s)
	}
	r.AddPricePoint(42, point(5))
	r.Remove(42)
	if s := r.GetRollingStats(42); s.SampleSize != 0 {
		t.Errorf("removed item still has %d samples", s.SampleSize)
	}
}

func TestRollingStats_Concurrent(t *testing.T) {
	r := NewRollingStats(func() int { return 50 })
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(item int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r.AddPricePoint(item%2, point(float64(i)))
				_ = r.GetRollingStats(item % 2)
			}
		}(g)
	}
	wg.Wait()

	for _, id := range []int{0, 1} {
		s := r.GetRollingStats(id)
		if s.SampleSize != 50 {
			t.Errorf("item %d SampleSize = %d, want 50", id, s.SampleSize)
		}
		if math.IsNaN(s.StdDev) {
			t.Errorf("item %d StdDev is NaN", id)
		}
	}
}
