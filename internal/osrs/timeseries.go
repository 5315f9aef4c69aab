package osrs

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rewired-gh/gemonitor/internal/models"
)

// Timestep is the bucket width of a time series.
type Timestep string

const (
	Timestep5m  Timestep = "5m"
	Timestep1h  Timestep = "1h"
	Timestep6h  Timestep = "6h"
	Timestep24h Timestep = "24h"
)

// TTL is how long a fetched series of this timestep stays fresh.
func (t Timestep) TTL() time.Duration {
	switch t {
	case Timestep5m:
		return 3 * time.Minute
	case Timestep1h:
		return 30 * time.Minute
	case Timestep6h:
		return 2 * time.Hour
	default:
		return 6 * time.Hour
	}
}

// SelectTimestep picks the finest timestep that covers span in a sensible number of points.
func SelectTimestep(span time.Duration) Timestep {
	switch {
	case span <= 36*time.Hour:
		return Timestep5m
	case span <= 14*24*time.Hour:
		return Timestep1h
	case span <= 90*24*time.Hour:
		return Timestep6h
	default:
		return Timestep24h
	}
}

// Downsample keeps every ceil(len/maxPoints)-th point and always the last one.
func Downsample(points []models.PricePoint, maxPoints int) []models.PricePoint {
	if maxPoints <= 0 || len(points) <= maxPoints {
		return points
	}
	step := int(math.Ceil(float64(len(points)) / float64(maxPoints)))
	sampled := make([]models.PricePoint, 0, maxPoints+1)
	for i := 0; i < len(points); i += step {
		sampled = append(sampled, points[i])
	}
	last := points[len(points)-1]
	if !sampled[len(sampled)-1].Timestamp.Equal(last.Timestamp) {
		sampled = append(sampled, last)
	}
	return sampled
}

// SeriesCache persists fetched series across restarts.
type SeriesCache interface {
	LoadSeries(ctx context.Context, itemID int, timestep string) (fetchedAt time.Time, points []models.PricePoint, ok bool, err error)
	SaveSeries(ctx context.Context, itemID int, timestep string, fetchedAt time.Time, points []models.PricePoint) error
}

type seriesPoint struct {
	Timestamp    int64    `json:"timestamp"`
	AvgHighPrice *float64 `json:"avgHighPrice"`
	AvgLowPrice  *float64 `json:"avgLowPrice"`
}

type seriesResponse struct {
	Data []seriesPoint `json:"data"`
}

// TimeSeries returns the price history of an item, oldest first. Buckets with
// no trades are skipped. Results are cached per (item, timestep).
func (c *Client) TimeSeries(ctx context.Context, itemID int, timestep Timestep) ([]models.PricePoint, error) {
	key := strconv.Itoa(itemID) + ":" + string(timestep)
	if cached, ok := c.series.Get(key); ok {
		return cloneSeries(cached.([]models.PricePoint)), nil
	}

	ttl := timestep.TTL()
	now := c.now()
	if c.seriesStore != nil {
		fetchedAt, points, ok, err := c.seriesStore.LoadSeries(ctx, itemID, string(timestep))
		if err != nil {
			c.logger.Warn("failed to load cached time series", zap.Int("item_id", itemID), zap.Error(err))
		} else if ok && now.Sub(fetchedAt) < ttl {
			c.series.Set(key, points, ttl-now.Sub(fetchedAt))
			return cloneSeries(points), nil
		}
	}

	q := url.Values{}
	q.Set("timestep", string(timestep))
	q.Set("id", strconv.Itoa(itemID))

	var payload seriesResponse
	if err := c.getJSON(ctx, "/timeseries", q, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch time series for item %d: %w", itemID, err)
	}

	points := make([]models.PricePoint, 0, len(payload.Data))
	for _, p := range payload.Data {
		lp := models.LatestPrice{High: p.AvgHighPrice, Low: p.AvgLowPrice}
		price, ok := lp.Representative()
		if !ok {
			continue
		}
		points = append(points, models.PricePoint{Timestamp: time.Unix(p.Timestamp, 0).UTC(), Price: price})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })

	c.series.Set(key, points, ttl)
	if c.seriesStore != nil {
		if err := c.seriesStore.SaveSeries(ctx, itemID, string(timestep), now, points); err != nil {
			c.logger.Warn("failed to persist time series", zap.Int("item_id", itemID), zap.Error(err))
		}
	}
	return cloneSeries(points), nil
}

func cloneSeries(points []models.PricePoint) []models.PricePoint {
	return append([]models.PricePoint(nil), points...)
}
