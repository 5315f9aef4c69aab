package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rewired-gh/gemonitor/internal/models"
	"github.com/rewired-gh/gemonitor/internal/osrs"
)

const defaultHistorySpan = 30 * 24 * time.Hour

func (s *Server) searchItems(c echo.Context) error {
	items, err := s.catalog.Search(c.Request().Context(), c.QueryParam("query"), osrs.DefaultSearchLimit)
	if err != nil {
		return s.respondError(c, fmt.Errorf("catalog search: %w", err))
	}
	return c.JSON(http.StatusOK, items)
}

// priceHistory serves the series between from and to (default: the last 30
// days). The timestep is picked from the span and the result is thinned to
// maxPoints when given.
func (s *Server) priceHistory(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	maxPoints := 0
	if raw := c.QueryParam("maxPoints"); raw != "" {
		maxPoints, err = strconv.Atoi(raw)
		if err != nil || maxPoints <= 0 {
			return badRequest(c, "maxPoints must be greater than zero")
		}
	}
	from, err := parseTimestamp(c.QueryParam("from"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	to, err := parseTimestamp(c.QueryParam("to"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-defaultHistorySpan)
	}
	if from.After(to) {
		return badRequest(c, "'from' must be earlier than 'to'")
	}

	series, err := s.prices.TimeSeries(c.Request().Context(), id, osrs.SelectTimestep(to.Sub(from)))
	if err != nil {
		return s.respondError(c, fmt.Errorf("fetch time series: %w", err))
	}
	filtered := make([]models.PricePoint, 0, len(series))
	for _, p := range series {
		if p.Timestamp.Before(from) || p.Timestamp.After(to) {
			continue
		}
		filtered = append(filtered, p)
	}
	return c.JSON(http.StatusOK, osrs.Downsample(filtered, maxPoints))
}

func (s *Server) latestPrice(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	series, err := s.prices.TimeSeries(c.Request().Context(), id, osrs.Timestep5m)
	if err != nil {
		return s.respondError(c, fmt.Errorf("fetch time series: %w", err))
	}
	if len(series) == 0 {
		return s.respondError(c, models.NotFound("price history for item", id))
	}
	// series are sorted ascending
	return c.JSON(http.StatusOK, series[len(series)-1])
}

// parseTimestamp accepts RFC 3339 or a bare date. An empty string yields the zero time.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q, use ISO-8601 format", raw)
}
