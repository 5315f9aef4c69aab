package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rewired-gh/gemonitor/internal/models"
)

func (s *Server) listWatchlist(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Items())
}

func (s *Server) getWatchItem(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	item, err := s.store.Item(id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

type addWatchItemRequest struct {
	ItemID int `json:"itemId"`
}

func (s *Server) addWatchItem(c echo.Context) error {
	var req addWatchItemRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}
	if req.ItemID <= 0 {
		return badRequest(c, "itemId must be positive")
	}

	ctx := c.Request().Context()
	entry, ok, err := s.catalog.FindByID(ctx, req.ItemID)
	if err != nil {
		return s.respondError(c, fmt.Errorf("catalog lookup: %w", err))
	}
	if !ok {
		return s.respondError(c, models.NotFound("catalog item", req.ItemID))
	}
	item, err := s.store.AddItem(ctx, entry.ID, entry.Name)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

type bulkAddRequest struct {
	Names []string `json:"names"`
}

type bulkMatch struct {
	InputName   string `json:"inputName"`
	MatchedName string `json:"matchedName"`
	ItemID      int    `json:"itemId"`
}

type bulkAddResponse struct {
	Added      []models.MonitoredItem `json:"added"`
	NotFound   []string               `json:"notFound"`
	Duplicates []string               `json:"duplicates"`
	Matched    []bulkMatch            `json:"matched"`
}

// addWatchItemsBulk resolves each name with fuzzy matching and adds the hits.
// Names already on the watchlist are reported as duplicates.
func (s *Server) addWatchItemsBulk(c echo.Context) error {
	var req bulkAddRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}
	if len(req.Names) == 0 {
		return badRequest(c, "At least one item name is required")
	}

	ctx := c.Request().Context()
	existing := make(map[int]struct{})
	for _, it := range s.store.Items() {
		existing[it.ID] = struct{}{}
	}

	resp := bulkAddResponse{
		Added:      []models.MonitoredItem{},
		NotFound:   []string{},
		Duplicates: []string{},
		Matched:    []bulkMatch{},
	}
	for _, raw := range req.Names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		entry, ok, err := s.catalog.FindByNameFuzzy(ctx, name)
		if err != nil {
			return s.respondError(c, fmt.Errorf("catalog lookup: %w", err))
		}
		if !ok {
			resp.NotFound = append(resp.NotFound, name)
			continue
		}
		if _, dup := existing[entry.ID]; dup {
			resp.Duplicates = append(resp.Duplicates, name)
			continue
		}
		item, err := s.store.AddItem(ctx, entry.ID, entry.Name)
		if err != nil {
			return s.respondError(c, err)
		}
		existing[item.ID] = struct{}{}
		resp.Added = append(resp.Added, item)
		resp.Matched = append(resp.Matched, bulkMatch{InputName: name, MatchedName: entry.Name, ItemID: entry.ID})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) removeWatchItem(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	if err := s.store.RemoveItem(c.Request().Context(), id); err != nil {
		return s.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type marketEntry struct {
	ItemID            int        `json:"itemId"`
	Name              string     `json:"name"`
	High              *float64   `json:"high,omitempty"`
	Low               *float64   `json:"low,omitempty"`
	HighTime          *time.Time `json:"highTime,omitempty"`
	LowTime           *time.Time `json:"lowTime,omitempty"`
	BuyLimit          *int       `json:"buyLimit,omitempty"`
	Mean              float64    `json:"mean"`
	StandardDeviation float64    `json:"standardDeviation"`
	SampleSize        int        `json:"sampleSize"`
}

// watchlistMarket lists the latest snapshot and rolling statistics of every
// watched item that has been priced at least once.
func (s *Server) watchlistMarket(c echo.Context) error {
	ctx := c.Request().Context()
	items := s.store.Items()
	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	latest := s.store.LatestPrices(ids)

	out := make([]marketEntry, 0, len(latest))
	for _, it := range items {
		snap, ok := latest[it.ID]
		if !ok {
			continue
		}
		stats := s.store.RollingStats(it.ID)
		entry := marketEntry{
			ItemID:            it.ID,
			Name:              it.Name,
			High:              snap.High,
			Low:               snap.Low,
			HighTime:          snap.HighTime,
			LowTime:           snap.LowTime,
			Mean:              stats.Mean,
			StandardDeviation: stats.StdDev,
			SampleSize:        stats.SampleSize,
		}
		cat, found, err := s.catalog.FindByID(ctx, it.ID)
		if err != nil {
			s.logger.Warn("catalog lookup failed", zap.Int("item_id", it.ID), zap.Error(err))
		} else if found && cat.Limit > 0 {
			limit := cat.Limit
			entry.BuyLimit = &limit
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) sendDiscordReport(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	if err := s.store.SendItemReport(id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "queued"})
}
