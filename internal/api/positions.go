package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rewired-gh/gemonitor/internal/ledger"
	"github.com/rewired-gh/gemonitor/internal/models"
	"github.com/rewired-gh/gemonitor/internal/osrs"
)

func (s *Server) listPositions(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Positions())
}

func (s *Server) getPosition(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid position ID")
	}
	p, err := s.store.Position(id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

type createPositionRequest struct {
	ItemID   int        `json:"itemId"`
	ItemName string     `json:"itemName"`
	Quantity int        `json:"quantity"`
	BuyPrice float64    `json:"buyPrice"`
	BoughtAt *time.Time `json:"boughtAt"`
}

func (s *Server) addPosition(c echo.Context) error {
	var req createPositionRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}
	p, err := s.store.AddPosition(c.Request().Context(), ledger.NewPosition{
		ItemID:   req.ItemID,
		ItemName: req.ItemName,
		Quantity: req.Quantity,
		BuyPrice: req.BuyPrice,
		BoughtAt: req.BoughtAt,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

type manualPositionRequest struct {
	ItemName string     `json:"itemName"`
	ItemID   *int       `json:"itemId"`
	Quantity int        `json:"quantity"`
	BuyPrice float64    `json:"buyPrice"`
	BoughtAt *time.Time `json:"boughtAt"`
}

// addManualPosition records a trade the user typed in by hand. The item is
// taken as given when both id and name are sent, otherwise it is resolved
// through the catalog by id, then exact name, then fuzzy name.
func (s *Server) addManualPosition(c echo.Context) error {
	var req manualPositionRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}
	if req.Quantity <= 0 {
		return badRequest(c, "Quantity must be greater than zero")
	}
	if req.BuyPrice <= 0 {
		return badRequest(c, "Buy price must be greater than zero")
	}
	name := strings.TrimSpace(req.ItemName)
	if req.ItemID == nil && name == "" {
		return badRequest(c, "Item name is required")
	}

	match, ok, err := s.resolveManualItem(c, req.ItemID, name)
	if err != nil {
		return s.respondError(c, fmt.Errorf("catalog lookup: %w", err))
	}
	if !ok {
		return badRequest(c, "No catalog item found matching that name")
	}

	p, err := s.store.AddPosition(c.Request().Context(), ledger.NewPosition{
		ItemID:   match.ID,
		ItemName: match.Name,
		Quantity: req.Quantity,
		BuyPrice: req.BuyPrice,
		BoughtAt: req.BoughtAt,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) resolveManualItem(c echo.Context, itemID *int, name string) (osrs.CatalogItem, bool, error) {
	ctx := c.Request().Context()
	if itemID != nil && name != "" {
		return osrs.CatalogItem{ID: *itemID, Name: name}, true, nil
	}
	if itemID != nil {
		match, ok, err := s.catalog.FindByID(ctx, *itemID)
		if err != nil || ok {
			return match, ok, err
		}
	}
	if name == "" {
		return osrs.CatalogItem{}, false, nil
	}
	match, ok, err := s.catalog.FindByName(ctx, name)
	if err != nil || ok {
		return match, ok, err
	}
	return s.catalog.FindByNameFuzzy(ctx, name)
}

type sellPositionRequest struct {
	SellPrice float64 `json:"sellPrice"`
	Quantity  *int    `json:"quantity"`
}

type sellPositionResponse struct {
	Sold      models.Position  `json:"sold"`
	Remaining *models.Position `json:"remaining,omitempty"`
}

func (s *Server) sellPosition(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid position ID")
	}
	var req sellPositionRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}
	sold, remaining, err := s.store.SellPosition(c.Request().Context(), id, req.SellPrice, req.Quantity)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, sellPositionResponse{Sold: sold, Remaining: remaining})
}

type buyPriceRequest struct {
	BuyPrice float64 `json:"buyPrice"`
}

func (s *Server) updateBuyPrice(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid position ID")
	}
	var req buyPriceRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}
	p, err := s.store.UpdateBuyPrice(c.Request().Context(), id, req.BuyPrice)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

type increaseQuantityRequest struct {
	Quantity int     `json:"quantity"`
	BuyPrice float64 `json:"buyPrice"`
}

func (s *Server) increaseQuantity(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid position ID")
	}
	var req increaseQuantityRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}
	p, err := s.store.IncreaseQuantity(c.Request().Context(), id, req.Quantity, req.BuyPrice)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) acknowledgePosition(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid position ID")
	}
	p, err := s.store.AcknowledgePosition(c.Request().Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) removePosition(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid position ID")
	}
	if err := s.store.RemovePosition(c.Request().Context(), id); err != nil {
		return s.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) positionSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.PositionSummary())
}

func (s *Server) profitHistory(c echo.Context) error {
	var itemID *int
	if raw := c.QueryParam("itemId"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "Invalid itemId")
		}
		itemID = &v
	}
	history := s.store.ProfitHistory(itemID)
	if history == nil {
		history = []ledger.ProfitPoint{}
	}
	return c.JSON(http.StatusOK, history)
}
