// Package api exposes the monitor state over a JSON HTTP API.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rewired-gh/gemonitor/internal/datastore"
	"github.com/rewired-gh/gemonitor/internal/models"
	"github.com/rewired-gh/gemonitor/internal/osrs"
)

// Catalog resolves item names and ids. Implemented by osrs.Catalog.
type Catalog interface {
	FindByID(ctx context.Context, id int) (osrs.CatalogItem, bool, error)
	FindByName(ctx context.Context, name string) (osrs.CatalogItem, bool, error)
	FindByNameFuzzy(ctx context.Context, name string) (osrs.CatalogItem, bool, error)
	Search(ctx context.Context, query string, limit int) ([]osrs.CatalogItem, error)
}

// PriceHistory serves historical prices. Implemented by osrs.Client.
type PriceHistory interface {
	TimeSeries(ctx context.Context, itemID int, timestep osrs.Timestep) ([]models.PricePoint, error)
}

type Server struct {
	store   *datastore.Store
	catalog Catalog
	prices  PriceHistory
	logger  *zap.Logger
	now     func() time.Time
}

func NewServer(store *datastore.Store, catalog Catalog, prices PriceHistory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:   store,
		catalog: catalog,
		prices:  prices,
		logger:  logger,
		now:     time.Now,
	}
}

// Echo builds an echo instance with every route mounted under /api.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s.RegisterRoutes(e.Group("/api"))
	return e
}

func (s *Server) RegisterRoutes(g *echo.Group) {
	g.GET("/config", s.getConfig)
	g.PUT("/config", s.updateConfig)
	g.POST("/config/discord-test", s.sendDiscordTest)

	g.GET("/watchlist", s.listWatchlist)
	g.GET("/watchlist/market", s.watchlistMarket)
	g.GET("/watchlist/:id", s.getWatchItem)
	g.POST("/watchlist", s.addWatchItem)
	g.POST("/watchlist/bulk", s.addWatchItemsBulk)
	g.DELETE("/watchlist/:id", s.removeWatchItem)
	g.POST("/watchlist/:id/discord-report", s.sendDiscordReport)

	g.GET("/alerts", s.listAlerts)
	g.GET("/alerts/:id", s.getAlert)
	g.POST("/alerts/:id/acknowledge", s.acknowledgeAlert)
	g.DELETE("/alerts/:id", s.removeAlert)

	g.GET("/positions", s.listPositions)
	g.GET("/positions/summary", s.positionSummary)
	g.GET("/positions/history", s.profitHistory)
	g.GET("/positions/:id", s.getPosition)
	g.POST("/positions", s.addPosition)
	g.POST("/positions/manual", s.addManualPosition)
	g.POST("/positions/:id/sell", s.sellPosition)
	g.POST("/positions/:id/buy-price", s.updateBuyPrice)
	g.POST("/positions/:id/increase", s.increaseQuantity)
	g.POST("/positions/:id/acknowledge", s.acknowledgePosition)
	g.DELETE("/positions/:id", s.removePosition)

	g.GET("/notifications", s.listNotifications)
	g.DELETE("/notifications", s.clearNotifications)
	g.GET("/notifications/suppressed", s.listSuppressed)
	g.DELETE("/notifications/suppressed/:itemId", s.clearSuppressed)
	g.DELETE("/notifications/:id", s.removeNotification)

	g.GET("/items", s.searchItems)

	g.GET("/prices/:id/history", s.priceHistory)
	g.GET("/prices/:id/latest", s.latestPrice)
}

// respondError maps domain errors onto status codes.
func (s *Server) respondError(c echo.Context, err error) error {
	switch {
	case models.IsValidation(err):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case models.IsNotFound(err):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	default:
		s.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func invalidPayload(c echo.Context) error {
	return badRequest(c, "Invalid request payload")
}

func intParam(c echo.Context, name string) (int, error) {
	return strconv.Atoi(c.Param(name))
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}
