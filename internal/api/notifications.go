package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (s *Server) listNotifications(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Notifications())
}

func (s *Server) clearNotifications(c echo.Context) error {
	s.store.ClearNotifications()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) removeNotification(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid notification ID")
	}
	if err := s.store.RemoveNotification(id); err != nil {
		return s.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type suppressedItem struct {
	ItemID int    `json:"itemId"`
	Name   string `json:"name"`
}

// listSuppressed names every item whose drop notifications are muted.
func (s *Server) listSuppressed(c echo.Context) error {
	ctx := c.Request().Context()
	ids := s.store.SuppressedDropItems()
	out := make([]suppressedItem, 0, len(ids))
	for _, id := range ids {
		name := fmt.Sprintf("Item #%d", id)
		if item, err := s.store.Item(id); err == nil {
			name = item.Name
		} else if entry, ok, err := s.catalog.FindByID(ctx, id); err != nil {
			s.logger.Warn("catalog lookup failed", zap.Int("item_id", id), zap.Error(err))
		} else if ok {
			name = entry.Name
		}
		out = append(out, suppressedItem{ItemID: id, Name: name})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) clearSuppressed(c echo.Context) error {
	id, err := intParam(c, "itemId")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	s.store.ClearDropSuppression(id)
	return c.NoContent(http.StatusNoContent)
}
