package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rewired-gh/gemonitor/internal/models"
)

func (s *Server) getConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Config())
}

func (s *Server) updateConfig(c echo.Context) error {
	var req models.ConfigUpdate
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}
	cfg, err := s.store.UpdateConfig(c.Request().Context(), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

type discordTestRequest struct {
	Message string `json:"message"`
}

func (s *Server) sendDiscordTest(c echo.Context) error {
	var req discordTestRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}
	if err := s.store.SendTestNotification(req.Message); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "queued"})
}
