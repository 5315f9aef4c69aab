package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rewired-gh/gemonitor/internal/models"
)

// listAlerts accepts status=active|recovered; anything else lists all alerts.
func (s *Server) listAlerts(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Alerts(c.QueryParam("status")))
}

func (s *Server) getAlert(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid alert ID")
	}
	alert, err := s.store.Alert(id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, alert)
}

type acknowledgeAlertRequest struct {
	Quantity int `json:"quantity"`
}

type acknowledgeAlertResponse struct {
	Alert    models.Alert     `json:"alert"`
	Position *models.Position `json:"position,omitempty"`
}

func (s *Server) acknowledgeAlert(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid alert ID")
	}
	var req acknowledgeAlertRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}
	alert, pos, err := s.store.AcknowledgeAlert(c.Request().Context(), id, req.Quantity)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, acknowledgeAlertResponse{Alert: alert, Position: pos})
}

func (s *Server) removeAlert(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid alert ID")
	}
	if err := s.store.RemoveAlert(id); err != nil {
		return s.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
