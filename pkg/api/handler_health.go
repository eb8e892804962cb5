package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// healthHandler handles GET /health. Minimal unauthenticated liveness probe.
func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// stateHandler handles GET /state. A pure read; the snapshot shares no
// memory with the live state.
func (s *Server) stateHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.alerts.GetState())
}
