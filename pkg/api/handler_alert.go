package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// triggerAlertHandler handles POST /alerts/trigger.
func (s *Server) triggerAlertHandler(c *echo.Context) error {
	payload, err := s.alerts.Trigger()
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, payload)
}

// verifyRecoveryHandler handles POST /alerts/verify. The verdict is a
// point-in-time read, independent of the monitor's windowed evaluation.
func (s *Server) verifyRecoveryHandler(c *echo.Context) error {
	result, err := s.metrics.Verify(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, result)
}
