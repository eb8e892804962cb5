package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/watchops/incident-console/pkg/state"
)

// metricsTestHandler handles POST /metrics/test. Probes the endpoint with
// the submitted settings without saving them.
func (s *Server) metricsTestHandler(c *echo.Context) error {
	var req MetricsTestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sample, err := s.metrics.Test(c.Request().Context(), state.MetricsSettings{
		URL:       strings.TrimSpace(req.URL),
		HTTPQuery: strings.TrimSpace(req.HTTPQuery),
		CPUQuery:  strings.TrimSpace(req.CPUQuery),
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, MetricsTestResponse{HTTP: sample.HTTP, CPU: sample.CPU})
}

// metricsSaveHandler handles POST /metrics/save.
func (s *Server) metricsSaveHandler(c *echo.Context) error {
	var req MetricsSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	httpThreshold := strings.TrimSpace(req.HTTPThreshold)
	if httpThreshold == "" {
		httpThreshold = "0.05"
	}
	cpuThreshold := strings.TrimSpace(req.CPUThreshold)
	if cpuThreshold == "" {
		cpuThreshold = "0.80"
	}
	message, err := s.metrics.Save(state.MetricsSettings{
		URL:           strings.TrimSpace(req.URL),
		HTTPQuery:     strings.TrimSpace(req.HTTPQuery),
		HTTPThreshold: httpThreshold,
		CPUQuery:      strings.TrimSpace(req.CPUQuery),
		CPUThreshold:  cpuThreshold,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: message})
}
