// Package simulator hosts the embedded action simulator: a small HTTP
// service that acknowledges remediation actions, plus the client and starter
// the backend uses to reach it.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/watchops/incident-console/pkg/models"
)

// App is the simulator HTTP service. It simulates remediation runs; every
// well-formed action succeeds.
type App struct {
	echo   *echo.Echo
	server *http.Server
	logger *slog.Logger
}

// NewApp creates the simulator service bound to the given address.
func NewApp(addr string) *App {
	e := echo.New()
	a := &App{
		echo:   e,
		server: &http.Server{Addr: addr, Handler: e},
		logger: slog.Default().With("component", "action-simulator"),
	}
	e.GET("/health", a.healthHandler)
	e.POST("/execute", a.executeHandler)
	return a
}

// Start begins serving in a background goroutine. Listen errors other than a
// clean shutdown are logged.
func (a *App) Start() {
	go func() {
		a.logger.Info("Action simulator listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("Action simulator stopped", "error", err)
		}
	}()
}

// Shutdown stops the simulator service.
func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *App) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type executeRequest struct {
	ExecutionID string `json:"execution_id"`
	Action      string `json:"action"`
}

type executeResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	Detail      string `json:"detail"`
	ExecutedAt  string `json:"executed_at"`
}

func (a *App) executeHandler(c *echo.Context) error {
	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "action is required")
	}
	a.logger.Info("Simulating action", "execution_id", req.ExecutionID, "action", action)
	return c.JSON(http.StatusOK, executeResponse{
		ExecutionID: req.ExecutionID,
		Status:      "success",
		Detail:      fmt.Sprintf("Simulated run completed for '%s'.", action),
		ExecutedAt:  models.UTCNow(),
	})
}
