// Package api exposes the incident console backend over HTTP: health and
// state snapshots, manual triggers and verification, configuration saves,
// knowledge base access, action approval, and recipient management.
package api

import (
	"context"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/watchops/incident-console/pkg/actions"
	"github.com/watchops/incident-console/pkg/email"
	"github.com/watchops/incident-console/pkg/prom"
	"github.com/watchops/incident-console/pkg/rag"
	"github.com/watchops/incident-console/pkg/services"
	"github.com/watchops/incident-console/pkg/slack"
	"github.com/watchops/incident-console/pkg/state"
)

// Server is the HTTP façade over the service layer.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	logger     *slog.Logger

	store     *state.Store
	alerts    *services.AlertService
	ai        *services.AIService
	chat      *slack.Service
	metrics   *prom.Service
	actionSvc *actions.Service
	registry  *email.Registry
	knowledge *rag.Store
}

// Deps bundles the services the API fronts.
type Deps struct {
	Store     *state.Store
	Alerts    *services.AlertService
	AI        *services.AIService
	Chat      *slack.Service
	Metrics   *prom.Service
	Actions   *actions.Service
	Registry  *email.Registry
	Knowledge *rag.Store
}

// NewServer creates the API server bound to addr.
func NewServer(addr string, deps Deps) *Server {
	e := echo.New()
	s := &Server{
		echo:       e,
		httpServer: &http.Server{Addr: addr, Handler: e},
		logger:     slog.Default().With("component", "api"),
		store:      deps.Store,
		alerts:     deps.Alerts,
		ai:         deps.AI,
		chat:       deps.Chat,
		metrics:    deps.Metrics,
		actionSvc:  deps.Actions,
		registry:   deps.Registry,
		knowledge:  deps.Knowledge,
	}

	e.Use(securityHeaders(), corsHeaders())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	e := s.echo

	e.GET("/health", s.healthHandler)
	e.GET("/state", s.stateHandler)

	e.GET("/rag/documents", s.listDocumentsHandler)
	e.POST("/rag/upload", s.uploadDocumentsHandler)

	e.POST("/alerts/trigger", s.triggerAlertHandler)
	e.POST("/alerts/verify", s.verifyRecoveryHandler)

	e.POST("/chat/test", s.chatTestHandler)
	e.POST("/chat/save", s.chatSaveHandler)
	e.POST("/chat/dispatch", s.chatDispatchHandler)

	e.POST("/metrics/test", s.metricsTestHandler)
	e.POST("/metrics/save", s.metricsSaveHandler)

	e.POST("/ai/save", s.aiSaveHandler)

	e.POST("/notifications/preferences", s.preferencesHandler)
	e.GET("/notifications/emails", s.listRecipientsHandler)
	e.POST("/notifications/emails", s.addRecipientHandler)
	e.DELETE("/notifications/emails/:id", s.removeRecipientHandler)
	e.POST("/notifications/pending/:id/ack", s.ackPendingReportHandler)

	e.POST("/actions/:id/execute", s.executeActionPlanHandler)
	e.POST("/actions/:id/defer", s.deferActionPlanHandler)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP API listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting new requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
