// Command incident-console runs the incident response console backend: the
// HTTP API, the metrics sampling monitor, and the embedded action simulator.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/watchops/incident-console/pkg/actions"
	"github.com/watchops/incident-console/pkg/analysis"
	"github.com/watchops/incident-console/pkg/api"
	"github.com/watchops/incident-console/pkg/config"
	"github.com/watchops/incident-console/pkg/email"
	"github.com/watchops/incident-console/pkg/incident"
	"github.com/watchops/incident-console/pkg/monitor"
	"github.com/watchops/incident-console/pkg/prom"
	"github.com/watchops/incident-console/pkg/rag"
	"github.com/watchops/incident-console/pkg/services"
	"github.com/watchops/incident-console/pkg/simulator"
	"github.com/watchops/incident-console/pkg/slack"
	"github.com/watchops/incident-console/pkg/state"
)

func main() {
	// Missing .env is fine; environment variables win either way.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	logger := slog.Default().With("component", "main")

	scenarios, err := config.LoadScenarios(filepath.Join(cfg.DataDir, "scenarios.yaml"))
	if err != nil {
		logger.Error("failed to load scenario overrides", "error", err)
		os.Exit(1)
	}

	store := state.NewStore(scenarios)

	knowledge, err := rag.NewStore(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open knowledge store", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	knowledge.Bootstrap(scenarios)

	generator := analysis.NewGenerator(knowledge, cfg.OpenAIKey)
	if cfg.OpenAIKey != "" {
		knowledge.SetEmbedder(analysis.NewOpenAIEmbedder(cfg.OpenAIKey))
	}

	alertSvc := services.NewAlertService(store)
	aiSvc := services.NewAIService(store, func(apiKey string) {
		generator.SetAPIKey(apiKey)
		if apiKey == "" {
			knowledge.SetEmbedder(nil)
			return
		}
		knowledge.SetEmbedder(analysis.NewOpenAIEmbedder(apiKey))
	})
	chatSvc := slack.NewService(store, slack.NewClient())
	metricsSvc := prom.NewService(store, prom.NewClient())

	simClient := simulator.NewClient(cfg.SimBaseURL())
	simAddr := cfg.SimHost + ":" + strconv.Itoa(cfg.SimPort)
	starter := simulator.NewStarter(simAddr, simClient)
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	if err := starter.EnsureStarted(startupCtx); err != nil {
		cancelStartup()
		logger.Error("failed to start action simulator", "addr", simAddr, "error", err)
		os.Exit(1)
	}
	cancelStartup()

	registry := email.NewRegistry(store)
	sender := email.NewSender(store, cfg.SMTP)

	actionSvc := actions.NewService(store, simClient, knowledge, sender)
	pipeline := incident.NewPipeline(store, generator, actionSvc, chatSvc, knowledge)
	mon := monitor.NewMonitor(store, metricsSvc, pipeline, knowledge, monitor.DefaultPollInterval)
	mon.Start()

	server := api.NewServer(cfg.Addr(), api.Deps{
		Store:     store,
		Alerts:    alertSvc,
		AI:        aiSvc,
		Chat:      chatSvc,
		Metrics:   metricsSvc,
		Actions:   actionSvc,
		Registry:  registry,
		Knowledge: knowledge,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("HTTP server failed", "error", err)
	}

	mon.Stop(2 * time.Second)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if err := starter.Shutdown(shutdownCtx); err != nil {
		logger.Error("action simulator shutdown failed", "error", err)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
