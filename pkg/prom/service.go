package prom

import (
	"context"
	"fmt"
	"strings"

	"github.com/watchops/incident-console/pkg/config"
	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/services"
	"github.com/watchops/incident-console/pkg/state"
)

// Querier runs instant queries against a metrics endpoint.
type Querier interface {
	InstantValue(ctx context.Context, baseURL, query string) (float64, error)
}

// Service validates metrics settings, samples the endpoint, and evaluates
// point-in-time recovery for the console.
type Service struct {
	store  *state.Store
	client Querier
}

// NewService creates a metrics service over the shared state store.
func NewService(store *state.Store, client Querier) *Service {
	return &Service{store: store, client: client}
}

// VerifyResult is the outcome of a point-in-time recovery verification. The
// verdict is independent of the windowed evaluation used by the monitor.
type VerifyResult struct {
	HTTP          float64 `json:"http"`
	CPU           float64 `json:"cpu"`
	HTTPThreshold float64 `json:"http_threshold"`
	CPUThreshold  float64 `json:"cpu_threshold"`
	Status        string  `json:"status"`
}

// Test probes the given settings without saving them and returns the sample
// the endpoint produced.
func (s *Service) Test(ctx context.Context, settings state.MetricsSettings) (models.MetricSample, error) {
	return s.sample(ctx, settings)
}

// Save validates and persists metrics settings. Thresholds must parse; the
// endpoint itself is not probed.
func (s *Service) Save(settings state.MetricsSettings) (string, error) {
	if _, err := config.ParseThreshold(settings.HTTPThreshold, config.DefaultHTTPThreshold); err != nil {
		return "", services.NewValidationError("invalid HTTP threshold: %v", err)
	}
	if _, err := config.ParseThreshold(settings.CPUThreshold, config.DefaultCPUThreshold); err != nil {
		return "", services.NewValidationError("invalid CPU threshold: %v", err)
	}
	target := settings.URL
	if strings.TrimSpace(target) == "" {
		target = "(unset)"
	}
	message := fmt.Sprintf("Prometheus settings saved (%s)", target)
	s.store.SetMetrics(settings, message)
	return message, nil
}

// FetchMetrics samples the configured endpoint once. Incomplete settings are
// a ValidationError so the monitor can skip the tick silently.
func (s *Service) FetchMetrics(ctx context.Context) (models.MetricSample, error) {
	return s.sample(ctx, s.store.Metrics())
}

// Verify samples the configured endpoint and reports whether both metrics
// currently sit at or below their thresholds.
func (s *Service) Verify(ctx context.Context) (VerifyResult, error) {
	sample, err := s.sample(ctx, s.store.Metrics())
	if err != nil {
		return VerifyResult{}, err
	}
	status := models.RecoveryRecovered
	if sample.AnyExceeded() {
		status = models.RecoveryPending
	}
	s.store.AppendFeed(fmt.Sprintf(
		"Verification http=%.4f (threshold %.4f), cpu=%.4f (threshold %.4f)",
		sample.HTTP, sample.HTTPThreshold, sample.CPU, sample.CPUThreshold))
	return VerifyResult{
		HTTP:          sample.HTTP,
		CPU:           sample.CPU,
		HTTPThreshold: sample.HTTPThreshold,
		CPUThreshold:  sample.CPUThreshold,
		Status:        status,
	}, nil
}

func (s *Service) sample(ctx context.Context, settings state.MetricsSettings) (models.MetricSample, error) {
	baseURL := strings.TrimSpace(settings.URL)
	if baseURL == "" {
		return models.MetricSample{}, services.NewValidationError("Prometheus base URL is not configured")
	}
	if strings.TrimSpace(settings.HTTPQuery) == "" || strings.TrimSpace(settings.CPUQuery) == "" {
		return models.MetricSample{}, services.NewValidationError("Prometheus HTTP and CPU queries must be configured")
	}
	httpThreshold, err := config.ParseThreshold(settings.HTTPThreshold, config.DefaultHTTPThreshold)
	if err != nil {
		return models.MetricSample{}, services.NewValidationError("invalid HTTP threshold: %v", err)
	}
	cpuThreshold, err := config.ParseThreshold(settings.CPUThreshold, config.DefaultCPUThreshold)
	if err != nil {
		return models.MetricSample{}, services.NewValidationError("invalid CPU threshold: %v", err)
	}

	httpVal, err := s.client.InstantValue(ctx, baseURL, settings.HTTPQuery)
	if err != nil {
		return models.MetricSample{}, err
	}
	cpuVal, err := s.client.InstantValue(ctx, baseURL, settings.CPUQuery)
	if err != nil {
		return models.MetricSample{}, err
	}
	return models.NewSample(httpVal, httpThreshold, cpuVal, cpuThreshold), nil
}
