// Package monitor runs the sampling worker: it polls the metrics endpoint,
// maintains the breach window, opens incidents on fresh breaches, and
// resolves recovery checks when the window clears.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/services"
	"github.com/watchops/incident-console/pkg/state"
)

// DefaultPollInterval is the sleep between sampling ticks.
const DefaultPollInterval = 5 * time.Second

// MetricsFetcher samples the configured metrics endpoint once.
type MetricsFetcher interface {
	FetchMetrics(ctx context.Context) (models.MetricSample, error)
}

// IncidentHandler runs the incident pipeline for a fresh breach.
type IncidentHandler interface {
	HandleIncident(ctx context.Context, scenario models.AlertScenario, sample models.MetricSample) (models.IncidentReport, error)
}

// RecoveryRecorder stamps recovery metadata onto executed action documents.
type RecoveryRecorder interface {
	MarkRecovery(executionID, status, resolvedAt string, metrics map[string]float64) bool
}

// Monitor is the long-running sampling worker.
type Monitor struct {
	store     *state.Store
	metrics   MetricsFetcher
	pipeline  IncidentHandler
	knowledge RecoveryRecorder
	interval  time.Duration
	logger    *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitor creates a sampling monitor. A non-positive interval selects the
// default.
func NewMonitor(store *state.Store, metrics MetricsFetcher, pipeline IncidentHandler, knowledge RecoveryRecorder, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		store:     store,
		metrics:   metrics,
		pipeline:  pipeline,
		knowledge: knowledge,
		interval:  interval,
		logger:    slog.Default().With("component", "monitor"),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling loop.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.run()
}

// Stop signals the loop and waits up to timeout for the current tick to
// finish.
func (m *Monitor) Stop(timeout time.Duration) {
	m.stopOnce.Do(func() { close(m.stopCh) })
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		m.logger.Warn("Monitor did not stop within timeout", "timeout", timeout)
	}
}

func (m *Monitor) run() {
	defer m.wg.Done()
	for {
		if !m.sleep(m.interval) {
			return
		}
		m.tick(context.Background())
	}
}

// sleep waits for d, returning false when a stop was requested.
func (m *Monitor) sleep(d time.Duration) bool {
	select {
	case <-m.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

// tick performs one sampling pass. Incomplete settings skip silently;
// endpoint failures land in the feed.
func (m *Monitor) tick(ctx context.Context) {
	sample, err := m.metrics.FetchMetrics(ctx)
	if err != nil {
		if services.IsUpstreamError(err) {
			m.store.AppendFeed(err.Error())
		}
		return
	}

	window, active := m.store.PushSample(sample)
	if len(window) < state.SampleWindow {
		return
	}
	latest := window[len(window)-1]

	breaches := make(map[string]models.MetricSample)
	if anyHTTPExceeded(window) {
		breaches[models.CodeHTTP5xxSurge] = representativeSample(window, latest, models.MetricSample.HTTPExceeded)
	}
	if anyCPUExceeded(window) {
		breaches[models.CodeCPUSpikeCore] = representativeSample(window, latest, models.MetricSample.CPUExceeded)
	}

	// Fixed iteration order keeps the HTTP scenario first on a dual breach.
	for _, code := range []string{models.CodeHTTP5xxSurge, models.CodeCPUSpikeCore} {
		trigger, breached := breaches[code]
		if !breached {
			continue
		}
		if _, alreadyActive := active[code]; alreadyActive {
			continue
		}
		scenario, ok := m.resolveScenario(code, trigger)
		if !ok {
			m.store.AppendFeed("No scenarios available to build incident report")
			continue
		}
		if _, err := m.pipeline.HandleIncident(ctx, scenario, trigger); err != nil {
			m.logger.Error("Incident pipeline failed", "scenario", scenario.Code, "error", err)
			continue
		}
		m.store.AddActiveIncident(scenario.Code)
	}

	var resolved []string
	for code := range active {
		if _, stillBreaching := breaches[code]; !stillBreaching {
			resolved = append(resolved, code)
		}
	}
	if len(resolved) > 0 {
		m.store.RemoveActiveIncidents(resolved)
	}

	if len(breaches) == 0 {
		m.recordRecovery(latest)
	}
}

// resolveScenario maps a cause code to its scenario, falling back to
// delta-based selection and finally the first seeded scenario.
func (m *Monitor) resolveScenario(preferredCode string, sample models.MetricSample) (models.AlertScenario, bool) {
	if scenario, ok := m.store.ScenarioByCode(preferredCode); ok {
		return scenario, true
	}
	if scenario, ok := m.store.ScenarioByCode(SelectScenarioCode(sample)); ok {
		return scenario, true
	}
	return m.store.FirstScenario()
}

// SelectScenarioCode picks the cause code for a sample from whichever metric
// is exceeded; when both (or neither) are, the larger threshold delta wins
// and ties go to the HTTP scenario.
func SelectScenarioCode(sample models.MetricSample) string {
	httpDelta := sample.HTTP - sample.HTTPThreshold
	cpuDelta := sample.CPU - sample.CPUThreshold

	switch {
	case sample.HTTPExceeded() && !sample.CPUExceeded():
		return models.CodeHTTP5xxSurge
	case sample.CPUExceeded() && !sample.HTTPExceeded():
		return models.CodeCPUSpikeCore
	default:
		if httpDelta >= cpuDelta {
			return models.CodeHTTP5xxSurge
		}
		return models.CodeCPUSpikeCore
	}
}

func (m *Monitor) recordRecovery(latest models.MetricSample) {
	resolved := m.store.ResolveRecoveryChecks(latest.Timestamp)
	for _, check := range resolved {
		m.store.AppendFeed(fmt.Sprintf(
			"Prometheus metrics recovered for %s (execution %s) http=%.4f/%.4f, cpu=%.4f/%.4f",
			check.ScenarioTitle, shortID(check.ExecutionID),
			latest.HTTP, latest.HTTPThreshold, latest.CPU, latest.CPUThreshold))
		m.knowledge.MarkRecovery(check.ExecutionID, models.RecoveryRecovered, check.ResolvedAt, map[string]float64{
			"http":           latest.HTTP,
			"http_threshold": latest.HTTPThreshold,
			"cpu":            latest.CPU,
			"cpu_threshold":  latest.CPUThreshold,
		})
	}
}

func anyHTTPExceeded(window []models.MetricSample) bool {
	for _, sample := range window {
		if sample.HTTPExceeded() {
			return true
		}
	}
	return false
}

func anyCPUExceeded(window []models.MetricSample) bool {
	for _, sample := range window {
		if sample.CPUExceeded() {
			return true
		}
	}
	return false
}

// representativeSample returns the most recent sample passing the predicate,
// falling back to the latest one.
func representativeSample(window []models.MetricSample, latest models.MetricSample, exceeded func(models.MetricSample) bool) models.MetricSample {
	for i := len(window) - 1; i >= 0; i-- {
		if exceeded(window[i]) {
			return window[i]
		}
	}
	return latest
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
