package prom

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchops/incident-console/pkg/config"
	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/services"
	"github.com/watchops/incident-console/pkg/state"
)

type stubQuerier struct {
	values map[string]float64
	err    error
}

func (q *stubQuerier) InstantValue(_ context.Context, _ string, query string) (float64, error) {
	if q.err != nil {
		return 0, q.err
	}
	return q.values[query], nil
}

func validSettings() state.MetricsSettings {
	return state.MetricsSettings{
		URL:           "http://prom.local:9090",
		HTTPQuery:     "http_error_rate",
		HTTPThreshold: "0.05",
		CPUQuery:      "cpu_usage",
		CPUThreshold:  "0.80",
	}
}

func TestTestReturnsSample(t *testing.T) {
	querier := &stubQuerier{values: map[string]float64{"http_error_rate": 0.12, "cpu_usage": 0.42}}
	svc := NewService(state.NewStore(config.BuiltinScenarios()), querier)

	sample, err := svc.Test(context.Background(), validSettings())
	require.NoError(t, err)

	assert.Equal(t, 0.12, sample.HTTP)
	assert.Equal(t, 0.42, sample.CPU)
	assert.Equal(t, 0.05, sample.HTTPThreshold)
	assert.True(t, sample.HTTPExceeded())
	assert.False(t, sample.CPUExceeded())
}

func TestTestRejectsIncompleteSettings(t *testing.T) {
	svc := NewService(state.NewStore(config.BuiltinScenarios()), &stubQuerier{})

	tests := []struct {
		name   string
		mutate func(*state.MetricsSettings)
	}{
		{name: "missing url", mutate: func(s *state.MetricsSettings) { s.URL = "" }},
		{name: "missing http query", mutate: func(s *state.MetricsSettings) { s.HTTPQuery = "" }},
		{name: "missing cpu query", mutate: func(s *state.MetricsSettings) { s.CPUQuery = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := validSettings()
			tt.mutate(&settings)
			_, err := svc.Test(context.Background(), settings)
			assert.True(t, services.IsValidationError(err))
		})
	}
}

func TestTestRejectsBadThreshold(t *testing.T) {
	svc := NewService(state.NewStore(config.BuiltinScenarios()), &stubQuerier{})

	settings := validSettings()
	settings.HTTPThreshold = "not-a-number"

	_, err := svc.Test(context.Background(), settings)
	assert.True(t, services.IsValidationError(err))
}

func TestTestPropagatesUpstreamFailure(t *testing.T) {
	querier := &stubQuerier{err: services.NewUpstreamError("Prometheus query failed", errors.New("boom"))}
	svc := NewService(state.NewStore(config.BuiltinScenarios()), querier)

	_, err := svc.Test(context.Background(), validSettings())
	assert.True(t, services.IsUpstreamError(err))
}

func TestSavePersistsWithoutProbing(t *testing.T) {
	store := state.NewStore(config.BuiltinScenarios())
	svc := NewService(store, &stubQuerier{err: errors.New("must not be called")})

	message, err := svc.Save(validSettings())
	require.NoError(t, err)
	assert.Equal(t, "Prometheus settings saved (http://prom.local:9090)", message)
	assert.Equal(t, "http://prom.local:9090", store.Metrics().URL)
}

func TestSaveAllowsUnsetURL(t *testing.T) {
	store := state.NewStore(config.BuiltinScenarios())
	svc := NewService(store, &stubQuerier{})

	settings := validSettings()
	settings.URL = ""

	message, err := svc.Save(settings)
	require.NoError(t, err)
	assert.Equal(t, "Prometheus settings saved ((unset))", message)
}

func TestSaveRejectsBadThresholds(t *testing.T) {
	svc := NewService(state.NewStore(config.BuiltinScenarios()), &stubQuerier{})

	settings := validSettings()
	settings.CPUThreshold = "-1"

	_, err := svc.Save(settings)
	assert.True(t, services.IsValidationError(err))
}

func TestVerifyStatus(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]float64
		expected string
	}{
		{
			name:     "recovered when below thresholds",
			values:   map[string]float64{"http_error_rate": 0.01, "cpu_usage": 0.40},
			expected: models.RecoveryRecovered,
		},
		{
			name:     "pending when breaching",
			values:   map[string]float64{"http_error_rate": 0.20, "cpu_usage": 0.40},
			expected: models.RecoveryPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := state.NewStore(config.BuiltinScenarios())
			store.SetMetrics(validSettings(), "saved")
			svc := NewService(store, &stubQuerier{values: tt.values})

			result, err := svc.Verify(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.expected, result.Status)
			assert.Equal(t, tt.values["http_error_rate"], result.HTTP)
			assert.Equal(t, 0.05, result.HTTPThreshold)

			snap := store.Snapshot()
			require.NotEmpty(t, snap.Feed)
			assert.Contains(t, snap.Feed[len(snap.Feed)-1], "Verification http=")
		})
	}
}

func TestFetchMetricsUsesSavedSettings(t *testing.T) {
	store := state.NewStore(config.BuiltinScenarios())
	svc := NewService(store, &stubQuerier{values: map[string]float64{"http_error_rate": 0.02, "cpu_usage": 0.30}})

	// Defaults leave the URL unset, so the monitor skips the tick.
	_, err := svc.FetchMetrics(context.Background())
	assert.True(t, services.IsValidationError(err))

	store.SetMetrics(validSettings(), "saved")
	sample, err := svc.FetchMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.02, sample.HTTP)
}
