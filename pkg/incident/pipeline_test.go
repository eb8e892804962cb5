package incident

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchops/incident-console/pkg/analysis"
	"github.com/watchops/incident-console/pkg/config"
	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/services"
	"github.com/watchops/incident-console/pkg/slack"
	"github.com/watchops/incident-console/pkg/state"
)

type stubGenerator struct {
	result analysis.Analysis
}

func (g *stubGenerator) Generate(context.Context, models.AlertScenario, models.MetricSample) analysis.Analysis {
	return g.result
}

type stubQueuer struct {
	queued []models.IncidentReport
}

func (q *stubQueuer) QueueFromReport(report models.IncidentReport) *models.ActionExecution {
	q.queued = append(q.queued, report)
	return nil
}

type stubDispatcher struct {
	err    error
	bodies []string
}

func (d *stubDispatcher) Dispatch(_ context.Context, _ models.AlertScenario, _, reportBody string) (slack.DispatchResult, error) {
	if d.err != nil {
		return slack.DispatchResult{}, d.err
	}
	d.bodies = append(d.bodies, reportBody)
	return slack.DispatchResult{Channel: slack.DefaultChannel, Workspace: "acme"}, nil
}

type stubRecorder struct {
	reports []models.IncidentReport
}

func (r *stubRecorder) RecordReport(report models.IncidentReport) {
	r.reports = append(r.reports, report)
}

func pipelineFixture(dispatcher *stubDispatcher) (*Pipeline, *state.Store, *stubQueuer, *stubRecorder) {
	store := state.NewStore(config.BuiltinScenarios())
	queuer := &stubQueuer{}
	recorder := &stubRecorder{}
	generator := &stubGenerator{result: analysis.Analysis{
		Summary:    "summary",
		RootCause:  "root cause",
		Impact:     "impact",
		ActionPlan: []string{"Roll back the deploy"},
		FollowUp:   []string{"follow up"},
		ReportText: "full report",
	}}
	return NewPipeline(store, generator, queuer, dispatcher, recorder), store, queuer, recorder
}

func triggeringSample() models.MetricSample {
	return models.MetricSample{
		Timestamp:     "2026-01-02T03:04:05Z",
		HTTP:          0.12,
		HTTPThreshold: 0.05,
		CPU:           0.40,
		CPUThreshold:  0.80,
	}
}

func TestHandleIncidentDeliversToChat(t *testing.T) {
	dispatcher := &stubDispatcher{}
	pipeline, store, queuer, recorder := pipelineFixture(dispatcher)
	store.SetChat(state.ChatSettings{Token: "xoxb-token"}, "saved")
	scenario := config.BuiltinScenarios()[0]

	report, err := pipeline.HandleIncident(context.Background(), scenario, triggeringSample())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, scenario.Code, report.ScenarioCode)
	assert.Equal(t, "2026-01-02T03:04:05Z", report.CreatedAt)
	assert.Equal(t, "full report", report.ReportBody)
	assert.Equal(t, []string{"Roll back the deploy"}, report.ActionItems)
	assert.Equal(t, []string{"chat"}, report.RecipientsSent)
	assert.Empty(t, report.RecipientsMissing)
	assert.Equal(t, []string{"full report"}, dispatcher.bodies)

	require.Len(t, queuer.queued, 1)
	require.Len(t, recorder.reports, 1)

	snap := store.Snapshot()
	require.NotNil(t, snap.LastReport)
	assert.Equal(t, report.ID, snap.LastReport.ID)
	assert.Empty(t, snap.PendingReports, "fully delivered reports are not queued for ack")
	assert.Contains(t, snap.Feed[len(snap.Feed)-1],
		"Auto-detected anomaly (http=0.1200/0.0500, cpu=0.4000/0.8000) -> delivered=[chat] missing=[none]")
}

func TestHandleIncidentChatDisabled(t *testing.T) {
	dispatcher := &stubDispatcher{}
	pipeline, store, _, _ := pipelineFixture(dispatcher)
	store.SetChat(state.ChatSettings{Token: "xoxb-token"}, "saved")
	store.SetChatPreference(false)

	report, err := pipeline.HandleIncident(context.Background(), config.BuiltinScenarios()[0], triggeringSample())
	require.NoError(t, err)

	assert.Empty(t, report.RecipientsSent)
	assert.Equal(t, []string{"Chat auto-delivery disabled in preferences"}, report.RecipientsMissing)
	assert.Empty(t, dispatcher.bodies)

	snap := store.Snapshot()
	require.Len(t, snap.PendingReports, 1)
	assert.Equal(t, report.ID, snap.PendingReports[0].ID)
}

func TestHandleIncidentMissingToken(t *testing.T) {
	pipeline, _, _, _ := pipelineFixture(&stubDispatcher{})

	report, err := pipeline.HandleIncident(context.Background(), config.BuiltinScenarios()[0], triggeringSample())
	require.NoError(t, err)

	assert.Equal(t, []string{"Chat settings are required"}, report.RecipientsMissing)
}

func TestHandleIncidentDispatchFailureIsRecorded(t *testing.T) {
	dispatcher := &stubDispatcher{err: services.NewUpstreamError("Chat delivery failed", errors.New("channel_not_found"))}
	pipeline, store, _, recorder := pipelineFixture(dispatcher)
	store.SetChat(state.ChatSettings{Token: "xoxb-token"}, "saved")

	report, err := pipeline.HandleIncident(context.Background(), config.BuiltinScenarios()[0], triggeringSample())
	require.NoError(t, err, "a sink failure must never lose the incident")

	require.Len(t, report.RecipientsMissing, 1)
	assert.Contains(t, report.RecipientsMissing[0], "Chat delivery failed")
	require.Len(t, recorder.reports, 1, "the report still reaches the knowledge store")

	snap := store.Snapshot()
	require.Len(t, snap.PendingReports, 1)
	assert.Contains(t, snap.Feed[len(snap.Feed)-1], "missing=[Chat delivery failed")
}

func TestHandleIncidentFallsBackToScenarioActions(t *testing.T) {
	store := state.NewStore(config.BuiltinScenarios())
	store.SetChat(state.ChatSettings{Token: "xoxb-token"}, "saved")
	queuer := &stubQueuer{}
	generator := &stubGenerator{result: analysis.Analysis{ReportText: "report"}}
	pipeline := NewPipeline(store, generator, queuer, &stubDispatcher{}, &stubRecorder{})
	scenario := config.BuiltinScenarios()[0]

	report, err := pipeline.HandleIncident(context.Background(), scenario, triggeringSample())
	require.NoError(t, err)

	assert.Equal(t, scenario.Actions, report.ActionItems)
}
