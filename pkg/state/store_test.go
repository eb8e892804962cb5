package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchops/incident-console/pkg/config"
	"github.com/watchops/incident-console/pkg/models"
)

func newTestStore() *Store {
	return NewStore(config.BuiltinScenarios())
}

func TestAppendFeedPrefixesClockTime(t *testing.T) {
	store := newTestStore()

	store.AppendFeed("hello")

	snap := store.Snapshot()
	require.Len(t, snap.Feed, 1)
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] hello$`, snap.Feed[0])
}

func TestAppendFeedEvictsPastCapacity(t *testing.T) {
	store := newTestStore()

	for i := 0; i < FeedCapacity+10; i++ {
		store.AppendFeed(fmt.Sprintf("line %d", i))
	}

	snap := store.Snapshot()
	require.Len(t, snap.Feed, FeedCapacity)
	assert.Contains(t, snap.Feed[0], "line 10")
}

func TestPushSampleKeepsWindow(t *testing.T) {
	store := newTestStore()

	for i := 0; i < SampleWindow+3; i++ {
		store.PushSample(models.MetricSample{HTTP: float64(i)})
	}

	window := store.Samples()
	require.Len(t, window, SampleWindow)
	assert.Equal(t, float64(3), window[0].HTTP)
	assert.Equal(t, float64(SampleWindow+2), window[len(window)-1].HTTP)
}

func TestActiveIncidentTracking(t *testing.T) {
	store := newTestStore()

	store.AddActiveIncident(models.CodeHTTP5xxSurge)
	store.AddActiveIncident(models.CodeCPUSpikeCore)
	store.RemoveActiveIncidents([]string{models.CodeCPUSpikeCore})

	assert.Equal(t, []string{models.CodeHTTP5xxSurge}, store.ActiveIncidents())
}

func TestScenarioLookup(t *testing.T) {
	store := newTestStore()

	scenario, ok := store.ScenarioByCode(models.CodeCPUSpikeCore)
	require.True(t, ok)
	assert.Equal(t, models.CodeCPUSpikeCore, scenario.Code)

	_, ok = store.ScenarioByCode("unknown")
	assert.False(t, ok)

	first, ok := store.FirstScenario()
	require.True(t, ok)
	assert.Equal(t, models.CodeHTTP5xxSurge, first.Code)
}

func TestMarkExecutedTransitionsOnce(t *testing.T) {
	store := newTestStore()
	store.AppendExecution(models.ActionExecution{
		ID:      "exec-1",
		Actions: []string{"roll back"},
		Status:  models.ExecutionPending,
	}, "queued")

	results := []models.ActionExecutionResult{{Action: "roll back", Status: "success"}}

	updated, found, transitioned := store.MarkExecuted("exec-1", "2026-01-02T03:04:05Z", results, "executed")
	require.True(t, found)
	assert.True(t, transitioned)
	assert.Equal(t, models.ExecutionExecuted, updated.Status)
	assert.Equal(t, "2026-01-02T03:04:05Z", updated.ExecutedAt)

	again, found, transitioned := store.MarkExecuted("exec-1", "2026-01-02T04:00:00Z", nil, "executed again")
	require.True(t, found)
	assert.False(t, transitioned)
	assert.Equal(t, "2026-01-02T03:04:05Z", again.ExecutedAt, "repeat execute must not overwrite the record")

	_, found, _ = store.MarkExecuted("missing", "", nil, "")
	assert.False(t, found)
}

func TestMarkDeferredRespectsExecutedPlans(t *testing.T) {
	store := newTestStore()
	store.AppendExecution(models.ActionExecution{
		ID:     "exec-1",
		Status: models.ExecutionPending,
	}, "queued")

	deferred, found, transitioned := store.MarkDeferred("exec-1", "deferred")
	require.True(t, found)
	assert.True(t, transitioned)
	assert.Equal(t, models.ExecutionDeferred, deferred.Status)

	store.AppendExecution(models.ActionExecution{
		ID:     "exec-2",
		Status: models.ExecutionPending,
	}, "queued")
	_, _, _ = store.MarkExecuted("exec-2", "2026-01-02T03:04:05Z", nil, "executed")

	kept, found, transitioned := store.MarkDeferred("exec-2", "deferred")
	require.True(t, found)
	assert.False(t, transitioned)
	assert.Equal(t, models.ExecutionExecuted, kept.Status)
}

func TestResolveRecoveryChecks(t *testing.T) {
	store := newTestStore()
	store.AddRecoveryCheck(models.RecoveryCheck{ExecutionID: "exec-1", Status: models.RecoveryPending})
	store.AddRecoveryCheck(models.RecoveryCheck{ExecutionID: "exec-2", Status: models.RecoveryRecovered})

	resolved := store.ResolveRecoveryChecks("2026-01-02T03:04:05Z")

	require.Len(t, resolved, 1)
	assert.Equal(t, "exec-1", resolved[0].ExecutionID)
	assert.Equal(t, "2026-01-02T03:04:05Z", resolved[0].ResolvedAt)

	// A second pass finds nothing pending.
	assert.Empty(t, store.ResolveRecoveryChecks("2026-01-02T03:05:05Z"))
}

func TestPendingReportQueue(t *testing.T) {
	store := newTestStore()

	for i := 0; i < PendingReportCapacity+5; i++ {
		store.EnqueuePendingReport(models.IncidentReport{ID: fmt.Sprintf("rep-%d", i)})
	}

	snap := store.Snapshot()
	require.Len(t, snap.PendingReports, PendingReportCapacity)
	assert.Equal(t, "rep-5", snap.PendingReports[0].ID)

	store.AckPendingReport("rep-5")
	snap = store.Snapshot()
	require.Len(t, snap.PendingReports, PendingReportCapacity-1)
	assert.Equal(t, "rep-6", snap.PendingReports[0].ID)

	// Unknown id is a no-op.
	store.AckPendingReport("rep-5")
	assert.Len(t, store.Snapshot().PendingReports, PendingReportCapacity-1)
}

func TestAddRecipientDeduplicatesCaseInsensitive(t *testing.T) {
	store := newTestStore()

	added := store.AddRecipient(models.EmailRecipient{ID: "1", Email: "ops@example.com"})
	require.True(t, added)

	assert.False(t, store.AddRecipient(models.EmailRecipient{ID: "2", Email: "OPS@example.com"}))
	assert.Len(t, store.Recipients(), 1)
}

func TestRemoveRecipient(t *testing.T) {
	store := newTestStore()
	store.AddRecipient(models.EmailRecipient{ID: "1", Email: "ops@example.com"})

	removed, ok := store.RemoveRecipient("1")
	require.True(t, ok)
	assert.Equal(t, "ops@example.com", removed.Email)

	_, ok = store.RemoveRecipient("1")
	assert.False(t, ok)
}

func TestSnapshotIsDetachedFromLiveState(t *testing.T) {
	store := newTestStore()
	store.AppendExecution(models.ActionExecution{
		ID:      "exec-1",
		Actions: []string{"roll back"},
		Status:  models.ExecutionPending,
	}, "queued")

	snap := store.Snapshot()
	require.Len(t, snap.ActionExecutions, 1)
	snap.ActionExecutions[0].Actions[0] = "mutated"
	snap.ActionExecutions[0].Status = models.ExecutionExecuted

	execution, ok := store.FindExecution("exec-1")
	require.True(t, ok)
	assert.Equal(t, "roll back", execution.Actions[0])
	assert.Equal(t, models.ExecutionPending, execution.Status)
}

func TestSnapshotNeverExposesSecrets(t *testing.T) {
	store := newTestStore()
	store.SetChat(ChatSettings{Token: "xoxb-secret", Channel: "#ops-incident", Workspace: "acme"}, "saved")
	store.SetAIKey("sk-secret", "configured")

	snap := store.Snapshot()
	assert.True(t, snap.Chat.Configured)
	assert.Equal(t, "#ops-incident", snap.Chat.Channel)
	assert.True(t, snap.AI.Configured)
}
