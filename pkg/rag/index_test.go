package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchops/incident-console/pkg/config"
	"github.com/watchops/incident-console/pkg/models"
)

// stubEmbedder maps each text to a fixed two-dimensional vector so similarity
// ordering is deterministic.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := e.vectors[text]; ok {
			out[i] = vec
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func TestSearchFiltersOnMetadata(t *testing.T) {
	store, _ := newTestRagStore(t)
	store.RecordExecuted(executedPlan("exec-1"))
	deferred := executedPlan("exec-2")
	store.RecordDeferred(deferred)

	docs := store.Search(context.Background(), "surge", 5, map[string]string{
		"scenario_code": models.CodeHTTP5xxSurge,
		"status":        models.ExecutionExecuted,
	})

	require.Len(t, docs, 1)
	assert.Equal(t, "action_execution:exec-1:executed", docs[0].DocKey)
}

func TestSearchWithoutEmbedderOrdersByRecency(t *testing.T) {
	store, _ := newTestRagStore(t)
	store.AddUploaded(Document{DocKey: "uploaded:a", Content: "a", CreatedAt: "2026-01-01T00:00:00Z", Metadata: map[string]any{"status": "reference"}})
	store.AddUploaded(Document{DocKey: "uploaded:b", Content: "b", CreatedAt: "2026-01-02T00:00:00Z", Metadata: map[string]any{"status": "reference"}})

	docs := store.Search(context.Background(), "anything", 1, map[string]string{"status": "reference"})

	require.Len(t, docs, 1)
	assert.Equal(t, "uploaded:b", docs[0].DocKey)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store, _ := newTestRagStore(t)
	store.AddUploaded(Document{DocKey: "uploaded:far", Content: "unrelated text", CreatedAt: "2026-01-02T00:00:00Z", Metadata: map[string]any{"status": "reference"}})
	store.AddUploaded(Document{DocKey: "uploaded:near", Content: "matching text", CreatedAt: "2026-01-01T00:00:00Z", Metadata: map[string]any{"status": "reference"}})

	store.SetEmbedder(&stubEmbedder{vectors: map[string][]float32{
		"matching text":  {1, 0},
		"unrelated text": {0, 1},
		"query":          {1, 0},
	}})

	docs := store.Search(context.Background(), "query", 2, map[string]string{"status": "reference"})

	require.Len(t, docs, 2)
	// Recency would put "far" first; similarity puts "near" first.
	assert.Equal(t, "uploaded:near", docs[0].DocKey)
}

func TestSearchEmbedderFailureFallsBack(t *testing.T) {
	store, _ := newTestRagStore(t)
	store.AddUploaded(Document{DocKey: "uploaded:a", Content: "a", CreatedAt: "2026-01-01T00:00:00Z", Metadata: map[string]any{"status": "reference"}})
	store.SetEmbedder(&stubEmbedder{err: errors.New("quota exceeded")})

	docs := store.Search(context.Background(), "query", 5, map[string]string{"status": "reference"})
	require.Len(t, docs, 1)
}

func TestBuildContextPrefersApprovedActions(t *testing.T) {
	store, _ := newTestRagStore(t)
	scenario := config.BuiltinScenarios()[0]
	store.Bootstrap([]models.AlertScenario{scenario})
	store.RecordExecuted(executedPlan("exec-1"))

	context1 := store.BuildContextForScenario(context.Background(), scenario, 4)

	assert.Contains(t, context1, "Previously approved actions:")
	assert.Contains(t, context1, "[executed] Nginx 5xx surge on checkout API approved actions")
	assert.Contains(t, context1, "Approved actions: Roll back checkout-service, Scale gateway pool")
}

func TestBuildContextFallsBackToRelatedHistory(t *testing.T) {
	store, _ := newTestRagStore(t)
	scenario := config.BuiltinScenarios()[0]
	store.Bootstrap([]models.AlertScenario{scenario})

	result := store.BuildContextForScenario(context.Background(), scenario, 4)

	assert.Contains(t, result, "Related history:")
	assert.Contains(t, result, "[reference] "+scenario.Title)
}

func TestBuildContextEmptyStore(t *testing.T) {
	store, _ := newTestRagStore(t)
	scenario := config.BuiltinScenarios()[0]

	assert.Empty(t, store.BuildContextForScenario(context.Background(), scenario, 4))
}
