// Package rag is the persistent incident knowledge store: a doc_key keyed
// document map written through to a JSON file, with an optional embedding
// index for similarity search. Scenarios, executed and deferred action
// plans, incident reports, and uploads are all recorded here and fed back
// into report generation.
package rag

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/watchops/incident-console/pkg/models"
)

// Document types stored in the knowledge base.
const (
	TypeScenario        = "scenario"
	TypeActionExecution = "action_execution"
	TypeIncidentReport  = "incident_report"
	TypeUploaded        = "uploaded"
)

// Recovery status values stamped on action execution documents.
const (
	RecoveryStatusPending       = "pending"
	RecoveryStatusRecovered     = "recovered"
	RecoveryStatusNotExecuted   = "not_executed"
	RecoveryStatusNotApplicable = "not_applicable"
)

const documentsFile = "documents.json"

// Document is one persisted knowledge base entry. The flattened fields
// mirror the metadata map so listings stay readable without digging into it.
type Document struct {
	DocKey       string         `json:"doc_key"`
	Content      string         `json:"content"`
	CreatedAt    string         `json:"created_at"`
	Title        string         `json:"title"`
	Summary      string         `json:"summary"`
	ScenarioCode string         `json:"scenario_code"`
	Status       string         `json:"status"`
	Type         string         `json:"type"`
	Metadata     map[string]any `json:"metadata"`
}

// Clone returns a copy whose metadata map is independent of the original.
func (d Document) Clone() Document {
	out := d
	out.Metadata = make(map[string]any, len(d.Metadata))
	for k, v := range d.Metadata {
		out.Metadata[k] = v
	}
	return out
}

// Store is the process-wide knowledge base. A single mutex serializes both
// the document map and file writes; the similarity index is rebuilt lazily
// after any invalidating change.
type Store struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger

	docs map[string]*Document

	embedder Embedder
	index    *vectorIndex
}

// NewStore opens the knowledge base under dir, creating the directory and
// loading any persisted documents. A corrupted documents file is logged and
// the store starts empty.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating knowledge store directory: %w", err)
	}
	s := &Store{
		dir:    dir,
		logger: slog.Default().With("component", "rag"),
		docs:   make(map[string]*Document),
	}
	s.loadDocuments()
	return s, nil
}

// SetEmbedder installs or removes the embedding backend. The similarity
// index is invalidated either way and rebuilt on the next search.
func (s *Store) SetEmbedder(e Embedder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedder = e
	s.index = nil
}

func (s *Store) loadDocuments() {
	path := filepath.Join(s.dir, documentsFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("Failed to read persisted documents, starting empty", "error", err)
		}
		return
	}
	var entries []Document
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Error("Failed to parse persisted documents, starting empty", "error", err)
		return
	}
	for _, entry := range entries {
		if entry.DocKey == "" {
			continue
		}
		doc := entry.Clone()
		s.docs[doc.DocKey] = &doc
	}
}

// persistLocked rewrites the documents file atomically. Failures are logged;
// the in-memory state stays authoritative.
func (s *Store) persistLocked() {
	entries := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		entries = append(entries, *doc)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].DocKey < entries[j].DocKey })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		s.logger.Error("Failed to encode documents", "error", err)
		return
	}
	path := filepath.Join(s.dir, documentsFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Error("Failed to write documents file", "error", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Error("Failed to replace documents file", "error", err)
	}
}

// add inserts a document, idempotent on doc_key. Returns false when the key
// already exists.
func (s *Store) add(doc Document) bool {
	if doc.CreatedAt == "" {
		doc.CreatedAt = models.UTCNow()
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["doc_key"] = doc.DocKey
	if _, ok := doc.Metadata["created_at"]; !ok {
		doc.Metadata["created_at"] = doc.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.DocKey]; exists {
		return false
	}
	stored := doc.Clone()
	s.docs[doc.DocKey] = &stored
	s.persistLocked()
	s.index = nil
	return true
}

// Bootstrap seeds one reference document per scenario. Existing entries are
// left untouched.
func (s *Store) Bootstrap(scenarios []models.AlertScenario) {
	for _, scenario := range scenarios {
		summary := formatSummary(scenario.Actions)
		if summary == "" {
			summary = scenario.Description
		}
		lines := []string{
			fmt.Sprintf("Scenario: %s (%s)", scenario.Title, scenario.Code),
			"Source metric: " + scenario.Source,
			"Description: " + scenario.Description,
			"Primary hypotheses:",
		}
		for _, item := range scenario.Hypotheses {
			lines = append(lines, "- "+item)
		}
		lines = append(lines, "Recommended actions:")
		for _, item := range scenario.Actions {
			lines = append(lines, "- "+item)
		}
		lines = append(lines, "Related evidence:")
		for _, item := range scenario.Evidences {
			lines = append(lines, "- "+item)
		}

		s.add(Document{
			DocKey:       "scenario:" + scenario.Code,
			Content:      strings.Join(lines, "\n"),
			Title:        scenario.Title,
			Summary:      summary,
			ScenarioCode: scenario.Code,
			Status:       "reference",
			Type:         TypeScenario,
			Metadata: map[string]any{
				"type":          TypeScenario,
				"scenario_code": scenario.Code,
				"status":        "reference",
				"title":         scenario.Title,
				"summary":       summary,
			},
		})
	}
}

// RecordExecuted writes the execution record for an approved action plan.
func (s *Store) RecordExecuted(execution models.ActionExecution) {
	summary := formatSummary(execution.Actions)
	executedAt := execution.ExecutedAt
	if executedAt == "" {
		executedAt = models.UTCNow()
	}

	lines := []string{
		fmt.Sprintf("Approved action execution record (%s)", execution.ScenarioTitle),
		"Scenario code: " + execution.ScenarioCode,
		"Result status: executed",
		"Executed at (UTC): " + executedAt,
		"Recovery status: " + RecoveryStatusPending,
		"Actions:",
	}
	if len(execution.Results) > 0 {
		for _, result := range execution.Results {
			lines = append(lines, fmt.Sprintf("- %s -> status=%s, executed_at=%s, detail=%s",
				result.Action, result.Status, result.ExecutedAt, result.Detail))
		}
	} else {
		for _, action := range execution.Actions {
			lines = append(lines, "- "+action)
		}
	}

	title := execution.ScenarioTitle + " approved actions"
	s.add(Document{
		DocKey:       fmt.Sprintf("action_execution:%s:executed", execution.ID),
		Content:      strings.Join(lines, "\n"),
		CreatedAt:    executedAt,
		Title:        title,
		Summary:      "Approved actions: " + summary,
		ScenarioCode: execution.ScenarioCode,
		Status:       models.ExecutionExecuted,
		Type:         TypeActionExecution,
		Metadata: map[string]any{
			"type":            TypeActionExecution,
			"scenario_code":   execution.ScenarioCode,
			"status":          models.ExecutionExecuted,
			"recovery_status": RecoveryStatusPending,
			"title":           title,
			"summary":         "Approved actions: " + summary,
			"actions":         append([]string(nil), execution.Actions...),
			"created_at":      executedAt,
		},
	})
}

// RecordDeferred writes the record for an action plan held for manual
// review.
func (s *Store) RecordDeferred(execution models.ActionExecution) {
	summary := formatSummary(execution.Actions)
	recordedAt := models.UTCNow()

	lines := []string{
		fmt.Sprintf("Deferred action plan (%s)", execution.ScenarioTitle),
		"Scenario code: " + execution.ScenarioCode,
		"Result status: deferred",
		"Deferred at (UTC): " + recordedAt,
		"Recovery status: " + RecoveryStatusNotExecuted,
		"Actions awaiting review:",
	}
	for _, action := range execution.Actions {
		lines = append(lines, "- "+action)
	}

	title := execution.ScenarioTitle + " deferred actions"
	s.add(Document{
		DocKey:       fmt.Sprintf("action_execution:%s:deferred", execution.ID),
		Content:      strings.Join(lines, "\n"),
		CreatedAt:    recordedAt,
		Title:        title,
		Summary:      "Deferred actions: " + summary,
		ScenarioCode: execution.ScenarioCode,
		Status:       models.ExecutionDeferred,
		Type:         TypeActionExecution,
		Metadata: map[string]any{
			"type":            TypeActionExecution,
			"scenario_code":   execution.ScenarioCode,
			"status":          models.ExecutionDeferred,
			"recovery_status": RecoveryStatusNotExecuted,
			"title":           title,
			"summary":         "Deferred actions: " + summary,
			"actions":         append([]string(nil), execution.Actions...),
			"created_at":      recordedAt,
		},
	})
}

// MarkRecovery stamps recovery metadata onto the executed document of the
// given execution. Returns false when no such document exists. Metadata-only
// updates invalidate the similarity index.
func (s *Store) MarkRecovery(executionID, status, resolvedAt string, metrics map[string]float64) bool {
	if resolvedAt == "" {
		resolvedAt = models.UTCNow()
	}
	docKey := fmt.Sprintf("action_execution:%s:executed", executionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docKey]
	if !ok {
		return false
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["recovery_status"] = status
	doc.Metadata["recovered_at"] = resolvedAt
	if len(metrics) > 0 {
		doc.Metadata["recovery_metrics"] = metrics
	}
	s.persistLocked()
	s.index = nil
	return true
}

// RecordReport writes a snapshot of a finalized incident report.
func (s *Store) RecordReport(report models.IncidentReport) {
	lines := []string{
		"Incident report snapshot: " + report.Title,
		"Scenario code: " + report.ScenarioCode,
		"Created at (UTC): " + report.CreatedAt,
		"",
		"Summary:",
		orPlaceholder(report.Summary, "(no summary)"),
		"",
		"Root cause:",
		orPlaceholder(report.RootCause, "(no root cause)"),
		"",
		"Impact:",
		orPlaceholder(report.Impact, "(no impact recorded)"),
		"",
		"Action items:",
	}
	if len(report.ActionItems) > 0 {
		for _, item := range report.ActionItems {
			lines = append(lines, "- "+item)
		}
	} else {
		lines = append(lines, "- (none recorded)")
	}
	lines = append(lines, "", "Follow-up:")
	if len(report.FollowUp) > 0 {
		for _, item := range report.FollowUp {
			lines = append(lines, "- "+item)
		}
	} else {
		lines = append(lines, "- (none recorded)")
	}

	summary := report.Summary
	if summary == "" {
		summary = report.Title
	}
	s.add(Document{
		DocKey:       "incident_report:" + report.ID,
		Content:      strings.Join(lines, "\n"),
		CreatedAt:    report.CreatedAt,
		Title:        report.Title,
		Summary:      summary,
		ScenarioCode: report.ScenarioCode,
		Status:       "report",
		Type:         TypeIncidentReport,
		Metadata: map[string]any{
			"type":            TypeIncidentReport,
			"scenario_code":   report.ScenarioCode,
			"status":          "report",
			"recovery_status": RecoveryStatusNotApplicable,
			"title":           report.Title,
			"summary":         summary,
			"actions":         append([]string(nil), report.ActionItems...),
			"created_at":      report.CreatedAt,
		},
	})
}

// AddUploaded stores a document parsed from the upload endpoint. Returns
// false when the key already exists.
func (s *Store) AddUploaded(doc Document) bool {
	return s.add(doc)
}

// ListDocuments returns all documents ordered newest first.
func (s *Store) ListDocuments() []Document {
	s.mu.Lock()
	entries := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		entries = append(entries, doc.Clone())
	}
	s.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt > entries[j].CreatedAt })
	return entries
}

// RecentActions flattens the action strings of recent documents matching
// the scenario code and status, newest first, up to limit entries.
// Duplicates are preserved in encounter order.
func (s *Store) RecentActions(scenarioCode, status string, limit int) []string {
	var out []string
	for _, doc := range s.ListDocuments() {
		if doc.ScenarioCode != scenarioCode || doc.Status != status {
			continue
		}
		actions, ok := doc.Metadata["actions"].([]string)
		if !ok {
			// Reloaded documents carry []any after JSON decoding.
			raw, rawOK := doc.Metadata["actions"].([]any)
			if !rawOK {
				continue
			}
			for _, item := range raw {
				if text, isString := item.(string); isString {
					actions = append(actions, text)
				}
			}
		}
		for _, action := range actions {
			out = append(out, action)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

func formatSummary(values []string) string {
	var nonEmpty []string
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			nonEmpty = append(nonEmpty, trimmed)
		}
	}
	if len(nonEmpty) > 4 {
		nonEmpty = nonEmpty[:4]
	}
	return strings.Join(nonEmpty, ", ")
}

func orPlaceholder(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}
