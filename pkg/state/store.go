// Package state holds the mutable application state shared across API
// handlers and background workers. One Store guards the whole aggregate with
// a single mutex; every method copies data in and out so callers never hold
// references into the guarded fields.
package state

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/watchops/incident-console/pkg/models"
)

// Capacity limits for bounded collections. Oldest entries are evicted on
// overflow.
const (
	SampleWindow          = 5
	FeedCapacity          = 1000
	PendingReportCapacity = 20
	ExecutionCapacity     = 30
)

// ChatSettings configures the chat platform integration.
type ChatSettings struct {
	Token     string `json:"token"`
	Channel   string `json:"channel"`
	Workspace string `json:"workspace"`
}

// MetricsSettings configures the metrics endpoint and queries. Thresholds
// are stored as strings exactly as saved; parsing happens on use.
type MetricsSettings struct {
	URL           string `json:"url"`
	HTTPQuery     string `json:"http_query"`
	HTTPThreshold string `json:"http_threshold"`
	CPUQuery      string `json:"cpu_query"`
	CPUThreshold  string `json:"cpu_threshold"`
}

// Preferences toggles automatic notification delivery.
type Preferences struct {
	Chat bool `json:"chat"`
}

// Store is the process-wide state aggregate.
type Store struct {
	mu sync.Mutex

	chat        ChatSettings
	metrics     MetricsSettings
	aiAPIKey    string
	scenarios   []models.AlertScenario
	preferences Preferences

	feed         []string
	alertHistory []string
	lastAlert    *models.AlertScenario

	samples         []models.MetricSample
	activeIncidents map[string]struct{}

	lastReport     *models.IncidentReport
	pendingReports []models.IncidentReport
	executions     []*models.ActionExecution
	recoveryChecks []*models.RecoveryCheck
	recipients     []models.EmailRecipient
}

// NewStore creates a Store seeded with the given scenarios and chat
// notifications enabled.
func NewStore(scenarios []models.AlertScenario) *Store {
	seeded := make([]models.AlertScenario, len(scenarios))
	for i, sc := range scenarios {
		seeded[i] = sc.Clone()
	}
	return &Store{
		scenarios:       seeded,
		preferences:     Preferences{Chat: true},
		activeIncidents: make(map[string]struct{}),
		metrics: MetricsSettings{
			HTTPThreshold: "0.05",
			CPUThreshold:  "0.80",
		},
	}
}

// AppendFeed adds a timestamped line to the activity feed, evicting the
// oldest line past capacity.
func (s *Store) AppendFeed(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendFeedLocked(message)
}

func (s *Store) appendFeedLocked(message string) {
	s.feed = append(s.feed, fmt.Sprintf("[%s] %s", models.ClockTime(), message))
	if len(s.feed) > FeedCapacity {
		s.feed = s.feed[len(s.feed)-FeedCapacity:]
	}
}

// Scenarios returns a copy of the seeded scenario list.
func (s *Store) Scenarios() []models.AlertScenario {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AlertScenario, len(s.scenarios))
	for i, sc := range s.scenarios {
		out[i] = sc.Clone()
	}
	return out
}

// ScenarioByCode looks up a scenario by cause code.
func (s *Store) ScenarioByCode(code string) (models.AlertScenario, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range s.scenarios {
		if sc.Code == code {
			return sc.Clone(), true
		}
	}
	return models.AlertScenario{}, false
}

// FirstScenario returns the first seeded scenario, used as a last-resort
// fallback when a cause code cannot be resolved.
func (s *Store) FirstScenario() (models.AlertScenario, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scenarios) == 0 {
		return models.AlertScenario{}, false
	}
	return s.scenarios[0].Clone(), true
}

// Chat returns the saved chat settings.
func (s *Store) Chat() ChatSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat
}

// SetChat stores chat settings and appends the given feed message.
func (s *Store) SetChat(settings ChatSettings, feedMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = settings
	s.appendFeedLocked(feedMessage)
}

// Metrics returns the saved metrics settings.
func (s *Store) Metrics() MetricsSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// SetMetrics stores metrics settings and appends the given feed message.
func (s *Store) SetMetrics(settings MetricsSettings, feedMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = settings
	s.appendFeedLocked(feedMessage)
}

// AIKeyConfigured reports whether an LLM credential has been saved.
func (s *Store) AIKeyConfigured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aiAPIKey != ""
}

// SetAIKey stores the LLM credential and appends the given feed message.
func (s *Store) SetAIKey(key, feedMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiAPIKey = key
	s.appendFeedLocked(feedMessage)
}

// Preferences returns the notification preferences.
func (s *Store) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferences
}

// SetChatPreference toggles automatic chat delivery and returns the updated
// preferences.
func (s *Store) SetChatPreference(enabled bool) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences.Chat = enabled
	return s.preferences
}

// RecordAlert prepends an alert history label and remembers the scenario as
// the last triggered alert.
func (s *Store) RecordAlert(label string, scenario models.AlertScenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertHistory = append([]string{label}, s.alertHistory...)
	sc := scenario.Clone()
	s.lastAlert = &sc
}

// LastAlert returns the most recently triggered scenario, if any.
func (s *Store) LastAlert() (models.AlertScenario, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAlert == nil {
		return models.AlertScenario{}, false
	}
	return s.lastAlert.Clone(), true
}

// PushSample appends a sample to the monitoring ring, evicting the oldest
// entry past the window size, and returns the current window along with the
// active incident set.
func (s *Store) PushSample(sample models.MetricSample) ([]models.MetricSample, map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	if len(s.samples) > SampleWindow {
		s.samples = s.samples[len(s.samples)-SampleWindow:]
	}
	window := append([]models.MetricSample(nil), s.samples...)
	active := make(map[string]struct{}, len(s.activeIncidents))
	for code := range s.activeIncidents {
		active[code] = struct{}{}
	}
	return window, active
}

// Samples returns a copy of the current sample window.
func (s *Store) Samples() []models.MetricSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MetricSample(nil), s.samples...)
}

// AddActiveIncident marks a cause code as actively breaching.
func (s *Store) AddActiveIncident(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeIncidents[code] = struct{}{}
}

// RemoveActiveIncidents clears the given cause codes from the active set.
func (s *Store) RemoveActiveIncidents(codes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range codes {
		delete(s.activeIncidents, code)
	}
}

// ActiveIncidents returns the sorted list of actively breaching cause codes.
func (s *Store) ActiveIncidents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeIncidentsLocked()
}

func (s *Store) activeIncidentsLocked() []string {
	out := make([]string, 0, len(s.activeIncidents))
	for code := range s.activeIncidents {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// RecordIncident stores the report as the most recent one, prepends the
// alert history label, and appends the delivery feed message.
func (s *Store) RecordIncident(scenario models.AlertScenario, report models.IncidentReport, feedMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	label := fmt.Sprintf("[%s] %s", models.ClockTime(), scenario.Title)
	s.alertHistory = append([]string{label}, s.alertHistory...)
	sc := scenario.Clone()
	s.lastAlert = &sc
	rep := report.Clone()
	s.lastReport = &rep
	s.appendFeedLocked(feedMessage)
}

// EnqueuePendingReport adds a partially-delivered report to the pending
// queue, evicting the oldest entry past capacity.
func (s *Store) EnqueuePendingReport(report models.IncidentReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingReports = append(s.pendingReports, report.Clone())
	if len(s.pendingReports) > PendingReportCapacity {
		s.pendingReports = s.pendingReports[len(s.pendingReports)-PendingReportCapacity:]
	}
}

// AckPendingReport drops a report from the pending queue. The report itself
// keeps its recipients_missing record.
func (s *Store) AckPendingReport(reportID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pendingReports[:0]
	for _, rep := range s.pendingReports {
		if rep.ID != reportID {
			kept = append(kept, rep)
		}
	}
	s.pendingReports = kept
}

// AppendExecution queues an action execution, evicting the oldest entry past
// capacity, and appends the given feed message.
func (s *Store) AppendExecution(execution models.ActionExecution, feedMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := execution.Clone()
	s.executions = append(s.executions, &clone)
	if len(s.executions) > ExecutionCapacity {
		s.executions = s.executions[len(s.executions)-ExecutionCapacity:]
	}
	s.appendFeedLocked(feedMessage)
}

// FindExecution returns a copy of the execution with the given id.
func (s *Store) FindExecution(executionID string) (models.ActionExecution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exec := s.findExecutionLocked(executionID); exec != nil {
		return exec.Clone(), true
	}
	return models.ActionExecution{}, false
}

func (s *Store) findExecutionLocked(executionID string) *models.ActionExecution {
	for _, exec := range s.executions {
		if exec.ID == executionID {
			return exec
		}
	}
	return nil
}

// MarkExecuted transitions an execution to executed with the given results.
// Executions that are already executed are returned unchanged and the third
// return reports whether the transition happened.
func (s *Store) MarkExecuted(executionID, executedAt string, results []models.ActionExecutionResult, feedMessage string) (models.ActionExecution, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec := s.findExecutionLocked(executionID)
	if exec == nil {
		return models.ActionExecution{}, false, false
	}
	if exec.Status == models.ExecutionExecuted {
		return exec.Clone(), true, false
	}
	exec.Status = models.ExecutionExecuted
	exec.ExecutedAt = executedAt
	exec.Results = append([]models.ActionExecutionResult(nil), results...)
	s.appendFeedLocked(feedMessage)
	return exec.Clone(), true, true
}

// MarkDeferred transitions an execution to deferred, clearing any execution
// artifacts. Executions that are already executed are returned unchanged and
// the second return reports whether the transition happened.
func (s *Store) MarkDeferred(executionID, feedMessage string) (models.ActionExecution, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec := s.findExecutionLocked(executionID)
	if exec == nil {
		return models.ActionExecution{}, false, false
	}
	if exec.Status == models.ExecutionExecuted {
		return exec.Clone(), true, false
	}
	exec.Status = models.ExecutionDeferred
	exec.ExecutedAt = ""
	exec.Results = nil
	s.appendFeedLocked(feedMessage)
	return exec.Clone(), true, true
}

// AddRecoveryCheck opens a recovery check for an executed action plan.
func (s *Store) AddRecoveryCheck(check models.RecoveryCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := check
	s.recoveryChecks = append(s.recoveryChecks, &clone)
}

// ResolveRecoveryChecks transitions every pending recovery check to
// recovered at the given timestamp and returns the resolved copies.
func (s *Store) ResolveRecoveryChecks(resolvedAt string) []models.RecoveryCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	var resolved []models.RecoveryCheck
	for _, check := range s.recoveryChecks {
		if check.Status != models.RecoveryPending {
			continue
		}
		check.Status = models.RecoveryRecovered
		check.ResolvedAt = resolvedAt
		resolved = append(resolved, *check)
	}
	return resolved
}

// RecoveryChecks returns copies of all recovery checks.
func (s *Store) RecoveryChecks() []models.RecoveryCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RecoveryCheck, len(s.recoveryChecks))
	for i, check := range s.recoveryChecks {
		out[i] = *check
	}
	return out
}

// Recipients returns a copy of the email recipient registry.
func (s *Store) Recipients() []models.EmailRecipient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.EmailRecipient(nil), s.recipients...)
}

// AddRecipient registers an email recipient. Returns false when the address
// is already registered (case-insensitive).
func (s *Store) AddRecipient(recipient models.EmailRecipient) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.recipients {
		if strings.EqualFold(existing.Email, recipient.Email) {
			return false
		}
	}
	s.recipients = append(s.recipients, recipient)
	s.appendFeedLocked("Email recipient added: " + recipient.Email)
	return true
}

// RemoveRecipient deletes a recipient by id, returning the removed entry.
func (s *Store) RemoveRecipient(recipientID string) (models.EmailRecipient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.recipients {
		if existing.ID == recipientID {
			s.recipients = append(s.recipients[:i], s.recipients[i+1:]...)
			s.appendFeedLocked("Email recipient removed: " + existing.Email)
			return existing, true
		}
	}
	return models.EmailRecipient{}, false
}
