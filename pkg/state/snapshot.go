package state

import "github.com/watchops/incident-console/pkg/models"

// ChatView is the chat section of the state snapshot. The token is redacted
// to a configured flag.
type ChatView struct {
	Configured bool   `json:"configured"`
	Channel    string `json:"channel"`
	Workspace  string `json:"workspace"`
}

// AIView reports whether the LLM credential is configured.
type AIView struct {
	Configured bool `json:"configured"`
}

// ScenarioSummary is the abbreviated scenario listing used in the snapshot.
type ScenarioSummary struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

// MonitorView groups the sampling monitor's observable state.
type MonitorView struct {
	Samples         []models.MetricSample `json:"samples"`
	IncidentActive  bool                  `json:"incident_active"`
	ActiveIncidents []string              `json:"active_incidents"`
}

// Snapshot is the full deep-copied state returned by GET /state.
type Snapshot struct {
	Chat             ChatView                 `json:"chat"`
	Metrics          MetricsSettings          `json:"metrics"`
	AI               AIView                   `json:"ai"`
	EmailRecipients  []models.EmailRecipient  `json:"email_recipients"`
	Feed             []string                 `json:"feed"`
	AlertHistory     []string                 `json:"alert_history"`
	LastAlert        *models.AlertScenario    `json:"last_alert"`
	Scenarios        []ScenarioSummary        `json:"scenarios"`
	Monitor          MonitorView              `json:"monitor"`
	Preferences      Preferences              `json:"preferences"`
	LastReport       *models.IncidentReport   `json:"last_report"`
	PendingReports   []models.IncidentReport  `json:"pending_reports"`
	ActionExecutions []models.ActionExecution `json:"action_executions"`
	RecoveryChecks   []models.RecoveryCheck   `json:"recovery_checks"`
}

// Snapshot assembles a deep copy of the whole aggregate under one lock
// acquisition. The result shares no memory with the store.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Chat: ChatView{
			Configured: s.chat.Token != "",
			Channel:    s.chat.Channel,
			Workspace:  s.chat.Workspace,
		},
		Metrics:          s.metrics,
		AI:               AIView{Configured: s.aiAPIKey != ""},
		EmailRecipients:  append([]models.EmailRecipient{}, s.recipients...),
		Feed:             append([]string{}, s.feed...),
		AlertHistory:     append([]string{}, s.alertHistory...),
		Preferences:      s.preferences,
		PendingReports:   make([]models.IncidentReport, 0, len(s.pendingReports)),
		ActionExecutions: make([]models.ActionExecution, 0, len(s.executions)),
		RecoveryChecks:   make([]models.RecoveryCheck, 0, len(s.recoveryChecks)),
		Scenarios:        make([]ScenarioSummary, 0, len(s.scenarios)),
		Monitor: MonitorView{
			Samples:         append([]models.MetricSample{}, s.samples...),
			IncidentActive:  len(s.activeIncidents) > 0,
			ActiveIncidents: s.activeIncidentsLocked(),
		},
	}

	if s.lastAlert != nil {
		alert := s.lastAlert.Clone()
		snap.LastAlert = &alert
	}
	if s.lastReport != nil {
		report := s.lastReport.Clone()
		snap.LastReport = &report
	}
	for _, sc := range s.scenarios {
		snap.Scenarios = append(snap.Scenarios, ScenarioSummary{
			Code:        sc.Code,
			Title:       sc.Title,
			Source:      sc.Source,
			Description: sc.Description,
		})
	}
	for _, rep := range s.pendingReports {
		snap.PendingReports = append(snap.PendingReports, rep.Clone())
	}
	for _, exec := range s.executions {
		snap.ActionExecutions = append(snap.ActionExecutions, exec.Clone())
	}
	for _, check := range s.recoveryChecks {
		snap.RecoveryChecks = append(snap.RecoveryChecks, *check)
	}
	return snap
}
