// Package models defines the domain entities shared across the incident
// console backend: scenarios, metric samples, reports, action executions,
// recovery checks, and notification recipients.
package models

import (
	"encoding/json"
	"time"
)

// Scenario cause codes for the two builtin alert classes.
const (
	CodeHTTP5xxSurge = "http_5xx_surge"
	CodeCPUSpikeCore = "cpu_spike_core"
)

// ActionExecution status values.
const (
	ExecutionPending  = "pending"
	ExecutionExecuted = "executed"
	ExecutionDeferred = "deferred"
)

// RecoveryCheck status values.
const (
	RecoveryPending   = "pending"
	RecoveryRecovered = "recovered"
)

// AlertScenario is an immutable reference datum describing one class of
// incident: its cause code, the metric it watches, and the playbook content
// used for reports and notifications.
type AlertScenario struct {
	Code        string   `json:"code" yaml:"code"`
	Title       string   `json:"title" yaml:"title"`
	Source      string   `json:"source" yaml:"source"`
	Description string   `json:"description" yaml:"description"`
	Hypotheses  []string `json:"hypotheses" yaml:"hypotheses"`
	Evidences   []string `json:"evidences" yaml:"evidences"`
	Actions     []string `json:"actions" yaml:"actions"`
}

// Clone returns a deep copy of the scenario.
func (s AlertScenario) Clone() AlertScenario {
	out := s
	out.Hypotheses = append([]string(nil), s.Hypotheses...)
	out.Evidences = append([]string(nil), s.Evidences...)
	out.Actions = append([]string(nil), s.Actions...)
	return out
}

// MetricSample is a single monitoring observation paired with the thresholds
// that were in effect when it was taken.
type MetricSample struct {
	Timestamp     string  `json:"timestamp"`
	HTTP          float64 `json:"http"`
	HTTPThreshold float64 `json:"http_threshold"`
	CPU           float64 `json:"cpu"`
	CPUThreshold  float64 `json:"cpu_threshold"`
	Node          string  `json:"node,omitempty"`
}

// HTTPExceeded reports whether the HTTP error rate breached its threshold.
func (s MetricSample) HTTPExceeded() bool { return s.HTTP > s.HTTPThreshold }

// CPUExceeded reports whether the CPU usage breached its threshold.
func (s MetricSample) CPUExceeded() bool { return s.CPU > s.CPUThreshold }

// AnyExceeded reports whether either metric breached its threshold.
func (s MetricSample) AnyExceeded() bool { return s.HTTPExceeded() || s.CPUExceeded() }

// MarshalJSON includes the derived breach predicates so every serialized
// sample carries http_exceeded/cpu_exceeded alongside the raw values.
func (s MetricSample) MarshalJSON() ([]byte, error) {
	type plain MetricSample
	return json.Marshal(struct {
		plain
		HTTPExceeded bool `json:"http_exceeded"`
		CPUExceeded  bool `json:"cpu_exceeded"`
	}{plain(s), s.HTTPExceeded(), s.CPUExceeded()})
}

// NewSample builds a sample stamped with the current UTC time.
func NewSample(httpVal, httpThreshold, cpuVal, cpuThreshold float64) MetricSample {
	return MetricSample{
		Timestamp:     UTCNow(),
		HTTP:          httpVal,
		HTTPThreshold: httpThreshold,
		CPU:           cpuVal,
		CPUThreshold:  cpuThreshold,
	}
}

// IncidentReport is the structured summary produced for one detected
// incident instance. recipients_sent/recipients_missing are filled in by the
// pipeline after delivery is attempted.
type IncidentReport struct {
	ID                string       `json:"id"`
	ScenarioCode      string       `json:"scenario_code"`
	Title             string       `json:"title"`
	CreatedAt         string       `json:"created_at"`
	ReportBody        string       `json:"report_body"`
	Metrics           MetricSample `json:"metrics"`
	Summary           string       `json:"summary"`
	RootCause         string       `json:"root_cause"`
	Impact            string       `json:"impact"`
	ActionItems       []string     `json:"action_items"`
	FollowUp          []string     `json:"follow_up"`
	RecipientsSent    []string     `json:"recipients_sent"`
	RecipientsMissing []string     `json:"recipients_missing"`
}

// Clone returns a deep copy of the report.
func (r IncidentReport) Clone() IncidentReport {
	out := r
	out.ActionItems = append([]string(nil), r.ActionItems...)
	out.FollowUp = append([]string(nil), r.FollowUp...)
	out.RecipientsSent = append([]string(nil), r.RecipientsSent...)
	out.RecipientsMissing = append([]string(nil), r.RecipientsMissing...)
	return out
}

// ActionExecutionResult is the outcome reported by the action simulator for
// one dispatched action.
type ActionExecutionResult struct {
	Action     string `json:"action"`
	Status     string `json:"status"`
	Detail     string `json:"detail"`
	ExecutedAt string `json:"executed_at"`
}

// ActionExecution is a pending or completed execution request for the action
// items of one incident report.
type ActionExecution struct {
	ID            string                  `json:"id"`
	ReportID      string                  `json:"report_id"`
	ScenarioCode  string                  `json:"scenario_code"`
	ScenarioTitle string                  `json:"scenario_title"`
	CreatedAt     string                  `json:"created_at"`
	Actions       []string                `json:"actions"`
	Status        string                  `json:"status"`
	ExecutedAt    string                  `json:"executed_at,omitempty"`
	Results       []ActionExecutionResult `json:"results"`
}

// Clone returns a deep copy of the execution.
func (e ActionExecution) Clone() ActionExecution {
	out := e
	out.Actions = append([]string(nil), e.Actions...)
	out.Results = append([]ActionExecutionResult(nil), e.Results...)
	return out
}

// RecoveryCheck tracks whether metrics returned below their thresholds after
// an action plan was executed. Transitions pending -> recovered exactly once.
type RecoveryCheck struct {
	ExecutionID   string `json:"execution_id"`
	ScenarioCode  string `json:"scenario_code"`
	ScenarioTitle string `json:"scenario_title"`
	StartedAt     string `json:"started_at"`
	Status        string `json:"status"`
	ResolvedAt    string `json:"resolved_at,omitempty"`
}

// EmailRecipient is one entry in the notification recipient registry.
type EmailRecipient struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// UTCNow returns the current UTC time as an ISO-8601 string with second
// precision, the timestamp format used throughout the live state and the
// knowledge store.
func UTCNow() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

// ClockTime returns the current UTC time formatted as HH:MM:SS for feed
// line prefixes.
func ClockTime() string {
	return time.Now().UTC().Format("15:04:05")
}
