package services

import (
	"fmt"
	"math/rand/v2"

	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/state"
)

// AlertService exposes the manual alert trigger and state snapshot used by
// the front-end console.
type AlertService struct {
	store *state.Store
}

// NewAlertService creates an alert service over the shared state store.
func NewAlertService(store *state.Store) *AlertService {
	return &AlertService{store: store}
}

// TriggerPayload is the response body of POST /alerts/trigger.
type TriggerPayload struct {
	Scenario      models.AlertScenario `json:"scenario"`
	AlertEntry    string               `json:"alert_entry"`
	FeedMessage   string               `json:"feed_message"`
	Hypotheses    []string             `json:"hypotheses"`
	Evidence      []string             `json:"evidence"`
	Actions       []string             `json:"actions"`
	VerifyEnabled bool                 `json:"verify_enabled"`
}

// Trigger fires a random scenario as a manual alert, records it in the
// history, and returns the drill-down payload for the console.
func (s *AlertService) Trigger() (TriggerPayload, error) {
	scenarios := s.store.Scenarios()
	if len(scenarios) == 0 {
		return TriggerPayload{}, NewValidationError("no scenarios are configured")
	}
	scenario := scenarios[rand.IntN(len(scenarios))]

	channel := s.store.Chat().Channel
	if channel == "" {
		channel = "#ops-incident"
	}

	alertLabel := fmt.Sprintf("[%s] %s", models.ClockTime(), scenario.Title)
	feedMessage := fmt.Sprintf("Alertmanager fired %s -> chat %s", scenario.Code, channel)

	s.store.RecordAlert(alertLabel, scenario)
	s.store.AppendFeed(feedMessage)

	evidence := make([]string, 0, len(scenario.Evidences)+1)
	for _, line := range scenario.Evidences {
		evidence = append(evidence, "- "+line)
	}
	evidence = append(evidence, "- Linked metrics: http_error_rate, cpu_usage")

	actions := append(append([]string(nil), scenario.Actions...),
		"Post action: verify Prometheus metrics (http_error_rate, cpu_usage)")

	return TriggerPayload{
		Scenario:      scenario,
		AlertEntry:    alertLabel,
		FeedMessage:   feedMessage,
		Hypotheses:    enumerateLines(scenario.Hypotheses),
		Evidence:      evidence,
		Actions:       enumerateLines(actions),
		VerifyEnabled: true,
	}, nil
}

// RequireLastAlert returns the most recently triggered scenario or a
// validation error when no alert has fired yet.
func (s *AlertService) RequireLastAlert() (models.AlertScenario, error) {
	scenario, ok := s.store.LastAlert()
	if !ok {
		return models.AlertScenario{}, NewValidationError("no alert has been triggered yet")
	}
	return scenario, nil
}

// GetState returns the full deep-copied state snapshot.
func (s *AlertService) GetState() state.Snapshot {
	return s.store.Snapshot()
}

func enumerateLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = fmt.Sprintf("%d. %s", i+1, line)
	}
	return out
}
