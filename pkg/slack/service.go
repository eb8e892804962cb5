package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/services"
	"github.com/watchops/incident-console/pkg/state"
)

// DefaultChannel receives incident notifications when no channel is saved.
const DefaultChannel = "#ops-incident"

// Service validates and persists chat settings and dispatches incident
// notifications according to the saved preferences.
type Service struct {
	store *state.Store
	api   API
}

// NewService creates a chat service over the shared state store.
func NewService(store *state.Store, api API) *Service {
	return &Service{store: store, api: api}
}

// TestResult reports a successful connectivity probe.
type TestResult struct {
	Workspace string `json:"workspace"`
	BotUser   string `json:"bot_user"`
}

// DispatchResult identifies where a manual dispatch landed.
type DispatchResult struct {
	Channel   string `json:"channel"`
	Workspace string `json:"workspace"`
}

// Test probes the given token against the chat platform without saving it.
func (s *Service) Test(ctx context.Context, token string) (TestResult, error) {
	if strings.TrimSpace(token) == "" {
		return TestResult{}, services.NewValidationError("chat token is required")
	}
	info, err := s.api.AuthTest(ctx, token)
	if err != nil {
		return TestResult{}, services.NewUpstreamError("Chat auth test failed", err)
	}
	return TestResult{Workspace: info.Team, BotUser: info.User}, nil
}

// Save persists chat settings and returns the confirmation message. The
// token is never echoed back; callers see only the configured flag in state
// snapshots.
func (s *Service) Save(settings state.ChatSettings) (string, error) {
	if strings.TrimSpace(settings.Token) == "" {
		return "", services.NewValidationError("chat token is required")
	}
	workspace := settings.Workspace
	if workspace == "" {
		workspace = "workspace"
	}
	message := fmt.Sprintf("Chat settings saved (%s)", workspace)
	s.store.SetChat(settings, message)
	return message, nil
}

// Dispatch posts an incident notification. An empty reportBody falls back to
// a short scenario digest; channelOverride takes precedence over the saved
// channel. Disabled preferences and a missing token are ValidationErrors so
// the pipeline can record the delivery as skipped rather than failed.
func (s *Service) Dispatch(ctx context.Context, scenario models.AlertScenario, channelOverride, reportBody string) (DispatchResult, error) {
	prefs := s.store.Preferences()
	settings := s.store.Chat()
	workspace := settings.Workspace
	if workspace == "" {
		workspace = "workspace"
	}
	channel := channelOverride
	if channel == "" {
		channel = settings.Channel
	}
	if channel == "" {
		channel = DefaultChannel
	}

	if !prefs.Chat {
		return DispatchResult{}, services.NewValidationError("chat auto notifications are disabled")
	}
	if strings.TrimSpace(settings.Token) == "" {
		return DispatchResult{}, services.NewValidationError("chat token is not configured")
	}

	message := reportBody
	if message == "" {
		message = buildMessage(scenario)
	}
	if err := s.api.PostMessage(ctx, settings.Token, channel, message); err != nil {
		return DispatchResult{}, services.NewUpstreamError("Chat delivery failed", err)
	}
	s.store.AppendFeed(fmt.Sprintf("Chat incident dispatched to %s (%s)", channel, workspace))
	return DispatchResult{Channel: channel, Workspace: workspace}, nil
}

func buildMessage(scenario models.AlertScenario) string {
	lines := []string{
		":rotating_light: " + scenario.Title,
		"Source: " + scenario.Source,
		"Top hypotheses:",
	}
	for i, item := range scenario.Hypotheses {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
	}
	lines = append(lines, "Recommended next step:")
	if len(scenario.Actions) > 0 {
		lines = append(lines, scenario.Actions[0])
	}
	return strings.Join(lines, "\n")
}
