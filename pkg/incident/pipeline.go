// Package incident turns a detected breach into a finalized incident: it
// generates the analysis, builds the report, queues the action plan, and
// delivers notifications with per-sink partial-failure accounting.
package incident

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/watchops/incident-console/pkg/analysis"
	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/slack"
	"github.com/watchops/incident-console/pkg/state"
)

// ReportGenerator produces the structured analysis for one incident.
type ReportGenerator interface {
	Generate(ctx context.Context, scenario models.AlertScenario, sample models.MetricSample) analysis.Analysis
}

// ActionQueuer creates a pending action plan from a finalized report.
type ActionQueuer interface {
	QueueFromReport(report models.IncidentReport) *models.ActionExecution
}

// ChatDispatcher delivers an incident narrative to the chat platform.
type ChatDispatcher interface {
	Dispatch(ctx context.Context, scenario models.AlertScenario, channelOverride, reportBody string) (slack.DispatchResult, error)
}

// KnowledgeRecorder snapshots finalized reports into the knowledge store.
type KnowledgeRecorder interface {
	RecordReport(report models.IncidentReport)
}

// Pipeline composes report generation, action queueing, and notification
// delivery for one detected incident.
type Pipeline struct {
	store     *state.Store
	generator ReportGenerator
	actions   ActionQueuer
	chat      ChatDispatcher
	knowledge KnowledgeRecorder
	logger    *slog.Logger
}

// NewPipeline creates an incident pipeline.
func NewPipeline(store *state.Store, generator ReportGenerator, actions ActionQueuer, chat ChatDispatcher, knowledge KnowledgeRecorder) *Pipeline {
	return &Pipeline{
		store:     store,
		generator: generator,
		actions:   actions,
		chat:      chat,
		knowledge: knowledge,
		logger:    slog.Default().With("component", "incident"),
	}
}

// HandleIncident runs the full pipeline for one scenario and its triggering
// sample. An incident is never lost to a sink failure; undelivered sinks are
// recorded on the report and the report is queued for acknowledgement.
func (p *Pipeline) HandleIncident(ctx context.Context, scenario models.AlertScenario, sample models.MetricSample) (models.IncidentReport, error) {
	result := p.generator.Generate(ctx, scenario, sample)

	actionItems := result.ActionPlan
	if len(actionItems) == 0 {
		actionItems = append([]string(nil), scenario.Actions...)
	}

	report := models.IncidentReport{
		ID:           uuid.New().String(),
		ScenarioCode: scenario.Code,
		Title:        scenario.Title,
		CreatedAt:    sample.Timestamp,
		ReportBody:   result.ReportText,
		Metrics:      sample,
		Summary:      result.Summary,
		RootCause:    result.RootCause,
		Impact:       result.Impact,
		ActionItems:  actionItems,
		FollowUp:     append([]string(nil), result.FollowUp...),
	}

	p.actions.QueueFromReport(report)

	report.RecipientsSent, report.RecipientsMissing = p.deliver(ctx, scenario, report.ReportBody)

	p.store.RecordIncident(scenario, report, buildFeedMessage(sample, report.RecipientsSent, report.RecipientsMissing))
	p.knowledge.RecordReport(report)

	if len(report.RecipientsMissing) > 0 {
		p.store.EnqueuePendingReport(report)
	}
	return report, nil
}

// deliver attempts each configured sink, collecting successes and missing
// reasons. Disabled or unconfigured sinks are recorded as missing, never
// raised as errors.
func (p *Pipeline) deliver(ctx context.Context, scenario models.AlertScenario, reportBody string) (sent, missing []string) {
	prefs := p.store.Preferences()
	chatSettings := p.store.Chat()

	switch {
	case !prefs.Chat:
		missing = append(missing, "Chat auto-delivery disabled in preferences")
	case strings.TrimSpace(chatSettings.Token) == "":
		missing = append(missing, "Chat settings are required")
	default:
		if _, err := p.chat.Dispatch(ctx, scenario, "", reportBody); err != nil {
			missing = append(missing, "Chat delivery failed: "+err.Error())
		} else {
			sent = append(sent, "chat")
		}
	}

	if len(sent) == 0 && len(missing) == 0 {
		missing = append(missing, "Automatic notifications disabled or missing configuration")
	}
	return sent, missing
}

func buildFeedMessage(sample models.MetricSample, sent, missing []string) string {
	delivered := "none"
	if len(sent) > 0 {
		delivered = strings.Join(sent, ", ")
	}
	undelivered := "none"
	if len(missing) > 0 {
		undelivered = strings.Join(missing, ", ")
	}
	return fmt.Sprintf(
		"Auto-detected anomaly (http=%.4f/%.4f, cpu=%.4f/%.4f) -> delivered=[%s] missing=[%s]",
		sample.HTTP, sample.HTTPThreshold, sample.CPU, sample.CPUThreshold, delivered, undelivered)
}
