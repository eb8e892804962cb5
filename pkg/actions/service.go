// Package actions manages the approval lifecycle of remediation plans:
// queueing one per incident report, dispatching approved plans through the
// action simulator, deferring plans for manual review, and writing every
// outcome back to the knowledge store.
package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/services"
	"github.com/watchops/incident-console/pkg/state"
)

// SimulatorClient dispatches a single action to the action simulator.
type SimulatorClient interface {
	Execute(ctx context.Context, executionID, action string) (models.ActionExecutionResult, error)
}

// KnowledgeWriter records action outcomes in the knowledge store.
type KnowledgeWriter interface {
	RecordExecuted(execution models.ActionExecution)
	RecordDeferred(execution models.ActionExecution)
}

// StatusNotifier delivers action-status notifications. Implementations never
// fail the originating call.
type StatusNotifier interface {
	SendActionStatus(execution models.ActionExecution, status string)
}

// Service orchestrates action plan queueing, execution, and deferral.
type Service struct {
	store     *state.Store
	sim       SimulatorClient
	knowledge KnowledgeWriter
	notifier  StatusNotifier
}

// NewService creates an action service. notifier may be nil when email
// delivery is not configured.
func NewService(store *state.Store, sim SimulatorClient, knowledge KnowledgeWriter, notifier StatusNotifier) *Service {
	return &Service{store: store, sim: sim, knowledge: knowledge, notifier: notifier}
}

// QueueFromReport creates a pending ActionExecution from a report's action
// items. Blank items are dropped; a report with no usable actions queues
// nothing and returns nil.
func (s *Service) QueueFromReport(report models.IncidentReport) *models.ActionExecution {
	actions := make([]string, 0, len(report.ActionItems))
	for _, item := range report.ActionItems {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			actions = append(actions, trimmed)
		}
	}
	if len(actions) == 0 {
		return nil
	}

	execution := models.ActionExecution{
		ID:            uuid.New().String(),
		ReportID:      report.ID,
		ScenarioCode:  report.ScenarioCode,
		ScenarioTitle: report.Title,
		CreatedAt:     report.CreatedAt,
		Actions:       actions,
		Status:        models.ExecutionPending,
	}
	s.store.AppendExecution(execution,
		fmt.Sprintf("Action plan ready for approval (%s)", execution.ScenarioTitle))
	return &execution
}

// ExecutePending dispatches every action of a pending plan to the simulator,
// sequentially. Any simulator failure aborts the whole plan and leaves it
// pending. An already-executed plan is returned unchanged.
func (s *Service) ExecutePending(ctx context.Context, executionID string) (models.ActionExecution, error) {
	execution, ok := s.store.FindExecution(executionID)
	if !ok {
		return models.ActionExecution{}, services.NewValidationError("unknown action execution request")
	}
	if execution.Status == models.ExecutionExecuted {
		return execution, nil
	}

	results := make([]models.ActionExecutionResult, 0, len(execution.Actions))
	for _, action := range execution.Actions {
		result, err := s.sim.Execute(ctx, executionID, action)
		if err != nil {
			return models.ActionExecution{}, err
		}
		if result.ExecutedAt == "" {
			result.ExecutedAt = models.UTCNow()
		}
		result.Action = action
		results = append(results, result)
	}

	executedAt := models.UTCNow()
	updated, found, transitioned := s.store.MarkExecuted(executionID, executedAt, results,
		fmt.Sprintf("Executed %d action(s) for %s", len(results), execution.ScenarioTitle))
	if !found {
		return models.ActionExecution{}, services.NewValidationError("unknown action execution request")
	}
	if !transitioned {
		return updated, nil
	}

	s.store.AddRecoveryCheck(models.RecoveryCheck{
		ExecutionID:   updated.ID,
		ScenarioCode:  updated.ScenarioCode,
		ScenarioTitle: updated.ScenarioTitle,
		StartedAt:     executedAt,
		Status:        models.RecoveryPending,
	})
	if s.knowledge != nil {
		s.knowledge.RecordExecuted(updated)
	}
	if s.notifier != nil {
		s.notifier.SendActionStatus(updated, models.ExecutionExecuted)
	}
	return updated, nil
}

// DeferExecution parks a pending plan for manual review. An already-executed
// plan is returned unchanged.
func (s *Service) DeferExecution(executionID string) (models.ActionExecution, error) {
	execution, found, transitioned := s.store.MarkDeferred(executionID,
		deferFeedMessage(s.store, executionID))
	if !found {
		return models.ActionExecution{}, services.NewValidationError("unknown action execution request")
	}
	if !transitioned {
		return execution, nil
	}

	if s.knowledge != nil {
		s.knowledge.RecordDeferred(execution)
	}
	if s.notifier != nil {
		s.notifier.SendActionStatus(execution, models.ExecutionDeferred)
	}
	return execution, nil
}

func deferFeedMessage(store *state.Store, executionID string) string {
	title := "action plan"
	if execution, ok := store.FindExecution(executionID); ok {
		title = execution.ScenarioTitle
	}
	return fmt.Sprintf("Stored action plan for manual review (%s)", title)
}
