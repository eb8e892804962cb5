package rag

import (
	"context"
	"strings"

	"github.com/watchops/incident-console/pkg/models"
)

// BuildContextForScenario assembles the retrieval context string used to
// ground report generation. Preference order: approved actions for the
// scenario, then any related history, then recent approved action strings.
// Returns "" when the store holds nothing relevant.
func (s *Store) BuildContextForScenario(ctx context.Context, scenario models.AlertScenario, limit int) string {
	query := strings.Join(nonEmpty(
		scenario.Title,
		scenario.Description,
		scenario.Source,
		strings.Join(scenario.Actions, " "),
	), " ")

	documents := s.Search(ctx, query, limit, map[string]string{
		"scenario_code": scenario.Code,
		"status":        models.ExecutionExecuted,
	})
	prefix := "Previously approved actions:"
	if len(documents) == 0 {
		documents = s.Search(ctx, query, limit, map[string]string{
			"scenario_code": scenario.Code,
		})
		prefix = "Related history:"
	}

	if len(documents) > 0 {
		lines := []string{prefix}
		for _, doc := range documents {
			title := doc.Title
			if title == "" {
				title = scenario.Title
			}
			status := doc.Status
			if status == "" {
				status = "reference"
			}
			summary := doc.Summary
			if summary == "" {
				summary = snippet(doc.Content, 200)
			}
			lines = append(lines, "- ["+status+"] "+title+" ("+doc.CreatedAt+")")
			lines = append(lines, "  "+summary)
		}
		return strings.Join(lines, "\n")
	}

	approved := s.RecentActions(scenario.Code, models.ExecutionExecuted, limit)
	if len(approved) > 0 {
		lines := []string{"Previously approved actions:"}
		for _, item := range approved {
			lines = append(lines, "- "+item)
		}
		return strings.Join(lines, "\n")
	}
	return ""
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
	}
	return out
}

func snippet(text string, max int) string {
	flat := strings.ReplaceAll(text, "\n", " ")
	if len(flat) > max {
		return flat[:max]
	}
	return flat
}
