// Package analysis produces the structured incident analysis behind every
// report: an LLM-backed path grounded with knowledge base context, and a
// deterministic fallback used whenever the LLM is absent or unusable.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/watchops/incident-console/pkg/models"
)

const (
	analysisModel       = "gpt-4o-mini"
	analysisTemperature = 0.3
	analysisMaxTokens   = 900
	contextLimit        = 4
	approvedLimit       = 5
)

const systemPrompt = `You are an incident analyst on an SRE team. Using the monitoring
results provided, analyze the incident's cause, the affected areas, the
immediate actions to take, and the follow-up work.

Required content:
1. Summary: two or three sentences covering the incident and the threshold breach
2. Root Cause: the most likely root cause, flagged as a hypothesis when uncertain
3. Impact: the effect on customers and systems
4. Action Plan: a list of executable actions, each with a short reason
5. Follow-up: one or two items that deserve further review

Respond with JSON only, following this schema exactly:
{
  "summary": "...",
  "root_cause": "...",
  "impact": "...",
  "action_plan": ["..."],
  "follow_up": ["..."]
}`

// ChatClient is the slice of the OpenAI API the generator needs. Satisfied
// by *openai.Client and stubbed in tests.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ContextProvider supplies retrieval context from the knowledge store.
type ContextProvider interface {
	BuildContextForScenario(ctx context.Context, scenario models.AlertScenario, limit int) string
	RecentActions(scenarioCode, status string, limit int) []string
}

// Analysis is the structured output of one report generation.
type Analysis struct {
	Summary    string
	RootCause  string
	Impact     string
	ActionPlan []string
	FollowUp   []string
	ReportText string
}

// Generator builds incident analyses. The LLM client is swapped whenever the
// credential changes; a nil client selects the deterministic fallback.
type Generator struct {
	provider ContextProvider
	logger   *slog.Logger

	newClient func(apiKey string) ChatClient

	mu     sync.Mutex
	client ChatClient
}

// NewGenerator creates a generator over the given context provider. An empty
// apiKey leaves the LLM path disabled.
func NewGenerator(provider ContextProvider, apiKey string) *Generator {
	g := &Generator{
		provider:  provider,
		logger:    slog.Default().With("component", "analysis"),
		newClient: func(key string) ChatClient { return openai.NewClient(key) },
	}
	g.SetAPIKey(apiKey)
	return g
}

// SetAPIKey installs or removes the LLM credential.
func (g *Generator) SetAPIKey(apiKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if strings.TrimSpace(apiKey) == "" {
		g.client = nil
		return
	}
	g.client = g.newClient(apiKey)
}

func (g *Generator) chatClient() ChatClient {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client
}

// Generate produces the analysis for one scenario and its triggering
// sample. It never fails; any LLM problem degrades to the fallback.
func (g *Generator) Generate(ctx context.Context, scenario models.AlertScenario, sample models.MetricSample) Analysis {
	ragContext := ""
	var approved []string
	if g.provider != nil {
		ragContext = g.provider.BuildContextForScenario(ctx, scenario, contextLimit)
		approved = g.provider.RecentActions(scenario.Code, models.ExecutionExecuted, approvedLimit)
	}

	result, ok := g.generateWithLLM(ctx, scenario, sample, ragContext)
	if !ok {
		result = fallbackAnalysis(scenario, sample, approved)
	}

	result.ActionPlan = prioritizeActions(approved, result.ActionPlan, scenario.Actions)
	result.ReportText = buildReportText(result, scenario, sample)
	return result
}

func (g *Generator) generateWithLLM(ctx context.Context, scenario models.AlertScenario, sample models.MetricSample, ragContext string) (Analysis, bool) {
	client := g.chatClient()
	if client == nil {
		return Analysis{}, false
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       analysisModel,
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(scenario, sample, ragContext)},
		},
	})
	if err != nil {
		g.logger.Error("LLM analysis failed, using fallback", "error", err)
		return Analysis{}, false
	}
	if len(resp.Choices) == 0 {
		g.logger.Warn("LLM returned no choices, using fallback")
		return Analysis{}, false
	}

	parsed, ok := parseAnalysisReply(resp.Choices[0].Message.Content)
	if !ok {
		g.logger.Warn("LLM reply was not parseable JSON, using fallback")
		return Analysis{}, false
	}
	return parsed, true
}

func buildUserPrompt(scenario models.AlertScenario, sample models.MetricSample, ragContext string) string {
	sections := []string{
		"Incident Title: " + scenario.Title,
		"Source Metric: " + scenario.Source,
		"Detected At (UTC): " + sample.Timestamp,
		fmt.Sprintf("HTTP Error Rate: %.4f (threshold %.4f)", sample.HTTP, sample.HTTPThreshold),
		fmt.Sprintf("CPU Usage: %.4f (threshold %.4f)", sample.CPU, sample.CPUThreshold),
		"",
		"Hypotheses:\n" + bulletList(scenario.Hypotheses),
		"",
		"Evidence:\n" + bulletList(scenario.Evidences),
		"",
		"Recommended Actions (playbook):\n" + bulletList(scenario.Actions),
	}
	if ragContext != "" {
		sections = append(sections, "", "Knowledge base context:\n"+ragContext)
	}
	return strings.Join(sections, "\n")
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// stringList tolerates the LLM returning a bare string where the schema asks
// for an array.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = []string{single}
	return nil
}

type analysisReply struct {
	Summary    string     `json:"summary"`
	RootCause  string     `json:"root_cause"`
	Impact     string     `json:"impact"`
	ActionPlan stringList `json:"action_plan"`
	FollowUp   stringList `json:"follow_up"`
}

// parseAnalysisReply decodes the LLM reply, retrying on the largest brace
// delimited substring when the raw text is not valid JSON.
func parseAnalysisReply(text string) (Analysis, bool) {
	var reply analysisReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &reply); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return Analysis{}, false
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &reply); err != nil {
			return Analysis{}, false
		}
	}
	return Analysis{
		Summary:    reply.Summary,
		RootCause:  reply.RootCause,
		Impact:     reply.Impact,
		ActionPlan: reply.ActionPlan,
		FollowUp:   reply.FollowUp,
	}, true
}

func fallbackAnalysis(scenario models.AlertScenario, sample models.MetricSample, approved []string) Analysis {
	summary := fmt.Sprintf(
		"As of %s UTC the '%s' path breached its thresholds: HTTP error rate %.2f against %.2f and CPU usage at %.2f.",
		sample.Timestamp, scenario.Title, sample.HTTP, sample.HTTPThreshold, sample.CPU)

	rootCause := "No hypotheses have been collected; further investigation is required."
	if len(scenario.Hypotheses) > 0 {
		rootCause = scenario.Hypotheses[0]
	}

	plan := append([]string(nil), approved...)
	plan = append(plan, scenario.Actions...)
	plan = append(plan, "Check the Prometheus dashboards and service logs for further metric anomalies.")

	return Analysis{
		Summary:    summary,
		RootCause:  rootCause,
		Impact:     "If the breach persists, user-facing latency and a wider outage are likely.",
		ActionPlan: plan,
		FollowUp:   []string{"Review recent deployment and infrastructure changes for correlation"},
	}
}

// prioritizeActions merges previously approved actions ahead of proposed
// ones, deduplicating by exact string and keeping first occurrence. An empty
// merge falls back to the scenario's static playbook.
func prioritizeActions(approved, proposed, playbook []string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, group := range [][]string{approved, proposed} {
		for _, action := range group {
			trimmed := strings.TrimSpace(action)
			if trimmed == "" {
				continue
			}
			if _, dup := seen[trimmed]; dup {
				continue
			}
			seen[trimmed] = struct{}{}
			merged = append(merged, trimmed)
		}
	}
	if len(merged) == 0 {
		return append([]string(nil), playbook...)
	}
	return merged
}

func buildReportText(a Analysis, scenario models.AlertScenario, sample models.MetricSample) string {
	summary := a.Summary
	if summary == "" {
		summary = "Summary is not available yet."
	}
	rootCause := a.RootCause
	if rootCause == "" {
		rootCause = "Root cause analysis is still required."
	}
	impact := a.Impact
	if impact == "" {
		impact = "Impact assessment is in progress."
	}
	actions := "- (undetermined)"
	if len(a.ActionPlan) > 0 {
		actions = bulletList(a.ActionPlan)
	}
	followUp := "- (undetermined)"
	if len(a.FollowUp) > 0 {
		followUp = bulletList(a.FollowUp)
	}

	return strings.Join([]string{
		"Incident: " + scenario.Title,
		"Detected (UTC): " + sample.Timestamp,
		fmt.Sprintf("Metrics: HTTP %.4f/%.4f, CPU %.4f/%.4f",
			sample.HTTP, sample.HTTPThreshold, sample.CPU, sample.CPUThreshold),
		"",
		"Summary:",
		summary,
		"",
		"Root Cause:",
		rootCause,
		"",
		"Impact:",
		impact,
		"",
		"Action Plan:",
		actions,
		"",
		"Follow-up:",
		followUp,
	}, "\n")
}
