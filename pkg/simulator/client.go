package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/services"
)

const (
	executeTimeout = 5 * time.Second
	probeTimeout   = 500 * time.Millisecond
)

// Client calls the action simulator over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a simulator client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: executeTimeout},
	}
}

// Execute dispatches one action to the simulator and returns its result.
func (c *Client) Execute(ctx context.Context, executionID, action string) (models.ActionExecutionResult, error) {
	body, err := json.Marshal(executeRequest{ExecutionID: executionID, Action: action})
	if err != nil {
		return models.ActionExecutionResult{}, services.NewUpstreamError("Action simulator call failed", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return models.ActionExecutionResult{}, services.NewUpstreamError("Action simulator call failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Simulator failures abort the plan with a caller-visible 400; the
		// execution stays pending.
		return models.ActionExecutionResult{}, services.NewValidationError("Action simulator request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return models.ActionExecutionResult{}, services.NewValidationError(
			"Action simulator failed with HTTP %d", resp.StatusCode)
	}

	var reply executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return models.ActionExecutionResult{}, services.NewValidationError("Action simulator returned an invalid response")
	}
	return models.ActionExecutionResult{
		Action:     action,
		Status:     reply.Status,
		Detail:     reply.Detail,
		ExecutedAt: reply.ExecutedAt,
	}, nil
}

// Healthy probes the simulator health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
