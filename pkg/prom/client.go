// Package prom integrates the metrics endpoint: a thin instant-query client
// over the Prometheus HTTP API plus the service that validates settings and
// evaluates point-in-time recovery.
package prom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/watchops/incident-console/pkg/services"
)

const queryTimeout = 10 * time.Second

// Client fetches instant metric values from a Prometheus-compatible
// endpoint.
type Client struct{}

// NewClient creates a metrics query client.
func NewClient() *Client {
	return &Client{}
}

// InstantValue runs an instant query against the endpoint and returns the
// first sample's value. Transport failures, error responses, and empty or
// non-numeric results all surface as UpstreamError.
func (c *Client) InstantValue(ctx context.Context, baseURL, query string) (float64, error) {
	apiClient, err := api.NewClient(api.Config{Address: strings.TrimRight(baseURL, "/")})
	if err != nil {
		return 0, services.NewUpstreamError("Prometheus query failed", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	value, _, err := promv1.NewAPI(apiClient).Query(ctx, query, time.Now())
	if err != nil {
		return 0, services.NewUpstreamError("Prometheus query failed", err)
	}

	vector, ok := value.(model.Vector)
	if !ok {
		return 0, services.NewUpstreamError("Prometheus query failed",
			fmt.Errorf("unexpected result type %s", value.Type()))
	}
	if len(vector) == 0 {
		return 0, services.NewUpstreamError("Prometheus query failed",
			fmt.Errorf("query returned no samples"))
	}
	return float64(vector[0].Value), nil
}
