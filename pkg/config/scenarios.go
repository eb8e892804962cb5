package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/watchops/incident-console/pkg/models"
)

// BuiltinScenarios returns the seeded alert scenarios. The two entries match
// the cause codes the sampling monitor can raise.
func BuiltinScenarios() []models.AlertScenario {
	return []models.AlertScenario{
		{
			Code:        models.CodeHTTP5xxSurge,
			Title:       "Nginx 5xx surge on checkout API",
			Source:      "Prometheus http_error_rate",
			Description: "http_error_rate exceeded threshold triggering chat notification",
			Hypotheses: []string{
				"Recent deploy introduced regression in request validation",
				"Upstream payment provider timeout cascading to gateway",
				"Auto-scaling group missing warm instances causing cold start failures",
			},
			Evidences: []string{
				"http_error_rate > 12% over 5m",
				"Deployment build #20250925.3 rolled out 5 min before alert",
				"Gateway pods restarted 3 times within 10m",
			},
			Actions: []string{
				"Roll back checkout-service to build #20250925.2",
				"Scale gateway pool to 2x to absorb traffic spike",
				"Notify product manager in #ops-incident",
			},
		},
		{
			Code:        models.CodeCPUSpikeCore,
			Title:       "Edge node CPU spike",
			Source:      "Prometheus cpu_usage",
			Description: "cpu_usage exceeded 90% triggering incident ticket",
			Hypotheses: []string{
				"Ashburn edge node receiving concentrated traffic burst",
				"New Prometheus scrape job running hot due to misconfigured interval",
				"Background batch job pinned to shared core",
			},
			Evidences: []string{
				"cpu_usage >= 92% for 10 mins on edge-node-03",
				"Load balancer sticky sessions skewed toward node",
				"No matching deployment in the change log",
			},
			Actions: []string{
				"Rebalance traffic by updating load balancer weights",
				"Throttle scrape interval for experimental dashboard",
				"Open outage ticket for visibility",
			},
		},
	}
}

// LoadScenarios returns the scenario seed list, replaced by the contents of
// an optional scenarios.yaml override file when one exists at the given
// path. A missing file is not an error; a malformed one is.
func LoadScenarios(path string) ([]models.AlertScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return BuiltinScenarios(), nil
		}
		return nil, fmt.Errorf("read scenario overrides %s: %w", path, err)
	}

	var overrides []models.AlertScenario
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse scenario overrides %s: %w", path, err)
	}
	if len(overrides) == 0 {
		return BuiltinScenarios(), nil
	}
	for _, sc := range overrides {
		if sc.Code == "" || sc.Title == "" {
			return nil, fmt.Errorf("scenario overrides %s: code and title are required", path)
		}
	}
	return overrides, nil
}
