package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchops/incident-console/pkg/models"
)

func TestLoadScenariosMissingFileReturnsBuiltins(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join(t.TempDir(), "scenarios.yaml"))
	require.NoError(t, err)

	require.Len(t, scenarios, 2)
	assert.Equal(t, models.CodeHTTP5xxSurge, scenarios[0].Code)
	assert.Equal(t, models.CodeCPUSpikeCore, scenarios[1].Code)
}

func TestLoadScenariosOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	content := `
- code: disk_pressure
  title: Disk pressure on storage nodes
  source: Prometheus disk_usage
  description: disk usage exceeded threshold
  hypotheses:
    - Log rotation stopped
  evidences:
    - disk_usage > 90%
  actions:
    - Purge old log archives
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	scenarios, err := LoadScenarios(path)
	require.NoError(t, err)

	require.Len(t, scenarios, 1)
	assert.Equal(t, "disk_pressure", scenarios[0].Code)
	assert.Equal(t, []string{"Purge old log archives"}, scenarios[0].Actions)
}

func TestLoadScenariosEmptyOverrideFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o644))

	scenarios, err := LoadScenarios(path)
	require.NoError(t, err)
	assert.Len(t, scenarios, 2)
}

func TestLoadScenariosRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := LoadScenarios(path)
	require.Error(t, err)
}

func TestLoadScenariosRequiresCodeAndTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- source: somewhere\n"), 0o644))

	_, err := LoadScenarios(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code and title are required")
}
