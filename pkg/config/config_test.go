package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		def       float64
		expected  float64
		expectErr bool
	}{
		{name: "blank falls back to default", value: "", def: 0.05, expected: 0.05},
		{name: "whitespace falls back to default", value: "   ", def: 0.80, expected: 0.80},
		{name: "valid value", value: "0.12", def: 0.05, expected: 0.12},
		{name: "zero is allowed", value: "0", def: 0.05, expected: 0},
		{name: "non numeric", value: "abc", def: 0.05, expectErr: true},
		{name: "negative", value: "-0.1", def: 0.05, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseThreshold(tt.value, tt.def)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "127.0.0.1:8001", cfg.Addr())
	assert.Equal(t, "http://127.0.0.1:8765", cfg.SimBaseURL())
	assert.Equal(t, "./rag_data", cfg.DataDir)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("INCIDENT_BACKEND_HOST", "0.0.0.0")
	t.Setenv("INCIDENT_BACKEND_PORT", "9000")
	t.Setenv("INCIDENT_ACTION_SIM_PORT", "9100")
	t.Setenv("INCIDENT_EMAIL_SMTP_USER", "ops@example.com")

	cfg := Load()

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, 9100, cfg.SimPort)
	assert.Equal(t, "ops@example.com", cfg.SMTP.Username)
	assert.Equal(t, "ops@example.com", cfg.SMTP.From)
}
