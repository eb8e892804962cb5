// Package config loads the backend's runtime settings from environment
// variables and seeds the builtin alert scenarios.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Default thresholds applied when the saved settings leave them blank.
const (
	DefaultHTTPThreshold = 0.05
	DefaultCPUThreshold  = 0.80
)

// SMTPConfig holds the email sink's relay settings. An empty Host disables
// delivery without error.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

// Config is the process-wide configuration assembled from environment
// variables at startup.
type Config struct {
	Host     string
	Port     string
	LogLevel string

	SimHost string
	SimPort int

	DataDir string

	OpenAIKey string

	SMTP SMTPConfig
}

// Load reads the recognized INCIDENT_* environment variables, applying the
// documented defaults.
func Load() *Config {
	return &Config{
		Host:      getEnv("INCIDENT_BACKEND_HOST", "127.0.0.1"),
		Port:      getEnv("INCIDENT_BACKEND_PORT", "8001"),
		LogLevel:  getEnv("INCIDENT_BACKEND_LOG_LEVEL", "info"),
		SimHost:   getEnv("INCIDENT_ACTION_SIM_HOST", "127.0.0.1"),
		SimPort:   getEnvInt("INCIDENT_ACTION_SIM_PORT", 8765),
		DataDir:   getEnv("INCIDENT_DATA_DIR", "./rag_data"),
		OpenAIKey: strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		SMTP:      loadSMTP(),
	}
}

func loadSMTP() SMTPConfig {
	username := strings.TrimSpace(os.Getenv("INCIDENT_EMAIL_SMTP_USER"))
	sender := strings.TrimSpace(os.Getenv("INCIDENT_EMAIL_FROM"))
	if sender == "" {
		sender = username
	}
	if sender == "" {
		sender = "incident-console@example.com"
	}
	return SMTPConfig{
		Host:     strings.TrimSpace(os.Getenv("INCIDENT_EMAIL_SMTP_HOST")),
		Port:     getEnvInt("INCIDENT_EMAIL_SMTP_PORT", 587),
		Username: username,
		Password: os.Getenv("INCIDENT_EMAIL_SMTP_PASSWORD"),
		From:     sender,
		UseTLS:   os.Getenv("INCIDENT_EMAIL_SMTP_TLS") != "0",
	}
}

// SimBaseURL returns the base URL the simulator listens on.
func (c *Config) SimBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.SimHost, c.SimPort)
}

// Addr returns the HTTP server bind address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// ParseThreshold parses a numeric threshold string. A blank value falls back
// to the provided default; negative values are rejected.
func ParseThreshold(value string, def float64) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def, nil
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("threshold %q is not numeric", trimmed)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("threshold must be zero or greater")
	}
	return parsed, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
