package api

// ChatSettingsRequest is the body of POST /chat/test and POST /chat/save.
type ChatSettingsRequest struct {
	Token     string `json:"token"`
	Channel   string `json:"channel"`
	Workspace string `json:"workspace"`
}

// ChatDispatchRequest is the body of POST /chat/dispatch.
type ChatDispatchRequest struct {
	Channel string `json:"channel"`
}

// MetricsTestRequest is the body of POST /metrics/test.
type MetricsTestRequest struct {
	URL       string `json:"url"`
	HTTPQuery string `json:"http_query"`
	CPUQuery  string `json:"cpu_query"`
}

// MetricsSettingsRequest is the body of POST /metrics/save.
type MetricsSettingsRequest struct {
	URL           string `json:"url"`
	HTTPQuery     string `json:"http_query"`
	HTTPThreshold string `json:"http_threshold"`
	CPUQuery      string `json:"cpu_query"`
	CPUThreshold  string `json:"cpu_threshold"`
}

// AISettingsRequest is the body of POST /ai/save.
type AISettingsRequest struct {
	APIKey string `json:"api_key"`
}

// PreferencesRequest is the body of POST /notifications/preferences.
type PreferencesRequest struct {
	Chat bool `json:"chat"`
}

// RecipientRequest is the body of POST /notifications/emails.
type RecipientRequest struct {
	Email string `json:"email"`
}
