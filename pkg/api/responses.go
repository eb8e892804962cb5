package api

import (
	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/rag"
)

// MessageResponse carries a single human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// DocumentsResponse is the body of GET /rag/documents.
type DocumentsResponse struct {
	Documents []rag.Document `json:"documents"`
}

// UploadResponse is the body of POST /rag/upload.
type UploadResponse struct {
	Message   string   `json:"message"`
	Documents []string `json:"documents"`
}

// MetricsTestResponse is the body of POST /metrics/test.
type MetricsTestResponse struct {
	HTTP float64 `json:"http"`
	CPU  float64 `json:"cpu"`
}

// ExecutionResponse wraps an action execution.
type ExecutionResponse struct {
	Execution models.ActionExecution `json:"execution"`
}

// AckResponse is the body of POST /notifications/pending/:id/ack.
type AckResponse struct {
	Status   string `json:"status"`
	ReportID string `json:"report_id"`
}

// RecipientsResponse is the body of GET /notifications/emails.
type RecipientsResponse struct {
	Emails []models.EmailRecipient `json:"emails"`
}

// RecipientResponse wraps a newly registered recipient.
type RecipientResponse struct {
	Recipient models.EmailRecipient `json:"recipient"`
}

// RemovedResponse identifies a deleted recipient.
type RemovedResponse struct {
	Removed string `json:"removed"`
}
