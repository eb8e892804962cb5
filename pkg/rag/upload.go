package rag

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/watchops/incident-console/pkg/models"
)

// uploadEntry is one document candidate from an uploaded JSON payload.
// Content may arrive under content, text, or body.
type uploadEntry struct {
	Content        string         `json:"content"`
	Text           string         `json:"text"`
	Body           string         `json:"body"`
	Title          string         `json:"title"`
	Summary        string         `json:"summary"`
	ScenarioCode   string         `json:"scenario_code"`
	Status         string         `json:"status"`
	Type           string         `json:"type"`
	RecoveryStatus string         `json:"recovery_status"`
	Actions        []string       `json:"actions"`
	CreatedAt      string         `json:"created_at"`
	Metadata       map[string]any `json:"metadata"`
}

type uploadWrapper struct {
	Documents []uploadEntry `json:"documents"`
}

// ParseUpload turns an uploaded .txt or .json file into knowledge documents.
// Every error is a caller mistake and maps to a 400 at the API layer.
func ParseUpload(filename string, data []byte) ([]Document, error) {
	if len(data) == 0 {
		return nil, errors.New("uploaded file is empty")
	}
	if !utf8.Valid(data) {
		return nil, errors.New("uploaded file must be UTF-8 encoded")
	}

	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		entry := uploadEntry{Content: string(data), Title: stem}
		return []Document{buildUploadDocument(entry, stem)}, nil
	case ".json":
		entries, err := parseJSONEntries(data)
		if err != nil {
			return nil, err
		}
		docs := make([]Document, 0, len(entries))
		for i, entry := range entries {
			if strings.TrimSpace(entry.content()) == "" {
				return nil, fmt.Errorf("document %d has no content", i+1)
			}
			docs = append(docs, buildUploadDocument(entry, stem))
		}
		return docs, nil
	default:
		return nil, errors.New("only .txt and .json uploads are supported")
	}
}

func (e uploadEntry) content() string {
	if e.Content != "" {
		return e.Content
	}
	if e.Text != "" {
		return e.Text
	}
	return e.Body
}

func parseJSONEntries(data []byte) ([]uploadEntry, error) {
	var list []uploadEntry
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) == 0 {
			return nil, errors.New("uploaded JSON contains no documents")
		}
		return list, nil
	}

	var wrapper uploadWrapper
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, errors.New("uploaded file is not valid JSON")
	}
	if len(wrapper.Documents) > 0 {
		return wrapper.Documents, nil
	}

	var single uploadEntry
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, errors.New("uploaded file is not valid JSON")
	}
	return []uploadEntry{single}, nil
}

func buildUploadDocument(entry uploadEntry, stem string) Document {
	title := entry.Title
	if strings.TrimSpace(title) == "" {
		title = stem
	}
	docType := entry.Type
	if docType == "" {
		docType = TypeUploaded
	}
	status := entry.Status
	if status == "" {
		status = "reference"
	}
	createdAt := entry.CreatedAt
	if createdAt == "" {
		createdAt = models.UTCNow()
	}

	metadata := make(map[string]any, len(entry.Metadata)+8)
	for k, v := range entry.Metadata {
		metadata[k] = v
	}
	metadata["type"] = docType
	metadata["status"] = status
	metadata["title"] = title
	metadata["created_at"] = createdAt
	if entry.ScenarioCode != "" {
		metadata["scenario_code"] = entry.ScenarioCode
	}
	if entry.Summary != "" {
		metadata["summary"] = entry.Summary
	}
	if entry.RecoveryStatus != "" {
		metadata["recovery_status"] = entry.RecoveryStatus
	}
	if len(entry.Actions) > 0 {
		metadata["actions"] = append([]string(nil), entry.Actions...)
	}

	return Document{
		DocKey:       "uploaded:" + uuid.New().String(),
		Content:      entry.content(),
		CreatedAt:    createdAt,
		Title:        title,
		Summary:      entry.Summary,
		ScenarioCode: entry.ScenarioCode,
		Status:       status,
		Type:         docType,
		Metadata:     metadata,
	}
}
