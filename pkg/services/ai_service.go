package services

import (
	"strings"

	"github.com/watchops/incident-console/pkg/state"
)

// AIService stores the LLM credential and propagates changes to the
// components that consume it.
type AIService struct {
	store    *state.Store
	onChange func(apiKey string)
}

// NewAIService creates an AI settings service. onChange runs after every
// save with the new key; pass the hook that reconfigures the report
// generator and the embedding index.
func NewAIService(store *state.Store, onChange func(apiKey string)) *AIService {
	return &AIService{store: store, onChange: onChange}
}

// Save stores the credential (an empty value removes it) and returns the
// confirmation message.
func (s *AIService) Save(apiKey string) string {
	key := strings.TrimSpace(apiKey)
	message := "OpenAI API key configured."
	if key == "" {
		message = "OpenAI API key removed."
	}
	s.store.SetAIKey(key, message)
	if s.onChange != nil {
		s.onChange(key)
	}
	return message
}
