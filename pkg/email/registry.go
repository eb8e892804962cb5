// Package email manages the notification recipient registry and delivers
// action-status updates over SMTP.
package email

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/services"
	"github.com/watchops/incident-console/pkg/state"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Registry manages the email recipient list in the shared state store.
type Registry struct {
	store *state.Store
}

// NewRegistry creates a recipient registry over the shared state store.
func NewRegistry(store *state.Store) *Registry {
	return &Registry{store: store}
}

// List returns all registered recipients.
func (r *Registry) List() []models.EmailRecipient {
	return r.store.Recipients()
}

// Add registers a new recipient. The address is lowercased and validated;
// duplicates are rejected case-insensitively.
func (r *Registry) Add(address string) (models.EmailRecipient, error) {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if normalized == "" || !emailPattern.MatchString(normalized) {
		return models.EmailRecipient{}, services.NewValidationError("enter a valid email address")
	}
	recipient := models.EmailRecipient{
		ID:        uuid.New().String(),
		Email:     normalized,
		CreatedAt: models.UTCNow(),
	}
	if !r.store.AddRecipient(recipient) {
		return models.EmailRecipient{}, services.NewValidationError("email is already registered")
	}
	return recipient, nil
}

// Remove deletes a recipient by id.
func (r *Registry) Remove(recipientID string) (models.EmailRecipient, error) {
	if strings.TrimSpace(recipientID) == "" {
		return models.EmailRecipient{}, services.NewValidationError("select a recipient to remove")
	}
	removed, ok := r.store.RemoveRecipient(recipientID)
	if !ok {
		return models.EmailRecipient{}, services.ErrNotFound
	}
	return removed, nil
}
