package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/domain"
)

// PreferenceStore defines the interface for user preference persistence.
type PreferenceStore interface {
	// Get returns the stored preferences.
	// Returns ErrPreferenceNotFound if the user never saved any.
	Get(ctx context.Context, userID uuid.UUID) (*domain.Preference, error)

	// Upsert creates or replaces the user's preferences.
	Upsert(ctx context.Context, pref *domain.Preference) error
}
