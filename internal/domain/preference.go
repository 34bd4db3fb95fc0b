package domain

import (
	"time"

	"github.com/google/uuid"
)

// Preference holds per-user display settings.
type Preference struct {
	UserID    uuid.UUID `json:"-"`
	DarkMode  bool      `json:"dark_mode"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPreference is returned for users who never saved preferences.
func DefaultPreference(userID uuid.UUID) *Preference {
	return &Preference{UserID: userID}
}
