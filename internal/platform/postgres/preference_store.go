package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// PostgresPreferenceStore implements store.PreferenceStore.
type PostgresPreferenceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPreferenceStore creates a PostgresPreferenceStore.
func NewPostgresPreferenceStore(db store.DBTX, logger *slog.Logger) *PostgresPreferenceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPreferenceStore{
		db:     db,
		logger: logger.With(slog.String("component", "preference_store")),
	}
}

var _ store.PreferenceStore = (*PostgresPreferenceStore)(nil)

// Get implements store.PreferenceStore.Get
func (s *PostgresPreferenceStore) Get(ctx context.Context, userID uuid.UUID) (*domain.Preference, error) {
	pref := domain.Preference{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		"SELECT dark_mode, updated_at FROM preferences WHERE user_id = $1", userID,
	).Scan(&pref.DarkMode, &pref.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPreferenceNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get preferences",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return &pref, nil
}

// Upsert implements store.PreferenceStore.Upsert
func (s *PostgresPreferenceStore) Upsert(ctx context.Context, pref *domain.Preference) error {
	pref.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, dark_mode, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET dark_mode = EXCLUDED.dark_mode, updated_at = EXCLUDED.updated_at
	`, pref.UserID, pref.DarkMode, pref.UpdatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save preferences",
			slog.String("error", err.Error()),
			slog.String("user_id", pref.UserID.String()))
		return fmt.Errorf("failed to save preferences: %w", MapError(err, store.ErrUserNotFound))
	}
	return nil
}
