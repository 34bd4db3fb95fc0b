package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/flashlet-api/internal/cache"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// PreferenceService reads and stores per-user display settings.
type PreferenceService interface {
	// Get returns the user's preferences, or the defaults if none were saved.
	Get(ctx context.Context, user *domain.User) (*domain.Preference, error)

	// Update replaces the user's preferences.
	Update(ctx context.Context, user *domain.User, darkMode bool) (*domain.Preference, error)
}

// PreferenceServiceImpl implements the PreferenceService interface
type PreferenceServiceImpl struct {
	prefs  store.PreferenceStore
	cache  *cache.Cache
	logger *slog.Logger
}

var _ PreferenceService = (*PreferenceServiceImpl)(nil)

// NewPreferenceService creates a new PreferenceService. c may be nil to disable caching.
func NewPreferenceService(prefs store.PreferenceStore, c *cache.Cache, logger *slog.Logger) (PreferenceService, error) {
	if prefs == nil {
		return nil, errors.New("preference store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferenceServiceImpl{
		prefs:  prefs,
		cache:  c,
		logger: logger.With(slog.String("component", "preference_service")),
	}, nil
}

// Get returns the user's preferences.
func (s *PreferenceServiceImpl) Get(ctx context.Context, user *domain.User) (*domain.Preference, error) {
	key := cache.NewKey(cache.UserScope(user.Username), cache.FieldPreferences)
	pref, err := cache.ReadThrough(ctx, s.cache, key, func(ctx context.Context) (*domain.Preference, error) {
		pref, err := s.prefs.Get(ctx, user.ID)
		if errors.Is(err, store.ErrPreferenceNotFound) {
			return domain.DefaultPreference(user.ID), nil
		}
		return pref, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	// The owner id is not serialized, so cached copies come back without it.
	pref.UserID = user.ID
	return pref, nil
}

// Update replaces the user's preferences.
func (s *PreferenceServiceImpl) Update(
	ctx context.Context,
	user *domain.User,
	darkMode bool,
) (*domain.Preference, error) {
	pref := &domain.Preference{
		UserID:    user.ID,
		DarkMode:  darkMode,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.prefs.Upsert(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	s.cache.Invalidate(ctx, cache.UserScope(user.Username), cache.FieldPreferences)

	logger.FromContextOrDefault(ctx, s.logger).Debug("preferences updated",
		slog.String("user_id", user.ID.String()),
		slog.Bool("dark_mode", darkMode))
	return pref, nil
}
