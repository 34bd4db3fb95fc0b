package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferenceService_GetUpdate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.seedUser(t, "eve@example.com", "Secret123")
	ctx := context.Background()

	pref, err := f.prefService.Get(ctx, user)
	require.NoError(t, err)
	assert.False(t, pref.DarkMode, "defaults when nothing was saved")
	assert.Equal(t, user.ID, pref.UserID)

	pref, err = f.prefService.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, user.ID, pref.UserID, "owner restored on cached reads")
	assert.Equal(t, 1, f.prefs.Calls("Get"))

	updated, err := f.prefService.Update(ctx, user, true)
	require.NoError(t, err)
	assert.True(t, updated.DarkMode)

	pref, err = f.prefService.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, pref.DarkMode)
	assert.Equal(t, 2, f.prefs.Calls("Get"))
}

func TestPreferenceService_Errors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.seedUser(t, "finn@example.com", "Secret123")
	ctx := context.Background()

	_, err := service.NewPreferenceService(nil, nil, nil)
	assert.Error(t, err)

	_, err = f.prefService.Get(ctx, user)
	require.NoError(t, err)

	f.prefs.UpsertFn = func(context.Context, *domain.Preference) error { return errors.New("timeout") }
	_, err = f.prefService.Update(ctx, user, true)
	assert.ErrorContains(t, err, "failed to save preferences")

	pref, err := f.prefService.Get(ctx, user)
	require.NoError(t, err)
	assert.False(t, pref.DarkMode)
	assert.Equal(t, 1, f.prefs.Calls("Get"), "failed write leaves the cache alone")

	f.prefs.GetFn = func(context.Context, uuid.UUID) (*domain.Preference, error) {
		return nil, errors.New("connection reset")
	}
	other := f.seedUser(t, "gus@example.com", "Secret123")
	_, err = f.prefService.Get(ctx, other)
	assert.ErrorContains(t, err, "failed to get preferences")
}
