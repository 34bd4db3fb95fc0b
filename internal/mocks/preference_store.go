package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// MockPreferenceStore implements store.PreferenceStore in memory.
type MockPreferenceStore struct {
	GetFn    func(ctx context.Context, userID uuid.UUID) (*domain.Preference, error)
	UpsertFn func(ctx context.Context, pref *domain.Preference) error

	mu    sync.Mutex
	prefs map[uuid.UUID]domain.Preference
	calls map[string]int
}

var _ store.PreferenceStore = (*MockPreferenceStore)(nil)

// NewMockPreferenceStore creates an empty preference store.
func NewMockPreferenceStore() *MockPreferenceStore {
	return &MockPreferenceStore{
		prefs: make(map[uuid.UUID]domain.Preference),
		calls: make(map[string]int),
	}
}

// Calls returns how many times method was invoked.
func (m *MockPreferenceStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Get implements store.PreferenceStore.
func (m *MockPreferenceStore) Get(ctx context.Context, userID uuid.UUID) (*domain.Preference, error) {
	m.mu.Lock()
	m.calls["Get"]++
	m.mu.Unlock()
	if m.GetFn != nil {
		return m.GetFn(ctx, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pref, ok := m.prefs[userID]
	if !ok {
		return nil, store.ErrPreferenceNotFound
	}
	return &pref, nil
}

// Upsert implements store.PreferenceStore.
func (m *MockPreferenceStore) Upsert(ctx context.Context, pref *domain.Preference) error {
	m.mu.Lock()
	m.calls["Upsert"]++
	m.mu.Unlock()
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, pref)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[pref.UserID] = *pref
	return nil
}
