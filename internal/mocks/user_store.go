package mocks

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// MockUserStore implements store.UserStore in memory.
type MockUserStore struct {
	CreateFn        func(ctx context.Context, user *domain.User) error
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmailFn    func(ctx context.Context, email string) (*domain.User, error)
	GetByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	UpdateFn        func(ctx context.Context, user *domain.User) error
	DeleteFn        func(ctx context.Context, id uuid.UUID) error
	AddTokenFn      func(ctx context.Context, id uuid.UUID, token string) error

	Hasher store.PasswordHasher

	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	calls map[string]int
}

var _ store.UserStore = (*MockUserStore)(nil)

// NewMockUserStore creates an empty store hashing with a PasswordHasher fake.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		Hasher: &PasswordHasher{},
		users:  make(map[uuid.UUID]*domain.User),
		calls:  make(map[string]int),
	}
}

// Calls returns how many times method was invoked.
func (m *MockUserStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Seed stores user directly, hashing a plaintext Password if present.
func (m *MockUserStore) Seed(user *domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hashLocked(user); err != nil {
		// ALLOW-PANIC: seeding is test setup
		panic(err)
	}
	m.users[user.ID] = cloneUser(user)
	return user
}

func (m *MockUserStore) record(method string) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()
}

func (m *MockUserStore) hashLocked(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	hash, err := m.Hasher.Hash(user.Password)
	if err != nil {
		return err
	}
	user.HashedPassword = hash
	user.Password = ""
	return nil
}

func (m *MockUserStore) conflictLocked(user *domain.User) error {
	for id, u := range m.users {
		if id == user.ID {
			continue
		}
		switch {
		case strings.EqualFold(u.Email, user.Email):
			return store.ErrEmailExists
		case u.Username == user.Username:
			return store.ErrUsernameExists
		case user.GoogleID != "" && u.GoogleID == user.GoogleID,
			user.FacebookID != "" && u.FacebookID == user.FacebookID:
			return store.ErrProviderIDExists
		}
	}
	return nil
}

// Create implements store.UserStore.
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	m.record("Create")
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	if err := user.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.conflictLocked(user); err != nil {
		return err
	}
	if err := m.hashLocked(user); err != nil {
		return err
	}
	m.users[user.ID] = cloneUser(user)
	return nil
}

// GetByID implements store.UserStore.
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.record("GetByID")
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return m.find(func(u *domain.User) bool { return u.ID == id })
}

// GetByEmail implements store.UserStore.
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.record("GetByEmail")
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return m.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

// GetByUsername implements store.UserStore.
func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.record("GetByUsername")
	if m.GetByUsernameFn != nil {
		return m.GetByUsernameFn(ctx, username)
	}
	return m.find(func(u *domain.User) bool { return u.Username == username })
}

// GetByProvider implements store.UserStore.
func (m *MockUserStore) GetByProvider(
	_ context.Context,
	provider store.Provider,
	providerID string,
) (*domain.User, error) {
	m.record("GetByProvider")
	return m.find(func(u *domain.User) bool {
		switch provider {
		case store.ProviderGoogle:
			return u.GoogleID == providerID
		case store.ProviderFacebook:
			return u.FacebookID == providerID
		}
		return false
	})
}

func (m *MockUserStore) find(match func(*domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrUserNotFound
}

// Update implements store.UserStore. Token fields keep their stored values,
// as does the hash unless a new plaintext Password is set.
func (m *MockUserStore) Update(ctx context.Context, user *domain.User) error {
	m.record("Update")
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, user)
	}
	if err := user.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[user.ID]
	if !ok {
		return store.ErrUserNotFound
	}
	if err := m.conflictLocked(user); err != nil {
		return err
	}
	if user.Password != "" {
		if err := m.hashLocked(user); err != nil {
			return err
		}
	} else {
		user.HashedPassword = existing.HashedPassword
	}

	updated := cloneUser(user)
	updated.Tokens = existing.Tokens
	updated.ResetPasswordToken = existing.ResetPasswordToken
	updated.UpdatedAt = time.Now().UTC()
	m.users[user.ID] = updated
	return nil
}

// Delete implements store.UserStore.
func (m *MockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.record("Delete")
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

// AddToken implements store.UserStore.
func (m *MockUserStore) AddToken(ctx context.Context, id uuid.UUID, token string) error {
	m.record("AddToken")
	if m.AddTokenFn != nil {
		return m.AddTokenFn(ctx, id, token)
	}
	return m.mutate(id, func(u *domain.User) error {
		u.Tokens = append(u.Tokens, token)
		return nil
	})
}

// RemoveToken implements store.UserStore.
func (m *MockUserStore) RemoveToken(_ context.Context, id uuid.UUID, token string) error {
	m.record("RemoveToken")
	return m.mutate(id, func(u *domain.User) error {
		kept := u.Tokens[:0]
		for _, t := range u.Tokens {
			if t != token {
				kept = append(kept, t)
			}
		}
		u.Tokens = kept
		return nil
	})
}

// ClearTokens implements store.UserStore.
func (m *MockUserStore) ClearTokens(_ context.Context, id uuid.UUID) error {
	m.record("ClearTokens")
	return m.mutate(id, func(u *domain.User) error {
		u.Tokens = nil
		return nil
	})
}

// SetResetToken implements store.UserStore.
func (m *MockUserStore) SetResetToken(_ context.Context, id uuid.UUID, token string) error {
	m.record("SetResetToken")
	return m.mutate(id, func(u *domain.User) error {
		u.ResetPasswordToken = token
		return nil
	})
}

// ConsumeResetToken implements store.UserStore.
func (m *MockUserStore) ConsumeResetToken(_ context.Context, id uuid.UUID, token string) error {
	m.record("ConsumeResetToken")
	return m.mutate(id, func(u *domain.User) error {
		if token == "" || u.ResetPasswordToken != token {
			return store.ErrNotFound
		}
		u.ResetPasswordToken = ""
		return nil
	})
}

func (m *MockUserStore) mutate(id uuid.UUID, fn func(*domain.User) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	return fn(u)
}

// WithTx implements store.UserStore; the fake ignores transactions.
func (m *MockUserStore) WithTx(*sql.Tx) store.UserStore {
	return m
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Tokens = append([]string(nil), u.Tokens...)
	return &c
}
