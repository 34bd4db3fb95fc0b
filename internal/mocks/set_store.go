package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// MockSetStore implements store.SetStore in memory. Summaries take their
// author from Users when it is set.
type MockSetStore struct {
	CreateFn       func(ctx context.Context, set *domain.Set) error
	GetByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.Set, error)
	UpdateFn       func(ctx context.Context, set *domain.Set) error
	DeleteFn       func(ctx context.Context, id uuid.UUID) error
	ListByUserFn   func(ctx context.Context, userID uuid.UUID, publicOnly bool, opts domain.ListOptions) (*domain.SetPage, error)
	SearchPublicFn func(ctx context.Context, opts domain.ListOptions) (*domain.SetPage, error)

	Users *MockUserStore

	mu    sync.Mutex
	sets  map[uuid.UUID]*domain.Set
	calls map[string]int
}

var _ store.SetStore = (*MockSetStore)(nil)

// NewMockSetStore creates an empty set store.
func NewMockSetStore(users *MockUserStore) *MockSetStore {
	return &MockSetStore{
		Users: users,
		sets:  make(map[uuid.UUID]*domain.Set),
		calls: make(map[string]int),
	}
}

// Calls returns how many times method was invoked.
func (m *MockSetStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockSetStore) record(method string) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()
}

// Create implements store.SetStore.
func (m *MockSetStore) Create(ctx context.Context, set *domain.Set) error {
	m.record("Create")
	if m.CreateFn != nil {
		return m.CreateFn(ctx, set)
	}
	if err := set.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[set.ID] = cloneSet(set)
	return nil
}

// GetByID implements store.SetStore.
func (m *MockSetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Set, error) {
	m.record("GetByID")
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[id]
	if !ok {
		return nil, store.ErrSetNotFound
	}
	return cloneSet(set), nil
}

// Update implements store.SetStore.
func (m *MockSetStore) Update(ctx context.Context, set *domain.Set) error {
	m.record("Update")
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, set)
	}
	if err := set.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[set.ID]; !ok {
		return store.ErrSetNotFound
	}
	m.sets[set.ID] = cloneSet(set)
	return nil
}

// Delete implements store.SetStore.
func (m *MockSetStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.record("Delete")
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[id]; !ok {
		return store.ErrSetNotFound
	}
	delete(m.sets, id)
	return nil
}

// ListByUser implements store.SetStore.
func (m *MockSetStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	publicOnly bool,
	opts domain.ListOptions,
) (*domain.SetPage, error) {
	m.record("ListByUser")
	if m.ListByUserFn != nil {
		return m.ListByUserFn(ctx, userID, publicOnly, opts)
	}
	return m.page(opts, func(s *domain.Set) bool {
		return s.UserID == userID && (!publicOnly || s.IsPublic)
	}), nil
}

// SearchPublic implements store.SetStore.
func (m *MockSetStore) SearchPublic(ctx context.Context, opts domain.ListOptions) (*domain.SetPage, error) {
	m.record("SearchPublic")
	if m.SearchPublicFn != nil {
		return m.SearchPublicFn(ctx, opts)
	}
	query := strings.ToLower(opts.Query)
	return m.page(opts, func(s *domain.Set) bool {
		return s.IsPublic && strings.Contains(strings.ToLower(s.Title), query)
	}), nil
}

func (m *MockSetStore) page(opts domain.ListOptions, match func(*domain.Set) bool) *domain.SetPage {
	m.mu.Lock()
	var matched []*domain.Set
	for _, s := range m.sets {
		if match(s) {
			matched = append(matched, cloneSet(s))
		}
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		less := matched[i].Title < matched[j].Title
		if opts.SortBy == domain.SortByCreatedAt {
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		if opts.OrderBy < 0 {
			return !less
		}
		return less
	})

	total := len(matched)
	start := min(opts.Offset(), total)
	end := min(start+opts.Limit, total)

	summaries := make([]domain.SetSummary, 0, end-start)
	for _, s := range matched[start:end] {
		summaries = append(summaries, m.summarize(s))
	}
	return domain.NewSetPage(summaries, total, opts)
}

func (m *MockSetStore) summarize(s *domain.Set) domain.SetSummary {
	preview := s.Cards
	if len(preview) > domain.PreviewTermsCount {
		preview = preview[:domain.PreviewTermsCount]
	}
	summary := domain.SetSummary{
		ID:           s.ID,
		Title:        s.Title,
		Description:  s.Description,
		IsPublic:     s.IsPublic,
		Author:       domain.Author{ID: s.UserID},
		TermsCount:   len(s.Cards),
		PreviewTerms: preview,
		CreatedAt:    s.CreatedAt,
	}
	if m.Users != nil {
		if u, err := m.Users.find(func(u *domain.User) bool { return u.ID == s.UserID }); err == nil {
			summary.Author = domain.Author{
				ID:           u.ID,
				Username:     u.Username,
				Name:         u.Name,
				ProfileImage: u.Avatar(),
			}
		}
	}
	return summary
}

// WithTx implements store.SetStore; the fake ignores transactions.
func (m *MockSetStore) WithTx(*sql.Tx) store.SetStore {
	return m
}

func cloneSet(s *domain.Set) *domain.Set {
	c := *s
	c.Cards = append([]domain.Card(nil), s.Cards...)
	return &c
}
