package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/cache"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// SetService provides operations on card sets.
type SetService interface {
	// Create saves a new set owned by owner.
	Create(ctx context.Context, owner *domain.User, input SetInput) (*domain.Set, error)

	// Get returns a set if it is public or viewer owns it. viewer may be nil.
	// Sets the viewer may not read are reported as store.ErrSetNotFound.
	Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.Set, error)

	// Update replaces the fields and cards of a set owned by owner.
	// Returns ErrNotOwned if the set belongs to someone else.
	Update(ctx context.Context, owner *domain.User, id uuid.UUID, input SetInput) (*domain.Set, error)

	// Delete removes a set owned by owner.
	// Returns ErrNotOwned if the set belongs to someone else.
	Delete(ctx context.Context, owner *domain.User, id uuid.UUID) error

	// ListMine returns a page of owner's sets, public and private.
	ListMine(ctx context.Context, owner *domain.User, opts domain.ListOptions) (*domain.SetPage, error)

	// Search returns a page of public sets whose title contains opts.Query.
	Search(ctx context.Context, opts domain.ListOptions) (*domain.SetPage, error)
}

// SetInput carries the editable fields of a set.
type SetInput struct {
	Title       string
	Description string
	IsPublic    bool
	Cards       []domain.Card
}

// SetServiceImpl implements the SetService interface
type SetServiceImpl struct {
	sets   store.SetStore
	cache  *cache.Cache
	db     *sql.DB
	logger *slog.Logger
}

var _ SetService = (*SetServiceImpl)(nil)

// NewSetService creates a new SetService. c may be nil to disable caching.
func NewSetService(sets store.SetStore, c *cache.Cache, db *sql.DB, logger *slog.Logger) (SetService, error) {
	if sets == nil {
		return nil, errors.New("set store cannot be nil")
	}
	if db == nil {
		return nil, errors.New("database cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SetServiceImpl{
		sets:   sets,
		cache:  c,
		db:     db,
		logger: logger.With(slog.String("component", "set_service")),
	}, nil
}

// Create saves a new set owned by owner.
func (s *SetServiceImpl) Create(ctx context.Context, owner *domain.User, input SetInput) (*domain.Set, error) {
	set, err := domain.NewSet(owner.ID, input.Title, input.Description, input.IsPublic, input.Cards)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.sets.WithTx(tx).Create(ctx, set)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create set: %w", err)
	}
	s.invalidateListings(ctx, owner)

	logger.FromContextOrDefault(ctx, s.logger).Info("set created",
		slog.String("set_id", set.ID.String()),
		slog.String("user_id", owner.ID.String()),
		slog.Int("cards", len(set.Cards)))
	return set, nil
}

// Get returns a set if viewer may read it.
func (s *SetServiceImpl) Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.Set, error) {
	key := cache.NewKey(cache.SetScope(id), cache.FieldSet)
	set, err := cache.ReadThrough(ctx, s.cache, key, func(ctx context.Context) (*domain.Set, error) {
		return s.sets.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	viewerID := uuid.Nil
	if viewer != nil {
		viewerID = viewer.ID
	}
	if !set.VisibleTo(viewerID) {
		return nil, store.ErrSetNotFound
	}
	return set, nil
}

// Update replaces the fields and cards of a set owned by owner.
func (s *SetServiceImpl) Update(
	ctx context.Context,
	owner *domain.User,
	id uuid.UUID,
	input SetInput,
) (*domain.Set, error) {
	var set *domain.Set
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		sets := s.sets.WithTx(tx)

		existing, err := sets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.UserID != owner.ID {
			return ErrNotOwned
		}

		existing.Title = strings.TrimSpace(input.Title)
		existing.Description = strings.TrimSpace(input.Description)
		existing.IsPublic = input.IsPublic
		existing.SetCards(input.Cards)
		existing.UpdatedAt = time.Now().UTC()
		if err := existing.Validate(); err != nil {
			return err
		}

		if err := sets.Update(ctx, existing); err != nil {
			return err
		}
		set = existing
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotOwned) || store.IsNotFoundError(err) || errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update set: %w", err)
	}
	s.invalidateSet(ctx, owner, id)

	logger.FromContextOrDefault(ctx, s.logger).Info("set updated",
		slog.String("set_id", id.String()),
		slog.String("user_id", owner.ID.String()))
	return set, nil
}

// Delete removes a set owned by owner.
func (s *SetServiceImpl) Delete(ctx context.Context, owner *domain.User, id uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		sets := s.sets.WithTx(tx)

		existing, err := sets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.UserID != owner.ID {
			return ErrNotOwned
		}
		return sets.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, ErrNotOwned) || store.IsNotFoundError(err) {
			return err
		}
		return fmt.Errorf("failed to delete set: %w", err)
	}
	s.invalidateSet(ctx, owner, id)

	logger.FromContextOrDefault(ctx, s.logger).Info("set deleted",
		slog.String("set_id", id.String()),
		slog.String("user_id", owner.ID.String()))
	return nil
}

// ListMine returns a page of owner's sets.
func (s *SetServiceImpl) ListMine(
	ctx context.Context,
	owner *domain.User,
	opts domain.ListOptions,
) (*domain.SetPage, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	key := cache.NewKey(cache.UserScope(owner.Username), cache.FieldSets).WithVariant(opts.CacheVariant())
	return cache.ReadThrough(ctx, s.cache, key, func(ctx context.Context) (*domain.SetPage, error) {
		return s.sets.ListByUser(ctx, owner.ID, false, opts)
	})
}

// Search returns a page of public sets matching opts.Query. Results span
// every user, so they are not cached under any user's scope.
func (s *SetServiceImpl) Search(ctx context.Context, opts domain.ListOptions) (*domain.SetPage, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Query = strings.TrimSpace(opts.Query)
	return s.sets.SearchPublic(ctx, opts)
}

func (s *SetServiceImpl) invalidateListings(ctx context.Context, owner *domain.User) {
	s.cache.Invalidate(ctx, cache.UserScope(owner.Username), cache.FieldSets, cache.FieldPublicSets)
}

func (s *SetServiceImpl) invalidateSet(ctx context.Context, owner *domain.User, id uuid.UUID) {
	s.invalidateListings(ctx, owner)
	s.cache.Invalidate(ctx, cache.SetScope(id))
}
