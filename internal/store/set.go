package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/domain"
)

// SetStore defines the interface for card set persistence.
type SetStore interface {
	// Create saves a set together with its cards.
	Create(ctx context.Context, set *domain.Set) error

	// GetByID retrieves a set with its cards ordered by position.
	// Returns ErrSetNotFound if the set does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Set, error)

	// Update replaces the set's fields and its cards.
	// Returns ErrSetNotFound if the set does not exist.
	Update(ctx context.Context, set *domain.Set) error

	// Delete removes a set and its cards.
	// Returns ErrSetNotFound if the set does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByUser returns a page of userID's sets; publicOnly restricts it to public ones.
	ListByUser(
		ctx context.Context,
		userID uuid.UUID,
		publicOnly bool,
		opts domain.ListOptions,
	) (*domain.SetPage, error)

	// SearchPublic returns a page of public sets whose title contains opts.Query.
	SearchPublic(ctx context.Context, opts domain.ListOptions) (*domain.SetPage, error)

	// WithTx returns a SetStore that runs on tx.
	WithTx(tx *sql.Tx) SetStore
}
