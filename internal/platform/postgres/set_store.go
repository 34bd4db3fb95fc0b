package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// sortColumns whitelists the ORDER BY expressions for listings.
var sortColumns = map[string]string{
	domain.SortByTitle:     "s.title",
	domain.SortByCreatedAt: "s.created_at",
}

// PostgresSetStore implements the store.SetStore interface
// using a PostgreSQL database as the storage backend.
//
// Writes touch both sets and cards; callers run them inside a transaction
// through WithTx.
type PostgresSetStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSetStore creates a new PostgreSQL implementation of the SetStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresSetStore(db store.DBTX, logger *slog.Logger) *PostgresSetStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSetStore{
		db:     db,
		logger: logger.With(slog.String("component", "set_store")),
	}
}

// Ensure PostgresSetStore implements store.SetStore interface
var _ store.SetStore = (*PostgresSetStore)(nil)

// WithTx implements store.SetStore.WithTx
func (s *PostgresSetStore) WithTx(tx *sql.Tx) store.SetStore {
	return &PostgresSetStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.SetStore.Create
// Returns store.ErrInvalidEntity if the owner does not exist.
func (s *PostgresSetStore) Create(ctx context.Context, set *domain.Set) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := set.Validate(); err != nil {
		log.Warn("set validation failed during create",
			slog.String("error", err.Error()),
			slog.String("set_id", set.ID.String()))
		return err
	}

	now := time.Now().UTC()
	if set.CreatedAt.IsZero() {
		set.CreatedAt = now
	}
	set.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sets (id, user_id, title, description, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, set.ID, set.UserID, set.Title, set.Description, set.IsPublic, set.CreatedAt, set.UpdatedAt)
	if err != nil {
		log.Error("failed to create set",
			slog.String("error", err.Error()),
			slog.String("set_id", set.ID.String()),
			slog.String("user_id", set.UserID.String()))
		return fmt.Errorf("failed to create set: %w", MapError(err, store.ErrSetNotFound))
	}

	if err := s.insertCards(ctx, set); err != nil {
		return err
	}

	log.Info("set created",
		slog.String("set_id", set.ID.String()),
		slog.Int("cards", len(set.Cards)))
	return nil
}

func (s *PostgresSetStore) insertCards(ctx context.Context, set *domain.Set) error {
	for _, card := range set.Cards {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO cards (id, set_id, position, term, definition, image_url)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, card.ID, set.ID, card.Position, card.Term, card.Definition, card.ImageURL)
		if err != nil {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert card",
				slog.String("error", err.Error()),
				slog.String("set_id", set.ID.String()),
				slog.Int("position", card.Position))
			return fmt.Errorf("failed to insert card: %w", MapError(err, store.ErrSetNotFound))
		}
	}
	return nil
}

// GetByID implements store.SetStore.GetByID
func (s *PostgresSetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Set, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var set domain.Set
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, is_public, created_at, updated_at
		FROM sets
		WHERE id = $1
	`, id).Scan(
		&set.ID,
		&set.UserID,
		&set.Title,
		&set.Description,
		&set.IsPublic,
		&set.CreatedAt,
		&set.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("set not found", slog.String("set_id", id.String()))
			return nil, store.ErrSetNotFound
		}
		log.Error("failed to get set",
			slog.String("error", err.Error()),
			slog.String("set_id", id.String()))
		return nil, fmt.Errorf("failed to get set: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, set_id, position, term, definition, image_url
		FROM cards
		WHERE set_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}
	cards, err := scanCards(rows)
	if err != nil {
		return nil, err
	}
	set.Cards = cards
	return &set, nil
}

func scanCards(rows *sql.Rows) ([]domain.Card, error) {
	defer func() { _ = rows.Close() }()

	cards := []domain.Card{}
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.ID, &c.SetID, &c.Position, &c.Term, &c.Definition, &c.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}
	return cards, nil
}

// Update implements store.SetStore.Update
// The set's cards are replaced wholesale.
func (s *PostgresSetStore) Update(ctx context.Context, set *domain.Set) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := set.Validate(); err != nil {
		log.Warn("set validation failed during update",
			slog.String("error", err.Error()),
			slog.String("set_id", set.ID.String()))
		return err
	}
	set.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE sets
		SET title = $2, description = $3, is_public = $4, updated_at = $5
		WHERE id = $1
	`, set.ID, set.Title, set.Description, set.IsPublic, set.UpdatedAt)
	if err != nil {
		log.Error("failed to update set",
			slog.String("error", err.Error()),
			slog.String("set_id", set.ID.String()))
		return fmt.Errorf("failed to update set: %w", MapError(err, store.ErrSetNotFound))
	}
	if err := CheckRowsAffected(result, store.ErrSetNotFound); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM cards WHERE set_id = $1", set.ID); err != nil {
		return fmt.Errorf("failed to clear cards: %w", err)
	}
	return s.insertCards(ctx, set)
}

// Delete implements store.SetStore.Delete
func (s *PostgresSetStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, "DELETE FROM sets WHERE id = $1", id)
	if err != nil {
		log.Error("failed to delete set",
			slog.String("error", err.Error()),
			slog.String("set_id", id.String()))
		return fmt.Errorf("failed to delete set: %w", err)
	}
	return CheckRowsAffected(result, store.ErrSetNotFound)
}

// ListByUser implements store.SetStore.ListByUser
func (s *PostgresSetStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	publicOnly bool,
	opts domain.ListOptions,
) (*domain.SetPage, error) {
	where := "s.user_id = $1"
	if publicOnly {
		where += " AND s.is_public"
	}
	return s.list(ctx, opts, where, userID)
}

// SearchPublic implements store.SetStore.SearchPublic
func (s *PostgresSetStore) SearchPublic(ctx context.Context, opts domain.ListOptions) (*domain.SetPage, error) {
	return s.list(ctx, opts, `s.is_public AND s.title ILIKE '%' || $1 || '%' ESCAPE '\'`, escapeLike(opts.Query))
}

// list counts the matching sets and loads the requested page with authors,
// term counts and preview cards.
func (s *PostgresSetStore) list(
	ctx context.Context,
	opts domain.ListOptions,
	where string,
	arg any,
) (*domain.SetPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	column, ok := sortColumns[opts.SortBy]
	if !ok {
		return nil, domain.NewValidationError("sortBy", "unsupported sort field", nil)
	}
	direction := "ASC"
	if opts.OrderBy < 0 {
		direction = "DESC"
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sets s WHERE "+where, arg).Scan(&total); err != nil {
		log.Error("failed to count sets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to count sets: %w", err)
	}
	if total == 0 {
		return domain.NewSetPage(nil, 0, opts), nil
	}

	query := `
		SELECT s.id, s.title, s.description, s.is_public, s.created_at,
			u.id, u.username, u.name, COALESCE(NULLIF(u.profile_image, ''), u.profile_image_default),
			(SELECT COUNT(*) FROM cards c WHERE c.set_id = s.id)
		FROM sets s
		JOIN users u ON u.id = s.user_id
		WHERE ` + where + `
		ORDER BY ` + column + " " + direction + `, s.id
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, arg, opts.Limit, opts.Offset())
	if err != nil {
		log.Error("failed to list sets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list sets: %w", err)
	}
	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachPreviews(ctx, summaries); err != nil {
		return nil, err
	}
	return domain.NewSetPage(summaries, total, opts), nil
}

func scanSummaries(rows *sql.Rows) ([]domain.SetSummary, error) {
	defer func() { _ = rows.Close() }()

	var summaries []domain.SetSummary
	for rows.Next() {
		var sum domain.SetSummary
		if err := rows.Scan(
			&sum.ID,
			&sum.Title,
			&sum.Description,
			&sum.IsPublic,
			&sum.CreatedAt,
			&sum.Author.ID,
			&sum.Author.Username,
			&sum.Author.Name,
			&sum.Author.ProfileImage,
			&sum.TermsCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan set summary: %w", err)
		}
		sum.PreviewTerms = []domain.Card{}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read set summaries: %w", err)
	}
	return summaries, nil
}

// attachPreviews loads the first cards of every listed set in one query.
func (s *PostgresSetStore) attachPreviews(ctx context.Context, summaries []domain.SetSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	ids := make([]string, len(summaries))
	index := make(map[uuid.UUID]int, len(summaries))
	for i, sum := range summaries {
		ids[i] = sum.ID.String()
		index[sum.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, set_id, position, term, definition, image_url
		FROM cards
		WHERE set_id = ANY($1::uuid[]) AND position < $2
		ORDER BY set_id, position
	`, ids, domain.PreviewTermsCount)
	if err != nil {
		return fmt.Errorf("failed to load preview cards: %w", err)
	}
	cards, err := scanCards(rows)
	if err != nil {
		return err
	}
	for _, c := range cards {
		if i, ok := index[c.SetID]; ok {
			summaries[i].PreviewTerms = append(summaries[i].PreviewTerms, c)
		}
	}
	return nil
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(q string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
}
