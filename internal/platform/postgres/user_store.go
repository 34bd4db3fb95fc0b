package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/store"
)

const userColumns = `id, email, username, name, hashed_password, profile_image, profile_image_default,
	google_id, google_access_token, facebook_id, facebook_access_token, reset_password_token,
	tokens, created_at, updated_at`

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db      store.DBTX
	hasher  store.PasswordHasher
	logger  *slog.Logger
	typeMap *pgtype.Map
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// Plaintext passwords on users passed to Create and Update are hashed with hasher.
// If logger is nil, a default logger will be used.
func NewPostgresUserStore(db store.DBTX, hasher store.PasswordHasher, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if hasher == nil {
		panic("hasher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:      db,
		hasher:  hasher,
		logger:  logger.With(slog.String("component", "user_store")),
		typeMap: pgtype.NewMap(),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:      tx,
		hasher:  s.hasher,
		logger:  s.logger,
		typeMap: s.typeMap,
	}
}

// hashPassword replaces a plaintext password on user with its hash.
func (s *PostgresUserStore) hashPassword(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	hash, err := s.hasher.Hash(user.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hash
	user.Password = ""
	return nil
}

// Create implements store.UserStore.Create
// Returns ErrEmailExists, ErrUsernameExists or ErrProviderIDExists on conflicts.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}
	if err := s.hashPassword(user); err != nil {
		return err
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `
		INSERT INTO users (
			id, email, username, name, hashed_password, profile_image, profile_image_default,
			google_id, google_access_token, facebook_id, facebook_access_token,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.Name,
		nullString(user.HashedPassword),
		user.ProfileImage,
		user.ProfileImageDefault,
		nullString(user.GoogleID),
		user.GoogleAccessToken,
		nullString(user.FacebookID),
		user.FacebookAccessToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		err = MapError(err, store.ErrUserNotFound)
		if errors.Is(err, store.ErrDuplicate) {
			log.Debug("user create conflict",
				slog.String("user_id", user.ID.String()),
				slog.String("error", err.Error()))
			return err
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "email = $1", domain.NormalizeEmail(email))
}

// GetByUsername implements store.UserStore.GetByUsername
func (s *PostgresUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getOne(ctx, "username = $1", username)
}

// GetByProvider implements store.UserStore.GetByProvider
func (s *PostgresUserStore) GetByProvider(
	ctx context.Context,
	provider store.Provider,
	providerID string,
) (*domain.User, error) {
	switch provider {
	case store.ProviderGoogle:
		return s.getOne(ctx, "google_id = $1", providerID)
	case store.ProviderFacebook:
		return s.getOne(ctx, "facebook_id = $1", providerID)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", store.ErrInvalidEntity, provider)
	}
}

func (s *PostgresUserStore) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := "SELECT " + userColumns + " FROM users WHERE " + where
	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found", slog.String("where", where))
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user",
			slog.String("error", err.Error()),
			slog.String("where", where))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) scanUser(row *sql.Row) (*domain.User, error) {
	var (
		user                                             domain.User
		hashedPassword, googleID, facebookID, resetToken sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Name,
		&hashedPassword,
		&user.ProfileImage,
		&user.ProfileImageDefault,
		&googleID,
		&user.GoogleAccessToken,
		&facebookID,
		&user.FacebookAccessToken,
		&resetToken,
		s.typeMap.SQLScanner(&user.Tokens),
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = hashedPassword.String
	user.GoogleID = googleID.String
	user.FacebookID = facebookID.String
	user.ResetPasswordToken = resetToken.String
	return &user, nil
}

// Update implements store.UserStore.Update
// Tokens and the reset token are left untouched; they have their own methods.
// The stored hash only changes when a new plaintext password is set, so a
// stale copy of the user cannot restore an old password.
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during update",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}
	var newHash sql.NullString
	if user.Password != "" {
		if err := s.hashPassword(user); err != nil {
			return err
		}
		newHash = nullString(user.HashedPassword)
	}
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET email = $2, username = $3, name = $4,
			hashed_password = COALESCE($5, hashed_password),
			profile_image = $6, profile_image_default = $7,
			google_id = $8, google_access_token = $9,
			facebook_id = $10, facebook_access_token = $11,
			updated_at = $12
		WHERE id = $1
		RETURNING hashed_password
	`
	var storedHash sql.NullString
	err := s.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.Name,
		newHash,
		user.ProfileImage,
		user.ProfileImageDefault,
		nullString(user.GoogleID),
		user.GoogleAccessToken,
		nullString(user.FacebookID),
		user.FacebookAccessToken,
		user.UpdatedAt,
	).Scan(&storedHash)
	if err != nil {
		err = MapError(err, store.ErrUserNotFound)
		if store.IsDuplicateError(err) || store.IsNotFoundError(err) {
			return err
		}
		log.Error("failed to update user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return fmt.Errorf("failed to update user: %w", err)
	}
	user.HashedPassword = storedHash.String
	return nil
}

// Delete implements store.UserStore.Delete
// Sets, cards and preferences go with the user through ON DELETE CASCADE.
func (s *PostgresUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		log.Error("failed to delete user",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Info("user deleted", slog.String("user_id", id.String()))
	return nil
}

// AddToken implements store.UserStore.AddToken
func (s *PostgresUserStore) AddToken(ctx context.Context, id uuid.UUID, token string) error {
	return s.exec(ctx, "add token",
		"UPDATE users SET tokens = array_append(tokens, $2) WHERE id = $1", id, token)
}

// RemoveToken implements store.UserStore.RemoveToken
func (s *PostgresUserStore) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	return s.exec(ctx, "remove token",
		"UPDATE users SET tokens = array_remove(tokens, $2) WHERE id = $1", id, token)
}

// ClearTokens implements store.UserStore.ClearTokens
func (s *PostgresUserStore) ClearTokens(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, "clear tokens",
		"UPDATE users SET tokens = '{}' WHERE id = $1", id)
}

// SetResetToken implements store.UserStore.SetResetToken
func (s *PostgresUserStore) SetResetToken(ctx context.Context, id uuid.UUID, token string) error {
	return s.exec(ctx, "set reset token",
		"UPDATE users SET reset_password_token = $2 WHERE id = $1", id, token)
}

// ConsumeResetToken implements store.UserStore.ConsumeResetToken
// The comparison and the clear happen in one statement, so a token can be
// consumed at most once.
func (s *PostgresUserStore) ConsumeResetToken(ctx context.Context, id uuid.UUID, token string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET reset_password_token = NULL
		WHERE id = $1 AND reset_password_token = $2
	`, id, token)
	if err != nil {
		log.Error("failed to consume reset token",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	return CheckRowsAffected(result, fmt.Errorf("%w: reset token", store.ErrNotFound))
}

// exec runs a single-row update keyed by user id.
func (s *PostgresUserStore) exec(ctx context.Context, op, query string, args ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to "+op,
			slog.String("error", err.Error()),
			slog.Any("user_id", args[0]))
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return CheckRowsAffected(result, store.ErrUserNotFound)
}
