package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/mocks"
	"github.com/phrazzld/flashlet-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{
	"id", "email", "username", "name", "hashed_password", "profile_image", "profile_image_default",
	"google_id", "google_access_token", "facebook_id", "facebook_access_token", "reset_password_token",
	"tokens", "created_at", "updated_at",
}

func newTestUserStore(t *testing.T) (*PostgresUserStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewPostgresUserStore(db, &mocks.PasswordHasher{}, nil), mock
}

func TestNewPostgresUserStore_Panics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewPostgresUserStore(nil, &mocks.PasswordHasher{}, nil) })
	db, _ := newMockDB(t)
	assert.Panics(t, func() { NewPostgresUserStore(db, nil, nil) })
}

func TestPostgresUserStore_Create(t *testing.T) {
	t.Parallel()
	s, mock := newTestUserStore(t)
	user, err := domain.NewUser("a@x.com", "Test User", "Abc12345")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(
			user.ID, "a@x.com", "a", "Test User", "hashed:Abc12345",
			"", user.ProfileImageDefault, nil, "", nil, "",
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), user))
	assert.Empty(t, user.Password, "plaintext is cleared once hashed")
	assert.Equal(t, "hashed:Abc12345", user.HashedPassword)
}

func TestPostgresUserStore_Create_Conflicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		constraint string
		want       error
	}{
		{"users_email_key", store.ErrEmailExists},
		{"users_username_key", store.ErrUsernameExists},
		{"users_facebook_id_key", store.ErrProviderIDExists},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.constraint, func(t *testing.T) {
			t.Parallel()
			s, mock := newTestUserStore(t)
			user, err := domain.NewUser("a@x.com", "Test User", "Abc12345")
			require.NoError(t, err)

			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
				WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: tt.constraint})

			err = s.Create(context.Background(), user)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, store.IsDuplicateError(err))
		})
	}
}

func TestPostgresUserStore_Create_Invalid(t *testing.T) {
	t.Parallel()
	s, _ := newTestUserStore(t)

	err := s.Create(context.Background(), &domain.User{ID: uuid.New(), Email: "a@x.com", Username: "a"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPostgresUserStore_GetByEmail(t *testing.T) {
	t.Parallel()
	s, mock := newTestUserStore(t)
	id := uuid.New()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			id.String(), "a@x.com", "a", "Test User", nil, "", "https://img/default",
			"g-123", "g-token", nil, "", "reset-token",
			"{tok1,tok2}", now, now,
		))

	user, err := s.GetByEmail(context.Background(), " A@X.COM ")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Empty(t, user.HashedPassword)
	assert.Equal(t, "g-123", user.GoogleID)
	assert.Empty(t, user.FacebookID)
	assert.Equal(t, "reset-token", user.ResetPasswordToken)
	assert.Equal(t, []string{"tok1", "tok2"}, user.Tokens)
	assert.Equal(t, "https://img/default", user.Avatar())
}

func TestPostgresUserStore_GetByID_NotFound(t *testing.T) {
	t.Parallel()
	s, mock := newTestUserStore(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := s.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestPostgresUserStore_GetByProvider(t *testing.T) {
	t.Parallel()
	s, mock := newTestUserStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE facebook_id = $1")).
		WithArgs("fb-1").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := s.GetByProvider(context.Background(), store.ProviderFacebook, "fb-1")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = s.GetByProvider(context.Background(), store.Provider("myspace"), "x")
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestPostgresUserStore_Update(t *testing.T) {
	t.Parallel()
	s, mock := newTestUserStore(t)
	user, err := domain.NewUser("a@x.com", "Test User", "Oldpass123")
	require.NoError(t, err)
	user.Password = "Newpass123"

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).
		WithArgs(
			user.ID, "a@x.com", "a", "Test User", "hashed:Newpass123",
			"", user.ProfileImageDefault, nil, "", nil, "", sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"hashed_password"}))

	err = s.Update(context.Background(), user)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestPostgresUserStore_UpdateKeepsStoredHash(t *testing.T) {
	t.Parallel()
	s, mock := newTestUserStore(t)
	user, err := domain.NewUser("a@x.com", "Test User", "Oldpass123")
	require.NoError(t, err)
	user.Password = ""
	user.HashedPassword = "hashed:stale"

	mock.ExpectQuery(regexp.QuoteMeta("hashed_password = COALESCE($5, hashed_password)")).
		WithArgs(
			user.ID, "a@x.com", "a", "Test User", nil,
			"", user.ProfileImageDefault, nil, "", nil, "", sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"hashed_password"}).AddRow("hashed:current"))

	require.NoError(t, s.Update(context.Background(), user))
	assert.Equal(t, "hashed:current", user.HashedPassword)
}

func TestPostgresUserStore_TokenStatements(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		args  []driver.Value
		call  func(*PostgresUserStore) error
	}{
		{
			"add",
			"SET tokens = array_append(tokens, $2)",
			[]driver.Value{id, "tok"},
			func(s *PostgresUserStore) error { return s.AddToken(ctx, id, "tok") },
		},
		{
			"remove",
			"SET tokens = array_remove(tokens, $2)",
			[]driver.Value{id, "tok"},
			func(s *PostgresUserStore) error { return s.RemoveToken(ctx, id, "tok") },
		},
		{
			"clear",
			"SET tokens = '{}'",
			[]driver.Value{id},
			func(s *PostgresUserStore) error { return s.ClearTokens(ctx, id) },
		},
		{
			"set reset",
			"SET reset_password_token = $2",
			[]driver.Value{id, "reset"},
			func(s *PostgresUserStore) error { return s.SetResetToken(ctx, id, "reset") },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, mock := newTestUserStore(t)
			mock.ExpectExec(regexp.QuoteMeta(tt.query)).WithArgs(tt.args...).WillReturnResult(sqlmock.NewResult(0, 1))
			require.NoError(t, tt.call(s))

			mock.ExpectExec(regexp.QuoteMeta(tt.query)).WillReturnResult(sqlmock.NewResult(0, 0))
			assert.ErrorIs(t, tt.call(s), store.ErrUserNotFound)

			mock.ExpectExec(regexp.QuoteMeta(tt.query)).WillReturnError(errors.New("connection reset"))
			assert.Error(t, tt.call(s))
		})
	}
}

func TestPostgresUserStore_ConsumeResetToken(t *testing.T) {
	t.Parallel()
	s, mock := newTestUserStore(t)
	id := uuid.New()
	query := regexp.QuoteMeta("SET reset_password_token = NULL")

	mock.ExpectExec(query).WithArgs(id, "good").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(id, "good").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.ConsumeResetToken(context.Background(), id, "good"))
	assert.ErrorIs(t, s.ConsumeResetToken(context.Background(), id, "good"), store.ErrNotFound)
}
