package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/flashlet-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		notFound error
		want     error
	}{
		{"no rows uses given error", sql.ErrNoRows, store.ErrSetNotFound, store.ErrSetNotFound},
		{"no rows default", sql.ErrNoRows, nil, store.ErrNotFound},
		{
			"email conflict",
			&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_email_key"},
			nil,
			store.ErrEmailExists,
		},
		{
			"username conflict",
			&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_username_key"},
			nil,
			store.ErrUsernameExists,
		},
		{
			"provider conflict",
			&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_google_id_key"},
			nil,
			store.ErrProviderIDExists,
		},
		{
			"unknown unique constraint",
			&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "cards_set_position_key"},
			nil,
			store.ErrDuplicate,
		},
		{
			"foreign key",
			&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "sets_user_id_fkey"},
			nil,
			store.ErrInvalidEntity,
		},
		{"check", &pgconn.PgError{Code: checkViolationCode}, nil, store.ErrInvalidEntity},
		{"not null", &pgconn.PgError{Code: notNullViolationCode, ColumnName: "title"}, nil, store.ErrInvalidEntity},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, MapError(tt.err, tt.notFound), tt.want)
		})
	}

	assert.NoError(t, MapError(nil, nil))
	other := errors.New("connection refused")
	assert.Same(t, other, MapError(other, nil))
}

func TestMapError_KeepsDriverError(t *testing.T) {
	t.Parallel()
	pgErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_email_key", Message: "duplicate key"}

	mapped := MapError(pgErr, nil)

	assert.ErrorIs(t, mapped, store.ErrDuplicate)
	assert.Contains(t, mapped.Error(), "duplicate key")
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckRowsAffected(sqlmock.NewResult(0, 1), store.ErrUserNotFound))
	assert.ErrorIs(t, CheckRowsAffected(sqlmock.NewResult(0, 0), store.ErrUserNotFound), store.ErrUserNotFound)
	assert.ErrorIs(t, CheckRowsAffected(sqlmock.NewResult(0, 0), nil), store.ErrNotFound)
	assert.Error(t, CheckRowsAffected(sqlmock.NewErrorResult(errors.New("boom")), nil))
	assert.Error(t, CheckRowsAffected(nil, nil))
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `100\% pure\_go \\o/`, escapeLike(`100% pure_go \o/`))
	assert.Equal(t, "spanish", escapeLike("spanish"))
}
