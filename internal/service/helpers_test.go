package service_test

import (
	"context"
	"database/sql"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/flashlet-api/internal/cache"
	"github.com/phrazzld/flashlet-api/internal/config"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/mocks"
	"github.com/phrazzld/flashlet-api/internal/service"
	"github.com/phrazzld/flashlet-api/internal/service/auth"
	"github.com/stretchr/testify/require"
)

const testPublicURL = "https://flashlet.test"

type fixture struct {
	db         *sql.DB
	sqlMock    sqlmock.Sqlmock
	users      *mocks.MockUserStore
	sets       *mocks.MockSetStore
	prefs      *mocks.MockPreferenceStore
	mailer     *mocks.MockMailer
	images     *mocks.MockImageStore
	identities *mocks.MockIdentityProvider
	cacheStore *cache.MemoryStore

	tokens      auth.TokenService
	credentials *auth.CredentialStore
	registry    *auth.TokenRegistry

	userService service.UserService
	setService  service.SetService
	prefService service.PreferenceService

	now time.Time
}

type fixtureOptions struct {
	advisorySignOut bool
	noImages        bool
}

type fixtureOption func(*fixtureOptions)

func withAdvisorySignOut() fixtureOption {
	return func(o *fixtureOptions) { o.advisorySignOut = true }
}

func withoutImages() fixtureOption {
	return func(o *fixtureOptions) { o.noImages = true }
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	var o fixtureOptions
	for _, opt := range opts {
		opt(&o)
	}

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, sqlMock.ExpectationsWereMet())
		_ = db.Close()
	})

	f := &fixture{
		db:         db,
		sqlMock:    sqlMock,
		users:      mocks.NewMockUserStore(),
		prefs:      mocks.NewMockPreferenceStore(),
		mailer:     &mocks.MockMailer{},
		images:     &mocks.MockImageStore{},
		identities: &mocks.MockIdentityProvider{Profiles: map[string]*domain.ExternalProfile{}},
		cacheStore: cache.NewMemoryStore(),
		now:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.sets = mocks.NewMockSetStore(f.users)

	f.tokens, err = auth.NewTokenService(config.AuthConfig{
		JWTSecret:                 "auth-secret-that-is-at-least-32-characters",
		ResetSecret:               "reset-secret-that-is-at-least-32-characters",
		ResetTokenLifetimeMinutes: 30,
	}, auth.WithTimeFunc(f.clock))
	require.NoError(t, err)

	hasher := &mocks.PasswordHasher{}
	f.credentials, err = auth.NewCredentialStore(f.users, hasher, f.tokens, nil)
	require.NoError(t, err)
	f.registry = auth.NewTokenRegistry(f.users, f.tokens, !o.advisorySignOut, nil)

	c := cache.New(f.cacheStore, nil)

	deps := service.UserServiceDeps{
		Users:       f.users,
		Sets:        f.sets,
		Credentials: f.credentials,
		Registry:    f.registry,
		Cache:       c,
		Mailer:      f.mailer,
		Images:      f.images,
		Identities:  f.identities,
		DB:          db,
		PublicURL:   testPublicURL + "/",
	}
	if o.noImages {
		deps.Images = nil
	}
	f.userService, err = service.NewUserService(deps)
	require.NoError(t, err)

	f.setService, err = service.NewSetService(f.sets, c, db, nil)
	require.NoError(t, err)

	f.prefService, err = service.NewPreferenceService(f.prefs, c, nil)
	require.NoError(t, err)

	return f
}

// expectCommits expects n transactions that commit.
func (f *fixture) expectCommits(n int) {
	for i := 0; i < n; i++ {
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectCommit()
	}
}

// expectRollback expects one transaction that rolls back.
func (f *fixture) expectRollback() {
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectRollback()
}

func (f *fixture) seedUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(email, "Test User", password)
	require.NoError(t, err)
	return f.users.Seed(user)
}

// reload returns the stored copy of user, as the auth middleware would.
func (f *fixture) reload(t *testing.T, user *domain.User) *domain.User {
	t.Helper()
	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	return stored
}

func (f *fixture) createSet(t *testing.T, owner *domain.User, title string, public bool) *domain.Set {
	t.Helper()
	f.expectCommits(1)
	set, err := f.setService.Create(context.Background(), owner, service.SetInput{
		Title:    title,
		IsPublic: public,
		Cards: []domain.Card{
			{Term: "hola", Definition: "hello"},
			{Term: "adios", Definition: "goodbye"},
		},
	})
	require.NoError(t, err)
	return set
}

func resetTokenFromLink(t *testing.T, link string) string {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}
