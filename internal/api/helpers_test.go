package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/api/middleware"
	"github.com/phrazzld/flashlet-api/internal/api/shared"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/service"
	"github.com/phrazzld/flashlet-api/internal/service/auth"
	"github.com/phrazzld/flashlet-api/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testToken = "valid-token"

// mockUserService is a testify mock of service.UserService.
type mockUserService struct{ mock.Mock }

var _ service.UserService = (*mockUserService)(nil)

func (m *mockUserService) SignUp(ctx context.Context, email, name, password string) (*domain.User, bool, error) {
	args := m.Called(ctx, email, name, password)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Bool(1), args.Error(2)
}

func (m *mockUserService) SignIn(ctx context.Context, email, password string) (*domain.User, string, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*domain.User)
	return user, args.String(1), args.Error(2)
}

func (m *mockUserService) SignInWithProvider(
	ctx context.Context,
	provider store.Provider,
	accessToken string,
) (*domain.User, string, error) {
	args := m.Called(ctx, provider, accessToken)
	user, _ := args.Get(0).(*domain.User)
	return user, args.String(1), args.Error(2)
}

func (m *mockUserService) SignOut(ctx context.Context, user *domain.User, token string) error {
	return m.Called(ctx, user, token).Error(0)
}

func (m *mockUserService) SignOutAll(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserService) GetProfile(ctx context.Context, username string) (*domain.PublicProfile, error) {
	args := m.Called(ctx, username)
	profile, _ := args.Get(0).(*domain.PublicProfile)
	return profile, args.Error(1)
}

func (m *mockUserService) ListPublicSets(
	ctx context.Context,
	username string,
	opts domain.ListOptions,
) (*domain.SetPage, error) {
	args := m.Called(ctx, username, opts)
	page, _ := args.Get(0).(*domain.SetPage)
	return page, args.Error(1)
}

func (m *mockUserService) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockUserService) ResetPassword(ctx context.Context, token, password string) error {
	return m.Called(ctx, token, password).Error(0)
}

func (m *mockUserService) ChangePassword(ctx context.Context, user *domain.User, oldPassword, newPassword string) error {
	return m.Called(ctx, user, oldPassword, newPassword).Error(0)
}

func (m *mockUserService) UpdateProfile(
	ctx context.Context,
	user *domain.User,
	update service.ProfileUpdate,
) (*domain.User, error) {
	args := m.Called(ctx, user, update)
	updated, _ := args.Get(0).(*domain.User)
	return updated, args.Error(1)
}

func (m *mockUserService) RemoveAccount(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

// mockSetService is a testify mock of service.SetService.
type mockSetService struct{ mock.Mock }

var _ service.SetService = (*mockSetService)(nil)

func (m *mockSetService) Create(ctx context.Context, owner *domain.User, input service.SetInput) (*domain.Set, error) {
	args := m.Called(ctx, owner, input)
	set, _ := args.Get(0).(*domain.Set)
	return set, args.Error(1)
}

func (m *mockSetService) Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.Set, error) {
	args := m.Called(ctx, viewer, id)
	set, _ := args.Get(0).(*domain.Set)
	return set, args.Error(1)
}

func (m *mockSetService) Update(
	ctx context.Context,
	owner *domain.User,
	id uuid.UUID,
	input service.SetInput,
) (*domain.Set, error) {
	args := m.Called(ctx, owner, id, input)
	set, _ := args.Get(0).(*domain.Set)
	return set, args.Error(1)
}

func (m *mockSetService) Delete(ctx context.Context, owner *domain.User, id uuid.UUID) error {
	return m.Called(ctx, owner, id).Error(0)
}

func (m *mockSetService) ListMine(ctx context.Context, owner *domain.User, opts domain.ListOptions) (*domain.SetPage, error) {
	args := m.Called(ctx, owner, opts)
	page, _ := args.Get(0).(*domain.SetPage)
	return page, args.Error(1)
}

func (m *mockSetService) Search(ctx context.Context, opts domain.ListOptions) (*domain.SetPage, error) {
	args := m.Called(ctx, opts)
	page, _ := args.Get(0).(*domain.SetPage)
	return page, args.Error(1)
}

// mockPreferenceService is a testify mock of service.PreferenceService.
type mockPreferenceService struct{ mock.Mock }

var _ service.PreferenceService = (*mockPreferenceService)(nil)

func (m *mockPreferenceService) Get(ctx context.Context, user *domain.User) (*domain.Preference, error) {
	args := m.Called(ctx, user)
	pref, _ := args.Get(0).(*domain.Preference)
	return pref, args.Error(1)
}

func (m *mockPreferenceService) Update(ctx context.Context, user *domain.User, darkMode bool) (*domain.Preference, error) {
	args := m.Called(ctx, user, darkMode)
	pref, _ := args.Get(0).(*domain.Preference)
	return pref, args.Error(1)
}

// tokenAuthenticator accepts testToken for its user and rejects anything else.
type tokenAuthenticator struct {
	user *domain.User
}

func (a tokenAuthenticator) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if token == testToken {
		return a.user, nil
	}
	return nil, auth.ErrInvalidToken
}

type apiFixture struct {
	user   *domain.User
	users  *mockUserService
	sets   *mockSetService
	prefs  *mockPreferenceService
	router http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	user := &domain.User{
		ID:       uuid.New(),
		Email:    "ada@example.com",
		Username: "ada",
		Name:     "Ada",
	}
	f := &apiFixture{
		user:  user,
		users: &mockUserService{},
		sets:  &mockSetService{},
		prefs: &mockPreferenceService{},
	}

	r := chi.NewRouter()
	RegisterRoutes(r, Handlers{
		Users:       NewUserHandler(f.users, nil),
		Sets:        NewSetHandler(f.sets, nil),
		Preferences: NewPreferenceHandler(f.prefs, nil),
	}, middleware.NewAuthMiddleware(tokenAuthenticator{user: user}))
	f.router = r

	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.sets.AssertExpectations(t)
		f.prefs.AssertExpectations(t)
	})
	return f
}

// do sends a request through the router. body is JSON-encoded unless it is
// nil or already a *bytes.Buffer.
func (f *apiFixture) do(t *testing.T, method, target string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case *bytes.Buffer:
		buf = b
	case string:
		buf = bytes.NewBufferString(b)
	default:
		buf = &bytes.Buffer{}
		require.NoError(t, json.NewEncoder(buf).Encode(b))
	}

	req := httptest.NewRequest(method, target, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), rec.Body.String())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var body shared.ErrorResponse
	decodeBody(t, rec, &body)
	return body
}

func newAuthedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
