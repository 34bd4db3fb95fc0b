package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/cache"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/redact"
	"github.com/phrazzld/flashlet-api/internal/service/auth"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// maxUsernameAttempts bounds how often a colliding username is re-suffixed.
const maxUsernameAttempts = 5

// ResetPath is the route a password reset link points at.
const ResetPath = "/v1/users/password/reset"

// UserService provides account, session and profile operations.
type UserService interface {
	// SignUp creates an account with a local password. If an OAuth-only
	// account already uses the email, the password is linked to it and
	// created is false. Returns store.ErrEmailExists if the email already
	// has a password.
	SignUp(ctx context.Context, email, name, password string) (user *domain.User, created bool, err error)

	// SignIn checks the credentials and issues a bearer token.
	SignIn(ctx context.Context, email, password string) (*domain.User, string, error)

	// SignInWithProvider resolves an OAuth access token to an account,
	// creating or linking one if needed, and issues a bearer token.
	SignInWithProvider(ctx context.Context, provider store.Provider, accessToken string) (*domain.User, string, error)

	// SignOut revokes a single bearer token.
	SignOut(ctx context.Context, user *domain.User, token string) error

	// SignOutAll revokes every bearer token of the user.
	SignOutAll(ctx context.Context, user *domain.User) error

	// GetProfile returns the public profile of username.
	GetProfile(ctx context.Context, username string) (*domain.PublicProfile, error)

	// ListPublicSets returns a page of username's public sets.
	ListPublicSets(ctx context.Context, username string, opts domain.ListOptions) (*domain.SetPage, error)

	// ForgotPassword issues a reset token and mails the reset link.
	ForgotPassword(ctx context.Context, email string) error

	// ResetPassword sets a new password using a reset token. The token is
	// consumed and every session of the user is revoked.
	ResetPassword(ctx context.Context, token, password string) error

	// ChangePassword replaces the password after checking the old one.
	ChangePassword(ctx context.Context, user *domain.User, oldPassword, newPassword string) error

	// UpdateProfile applies the non-nil fields of update.
	UpdateProfile(ctx context.Context, user *domain.User, update ProfileUpdate) (*domain.User, error)

	// RemoveAccount deletes the user together with their sets and preferences.
	RemoveAccount(ctx context.Context, user *domain.User) error
}

// ProfileUpdate carries the fields of a profile change. Nil fields are left as they are.
type ProfileUpdate struct {
	Email *string
	Name  *string
	Image *Upload
}

// UserServiceDeps holds the collaborators of UserServiceImpl.
type UserServiceDeps struct {
	Users       store.UserStore
	Sets        store.SetStore
	Credentials *auth.CredentialStore
	Registry    *auth.TokenRegistry
	Cache       *cache.Cache // nil disables caching
	Mailer      Mailer
	Images      ImageStore // nil disables profile image uploads
	Identities  IdentityProvider
	DB          *sql.DB
	PublicURL   string
	Logger      *slog.Logger
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	users       store.UserStore
	sets        store.SetStore
	credentials *auth.CredentialStore
	registry    *auth.TokenRegistry
	cache       *cache.Cache
	mailer      Mailer
	images      ImageStore
	identities  IdentityProvider
	db          *sql.DB
	publicURL   string
	logger      *slog.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService
func NewUserService(deps UserServiceDeps) (UserService, error) {
	switch {
	case deps.Users == nil:
		return nil, errors.New("user store cannot be nil")
	case deps.Sets == nil:
		return nil, errors.New("set store cannot be nil")
	case deps.Credentials == nil:
		return nil, errors.New("credential store cannot be nil")
	case deps.Registry == nil:
		return nil, errors.New("token registry cannot be nil")
	case deps.Mailer == nil:
		return nil, errors.New("mailer cannot be nil")
	case deps.Identities == nil:
		return nil, errors.New("identity provider cannot be nil")
	case deps.DB == nil:
		return nil, errors.New("database cannot be nil")
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &UserServiceImpl{
		users:       deps.Users,
		sets:        deps.Sets,
		credentials: deps.Credentials,
		registry:    deps.Registry,
		cache:       deps.Cache,
		mailer:      deps.Mailer,
		images:      deps.Images,
		identities:  deps.Identities,
		db:          deps.DB,
		publicURL:   strings.TrimRight(deps.PublicURL, "/"),
		logger:      log.With(slog.String("component", "user_service")),
	}, nil
}

// SignUp creates a local account, or links a password to an OAuth-only one.
func (s *UserServiceImpl) SignUp(ctx context.Context, email, name, password string) (*domain.User, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(email, name, password)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.users.GetByEmail(ctx, user.Email)
	switch {
	case err == nil:
		if existing.HashedPassword != "" {
			log.Debug("signup with existing email", slog.String("user_id", existing.ID.String()))
			return nil, false, store.ErrEmailExists
		}
		if err := s.linkPassword(ctx, existing, password); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	case !store.IsNotFoundError(err):
		return nil, false, fmt.Errorf("failed to look up email: %w", err)
	}

	if err := s.createWithUniqueUsername(ctx, user); err != nil {
		return nil, false, err
	}
	s.cache.Invalidate(ctx, cache.UserScope(user.Username), cache.FieldProfile)

	log.Info("user signed up",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username))
	return user, true, nil
}

// linkPassword gives an OAuth-only account a local password.
func (s *UserServiceImpl) linkPassword(ctx context.Context, user *domain.User, password string) error {
	user.Password = password
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.users.WithTx(tx).Update(ctx, user)
	})
	if err != nil {
		return fmt.Errorf("failed to link password: %w", err)
	}
	s.cache.Invalidate(ctx, cache.UserScope(user.Username), cache.FieldProfile)

	logger.FromContextOrDefault(ctx, s.logger).Info("linked local password to external account",
		slog.String("user_id", user.ID.String()))
	return nil
}

// createWithUniqueUsername saves user, suffixing the derived username while
// it collides with an existing one. Each attempt runs in its own
// transaction because a unique violation aborts the transaction it occurs in.
func (s *UserServiceImpl) createWithUniqueUsername(ctx context.Context, user *domain.User) error {
	base := user.Username
	for attempt := 1; ; attempt++ {
		err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			return s.users.WithTx(tx).Create(ctx, user)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrUsernameExists) || attempt == maxUsernameAttempts {
			return fmt.Errorf("failed to create user: %w", err)
		}
		user.Username = base + "-" + usernameSuffix()
	}
}

func usernameSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// SignIn checks the credentials and issues a bearer token.
func (s *UserServiceImpl) SignIn(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.credentials.FindByCredentials(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.credentials.IssueAuthToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("user signed in", slog.String("user_id", user.ID.String()))
	return user, token, nil
}

// SignInWithProvider resolves the provider account to a local user and issues a bearer token.
func (s *UserServiceImpl) SignInWithProvider(
	ctx context.Context,
	provider store.Provider,
	accessToken string,
) (*domain.User, string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("provider", string(provider)))

	if accessToken == "" {
		return nil, "", domain.NewValidationError("access_token", "cannot be empty", nil)
	}

	profile, err := s.identities.FetchProfile(ctx, provider, accessToken)
	if err != nil {
		return nil, "", err
	}

	user, created, err := s.resolveExternalUser(ctx, provider, profile)
	if err != nil {
		return nil, "", err
	}
	if err := linkProvider(user, provider, profile.ID, accessToken); err != nil {
		return nil, "", err
	}

	if created {
		if err := s.createWithUniqueUsername(ctx, user); err != nil {
			return nil, "", err
		}
		log.Info("user signed up with provider", slog.String("user_id", user.ID.String()))
	} else {
		err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			return s.users.WithTx(tx).Update(ctx, user)
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to link %s account: %w", provider, err)
		}
	}
	s.cache.Invalidate(ctx, cache.UserScope(user.Username), cache.FieldProfile)

	token, err := s.credentials.IssueAuthToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	log.Info("user signed in with provider", slog.String("user_id", user.ID.String()))
	return user, token, nil
}

// resolveExternalUser finds the user linked to the provider account, then a
// user with the same email, and otherwise prepares a new one.
func (s *UserServiceImpl) resolveExternalUser(
	ctx context.Context,
	provider store.Provider,
	profile *domain.ExternalProfile,
) (*domain.User, bool, error) {
	user, err := s.users.GetByProvider(ctx, provider, profile.ID)
	if err == nil {
		return user, false, nil
	}
	if !store.IsNotFoundError(err) {
		return nil, false, fmt.Errorf("failed to look up %s account: %w", provider, err)
	}

	user, err = s.users.GetByEmail(ctx, domain.NormalizeEmail(profile.Email))
	if err == nil {
		return user, false, nil
	}
	if !store.IsNotFoundError(err) {
		return nil, false, fmt.Errorf("failed to look up email: %w", err)
	}

	return domain.NewExternalUser(profile.Email, profile.Name, profile.ImageURL), true, nil
}

func linkProvider(user *domain.User, provider store.Provider, providerID, accessToken string) error {
	switch provider {
	case store.ProviderGoogle:
		user.GoogleID = providerID
		user.GoogleAccessToken = accessToken
	case store.ProviderFacebook:
		user.FacebookID = providerID
		user.FacebookAccessToken = accessToken
	default:
		return domain.NewValidationError("provider", "unsupported provider", nil)
	}
	return nil
}

// SignOut revokes a single bearer token.
func (s *UserServiceImpl) SignOut(ctx context.Context, user *domain.User, token string) error {
	if err := s.registry.SignOut(ctx, user.ID, token); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Debug("user signed out", slog.String("user_id", user.ID.String()))
	return nil
}

// SignOutAll revokes every bearer token of the user.
func (s *UserServiceImpl) SignOutAll(ctx context.Context, user *domain.User) error {
	if err := s.registry.SignOutAll(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to sign out all sessions: %w", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("user signed out everywhere",
		slog.String("user_id", user.ID.String()))
	return nil
}

// GetProfile returns the public profile of username.
func (s *UserServiceImpl) GetProfile(ctx context.Context, username string) (*domain.PublicProfile, error) {
	key := cache.NewKey(cache.UserScope(username), cache.FieldProfile)
	return cache.ReadThrough(ctx, s.cache, key, func(ctx context.Context) (*domain.PublicProfile, error) {
		user, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		profile := user.Profile()
		return &profile, nil
	})
}

// ListPublicSets returns a page of username's public sets.
func (s *UserServiceImpl) ListPublicSets(
	ctx context.Context,
	username string,
	opts domain.ListOptions,
) (*domain.SetPage, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	key := cache.NewKey(cache.UserScope(username), cache.FieldPublicSets).WithVariant(opts.CacheVariant())
	return cache.ReadThrough(ctx, s.cache, key, func(ctx context.Context) (*domain.SetPage, error) {
		owner, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		return s.sets.ListByUser(ctx, owner.ID, true, opts)
	})
}

// ForgotPassword issues a reset token and mails the reset link.
func (s *UserServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return err
	}

	token, err := s.credentials.IssueResetToken(ctx, user.ID)
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, s.resetURL(token)); err != nil {
		log.Error("failed to send password reset email",
			slog.String("user_id", user.ID.String()),
			slog.String("error", redact.Error(err)))
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	log.Info("password reset requested", slog.String("user_id", user.ID.String()))
	return nil
}

func (s *UserServiceImpl) resetURL(token string) string {
	return s.publicURL + ResetPath + "?token=" + url.QueryEscape(token)
}

// ResetPassword sets a new password with a reset token. The stored token is
// consumed in the same transaction, so a token resets the password once.
func (s *UserServiceImpl) ResetPassword(ctx context.Context, token, password string) error {
	if err := validateNewPassword(password); err != nil {
		return err
	}

	userID, err := s.credentials.VerifyResetToken(ctx, token)
	if err != nil {
		return err
	}

	var user *domain.User
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		users := s.users.WithTx(tx)

		u, err := users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := users.ConsumeResetToken(ctx, userID, token); err != nil {
			return err
		}

		u.Password = password
		if err := users.Update(ctx, u); err != nil {
			return err
		}
		user = u
		return users.ClearTokens(ctx, userID)
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return auth.ErrInvalidResetToken
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}
	s.cache.Invalidate(ctx, cache.UserScope(user.Username), cache.FieldProfile)

	logger.FromContextOrDefault(ctx, s.logger).Info("password reset", slog.String("user_id", userID.String()))
	return nil
}

// ChangePassword replaces the password after checking the old one.
func (s *UserServiceImpl) ChangePassword(
	ctx context.Context,
	user *domain.User,
	oldPassword, newPassword string,
) error {
	if !s.credentials.VerifyPassword(oldPassword, user.HashedPassword) {
		return auth.ErrInvalidCredentials
	}
	if err := validateNewPassword(newPassword); err != nil {
		return err
	}

	updated := *user
	updated.Password = newPassword
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.users.WithTx(tx).Update(ctx, &updated)
	})
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("password changed", slog.String("user_id", user.ID.String()))
	return nil
}

// UpdateProfile applies the non-nil fields of update and returns the saved user.
func (s *UserServiceImpl) UpdateProfile(
	ctx context.Context,
	user *domain.User,
	update ProfileUpdate,
) (*domain.User, error) {
	updated := *user

	if update.Email != nil {
		email := domain.NormalizeEmail(*update.Email)
		if !domain.ValidEmail(email) {
			return nil, domain.NewValidationError("email", "invalid email format", domain.ErrInvalidEmail)
		}
		if email != user.Email {
			_, err := s.users.GetByEmail(ctx, email)
			switch {
			case err == nil:
				return nil, store.ErrEmailExists
			case !store.IsNotFoundError(err):
				return nil, fmt.Errorf("failed to look up email: %w", err)
			}
			updated.Email = email
			updated.ProfileImageDefault = domain.DefaultProfileImage(email)
		}
	}

	if update.Name != nil {
		updated.Name = strings.TrimSpace(*update.Name)
	}

	if update.Image != nil {
		imageURL, err := s.uploadProfileImage(ctx, user.ID, update.Image)
		if err != nil {
			return nil, err
		}
		updated.ProfileImage = imageURL
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.users.WithTx(tx).Update(ctx, &updated)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) || errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	// Listings embed the author's name and image, so the whole scope is stale.
	s.cache.Invalidate(ctx, cache.UserScope(user.Username))

	logger.FromContextOrDefault(ctx, s.logger).Info("profile updated", slog.String("user_id", user.ID.String()))
	return &updated, nil
}

// RemoveAccount deletes the user together with their sets and preferences.
func (s *UserServiceImpl) RemoveAccount(ctx context.Context, user *domain.User) error {
	setIDs, err := s.ownedSetIDs(ctx, user.ID)
	if err != nil {
		return err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.users.WithTx(tx).Delete(ctx, user.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}

	s.cache.Invalidate(ctx, cache.UserScope(user.Username))
	for _, id := range setIDs {
		s.cache.Invalidate(ctx, cache.SetScope(id))
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("account removed",
		slog.String("user_id", user.ID.String()),
		slog.Int("sets", len(setIDs)))
	return nil
}

// ownedSetIDs lists the ids of every set of userID so their cached detail
// can be evicted once the cascade has removed them.
func (s *UserServiceImpl) ownedSetIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	opts := domain.ListOptions{
		SortBy:  domain.SortByCreatedAt,
		OrderBy: 1,
		Limit:   domain.MaxPageLimit,
		Page:    1,
	}

	var ids []uuid.UUID
	for {
		page, err := s.sets.ListByUser(ctx, userID, false, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list sets: %w", err)
		}
		for _, set := range page.Sets {
			ids = append(ids, set.ID)
		}
		if !page.HasNextPage {
			return ids, nil
		}
		opts.Page++
	}
}

func validateNewPassword(password string) error {
	if err := domain.ValidatePassword(password); err != nil {
		return domain.NewValidationError(
			"password",
			strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": "),
			err,
		)
	}
	return nil
}
