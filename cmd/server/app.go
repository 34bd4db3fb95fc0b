package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/phrazzld/flashlet-api/internal/api"
	"github.com/phrazzld/flashlet-api/internal/api/middleware"
	"github.com/phrazzld/flashlet-api/internal/cache"
	"github.com/phrazzld/flashlet-api/internal/config"
	"github.com/phrazzld/flashlet-api/internal/platform/mail"
	"github.com/phrazzld/flashlet-api/internal/platform/oauth"
	"github.com/phrazzld/flashlet-api/internal/platform/postgres"
	"github.com/phrazzld/flashlet-api/internal/platform/storage"
	"github.com/phrazzld/flashlet-api/internal/service"
	"github.com/phrazzld/flashlet-api/internal/service/auth"
)

// application holds the wired dependencies of the server and the resources
// released on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	cache    *cache.Cache
	registry *auth.TokenRegistry

	userService       service.UserService
	setService        service.SetService
	preferenceService service.PreferenceService

	closers []io.Closer
}

// newApplication wires stores, the cache, external adapters and services.
// The application owns db; it is closed if wiring fails.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (_ *application, err error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		closers: []io.Closer{db},
	}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	cacheStore, closer, err := newCacheStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	app.cache = cache.New(cacheStore, logger,
		cache.WithTTL(time.Duration(cfg.Cache.TTLSeconds)*time.Second),
		cache.WithTimeout(time.Duration(cfg.Cache.TimeoutMillis)*time.Millisecond),
	)

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	userStore := postgres.NewPostgresUserStore(db, hasher, logger)
	setStore := postgres.NewPostgresSetStore(db, logger)
	prefStore := postgres.NewPostgresPreferenceStore(db, logger)

	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	credentials, err := auth.NewCredentialStore(userStore, hasher, tokens, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}
	app.registry = auth.NewTokenRegistry(userStore, tokens, cfg.Auth.EnforceTokenPresence, logger)

	mailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}

	deps := service.UserServiceDeps{
		Users:       userStore,
		Sets:        setStore,
		Credentials: credentials,
		Registry:    app.registry,
		Cache:       app.cache,
		Mailer:      mailer,
		Identities:  oauth.NewClient(cfg.OAuth, nil, logger),
		DB:          db,
		PublicURL:   cfg.Server.PublicURL,
		Logger:      logger,
	}
	if cfg.Storage.Endpoint != "" {
		images, err := storage.NewMinioStore(ctx, cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create image store: %w", err)
		}
		deps.Images = images
	} else {
		logger.Info("Storage endpoint not configured; profile image uploads are disabled")
	}

	if app.userService, err = service.NewUserService(deps); err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}
	if app.setService, err = service.NewSetService(setStore, app.cache, db, logger); err != nil {
		return nil, fmt.Errorf("failed to create set service: %w", err)
	}
	if app.preferenceService, err = service.NewPreferenceService(prefStore, app.cache, logger); err != nil {
		return nil, fmt.Errorf("failed to create preference service: %w", err)
	}

	return app, nil
}

// newCacheStore returns the backing store selected by cfg, or nil when
// caching is disabled. The returned closer is nil unless a connection was
// opened.
func newCacheStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, io.Closer, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	switch cfg.Driver {
	case "memory":
		return cache.NewMemoryStore(), nil, nil
	default:
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return cache.NewRedisStore(client, ""), client, nil
	}
}

// newMailer sends over SMTP when a host is configured and logs otherwise.
func newMailer(cfg config.MailConfig, logger *slog.Logger) (service.Mailer, error) {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP host not configured; password reset emails are only logged")
		return mail.NewLogMailer(logger), nil
	}
	return mail.NewSMTPMailer(cfg, logger)
}

// handlers builds the HTTP handlers over the application services.
func (app *application) handlers() (api.Handlers, *middleware.AuthMiddleware) {
	return api.Handlers{
		Users:       api.NewUserHandler(app.userService, app.logger),
		Sets:        api.NewSetHandler(app.setService, app.logger),
		Preferences: api.NewPreferenceHandler(app.preferenceService, app.logger),
	}, middleware.NewAuthMiddleware(app.registry)
}

// Run serves HTTP until ctx is canceled, then releases resources.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()
	return app.startHTTPServer(ctx, app.setupRouter())
}

// cleanup closes connections in reverse order of creation.
func (app *application) cleanup() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error("Failed to close resource", slog.String("error", err.Error()))
		}
	}
	app.closers = nil
}
