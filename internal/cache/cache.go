package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/redact"
)

// Defaults applied by New.
const (
	DefaultTTL     = 300 * time.Second
	DefaultTimeout = 250 * time.Millisecond
)

// Cache wraps a Store with TTLs, bounded store calls and failure fallthrough.
// A nil *Cache is valid and disables caching.
type Cache struct {
	store   Store
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the entry lifetime. Zero means entries never expire.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

// WithTimeout bounds every store call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Cache) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Cache over store. A nil store yields a disabled cache.
func New(store Store, log *slog.Logger, opts ...Option) *Cache {
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		store:   store,
		ttl:     DefaultTTL,
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  log.With(slog.String("component", "cache")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether reads are served from a store.
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// entry is the stored form of a value. Expiry is kept per entry because
// Redis hashes only expire as a whole.
type entry struct {
	ExpiresAt int64           `json:"e,omitempty"` // unix millis, 0 = never
	Value     json.RawMessage `json:"v"`
}

// Loader produces the value for a cache miss.
type Loader[T any] func(ctx context.Context) (T, error)

// ReadThrough returns the cached value for key, or calls load, caches its
// result and returns it. Loader errors are returned and never cached.
// Any cache failure degrades to calling load.
func ReadThrough[T any](ctx context.Context, c *Cache, key Key, load Loader[T]) (T, error) {
	if !c.Enabled() || !key.valid() {
		return load(ctx)
	}

	log := c.log(ctx, key)

	if raw, ok := c.lookup(ctx, key); ok {
		var v T
		err := json.Unmarshal(raw, &v)
		if err == nil {
			log.Debug("serving from cache", slog.String("source", "cache"))
			return v, nil
		}
		log.Warn("discarding undecodable cache entry", slog.String("error", err.Error()))
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	log.Debug("serving from database", slog.String("source", "database"))

	c.put(ctx, key, v)
	return v, nil
}

// Invalidate removes cached entries under scope. With no fields every entry
// in the scope is removed; otherwise each named field is removed together
// with all of its variants. Failures are logged, never returned.
func (c *Cache) Invalidate(ctx context.Context, scope string, fields ...string) {
	if !c.Enabled() || scope == "" {
		return
	}
	log := c.log(ctx, Key{Scope: scope})

	callCtx, cancel := c.bound(ctx)
	defer cancel()

	if len(fields) == 0 {
		if err := c.store.DeleteScope(callCtx, scope); err != nil {
			log.Warn("cache invalidation failed", slog.String("error", redact.Error(err)))
		}
		return
	}

	members, err := c.store.Members(callCtx, scope)
	if err != nil {
		log.Warn("cache invalidation failed", slog.String("error", redact.Error(err)))
		return
	}

	var stale []string
	for _, m := range members {
		for _, f := range fields {
			if belongsTo(m, f) {
				stale = append(stale, m)
				break
			}
		}
	}
	if len(stale) == 0 {
		return
	}

	if err := c.store.Delete(callCtx, scope, stale...); err != nil {
		log.Warn("cache invalidation failed",
			slog.Any("fields", fields),
			slog.String("error", redact.Error(err)))
		return
	}
	log.Debug("cache invalidated", slog.Any("members", stale))
}

func (c *Cache) lookup(ctx context.Context, key Key) (json.RawMessage, bool) {
	callCtx, cancel := c.bound(ctx)
	defer cancel()

	raw, ok, err := c.store.Get(callCtx, key.Scope, key.member())
	if err != nil {
		c.log(ctx, key).Warn("cache read failed, falling back to loader",
			slog.String("error", redact.Error(err)))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log(ctx, key).Warn("discarding malformed cache entry", slog.String("error", err.Error()))
		return nil, false
	}
	if e.ExpiresAt != 0 && c.now().UnixMilli() >= e.ExpiresAt {
		return nil, false
	}
	return e.Value, true
}

func (c *Cache) put(ctx context.Context, key Key, v any) {
	value, err := json.Marshal(v)
	if err != nil {
		c.log(ctx, key).Warn("value not cacheable", slog.String("error", err.Error()))
		return
	}

	e := entry{Value: value}
	if c.ttl > 0 {
		e.ExpiresAt = c.now().Add(c.ttl).UnixMilli()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}

	callCtx, cancel := c.bound(ctx)
	defer cancel()
	if err := c.store.Set(callCtx, key.Scope, key.member(), raw, c.ttl); err != nil {
		c.log(ctx, key).Warn("cache write failed", slog.String("error", redact.Error(err)))
	}
}

// bound derives a context for one store call. It is detached from the
// request's cancellation so an invalidation after commit still runs if the
// client disconnects, but it always carries the cache timeout.
func (c *Cache) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
}

func (c *Cache) log(ctx context.Context, key Key) *slog.Logger {
	l := logger.FromContextOrDefault(ctx, c.logger).With(slog.String("scope", key.Scope))
	if key.Field != "" {
		l = l.With(slog.String("field", key.member()))
	}
	return l
}
