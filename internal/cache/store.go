package cache

import (
	"context"
	"time"
)

// Store is the backing store for cached entries. Each scope is a hash of
// members to opaque values.
type Store interface {
	// Get returns the value of member in scope. ok is false on a miss.
	Get(ctx context.Context, scope, member string) (value []byte, ok bool, err error)

	// Set stores value under member in scope. A positive ttl bounds the
	// lifetime of the whole scope; per-entry expiry is enforced by Cache.
	Set(ctx context.Context, scope, member string, value []byte, ttl time.Duration) error

	// Members lists the member names present in scope.
	Members(ctx context.Context, scope string) ([]string, error)

	// Delete removes the given members from scope.
	Delete(ctx context.Context, scope string, members ...string) error

	// DeleteScope removes scope and everything in it.
	DeleteScope(ctx context.Context, scope string) error
}
