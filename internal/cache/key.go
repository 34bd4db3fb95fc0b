package cache

import (
	"strings"

	"github.com/google/uuid"
)

// Fields used by the services.
const (
	FieldProfile     = "profile"
	FieldSets        = "sets"
	FieldPublicSets  = "public_sets"
	FieldPreferences = "preferences"
	FieldSet         = "set"
)

// variantSeparator joins a field and its variant inside a scope.
const variantSeparator = "|"

// Key addresses one cache entry.
type Key struct {
	Scope   string
	Field   string
	Variant string
}

// NewKey returns a Key without a variant.
func NewKey(scope, field string) Key {
	return Key{Scope: scope, Field: field}
}

// WithVariant returns a copy of k for the given variant.
func (k Key) WithVariant(variant string) Key {
	k.Variant = variant
	return k
}

// UserScope is the scope holding everything cached for one user.
func UserScope(username string) string {
	return "user:" + username
}

// SetScope is the scope holding a single set's cached detail. Sets are read
// by non-owners too, so they are not scoped by username.
func SetScope(id uuid.UUID) string {
	return "set:" + id.String()
}

func (k Key) valid() bool {
	return k.Scope != "" && k.Field != "" && !strings.Contains(k.Field, variantSeparator)
}

// member is the name of the entry inside its scope.
func (k Key) member() string {
	if k.Variant == "" {
		return k.Field
	}
	return k.Field + variantSeparator + k.Variant
}

// belongsTo reports whether a stored member is field itself or one of its variants.
func belongsTo(member, field string) bool {
	return member == field || strings.HasPrefix(member, field+variantSeparator)
}
