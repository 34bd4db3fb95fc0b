// Package cache implements a read-through, write-invalidate cache in front
// of the persistence layer.
//
// Entries are addressed by a two-level Key: a scope (usually the owning
// username) and a field naming the resource kind ("sets", "preferences",
// "profile"). A Variant distinguishes parameterised reads of the same field,
// such as individual listing pages, so that invalidating a field removes all
// of its variants at once.
//
// The cache is never required for correctness. Store errors and timeouts on
// read fall through to the loader, and failures on write or invalidation are
// logged and swallowed.
package cache
