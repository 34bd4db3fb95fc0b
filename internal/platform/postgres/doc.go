// Package postgres provides PostgreSQL implementations of the store
// interfaces. Stores run on a store.DBTX so the same code serves plain
// connections and transactions, map driver errors to store sentinels with
// MapError, and ship their schema as goose migrations embedded in the
// migrations package.
package postgres
