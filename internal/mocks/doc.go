// Package mocks provides centralized fakes for testing.
//
// The store fakes keep data in memory and behave like the Postgres
// implementations for the parts services rely on: unique emails and
// usernames, password hashing on write, and copy-on-read so callers cannot
// mutate stored rows. Each method can be overridden with its Fn field, and
// call counters let tests assert whether a read reached the store.
package mocks
