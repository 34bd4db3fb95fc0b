// Package service contains the application use cases. It orchestrates the
// stores from internal/store, the credential and token logic from
// internal/service/auth, and the read-through cache from internal/cache.
//
// Key components:
//
// 1. Service Interfaces:
//   - UserService covers accounts, sessions, profiles and password recovery
//   - SetService covers card sets, their visibility and listings
//   - PreferenceService covers per-user display settings
//
// 2. Transactions and caching:
//   - Writes run through store.RunInTransaction with WithTx stores
//   - Cached reads go through cache.ReadThrough; writes invalidate the
//     affected entries only after the transaction has committed
//
// 3. Ports:
//   - Mailer, ImageStore and IdentityProvider are implemented in
//     internal/platform and injected at startup
//
// The service layer depends on domain entities and store interfaces, never
// on specific infrastructure implementations.
package service
