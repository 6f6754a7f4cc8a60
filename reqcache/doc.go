// Package reqcache provides the request-scoped data caches an apolloAuth
// coordinator seeds with the current user and wipes on logout.
//
// Values are stored CBOR-encoded (internal/codec), so a value read back into a
// typed destination behaves the same whether it came from [Memory] or [Redis].
//
// # Architecture boundaries
//
// The cache is shared with non-session consumers: anything may read or write
// its own keys. Clear removes every key the cache owns, not only session keys.
//
// # What this package must NOT do
//
//   - Import apolloAuth (no upward imports).
//   - Fetch on miss. Loading is the caller's job.
package reqcache
