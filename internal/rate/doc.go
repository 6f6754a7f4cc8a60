// Package rate provides the Redis-backed fixed-window limiters used by the
// development credential API.
//
// # Window semantics
//
// Fixed-window counters: INCR + EXPIRE on the first hit. Key prefixes under
// Config.Prefix:
//   - req: requests per client address
//   - login: failed logins per email
//
// # What this package must NOT do
//
//   - Decide HTTP responses (the caller maps ErrRateLimited).
//   - Be imported outside the apolloAuth module.
package rate
