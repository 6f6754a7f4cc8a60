// Package tokenslot provides durable storage for the single access token held
// by an apolloAuth session coordinator.
//
// Three slots are available:
//
//   - [Memory]: process-local, used by tests and short-lived hosts.
//   - [File]: a single file on disk, optionally sealed with an age X25519
//     identity so the token is not stored in the clear.
//   - [Redis]: one Redis key, shared by every process pointed at the same
//     server and key.
//
// # Record format
//
// File and Redis slots persist a small versioned CBOR record (see
// [EncodeRecord]) rather than the raw token, so the saved-at time travels with
// the value and later schema versions can be read side by side.
//
// # Architecture boundaries
//
// A slot stores and returns exactly what it was given. It does NOT parse the
// token, check expiry, or notify other processes of changes. Last write wins.
//
// # What this package must NOT do
//
//   - Import apolloAuth (no upward imports).
//   - Log or otherwise expose token values.
package tokenslot
