// Package apolloAuth is the client-side authentication session coordinator of
// the Apollo goal-coaching product.
//
// A [Coordinator] owns one access token and the identity of the user it
// belongs to. It keeps three places consistent across login, signup,
// process-start rehydration and logout:
//
//   - a durable [TokenSlot] that survives restarts,
//   - an in-memory [State] that hosts read and subscribe to,
//   - a shared [RequestCache] that holds the current-user entry.
//
// Credentials are exchanged through a [CredentialExchange]; the exchange
// package provides the HTTP implementation.
//
// # Architecture boundaries
//
// apolloAuth is the public surface. It exposes [Coordinator], [Builder],
// [Config], [State], [BootstrapGate] and value types. Storage lives in
// tokenslot/ and reqcache/; event dispatch and metric storage live under
// internal/.
//
// # What this package must NOT do
//
//   - Validate, refresh or expire tokens. A token is opaque here.
//   - Let anything other than the Coordinator mutate [State].
//   - Import exchange or metrics/export (both import this package).
//   - Log token values.
//
// # Concurrency contract
//
// Coordinator methods are safe to call from multiple goroutines. Network
// calls never hold a lock; each operation applies its effects under one commit
// lock, so readers never observe half of a login or logout. Concurrent
// operations are not serialized end to end: the last commit wins.
package apolloAuth
