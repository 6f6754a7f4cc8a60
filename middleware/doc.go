// Package middleware holds net/http middleware for the Apollo credential API.
//
// # Middleware
//
//   - [RequireBearer] verifies the bearer token with a [Verifier] and stores
//     the claims in the request context.
//   - [Correlation] propagates X-Correlation-ID into the context and the
//     response.
//   - [RequestLog] logs one structured record per request.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into calls on a [Verifier]. Token
// parsing and signature checks live in the jwt package.
//
// # What this package must NOT do
//
//   - Mint tokens.
//   - Look up users or sessions.
//   - Make authorization decisions beyond pass/reject from the Verifier.
package middleware
