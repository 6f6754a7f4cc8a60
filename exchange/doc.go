// Package exchange is the HTTP credential exchange used by the session
// coordinator. It speaks the Apollo auth API:
//
//	POST {base}/auth/login     {email, password}            -> {access_token, token_type, user}
//	POST {base}/auth/register  {user_name, email, password} -> {access_token, token_type, user}
//	GET  {base}/auth/me        Authorization: Bearer <token> -> user
//	GET  {origin}/health
//
// Every request carries an X-Correlation-ID header, taken from the context
// (see apolloAuth.WithCorrelationID) or generated.
//
// # Architecture boundaries
//
// The client owns transport concerns only: timeouts, request encoding and
// mapping non-2xx responses to *APIError. It never retries and never touches
// session state.
//
// # What this package must NOT do
//
//   - Persist or cache tokens.
//   - Interpret JWT claims.
//   - Retry failed exchanges.
package exchange
