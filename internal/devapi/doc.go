// Package devapi is an in-memory implementation of the Apollo credential
// API for local development and end-to-end tests. It mirrors the production
// service's routes, payloads and error details:
//
//	POST /api/auth/register  400 on invalid email, weak password or duplicate
//	POST /api/auth/login     401 "Incorrect email or password"
//	GET  /api/auth/me        401 "Could not validate credentials"
//	GET  /health
//
// Passwords are hashed with argon2id and access tokens are HS256 JWTs whose
// subject is the email, with a user_id claim.
//
// # What this package must NOT do
//
//   - Persist users beyond the process lifetime.
//   - Serve production traffic.
package devapi
