// Package jwt mints and verifies the bearer access tokens issued by the
// development credential API, and reads claims from tokens without
// verification for display purposes.
//
// Tokens carry the user's email as the subject and the numeric user id in a
// "user_id" claim. HS256 with a shared secret is the default; Ed25519 key
// pairs are also supported.
//
// [Inspect] never checks signatures or expiry. Its output is for display and
// logging only and must not be used to make access decisions.
package jwt
