// Package password implements Argon2id password hashing for the development
// credential API and the password policy shared by client-side signup
// validation and the API's register handler.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters than
// the hasher's current configuration.
//
// # Policy
//
// [CheckPolicy] enforces the account password rule: 8 to 100 characters with
// at least one uppercase letter, one lowercase letter and one digit.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other apolloAuth package.
//   - Log plaintext passwords.
package password
