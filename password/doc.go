// Package password implements password hashing and verification.
//
// Two hashers satisfy [Hasher]: [Bcrypt] (the default, cost 10) and [Argon2],
// which encodes hashes in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Compare] is the boolean form used by signin: a mismatch and a malformed
// stored hash both compare false.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other tokenguard package.
//   - Log plaintext passwords.
package password
