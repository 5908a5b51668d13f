// Package sqlstore provides Postgres implementations of the user directory
// and the revocation store on top of gorm.
//
// Revocations live in revoked_tokens with an index on expire_at. Expired rows
// are ignored by Exists and deleted by a background [Purger].
package sqlstore
