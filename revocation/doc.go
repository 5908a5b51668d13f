// Package revocation holds the explicit per-token invalidation state: the
// durable [Store] of revoked jti values and the in-process [Cache] that
// memoizes lookups against it.
//
// Records carry the token's own expiry so the backend can purge them once the
// token could no longer verify. [RedisStore] relies on key TTLs; the SQL store
// in storage/sqlstore runs a background purger.
package revocation
