// Package tokenguard issues signed session tokens and validates them on every
// protected request, with server-side invalidation of tokens that are
// otherwise self-contained.
//
// Two mechanisms invalidate tokens:
//
//   - explicit revocation: logout and password change write the token's jti to
//     a [revocation.Store] until the token would have expired, memoized in a
//     bounded in-process LRU;
//   - fingerprints: each user carries a random fingerprint that is copied into
//     every token. Changing the password or email rotates it, so every earlier
//     token stops authenticating at once.
//
// Methods on [Authority] are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// tokenguard is the public surface: [Authority], [Builder], [Config], the
// [UserDirectory] contract and its value types. Backends live in sub-packages
// (directory, storage/sqlstore, revocation) and HTTP wiring in api and
// middleware.
//
// # What this package must NOT do
//
//   - Import any sub-package that re-imports tokenguard (no import cycles).
//   - Decide authorization. The role claim is carried, not enforced.
//   - Fail a request because the revocation store or directory is down. Those
//     checks fail open and are logged.
package tokenguard
