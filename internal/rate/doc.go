// Package rate implements the Redis-backed signin throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + EXPIRE on the first hit. Key prefixes:
//   - tsl: signin failures per username
//   - tsi: signin failures per client IP
//
// # What this package must NOT do
//
//   - Decide whether a throttle failure blocks signin. The caller fails open.
//   - Be imported outside the tokenguard module.
package rate
