// Package internal contains helper utilities that are intentionally private to tokenguard,
// most notably secure random generation for token identifiers and user fingerprints.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - rate: Redis-backed fixed-window counters for signin throttling
//   - respond: JSON response envelopes shared by the HTTP packages
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenguard API.
//   - Be imported by any package outside the tokenguard module.
package internal
