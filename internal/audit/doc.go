// Package audit implements async event dispatching for account and token operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, logrus, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured audit record with timestamp, type, user, jti, IP and metadata.
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; the Authority does.
package audit
