// Package audit implements async dispatching of session lifecycle events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record with timestamp, type, user, correlation ID, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the session coordinator does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on session logic.
//   - Import apolloAuth or any sibling internal package.
//   - Carry access tokens in events.
package audit
