// Package audit implements async dispatching of client diagnostic events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zerolog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record with timestamp, type, user, storage key and metadata.
//
// This package owns buffering and sink delivery. It does not decide which
// events to emit; the root package translates storage, session and API
// signals into events.
package audit
