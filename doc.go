// Package iuran wires the client-side authentication core of the iuran
// village fee console: encrypted local storage, the authorized API client,
// the session store, preferences and route guards.
//
// Build a [Client] once at start-up with [New] and [Builder.Build], call
// [Client.Restore] to pick up a persisted session, and share the client with
// every component that needs the session. Client methods are safe for
// concurrent use.
//
// # Diagnostics
//
// Storage downgrades, decryption failures, legacy reads and every session
// transition are counted in [Metrics] and, when auditing is enabled,
// delivered asynchronously to an [AuditSink].
package iuran
