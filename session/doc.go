// Package session owns the client-side login state: who is logged in, whether
// a login or restore is in flight, and the last user-facing error.
//
// # Token ownership
//
// The bearer token lives in secure storage under a protected key. Only this
// package can write or remove it ([TokenRepository] exposes reads only), so
// the [Store] is the single writer.
//
// # Transitions
//
//   - [Store.Login]: anonymous -> loading -> authenticated | anonymous(+error)
//   - [Store.Restore]: token present -> loading -> authenticated | anonymous
//   - [Store.Logout] and [Store.HandleUnauthorized]: any -> anonymous
//
// Observers wait on [Store.Changed] and read [Store.Snapshot] afterwards.
package session
