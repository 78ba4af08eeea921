// Package middleware adapts route guards to net/http.
//
// # Guards
//
//   - [RequireAuth]: authenticated users only; anonymous requests are
//     redirected to the login route.
//   - [RequireRole]: like RequireAuth, and the user's role must be listed;
//     otherwise the access denied page is served with 403.
//   - [GuestOnly]: anonymous users only; signed-in users are redirected to
//     their landing route.
//
// Each guard evaluates the session snapshot per request and injects the user
// into the request context ([UserFromContext]). While the session is still
// loading a small self-refreshing placeholder page is served. The minimum
// loading floor of mounted guards does not apply here.
package middleware
