// Package guard decides what a navigation subtree shows for the current
// session: a loading placeholder, the content, a redirect, or an access
// denied view.
//
// [Evaluate] is the pure decision. [Guard] adds the per-mount minimum loading
// time: it starts a single-shot timer on [Guard.Mount] and keeps reporting
// [Pending] until both the timer has fired and the session is no longer
// loading without a user.
package guard
