// Package rate implements fixed-window login throttling on Redis counters
// for the development API.
//
// Each failed attempt runs INCR and, on the first hit of a window, EXPIRE.
// Keys are namespaced "<prefix>login:<email>" and "<prefix>login-ip:<ip>".
package rate
