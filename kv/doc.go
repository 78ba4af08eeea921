// Package kv provides the persistent key-value backends that sit underneath
// secure storage: an in-memory map, a JSON file and a Redis namespace.
//
// # Contract
//
// Every backend implements [Store]. Values are strings, keys are free-form and
// namespaced only by convention. A missing key is reported as ok=false with a
// nil error; backend faults are wrapped with [ErrUnavailable].
//
// # What this package must NOT do
//
//   - Encrypt, decode or otherwise interpret values.
//   - Expire entries (token lifetime belongs to the remote API).
package kv
