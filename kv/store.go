package kv

import "errors"

// ErrUnavailable wraps any failure of the underlying storage medium.
var ErrUnavailable = errors.New("kv backend unavailable")

// Store is a synchronous string key-value store. Implementations must be safe
// for concurrent use.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Clear() error
}
