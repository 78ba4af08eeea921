package session

import (
	"fmt"

	"github.com/banjarlabs/iuran/securestorage"
)

// TokenRepository owns the persisted bearer token. Anyone may read it; only
// this package can write or remove it, which keeps the session store the
// single writer of the token key.
type TokenRepository struct {
	handle *securestorage.Handle
}

// NewTokenRepository reserves key in storage. It fails if the key already has
// an owner.
func NewTokenRepository(storage *securestorage.Storage, key string) (*TokenRepository, error) {
	h, err := storage.Protect(key)
	if err != nil {
		return nil, err
	}
	return &TokenRepository{handle: h}, nil
}

// Token returns the current bearer token, if any.
func (r *TokenRepository) Token() (string, bool) {
	if r == nil {
		return "", false
	}
	return r.handle.Get()
}

// Key is the storage key the token lives under.
func (r *TokenRepository) Key() string {
	return r.handle.Key()
}

func (r *TokenRepository) save(token string) error {
	if err := r.handle.Set(token); err != nil {
		return fmt.Errorf("%w: %v", errTokenPersist, err)
	}
	return nil
}

func (r *TokenRepository) clear() error {
	return r.handle.Remove()
}
