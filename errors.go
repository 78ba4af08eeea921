package iuran

import (
	"errors"

	"github.com/banjarlabs/iuran/kv"
	"github.com/banjarlabs/iuran/securestorage"
	"github.com/banjarlabs/iuran/session"
)

var (
	// ErrInvalidConfig wraps every configuration problem.
	ErrInvalidConfig = errors.New("invalid iuran configuration")
	// ErrBuilderUsed is returned by a second Build call.
	ErrBuilderUsed = errors.New("builder already used")

	// Re-exported so callers can classify errors without importing sub-packages.
	ErrAuthFailure       = session.ErrAuthFailure
	ErrNetworkFailure    = session.ErrNetworkFailure
	ErrInvalidResponse   = session.ErrInvalidResponse
	ErrTokenExpired      = session.ErrTokenExpired
	ErrProtectedKey      = securestorage.ErrProtectedKey
	ErrEncryptionFailure = securestorage.ErrEncryptionFailure
	ErrDecryptionFailure = securestorage.ErrDecryptionFailure
	ErrStoreUnavailable  = kv.ErrUnavailable
)
