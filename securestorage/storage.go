package securestorage

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/banjarlabs/iuran/kv"
	"github.com/rs/zerolog"
)

// Prefix marks a stored value as ciphertext. Anything without it is legacy
// plaintext. Changing it breaks every value already on disk.
const Prefix = "enc:"

// DefaultSecret is the fallback passphrase used when none is configured. It is
// public and therefore offers no confidentiality; it exists so data written by
// unconfigured deployments stays readable.
const DefaultSecret = "iuran-desa-secure-storage-default-key"

var (
	// ErrEncryptionFailure is reported (never returned) when SetItem falls back to plaintext.
	ErrEncryptionFailure = errors.New("secure storage encryption failed")
	// ErrDecryptionFailure is reported (never returned) when GetItem treats a value as absent.
	ErrDecryptionFailure = errors.New("secure storage decryption failed")
	// ErrProtectedKey is returned when a reserved key is written without its Handle.
	ErrProtectedKey = errors.New("secure storage key is protected")
)

// EventKind classifies diagnostic events.
type EventKind string

const (
	// EventEncryptionDowngrade: a value was written as plaintext because encryption failed.
	EventEncryptionDowngrade EventKind = "storage_encryption_downgrade"
	// EventDecryptionFailure: a prefixed value could not be opened and was treated as absent.
	EventDecryptionFailure EventKind = "storage_decryption_failure"
	// EventEmptyPlaintext: decryption produced an empty string; treated as corrupt.
	EventEmptyPlaintext EventKind = "storage_empty_plaintext"
	// EventLegacyRead: an unprefixed value was returned as-is.
	EventLegacyRead EventKind = "storage_legacy_read"
	// EventBackendFailure: the underlying store failed a read.
	EventBackendFailure EventKind = "storage_backend_failure"
)

// Event is a structured diagnostic emitted by Storage.
type Event struct {
	Kind EventKind
	Key  string
	Err  error
}

// Option configures a Storage.
type Option func(*Storage)

// WithSecret sets the passphrase. An empty secret selects DefaultSecret.
func WithSecret(secret string) Option {
	return func(s *Storage) {
		s.secret = secret
	}
}

// WithRand overrides the salt source.
func WithRand(r io.Reader) Option {
	return func(s *Storage) {
		s.rand = r
	}
}

// WithLogger sets the logger for downgrade and decryption warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Storage) {
		s.logger = l
	}
}

// WithReporter receives every diagnostic event synchronously.
func WithReporter(fn func(Event)) Option {
	return func(s *Storage) {
		s.report = fn
	}
}

// Storage transparently encrypts values at rest on top of a kv.Store.
type Storage struct {
	backend kv.Store
	secret  string
	rand    io.Reader
	logger  zerolog.Logger
	report  func(Event)

	mu        sync.Mutex
	protected map[string]struct{}
}

// New wraps backend.
func New(backend kv.Store, opts ...Option) *Storage {
	s := &Storage{
		backend:   backend,
		logger:    zerolog.Nop(),
		protected: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.secret == "" {
		s.secret = DefaultSecret
	}
	return s
}

// UsingDefaultSecret reports whether the insecure fallback passphrase is active.
func (s *Storage) UsingDefaultSecret() bool {
	return s.secret == DefaultSecret
}

// SetItem encrypts value and stores Prefix+ciphertext under key. If encryption
// fails the plaintext is stored instead and EventEncryptionDowngrade is
// reported. Only backend write failures are returned.
func (s *Storage) SetItem(key, value string) error {
	if s.isProtected(key) {
		return fmt.Errorf("%w: %s", ErrProtectedKey, key)
	}
	return s.setItem(key, value)
}

func (s *Storage) setItem(key, value string) error {
	raw := value
	ciphertext, err := Encrypt(value, s.secret, s.rand)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("secure storage: encryption failed, storing plaintext")
		s.emit(Event{Kind: EventEncryptionDowngrade, Key: key, Err: err})
	} else {
		raw = Prefix + ciphertext
	}
	return s.backend.Set(key, raw)
}

// GetItem returns the plaintext for key. Absent, undecryptable and
// empty-after-decryption values all report ok=false. Legacy unprefixed values
// are returned unchanged.
func (s *Storage) GetItem(key string) (string, bool) {
	raw, ok, err := s.backend.Get(key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("secure storage: backend read failed")
		s.emit(Event{Kind: EventBackendFailure, Key: key, Err: err})
		return "", false
	}
	if !ok {
		return "", false
	}

	if !strings.HasPrefix(raw, Prefix) {
		s.emit(Event{Kind: EventLegacyRead, Key: key})
		return raw, true
	}

	plain, err := Decrypt(raw[len(Prefix):], s.secret)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("secure storage: decryption failed, treating as absent")
		s.emit(Event{Kind: EventDecryptionFailure, Key: key, Err: err})
		return "", false
	}
	// A wrong secret can decrypt to an empty string, so empty reads as absent.
	if plain == "" {
		s.emit(Event{Kind: EventEmptyPlaintext, Key: key, Err: ErrDecryptionFailure})
		return "", false
	}
	return plain, true
}

// RemoveItem deletes key.
func (s *Storage) RemoveItem(key string) error {
	if s.isProtected(key) {
		return fmt.Errorf("%w: %s", ErrProtectedKey, key)
	}
	return s.backend.Remove(key)
}

// Clear removes every entry of the backend, protected keys included.
func (s *Storage) Clear() error {
	return s.backend.Clear()
}

// Raw returns the stored bytes for key without decryption.
func (s *Storage) Raw(key string) (string, bool, error) {
	return s.backend.Get(key)
}

// Protect reserves key: from now on only the returned Handle can write or
// remove it. Each key can be protected once.
func (s *Storage) Protect(key string) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.protected[key]; ok {
		return nil, fmt.Errorf("%w: %s already has an owner", ErrProtectedKey, key)
	}
	s.protected[key] = struct{}{}
	return &Handle{storage: s, key: key}, nil
}

func (s *Storage) isProtected(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.protected[key]
	return ok
}

func (s *Storage) emit(ev Event) {
	if s.report != nil {
		s.report(ev)
	}
}

// Handle is the write capability for a protected key.
type Handle struct {
	storage *Storage
	key     string
}

// Key returns the protected key.
func (h *Handle) Key() string {
	return h.key
}

// Get reads the value like GetItem.
func (h *Handle) Get() (string, bool) {
	return h.storage.GetItem(h.key)
}

// Set encrypts and writes value, bypassing the protection check.
func (h *Handle) Set(value string) error {
	return h.storage.setItem(h.key, value)
}

// Remove deletes the key from the backend.
func (h *Handle) Remove() error {
	return h.storage.backend.Remove(h.key)
}
