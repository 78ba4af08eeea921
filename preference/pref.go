package preference

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidValue is returned by Set when the value fails validation.
	ErrInvalidValue = errors.New("invalid preference value")
)

// Storage is the subset of securestorage.Storage a preference needs.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Codec converts a preference value to and from its stored string.
type Codec[T any] struct {
	Encode func(T) (string, error)
	Decode func(string) (T, error)
}

// StringCodec stores string-kinded values as-is.
func StringCodec[T ~string]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) (string, error) { return string(v), nil },
		Decode: func(s string) (T, error) { return T(s), nil },
	}
}

// JSONCodec stores values as JSON.
func JSONCodec[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		Decode: func(s string) (T, error) {
			var v T
			err := json.Unmarshal([]byte(s), &v)
			return v, err
		},
	}
}

// Option configures a Pref.
type Option[T any] func(*Pref[T])

// WithValidator rejects values on Set and ignores stored values on Get when
// fn returns an error.
func WithValidator[T any](fn func(T) error) Option[T] {
	return func(p *Pref[T]) {
		p.validate = fn
	}
}

// Pref is one persisted preference with a default.
type Pref[T any] struct {
	storage  Storage
	key      string
	defaults T
	codec    Codec[T]
	validate func(T) error
}

// New creates a preference stored under key.
func New[T any](storage Storage, key string, defaultValue T, codec Codec[T], opts ...Option[T]) *Pref[T] {
	p := &Pref[T]{
		storage:  storage,
		key:      key,
		defaults: defaultValue,
		codec:    codec,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key returns the storage key.
func (p *Pref[T]) Key() string {
	return p.key
}

// Default is returned when nothing valid is stored.
func (p *Pref[T]) Default() T {
	return p.defaults
}

// Lookup returns the stored value. ok is false when nothing usable is stored.
func (p *Pref[T]) Lookup() (T, bool) {
	raw, ok := p.storage.GetItem(p.key)
	if !ok {
		return p.defaults, false
	}
	v, err := p.codec.Decode(raw)
	if err != nil {
		return p.defaults, false
	}
	if p.validate != nil && p.validate(v) != nil {
		return p.defaults, false
	}
	return v, true
}

// Get returns the stored value or the default.
func (p *Pref[T]) Get() T {
	v, _ := p.Lookup()
	return v
}

// Set encodes and persists v.
func (p *Pref[T]) Set(v T) error {
	if p.validate != nil {
		if err := p.validate(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, p.key, err)
		}
	}
	raw, err := p.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, p.key, err)
	}
	return p.storage.SetItem(p.key, raw)
}

// Reset removes the stored value so Get returns the default again.
func (p *Pref[T]) Reset() error {
	return p.storage.RemoveItem(p.key)
}

// Theme is the console colour scheme.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme accepts the known themes, ignoring case.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	default:
		return "", fmt.Errorf("unknown theme %q", s)
	}
}

// NewTheme returns the theme preference, defaulting to light.
func NewTheme(storage Storage, key string) *Pref[Theme] {
	return New(storage, key, ThemeLight, StringCodec[Theme](), WithValidator(func(t Theme) error {
		_, err := ParseTheme(string(t))
		return err
	}))
}

// ResidentContext selects the resident and family the console is working on.
type ResidentContext struct {
	ResidentID string `json:"resident_id"`
	FamilyID   string `json:"family_id,omitempty"`
	BanjarID   string `json:"banjar_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// NewResidentContext returns the resident context preference. The default is
// the zero value; use Lookup to tell "unset" from a stored context.
func NewResidentContext(storage Storage, key string) *Pref[ResidentContext] {
	return New(storage, key, ResidentContext{}, JSONCodec[ResidentContext](), WithValidator(func(rc ResidentContext) error {
		if strings.TrimSpace(rc.ResidentID) == "" {
			return errors.New("resident_id is required")
		}
		return nil
	}))
}
