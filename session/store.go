package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banjarlabs/iuran/jwt"
	"github.com/rs/zerolog"
)

// Authenticator is the remote API surface the store depends on.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	CurrentUser(ctx context.Context) (User, error)
}

// EventType names a session transition for diagnostics.
type EventType string

const (
	EventLoginSuccess   EventType = "login_success"
	EventLoginFailure   EventType = "login_failure"
	EventLogout         EventType = "logout"
	EventRestoreSuccess EventType = "session_restore_success"
	EventRestoreFailure EventType = "session_restore_failure"
	// EventSessionExpired follows a 401 while authenticated.
	EventSessionExpired EventType = "session_expired"
)

// Event describes one completed transition.
type Event struct {
	Type     EventType
	UserID   string
	Role     Role
	Err      error
	Duration time.Duration
}

// Hooks receive transition events synchronously.
type Hooks struct {
	OnEvent func(ctx context.Context, ev Event)
}

// Option configures a Store.
type Option func(*Store)

// WithHooks installs transition callbacks.
func WithHooks(h Hooks) Option {
	return func(s *Store) {
		s.hooks = h
	}
}

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the single source of truth for who is logged in. It is safe for
// concurrent use, but overlapping Login calls are not deduplicated: the last
// one to finish wins, so callers should disable resubmission while
// Snapshot().Loading is true.
type Store struct {
	auth   Authenticator
	tokens *TokenRepository
	hooks  Hooks
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	snap    Snapshot
	changed chan struct{}
}

// NewStore creates an anonymous store.
func NewStore(auth Authenticator, tokens *TokenRepository, opts ...Option) *Store {
	s := &Store{
		auth:    auth,
		tokens:  tokens,
		logger:  zerolog.Nop(),
		now:     time.Now,
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySnapshot(s.snap)
}

// State returns the current state.
func (s *Store) State() State {
	return s.Snapshot().State()
}

// Changed returns a channel that is closed on the next state change. Call it
// again after it fires to keep watching.
func (s *Store) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// Tokens exposes the read side of the token repository.
func (s *Store) Tokens() *TokenRepository {
	return s.tokens
}

func (s *Store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Login authenticates against the API. On success the token is persisted
// and the user populated; on failure Snapshot().Error carries a message for
// display. It never returns an error.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	start := s.now()
	s.update(func(snap *Snapshot) {
		snap.Error = ""
		snap.Loading = true
	})

	user, err := s.login(ctx, email, password)
	if err != nil {
		msg := userMessage(err)
		s.update(func(snap *Snapshot) {
			*snap = Snapshot{Error: msg}
		})
		s.logger.Info().Err(err).Str("email", email).Msg("login failed")
		s.emit(ctx, Event{Type: EventLoginFailure, Err: err, Duration: s.now().Sub(start)})
		return false
	}

	s.update(func(snap *Snapshot) {
		*snap = Snapshot{User: &user}
	})
	s.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("login succeeded")
	s.emit(ctx, Event{Type: EventLoginSuccess, UserID: user.ID, Role: user.Role, Duration: s.now().Sub(start)})
	return true
}

func (s *Store) login(ctx context.Context, email, password string) (User, error) {
	res, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return User{}, err
	}
	if res.Token == "" {
		return User{}, fmt.Errorf("%w: login response has no token", ErrInvalidResponse)
	}
	if err := s.tokens.save(res.Token); err != nil {
		return User{}, err
	}
	if res.User != nil {
		return normalizeUser(*res.User), nil
	}

	user, err := s.auth.CurrentUser(ctx)
	if err != nil {
		s.clearToken()
		return User{}, err
	}
	return normalizeUser(user), nil
}

// Logout removes the persisted token and clears the session.
func (s *Store) Logout(ctx context.Context) {
	s.logout(ctx, EventLogout, nil)
}

func (s *Store) logout(ctx context.Context, typ EventType, cause error) {
	prev := s.Snapshot()
	s.clearToken()
	s.update(func(snap *Snapshot) {
		*snap = Snapshot{}
	})

	ev := Event{Type: typ, Err: cause}
	if prev.User != nil {
		ev.UserID = prev.User.ID
		ev.Role = prev.User.Role
	}
	s.emit(ctx, ev)
}

// Restore revalidates a persisted token, typically once at process start.
// Any failure removes the token and leaves the store anonymous.
func (s *Store) Restore(ctx context.Context) bool {
	token, ok := s.tokens.Token()
	if !ok {
		s.update(func(snap *Snapshot) {
			*snap = Snapshot{}
		})
		return false
	}

	start := s.now()
	s.update(func(snap *Snapshot) {
		snap.Error = ""
		snap.Loading = true
	})

	var (
		user User
		err  error
	)
	if exp, ok := jwt.ExpiresAt(token); ok && !exp.After(s.now()) {
		err = ErrTokenExpired
	} else {
		user, err = s.auth.CurrentUser(ctx)
	}

	if err != nil {
		s.clearToken()
		s.update(func(snap *Snapshot) {
			*snap = Snapshot{}
		})
		s.logger.Info().Err(err).Msg("session restore failed")
		s.emit(ctx, Event{Type: EventRestoreFailure, Err: err, Duration: s.now().Sub(start)})
		return false
	}

	user = normalizeUser(user)
	s.update(func(snap *Snapshot) {
		*snap = Snapshot{User: &user}
	})
	s.emit(ctx, Event{Type: EventRestoreSuccess, UserID: user.ID, Role: user.Role, Duration: s.now().Sub(start)})
	return true
}

// HandleUnauthorized is called when any API request is rejected with 401.
// An authenticated session is logged out; in-flight login or restore
// attempts resolve the state themselves.
func (s *Store) HandleUnauthorized(ctx context.Context) {
	snap := s.Snapshot()
	if snap.Loading || snap.User == nil {
		return
	}
	s.logger.Info().Str("user_id", snap.User.ID).Msg("session rejected by api, logging out")
	s.logout(ctx, EventSessionExpired, ErrAuthFailure)
}

func (s *Store) clearToken() {
	if err := s.tokens.clear(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to remove persisted token")
	}
}

func (s *Store) emit(ctx context.Context, ev Event) {
	if s.hooks.OnEvent != nil {
		s.hooks.OnEvent(ctx, ev)
	}
}

func normalizeUser(u User) User {
	if r, ok := ParseRole(string(u.Role)); ok {
		u.Role = r
	}
	return u
}

func copySnapshot(in Snapshot) Snapshot {
	out := in
	if in.User != nil {
		u := *in.User
		out.User = &u
	}
	return out
}

// IsAuthFailure reports whether err means the API rejected the credentials
// or token, as opposed to a transport problem.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthFailure) || errors.Is(err, ErrTokenExpired)
}
