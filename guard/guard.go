package guard

import (
	"context"
	"sync"
	"time"

	"github.com/banjarlabs/iuran/session"
	"github.com/rs/zerolog"
)

// DefaultMinLoading is the minimum time a mounted guard shows Pending.
const DefaultMinLoading = time.Second

// SessionSource is the read side of session.Store.
type SessionSource interface {
	Snapshot() session.Snapshot
	Changed() <-chan struct{}
}

// Timer is the subset of *time.Timer a Guard uses.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// TimerFunc starts a single-shot timer.
type TimerFunc func(d time.Duration) Timer

type stdTimer struct {
	t *time.Timer
}

func (s stdTimer) C() <-chan time.Time { return s.t.C }
func (s stdTimer) Stop() bool          { return s.t.Stop() }

// NewTimer is the default TimerFunc.
func NewTimer(d time.Duration) Timer {
	return stdTimer{t: time.NewTimer(d)}
}

// Option configures a Guard.
type Option func(*Guard)

// WithMinLoading sets the minimum loading time. Zero or negative disables it.
func WithMinLoading(d time.Duration) Option {
	return func(g *Guard) {
		g.minLoading = d
	}
}

// WithRoles restricts authenticated-only guards to roles.
func WithRoles(roles ...session.Role) Option {
	return func(g *Guard) {
		g.policy.Roles = append([]session.Role(nil), roles...)
	}
}

// WithRoutes sets redirect targets. Empty fields keep the defaults.
func WithRoutes(r Routes) Option {
	return func(g *Guard) {
		g.policy.Routes = r
	}
}

// WithTimerFunc replaces the timer factory.
func WithTimerFunc(fn TimerFunc) Option {
	return func(g *Guard) {
		if fn != nil {
			g.newTimer = fn
		}
	}
}

// WithLogger logs each view change at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Guard) {
		g.logger = l
	}
}

// Guard is one mounted instance of a route guard.
type Guard struct {
	src        SessionSource
	policy     Policy
	minLoading time.Duration
	newTimer   TimerFunc
	logger     zerolog.Logger

	mu      sync.Mutex
	mounted bool
	out     chan View
	cancel  context.CancelFunc
	done    chan struct{}
	current View
}

// New creates an unmounted guard.
func New(src SessionSource, mode Mode, opts ...Option) *Guard {
	g := &Guard{
		src:        src,
		policy:     Policy{Mode: mode},
		minLoading: DefaultMinLoading,
		newTimer:   NewTimer,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Policy returns the guard's configuration.
func (g *Guard) Policy() Policy {
	return g.policy
}

// Mount starts the minimum loading timer and returns a channel of views. The
// first value is always sent immediately; later values are sent only when the
// view changes. The channel is closed after Unmount or when ctx is done.
// Calling Mount again on a mounted guard returns the same channel and does not
// restart the timer.
func (g *Guard) Mount(ctx context.Context) <-chan View {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mounted {
		return g.out
	}
	g.mounted = true

	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.out = make(chan View)
	g.done = make(chan struct{})
	g.current = View{Kind: Pending}

	var timer Timer
	if g.minLoading > 0 {
		timer = g.newTimer(g.minLoading)
	}
	go g.run(ctx, timer)
	return g.out
}

// Unmount stops the timer and closes the view channel. It is safe to call
// more than once.
func (g *Guard) Unmount() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Current returns the last view sent on the channel.
func (g *Guard) Current() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *Guard) run(ctx context.Context, timer Timer) {
	defer close(g.done)
	defer close(g.out)

	var timerC <-chan time.Time
	if timer != nil {
		defer timer.Stop()
		timerC = timer.C()
	}
	elapsed := timer == nil

	var last View
	first := true
	for {
		changed := g.src.Changed()
		view := Evaluate(Input{Policy: g.policy, Session: g.src.Snapshot(), TimerElapsed: elapsed})

		if first || view != last {
			select {
			case g.out <- view:
			case <-ctx.Done():
				return
			}
			g.mu.Lock()
			g.current = view
			g.mu.Unlock()
			g.logger.Debug().Str("mode", g.policy.Mode.String()).Str("view", view.Kind.String()).Str("target", view.Target).Msg("guard view changed")
			last, first = view, false
		}

		select {
		case <-ctx.Done():
			return
		case <-changed:
		case <-timerC:
			elapsed = true
			timerC = nil
		}
	}
}
