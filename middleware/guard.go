package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/banjarlabs/iuran/guard"
	"github.com/banjarlabs/iuran/session"
	"github.com/rs/zerolog"
)

const defaultRefresh = time.Second

// Options configures the HTTP guards.
type Options struct {
	Routes guard.Routes
	// Refresh is how often the loading placeholder reloads itself.
	Refresh time.Duration
	// NextParam, when set, carries the requested path on login redirects.
	NextParam string
	Logger    *zerolog.Logger
}

type userContextKey struct{}

// UserFromContext returns the user injected by a guard.
func UserFromContext(ctx context.Context) (session.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(session.User)
	return u, ok
}

// Guard evaluates policy against src for every request.
func Guard(src guard.SessionSource, policy guard.Policy, opts Options) func(http.Handler) http.Handler {
	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			snap := src.Snapshot()
			view := guard.Evaluate(guard.Input{Policy: policy, Session: snap, TimerElapsed: true})

			switch view.Kind {
			case guard.Pending:
				w.Header().Set("Cache-Control", "no-store")
				w.Header().Set("Retry-After", strconv.Itoa(refreshSeconds(refresh)))
				renderLoading(w, refresh)
			case guard.Redirect:
				target := view.Target
				if policy.Mode == guard.ModeAuthenticated && opts.NextParam != "" {
					target = withNext(target, opts.NextParam, r.URL.RequestURI())
				}
				logger.Debug().Str("path", r.URL.Path).Str("target", target).Msg("guard redirect")
				http.Redirect(w, r, target, http.StatusSeeOther)
			case guard.Denied:
				logger.Info().Str("path", r.URL.Path).Str("user_id", snap.User.ID).Str("role", string(snap.User.Role)).Msg("guard denied access")
				renderDenied(w, view.Target)
			default:
				ctx := r.Context()
				if snap.User != nil {
					ctx = context.WithValue(ctx, userContextKey{}, *snap.User)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

func withNext(target, param, requested string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(param, requested)
	u.RawQuery = q.Encode()
	return u.String()
}
