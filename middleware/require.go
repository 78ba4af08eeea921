package middleware

import (
	"net/http"

	"github.com/banjarlabs/iuran/guard"
	"github.com/banjarlabs/iuran/session"
)

// RequireAuth lets only signed-in users through.
func RequireAuth(src guard.SessionSource, opts Options) func(http.Handler) http.Handler {
	return Guard(src, guard.Policy{Mode: guard.ModeAuthenticated, Routes: opts.Routes}, opts)
}

// RequireRole allows only users whose role matches one of roles, ignoring
// case.
func RequireRole(src guard.SessionSource, opts Options, roles ...session.Role) func(http.Handler) http.Handler {
	return Guard(src, guard.Policy{Mode: guard.ModeAuthenticated, Roles: roles, Routes: opts.Routes}, opts)
}

// GuestOnly sends signed-in users to their landing route.
func GuestOnly(src guard.SessionSource, opts Options) func(http.Handler) http.Handler {
	return Guard(src, guard.Policy{Mode: guard.ModeGuest, Routes: opts.Routes}, opts)
}
