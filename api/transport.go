package api

import (
	"net/http"

	"github.com/google/uuid"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
)

// TokenSource yields the current bearer token. session.TokenRepository
// satisfies it.
type TokenSource interface {
	Token() (string, bool)
}

// AuthTransport sets "Authorization: Bearer <token>" on each request when a
// token is available. The caller's request is never modified; a clone is sent
// instead.
type AuthTransport struct {
	Base   http.RoundTripper
	Tokens TokenSource
	// RequestID generates X-Request-ID values for requests that lack one.
	// Nil uses uuid.NewString.
	RequestID func() string
}

// RoundTrip sends a clone of req carrying the current bearer token.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	if t.Tokens != nil {
		if token, ok := t.Tokens.Token(); ok && token != "" {
			out.Header.Set(headerAuthorization, "Bearer "+token)
		}
	}
	if out.Header.Get(headerRequestID) == "" {
		gen := t.RequestID
		if gen == nil {
			gen = uuid.NewString
		}
		out.Header.Set(headerRequestID, gen())
	}

	return t.base().RoundTrip(out)
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
