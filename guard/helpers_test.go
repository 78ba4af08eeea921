package guard

import (
	"context"
	"testing"

	"github.com/banjarlabs/iuran/kv"
	"github.com/banjarlabs/iuran/securestorage"
	"github.com/banjarlabs/iuran/session"
)

type stubAuth struct {
	res session.LoginResult
}

func (s *stubAuth) Login(context.Context, string, string) (session.LoginResult, error) {
	return s.res, nil
}

func (s *stubAuth) CurrentUser(context.Context) (session.User, error) {
	if s.res.User == nil {
		return session.User{}, session.ErrAuthFailure
	}
	return *s.res.User, nil
}

func newSessionStore(t *testing.T, auth session.Authenticator) *session.Store {
	t.Helper()
	storage := securestorage.New(kv.NewMemoryStore(), securestorage.WithSecret("guard-test"))
	tokens, err := session.NewTokenRepository(storage, "auth_token")
	if err != nil {
		t.Fatalf("token repository: %v", err)
	}
	return session.NewStore(auth, tokens)
}
