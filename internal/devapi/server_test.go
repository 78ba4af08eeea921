package devapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/banjarlabs/iuran"
	"github.com/banjarlabs/iuran/internal/stores"
	"github.com/banjarlabs/iuran/password"
	"github.com/banjarlabs/iuran/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "iuran-dev-2026"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("devapi-test-secret-0123456789")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Throttle.MaxLoginAttempts = 3
	return cfg
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := New(rdb, testConfig(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background(), DefaultSeeds()))

	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts, mr
}

func postLogin(t *testing.T, url, email, pw string) *http.Response {
	t.Helper()
	body := `{"email":"` + email + `","password":"` + pw + `"}`
	resp, err := http.Post(url+"/login", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, url, email string) loginBody {
	t.Helper()
	resp := postLogin(t, url, email, testPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body loginBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func authed(t *testing.T, method, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLoginReturnsTokenAndUser(t *testing.T) {
	_, ts, _ := newTestServer(t)

	body := login(t, ts.URL, "Admin@Iuran.local")
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "admin@iuran.local", body.User.Email)
	assert.Equal(t, "ADMIN", body.User.Role)
	assert.NotEmpty(t, body.User.ID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp := postLogin(t, ts.URL, "admin@iuran.local", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, msgInvalidCredentials, body["message"])

	resp = postLogin(t, ts.URL, "nobody@iuran.local", testPassword)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRequiresFields(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/login", "application/json", strings.NewReader(`{"email":""}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginThrottled(t *testing.T) {
	_, ts, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := postLogin(t, ts.URL, "krama@iuran.local", "wrong-password")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := postLogin(t, ts.URL, "krama@iuran.local", testPassword)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestMeRequiresValidToken(t *testing.T) {
	_, ts, _ := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, authed(t, http.MethodGet, ts.URL+"/me", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, authed(t, http.MethodGet, ts.URL+"/me", "garbage").StatusCode)

	token := login(t, ts.URL, "operator@iuran.local").Token
	resp := authed(t, http.MethodGet, ts.URL+"/me", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		User userBody `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "OPERATOR", body.User.Role)
}

func TestLogoutRevokesToken(t *testing.T) {
	_, ts, _ := newTestServer(t)

	token := login(t, ts.URL, "admin@iuran.local").Token
	assert.Equal(t, http.StatusNoContent, authed(t, http.MethodPost, ts.URL+"/logout", token).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, authed(t, http.MethodGet, ts.URL+"/me", token).StatusCode)
}

func TestSeedRejectsUnknownRole(t *testing.T) {
	s, _, _ := newTestServer(t)
	err := s.Seed(context.Background(), []SeedAccount{{Email: "x@iuran.local", Role: "BENDAHARA", Password: testPassword}})
	assert.Error(t, err)
}

func TestSeedHashesPasswords(t *testing.T) {
	_, _, mr := newTestServer(t)
	raw, err := mr.Get("devapi:account:admin@iuran.local")
	require.NoError(t, err)

	var acc stores.Account
	require.NoError(t, json.Unmarshal([]byte(raw), &acc))
	assert.True(t, strings.HasPrefix(acc.PasswordHash, "$argon2id$"))
	assert.NotContains(t, raw, testPassword)
}

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	data := "accounts:\n  - email: bendesa@iuran.local\n    name: Bendesa\n    role: admin\n    password: rahasia-banget\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	seeds, err := LoadSeeds(path)
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, "bendesa@iuran.local", seeds[0].Email)
}

func TestNewRejectsWeakSecret(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := testConfig()
	cfg.JWT.Secret = []byte("short")
	_, err := New(rdb, cfg, zerolog.Nop())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Password.Memory = 1
	_, err = New(rdb, cfg, zerolog.Nop())
	assert.ErrorIs(t, err, password.ErrInvalidConfig)
}

// The client core against the dev API: login, restart, restore, and a
// server-side logout surfacing as an expired session.
func TestClientCoreEndToEnd(t *testing.T) {
	_, ts, _ := newTestServer(t)

	cfg := iuran.DefaultConfig()
	cfg.API.BaseURL = ts.URL
	cfg.Storage.Backend = iuran.BackendFile
	cfg.Storage.Path = filepath.Join(t.TempDir(), "storage.json")
	cfg.Storage.Secret = "kunci-e2e"

	first, err := iuran.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	require.True(t, first.Login(context.Background(), "krama@iuran.local", testPassword), first.Session().Snapshot().Error)
	assert.Equal(t, session.RoleKrama, first.Session().Snapshot().User.Role)
	require.NoError(t, first.Close())

	second, err := iuran.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	defer second.Close()
	require.True(t, second.Restore(context.Background()))

	require.NoError(t, second.Do(context.Background(), http.MethodPost, "/logout", nil, nil))
	err = second.Do(context.Background(), http.MethodGet, "/me", nil, nil)
	require.Error(t, err)
	assert.Equal(t, session.StateAnonymous, second.Session().State())
}

func TestClientCoreWrongPasswordMessage(t *testing.T) {
	_, ts, _ := newTestServer(t)

	cfg := iuran.DefaultConfig()
	cfg.API.BaseURL = ts.URL
	cfg.Storage.Backend = iuran.BackendMemory

	c, err := iuran.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	defer c.Close()

	require.False(t, c.Login(context.Background(), "admin@iuran.local", "nope-nope-nope"))
	assert.Equal(t, msgInvalidCredentials, c.Session().Snapshot().Error)
}
