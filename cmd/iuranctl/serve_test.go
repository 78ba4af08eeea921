package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/banjarlabs/iuran"
	"github.com/banjarlabs/iuran/internal/devapi"
	"github.com/banjarlabs/iuran/kv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devPassword = "iuran-dev-2026"

func newDevAPI(t *testing.T) string {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := devapi.DefaultConfig()
	cfg.JWT.Secret = []byte("console-test-secret-0123456789")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	api, err := devapi.New(rdb, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, api.Seed(context.Background(), devapi.DefaultSeeds()))
	apiServer := httptest.NewServer(api.Routes())
	t.Cleanup(apiServer.Close)
	return apiServer.URL
}

func newClient(t *testing.T, apiURL string, store kv.Store) *iuran.Client {
	t.Helper()

	clientCfg := iuran.DefaultConfig()
	clientCfg.API.BaseURL = apiURL
	clientCfg.Storage.Backend = iuran.BackendMemory
	c, err := iuran.New().WithConfig(clientCfg).WithStore(store).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func startConsole(t *testing.T, c *iuran.Client) *httptest.Server {
	t.Helper()

	h, err := consoleRouter(c, zerolog.Nop())
	require.NoError(t, err)
	console := httptest.NewServer(h)
	t.Cleanup(console.Close)
	return console
}

func newConsole(t *testing.T) (*iuran.Client, *httptest.Server) {
	t.Helper()

	c := newClient(t, newDevAPI(t), kv.NewMemoryStore())
	return c, startConsole(t, c)
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := noRedirect().Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postLogin(t *testing.T, base, email string) *http.Response {
	t.Helper()
	form := url.Values{"email": {email}, "password": {devPassword}}
	resp, err := noRedirect().PostForm(base+"/login", form)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestConsoleRedirectsAnonymousToLogin(t *testing.T) {
	_, console := newConsole(t)

	resp := get(t, console.URL+"/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2F", resp.Header.Get("Location"))

	resp = get(t, console.URL+"/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConsoleAdminFlow(t *testing.T) {
	_, console := newConsole(t)

	resp := postLogin(t, console.URL, "admin@iuran.local")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = get(t, console.URL+"/admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, console.URL+"/login")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	resp = get(t, console.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "iuran_login_success_total 1")
}

func TestConsoleDeniesNonAdmin(t *testing.T) {
	_, console := newConsole(t)

	require.Equal(t, http.StatusSeeOther, postLogin(t, console.URL, "krama@iuran.local").StatusCode)

	resp := get(t, console.URL+"/admin")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = get(t, console.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Krama Banjar")
}

func TestConsoleLogout(t *testing.T) {
	c, console := newConsole(t)
	require.Equal(t, http.StatusSeeOther, postLogin(t, console.URL, "operator@iuran.local").StatusCode)

	resp, err := noRedirect().Post(console.URL+"/logout", "application/x-www-form-urlencoded", strings.NewReader(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Nil(t, c.Session().Snapshot().User)
}

func TestConsoleLoginFailureShowsMessage(t *testing.T) {
	_, console := newConsole(t)

	form := url.Values{"email": {"admin@iuran.local"}, "password": {"salah-salah"}}
	resp, err := noRedirect().PostForm(console.URL+"/login", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Invalid email or password.")
}

func TestConsoleServesPersistedSessionOnFirstRequest(t *testing.T) {
	apiURL := newDevAPI(t)
	store := kv.NewMemoryStore()

	first := newClient(t, apiURL, store)
	require.True(t, first.Login(context.Background(), "krama@iuran.local", devPassword))

	second := newClient(t, apiURL, store)
	restoreSession(context.Background(), second, zerolog.Nop())
	console := startConsole(t, second)

	resp := get(t, console.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
