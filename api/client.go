package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/banjarlabs/iuran/session"
	"github.com/rs/zerolog"
)

const (
	DefaultLoginPath       = "/login"
	DefaultCurrentUserPath = "/me"
	DefaultTimeout         = 15 * time.Second

	maxResponseBytes = 1 << 20
)

// RequestInfo describes one completed call, for metrics.
type RequestInfo struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
	Err      error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses hc as the underlying client. Its transport is wrapped
// with AuthTransport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithTimeout bounds each request. A client from WithHTTPClient keeps its own
// non-zero Timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLoginPath overrides DefaultLoginPath.
func WithLoginPath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.loginPath = p
		}
	}
}

// WithCurrentUserPath overrides DefaultCurrentUserPath.
func WithCurrentUserPath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.mePath = p
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithObserver is called after every request.
func WithObserver(fn func(RequestInfo)) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

// Client talks JSON to the remote API.
type Client struct {
	base      *url.URL
	hc        *http.Client
	timeout   time.Duration
	loginPath string
	mePath    string
	logger    zerolog.Logger
	observe   func(RequestInfo)

	mu             sync.RWMutex
	onUnauthorized func(context.Context)
}

// New creates a client for baseURL. tokens may be nil for unauthenticated use.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base url must be http or https, got %q", baseURL)
	}

	c := &Client{
		base:      u,
		timeout:   DefaultTimeout,
		loginPath: DefaultLoginPath,
		mePath:    DefaultCurrentUserPath,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := http.Client{Timeout: c.timeout}
	if c.hc != nil {
		hc = *c.hc
		if hc.Timeout == 0 {
			hc.Timeout = c.timeout
		}
	}
	hc.Transport = &AuthTransport{Base: hc.Transport, Tokens: tokens}
	c.hc = &hc

	return c, nil
}

// SetUnauthorizedHandler registers fn to run when a request other than login
// is answered with 401.
func (c *Client) SetUnauthorizedHandler(fn func(context.Context)) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string        `json:"token"`
	AccessToken string        `json:"access_token"`
	User        *session.User `json:"user"`
}

// Login posts credentials and returns the issued token and, when the API
// includes it, the user.
func (c *Client) Login(ctx context.Context, email, password string) (session.LoginResult, error) {
	var resp loginResponse
	if err := c.Do(ctx, http.MethodPost, c.loginPath, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return session.LoginResult{}, err
	}

	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	if token == "" {
		return session.LoginResult{}, fmt.Errorf("%w: login response has no token", session.ErrInvalidResponse)
	}
	if resp.User != nil && resp.User.ID == "" {
		resp.User = nil
	}
	return session.LoginResult{Token: token, User: resp.User}, nil
}

// CurrentUser fetches the profile for the current token. Both {"user": {...}}
// and a bare user object are accepted.
func (c *Client) CurrentUser(ctx context.Context) (session.User, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, c.mePath, nil, &raw); err != nil {
		return session.User{}, err
	}

	var wrapped struct {
		User *session.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return validUser(*wrapped.User)
	}

	var user session.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return session.User{}, fmt.Errorf("%w: %v", session.ErrInvalidResponse, err)
	}
	return validUser(user)
}

func validUser(u session.User) (session.User, error) {
	if u.ID == "" {
		return session.User{}, fmt.Errorf("%w: user has no id", session.ErrInvalidResponse)
	}
	return u, nil
}

// Do sends body as JSON (when non-nil) and decodes a 2xx response into out
// (when non-nil). A {"data": ...} envelope is unwrapped.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()
	status, err := c.do(ctx, method, path, body, out)

	if c.observe != nil {
		c.observe(RequestInfo{Method: method, Path: path, Status: status, Duration: time.Since(start), Err: err})
	}
	if status == http.StatusUnauthorized && path != c.loginPath {
		c.mu.RLock()
		fn := c.onUnauthorized
		c.mu.RUnlock()
		if fn != nil {
			fn(ctx)
		}
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target, err := c.resolve(path)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("api request failed")
		return 0, fmt.Errorf("%w: %v", session.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: read body: %v", session.ErrNetworkFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Message: errorMessage(data)}
		c.logger.Debug().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Msg("api request rejected")
		return resp.StatusCode, apiErr
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, fmt.Errorf("%w: empty body", session.ErrInvalidResponse)
	}
	if err := json.Unmarshal(unwrapData(data), out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", session.ErrInvalidResponse, err)
	}
	return resp.StatusCode, nil
}

func unwrapData(data []byte) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return data
	}
	if inner, ok := envelope["data"]; ok && len(inner) > 0 && !bytes.Equal(inner, []byte("null")) {
		return inner
	}
	return data
}

func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	if s, ok := body.Error.(string); ok {
		return s
	}
	return ""
}

// resolve joins the path of ref onto the base URL and keeps its query.
func (c *Client) resolve(ref string) (string, error) {
	rel, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("api: parse path %q: %w", ref, err)
	}
	if rel.IsAbs() || rel.Host != "" {
		return "", fmt.Errorf("api: path %q must be relative to the base url", ref)
	}
	u := c.base.JoinPath(rel.Path)
	u.RawQuery = rel.RawQuery
	return u.String(), nil
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
