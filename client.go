package iuran

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/banjarlabs/iuran/api"
	"github.com/banjarlabs/iuran/guard"
	"github.com/banjarlabs/iuran/internal/audit"
	"github.com/banjarlabs/iuran/kv"
	"github.com/banjarlabs/iuran/preference"
	"github.com/banjarlabs/iuran/securestorage"
	"github.com/banjarlabs/iuran/session"
	"github.com/rs/zerolog"
)

// Client is the assembled client core.
type Client struct {
	config Config
	logger zerolog.Logger

	backend      kv.Store
	closeBackend func() error
	storage      *securestorage.Storage
	api          *api.Client
	session      *session.Store
	theme        *preference.Pref[preference.Theme]
	resident     *preference.Pref[preference.ResidentContext]

	audit   *audit.Dispatcher
	metrics *Metrics

	closeOnce sync.Once
	closeErr  error
}

// Config returns the validated configuration.
func (c *Client) Config() Config {
	return c.config
}

// Session returns the auth session store.
func (c *Client) Session() *session.Store {
	return c.session
}

// API returns the authorized HTTP client.
func (c *Client) API() *api.Client {
	return c.api
}

// Storage returns the encrypted key-value layer.
func (c *Client) Storage() *securestorage.Storage {
	return c.storage
}

// Theme returns the persisted theme preference.
func (c *Client) Theme() *preference.Pref[preference.Theme] {
	return c.theme
}

// ResidentContext returns the persisted resident selection.
func (c *Client) ResidentContext() *preference.Pref[preference.ResidentContext] {
	return c.resident
}

// Login delegates to the session store. On failure the reason is in
// Session().Snapshot().Error.
func (c *Client) Login(ctx context.Context, email, password string) bool {
	return c.session.Login(ctx, email, password)
}

// Logout ends the session and removes the token.
func (c *Client) Logout(ctx context.Context) {
	c.session.Logout(ctx)
}

// Restore revalidates a persisted session. Call it once at start-up.
func (c *Client) Restore(ctx context.Context) bool {
	return c.session.Restore(ctx)
}

// Routes returns the configured guard routes.
func (c *Client) Routes() guard.Routes {
	return guard.Routes{
		Login:          c.config.Guard.LoginRoute,
		AdminLanding:   c.config.Guard.AdminLanding,
		DefaultLanding: c.config.Guard.DefaultLanding,
	}
}

// NewGuard returns an unmounted guard over this client's session using the
// configured routes and minimum loading time. opts are applied last.
func (c *Client) NewGuard(mode guard.Mode, opts ...guard.Option) *guard.Guard {
	base := []guard.Option{
		guard.WithRoutes(c.Routes()),
		guard.WithMinLoading(c.config.Guard.MinLoading),
		guard.WithLogger(c.logger.With().Str("component", "guard").Logger()),
	}
	return guard.New(c.session, mode, append(base, opts...)...)
}

// Do calls an arbitrary API endpoint with the session's bearer token.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.api.Do(ctx, method, path, body, out)
}

// MetricsSnapshot copies the current counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped counts events lost to a full audit buffer.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// Close flushes pending audit events and releases the storage backend when
// the client opened it.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.shutdown()
	})
	return c.closeErr
}

func (c *Client) shutdown() error {
	c.audit.Close()
	if c.closeBackend != nil {
		return c.closeBackend()
	}
	return nil
}

func (c *Client) onStorageEvent(ev securestorage.Event) {
	switch ev.Kind {
	case securestorage.EventEncryptionDowngrade:
		c.metrics.Inc(MetricEncryptionDowngrade)
	case securestorage.EventDecryptionFailure:
		c.metrics.Inc(MetricDecryptionFailure)
	case securestorage.EventEmptyPlaintext:
		c.metrics.Inc(MetricEmptyPlaintext)
	case securestorage.EventLegacyRead:
		c.metrics.Inc(MetricLegacyRead)
	case securestorage.EventBackendFailure:
		c.metrics.Inc(MetricStorageBackendFailure)
	}

	event := AuditEvent{
		EventType: string(ev.Kind),
		Key:       ev.Key,
		Success:   ev.Kind == securestorage.EventLegacyRead,
	}
	if ev.Err != nil {
		event.Error = ev.Err.Error()
	}
	c.audit.Emit(context.Background(), event)
}

func (c *Client) onSessionEvent(ctx context.Context, ev session.Event) {
	success := false
	switch ev.Type {
	case session.EventLoginSuccess:
		c.metrics.Inc(MetricLoginSuccess)
		c.metrics.Observe(MetricLoginLatency, ev.Duration)
		success = true
	case session.EventLoginFailure:
		c.metrics.Inc(MetricLoginFailure)
		c.metrics.Observe(MetricLoginLatency, ev.Duration)
	case session.EventLogout:
		c.metrics.Inc(MetricLogout)
		success = true
	case session.EventRestoreSuccess:
		c.metrics.Inc(MetricRestoreSuccess)
		success = true
	case session.EventRestoreFailure:
		c.metrics.Inc(MetricRestoreFailure)
	case session.EventSessionExpired:
		c.metrics.Inc(MetricSessionExpired)
	}

	event := AuditEvent{
		EventType: string(ev.Type),
		UserID:    ev.UserID,
		Role:      string(ev.Role),
		Success:   success,
		Duration:  ev.Duration,
	}
	if ev.Err != nil {
		event.Error = ev.Err.Error()
	}
	c.audit.Emit(ctx, event)
}

func (c *Client) onRequest(info api.RequestInfo) {
	c.metrics.Inc(MetricAPIRequest)
	c.metrics.Observe(MetricAPILatency, info.Duration)
	if info.Err != nil {
		c.metrics.Inc(MetricAPIRequestFailure)
	}
	var apiErr *api.Error
	if info.Status == http.StatusUnauthorized || (errors.As(info.Err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
		c.metrics.Inc(MetricAPIUnauthorized)
	}
}
