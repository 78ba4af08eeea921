package iuran

import (
	"fmt"
	"io"
	"net/http"

	"github.com/banjarlabs/iuran/api"
	"github.com/banjarlabs/iuran/internal/audit"
	"github.com/banjarlabs/iuran/kv"
	"github.com/banjarlabs/iuran/preference"
	"github.com/banjarlabs/iuran/securestorage"
	"github.com/banjarlabs/iuran/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles a Client. Configure it during initialization, then call
// Build once.
type Builder struct {
	config Config
	logger zerolog.Logger

	store      kv.Store
	redis      redis.UniversalClient
	httpClient *http.Client
	auth       session.Authenticator
	auditSink  AuditSink
	rand       io.Reader

	built bool
}

// New returns a builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithLogger sets the logger handed to every component.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

// WithStore overrides the configured storage backend.
func (b *Builder) WithStore(s kv.Store) *Builder {
	b.store = s
	return b
}

// WithRedis supplies the client for the redis backend. The Client does not
// close it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the client used for API calls.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithAuthenticator replaces the HTTP API as the session store's
// authenticator.
func (b *Builder) WithAuthenticator(a session.Authenticator) *Builder {
	b.auth = a
	return b
}

// WithAuditSink sets where audit events are delivered.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRand overrides the salt source used by secure storage.
func (b *Builder) WithRand(r io.Reader) *Builder {
	b.rand = r
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles login and API latency buckets.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:  cfg,
		logger:  b.logger,
		metrics: NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	backend, closer, err := b.openBackend(cfg.Storage)
	if err != nil {
		c.audit.Close()
		return nil, err
	}
	c.backend = backend
	c.closeBackend = closer

	storageOpts := []securestorage.Option{
		securestorage.WithSecret(cfg.Storage.Secret),
		securestorage.WithLogger(b.logger.With().Str("component", "securestorage").Logger()),
		securestorage.WithReporter(c.onStorageEvent),
	}
	if b.rand != nil {
		storageOpts = append(storageOpts, securestorage.WithRand(b.rand))
	}
	c.storage = securestorage.New(backend, storageOpts...)
	if c.storage.UsingDefaultSecret() {
		b.logger.Warn().Msg("IURAN_STORAGE_SECRET is not set; using the built-in fallback key")
	}

	tokens, err := session.NewTokenRepository(c.storage, cfg.Keys.AuthToken)
	if err != nil {
		c.shutdown()
		return nil, err
	}

	apiOpts := []api.Option{
		api.WithTimeout(cfg.API.Timeout),
		api.WithLoginPath(cfg.API.LoginPath),
		api.WithCurrentUserPath(cfg.API.CurrentUserPath),
		api.WithLogger(b.logger.With().Str("component", "api").Logger()),
		api.WithObserver(c.onRequest),
	}
	if b.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(b.httpClient))
	}
	c.api, err = api.New(cfg.API.BaseURL, tokens, apiOpts...)
	if err != nil {
		c.shutdown()
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var auth session.Authenticator = c.api
	if b.auth != nil {
		auth = b.auth
	}
	c.session = session.NewStore(auth, tokens,
		session.WithLogger(b.logger.With().Str("component", "session").Logger()),
		session.WithHooks(session.Hooks{OnEvent: c.onSessionEvent}),
	)
	c.api.SetUnauthorizedHandler(c.session.HandleUnauthorized)

	c.theme = preference.NewTheme(c.storage, cfg.Keys.Theme)
	c.resident = preference.NewResidentContext(c.storage, cfg.Keys.ResidentContext)

	b.built = true
	return c, nil
}

func (b *Builder) openBackend(cfg StorageConfig) (kv.Store, func() error, error) {
	if b.store != nil {
		return b.store, nil, nil
	}

	switch cfg.Backend {
	case BackendMemory:
		return kv.NewMemoryStore(), nil, nil
	case BackendFile:
		fs, err := kv.OpenFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	case BackendRedis:
		opts := []kv.RedisOption{kv.WithRedisPrefix(cfg.RedisPrefix), kv.WithRedisTimeout(cfg.RedisTimeout)}
		if b.redis != nil {
			return kv.NewRedisStore(b.redis, opts...), nil, nil
		}
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("%w: redis backend needs redis_addr or a client", ErrInvalidConfig)
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return kv.NewRedisStore(client, opts...), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, cfg.Backend)
	}
}
