package iuran

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete client configuration. It is built in two stages:
// YAML (LoadConfig) over DefaultConfig, then IURAN_* environment overrides.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Keys    KeysConfig    `yaml:"keys"`
	Guard   GuardConfig   `yaml:"guard"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote API.
type APIConfig struct {
	BaseURL         string        `yaml:"base_url"`
	LoginPath       string        `yaml:"login_path"`
	CurrentUserPath string        `yaml:"current_user_path"`
	Timeout         time.Duration `yaml:"timeout"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend      string        `yaml:"backend"`
	Path         string        `yaml:"path"`
	RedisAddr    string        `yaml:"redis_addr"`
	RedisPrefix  string        `yaml:"redis_prefix"`
	RedisTimeout time.Duration `yaml:"redis_timeout"`

	// Secret is read from IURAN_STORAGE_SECRET only. Empty selects the
	// insecure built-in fallback.
	Secret string `yaml:"-"`
}

// KeysConfig names the persisted entries.
type KeysConfig struct {
	AuthToken       string `yaml:"auth_token"`
	Theme           string `yaml:"theme"`
	ResidentContext string `yaml:"resident_context"`
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig holds route targets and the loading floor.
type GuardConfig struct {
	MinLoading     time.Duration `yaml:"min_loading"`
	LoginRoute     string        `yaml:"login_route"`
	AdminLanding   string        `yaml:"admin_landing"`
	DefaultLanding string        `yaml:"default_landing"`
}

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig controls the logger built by NewLogger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a configuration that only lacks API.BaseURL.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			LoginPath:       "/login",
			CurrentUserPath: "/me",
			Timeout:         15 * time.Second,
		},
		Storage: StorageConfig{
			Backend:      BackendFile,
			Path:         defaultStoragePath(),
			RedisPrefix:  "iuran:",
			RedisTimeout: 2 * time.Second,
		},
		Keys: KeysConfig{
			AuthToken:       "auth_token",
			Theme:           "theme",
			ResidentContext: "resident_context",
		},
		Guard: GuardConfig{
			MinLoading:     time.Second,
			LoginRoute:     "/login",
			AdminLanding:   "/admin",
			DefaultLanding: "/",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".iuran", "storage.json")
	}
	return filepath.Join(dir, "iuran", "storage.json")
}

/*
====================================
LOADING
====================================
*/

// LoadConfig reads the YAML file at path over DefaultConfig, applies
// environment overrides and validates the result. An empty path skips the
// file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from IURAN_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
		*dst = d
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
		*dst = b
		return nil
	}

	str("IURAN_API_BASE_URL", &c.API.BaseURL)
	str("IURAN_STORAGE_BACKEND", &c.Storage.Backend)
	str("IURAN_STORAGE_PATH", &c.Storage.Path)
	str("IURAN_REDIS_ADDR", &c.Storage.RedisAddr)
	str("IURAN_STORAGE_SECRET", &c.Storage.Secret)
	str("IURAN_LOG_LEVEL", &c.Log.Level)
	str("IURAN_LOG_FORMAT", &c.Log.Format)

	return errors.Join(
		dur("IURAN_API_TIMEOUT", &c.API.Timeout),
		dur("IURAN_GUARD_MIN_LOADING", &c.Guard.MinLoading),
		boolean("IURAN_AUDIT_ENABLED", &c.Audit.Enabled),
		boolean("IURAN_METRICS_ENABLED", &c.Metrics.Enabled),
	)
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api base_url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api base_url must be an absolute http(s) url", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.API.LoginPath, "/") || !strings.HasPrefix(c.API.CurrentUserPath, "/") {
		return fmt.Errorf("%w: api paths must start with /", ErrInvalidConfig)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("%w: api timeout must be > 0", ErrInvalidConfig)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage path is required for the file backend", ErrInvalidConfig)
		}
	case BackendRedis:
		// redis_addr may be empty when the Builder is given a client.
		if c.Storage.RedisTimeout <= 0 {
			return fmt.Errorf("%w: storage redis_timeout must be > 0", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	keys := []string{c.Keys.AuthToken, c.Keys.Theme, c.Keys.ResidentContext}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			return fmt.Errorf("%w: storage keys must not be empty", ErrInvalidConfig)
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: storage key %q used twice", ErrInvalidConfig, k)
		}
		seen[k] = struct{}{}
	}

	if c.Guard.MinLoading < 0 {
		return fmt.Errorf("%w: guard min_loading must be >= 0", ErrInvalidConfig)
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: audit buffer_size must be > 0", ErrInvalidConfig)
	}

	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: log format must be console or json", ErrInvalidConfig)
	}
	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a valid but questionable setting.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of Config.Lint.
type LintWarnings []LintWarning

// Codes lists the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint lists settings that work but weaken the deployment.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	if c.Storage.Secret == "" {
		ws = append(ws, LintWarning{Code: "storage_default_secret", Message: "IURAN_STORAGE_SECRET is not set; stored values are encrypted with the public fallback key"})
	}
	if c.Storage.Backend == BackendMemory {
		ws = append(ws, LintWarning{Code: "storage_not_persistent", Message: "memory backend loses the session on restart"})
	}
	if strings.HasPrefix(c.API.BaseURL, "http://") && !isLoopback(c.API.BaseURL) {
		ws = append(ws, LintWarning{Code: "api_plain_http", Message: "bearer tokens are sent over plain http"})
	}
	if !c.Audit.Enabled {
		ws = append(ws, LintWarning{Code: "audit_disabled", Message: "encryption downgrades will only be visible in logs"})
	}
	if c.Guard.MinLoading == 0 {
		ws = append(ws, LintWarning{Code: "guard_no_min_loading", Message: "guards may flash content while the session loads"})
	}
	return ws
}

func isLoopback(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
