package devapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/banjarlabs/iuran/internal/rate"
	"github.com/banjarlabs/iuran/internal/stores"
	"github.com/banjarlabs/iuran/jwt"
	"github.com/banjarlabs/iuran/password"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	msgBadRequest         = "Email and password are required."
	msgInvalidCredentials = "Invalid email or password."
	msgThrottled          = "Too many login attempts. Try again later."
	msgUnauthorized       = "Your session has ended. Please sign in again."
	msgUnavailable        = "Service temporarily unavailable."
)

// Config configures a Server.
type Config struct {
	// Prefix namespaces every Redis key.
	Prefix   string
	JWT      jwt.Config
	Password password.Config
	Throttle rate.Config
}

// DefaultConfig needs only JWT.Secret.
func DefaultConfig() Config {
	throttle := rate.DefaultConfig()
	throttle.Prefix = "devapi:"
	return Config{
		Prefix: "devapi",
		JWT: jwt.Config{
			TTL:    8 * time.Hour,
			Issuer: "iuran-devapi",
		},
		Password: password.DefaultConfig(),
		Throttle: throttle,
	}
}

// Server implements the remote API contract the client core talks to.
type Server struct {
	accounts *stores.AccountStore
	revoked  *stores.RevocationStore
	tokens   *jwt.Manager
	hasher   *password.Hasher
	limiter  *rate.Limiter
	logger   zerolog.Logger
	now      func() time.Time
}

// New builds a server. cfg.JWT.Secret must be at least 16 bytes.
func New(rdb redis.UniversalClient, cfg Config, logger zerolog.Logger) (*Server, error) {
	tokens, err := jwt.NewManager(cfg.JWT)
	if err != nil {
		return nil, err
	}
	hasher, err := password.New(cfg.Password)
	if err != nil {
		return nil, err
	}
	return &Server{
		accounts: stores.NewAccountStore(rdb, cfg.Prefix),
		revoked:  stores.NewRevocationStore(rdb, cfg.Prefix),
		tokens:   tokens,
		hasher:   hasher,
		limiter:  rate.New(rdb, cfg.Throttle),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/login", s.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/me", s.handleMe)
		r.Post("/logout", s.handleLogout)
	})
	return r
}

type userBody struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserBody(a stores.Account) userBody {
	return userBody{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

type loginBody struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userBody  `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil ||
		strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	ctx := r.Context()
	ip := clientIP(r)

	if err := s.limiter.CheckLogin(ctx, req.Email, ip); err != nil {
		s.writeLimiterError(w, err)
		return
	}

	account, err := s.accounts.ByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, stores.ErrAccountNotFound) {
		s.logger.Error().Err(err).Msg("account lookup failed")
		writeError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	ok := false
	if err == nil {
		ok, err = s.hasher.Verify(req.Password, account.PasswordHash)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", account.ID).Msg("stored password hash unreadable")
		}
	}
	if !ok {
		if err := s.limiter.IncrementLogin(ctx, req.Email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			s.logger.Warn().Err(err).Msg("login throttle update failed")
		}
		s.logger.Info().Str("email", req.Email).Str("ip", ip).Msg("login rejected")
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	if err := s.limiter.ResetLogin(ctx, req.Email); err != nil {
		s.logger.Warn().Err(err).Msg("login throttle reset failed")
	}

	token, exp, err := s.tokens.Issue(account.ID, account.Email, account.Name, account.Role)
	if err != nil {
		s.logger.Error().Err(err).Msg("token issue failed")
		writeError(w, http.StatusInternalServerError, msgUnavailable)
		return
	}
	s.logger.Info().Str("user_id", account.ID).Str("role", account.Role).Msg("login accepted")
	writeJSON(w, http.StatusOK, loginBody{Token: token, ExpiresAt: exp, User: toUserBody(account)})
}

func (s *Server) writeLimiterError(w http.ResponseWriter, err error) {
	if errors.Is(err, rate.ErrRateLimited) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, msgThrottled)
		return
	}
	s.logger.Error().Err(err).Msg("login throttle check failed")
	writeError(w, http.StatusServiceUnavailable, msgUnavailable)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]userBody{"user": toUserBody(p.account)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if err := s.revoked.Revoke(r.Context(), p.token, p.expiresAt.Sub(s.now())); err != nil {
		s.logger.Error().Err(err).Msg("token revoke failed")
		writeError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type principal struct {
	account   stores.Account
	token     string
	expiresAt time.Time
}

type principalKey struct{}

func principalFrom(ctx context.Context) principal {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		claims, err := s.tokens.Parse(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		revoked, err := s.revoked.IsRevoked(r.Context(), token)
		if err != nil {
			s.logger.Error().Err(err).Msg("revocation check failed")
			writeError(w, http.StatusServiceUnavailable, msgUnavailable)
			return
		}
		if revoked {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		account, err := s.accounts.ByID(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		p := principal{account: account, token: token, expiresAt: claims.ExpiresAt.Time}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
