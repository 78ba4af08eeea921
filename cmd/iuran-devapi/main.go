package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/banjarlabs/iuran/internal/devapi"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	var (
		addr      string
		redisAddr string
		seedPath  string
		ttl       time.Duration
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "iuran-devapi",
		Short: "Local stand-in for the iuran API",
		Long: `iuran-devapi serves POST /login, GET /me and POST /logout for local
development of the iuran client core.

Accounts come from --seed (YAML) or a built-in set with password
"iuran-dev-2026". Without --redis an embedded in-memory Redis is used.
The signing secret is read from IURAN_DEVAPI_SECRET.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
				Level(level).With().Timestamp().Str("service", "iuran-devapi").Logger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, logger, addr, redisAddr, seedPath, ttl)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", os.Getenv("REDIS_ADDR"), "redis address; empty starts an embedded miniredis")
	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML file with seed accounts")
	cmd.Flags().DurationVar(&ttl, "token-ttl", 8*time.Hour, "issued token lifetime")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every request")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "iuran-devapi: %s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger zerolog.Logger, addr, redisAddr, seedPath string, ttl time.Duration) error {
	client, cleanup, err := openRedis(redisAddr, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := devapi.DefaultConfig()
	cfg.JWT.TTL = ttl
	cfg.JWT.Secret = []byte(os.Getenv("IURAN_DEVAPI_SECRET"))
	if len(cfg.JWT.Secret) == 0 {
		cfg.JWT.Secret = []byte("iuran-devapi-insecure-signing-key")
		logger.Warn().Msg("IURAN_DEVAPI_SECRET is not set; using the built-in signing key")
	}

	srv, err := devapi.New(client, cfg, logger)
	if err != nil {
		return err
	}

	seeds := devapi.DefaultSeeds()
	if seedPath != "" {
		if seeds, err = devapi.LoadSeeds(seedPath); err != nil {
			return err
		}
	}
	if err := srv.Seed(ctx, seeds); err != nil {
		return err
	}
	for _, s := range seeds {
		logger.Info().Str("email", s.Email).Str("role", s.Role).Msg("account ready")
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openRedis(addr string, logger zerolog.Logger) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Info().Str("redis", addr).Msg("using redis")
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Info().Str("redis", mr.Addr()).Msg("using embedded miniredis")
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}
