package main

import (
	"context"
	"fmt"
	"os"

	"github.com/banjarlabs/iuran"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var version = "dev"

type globalFlags struct {
	configPath string
	verbose    bool
	auditLog   bool
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "iuranctl",
		Short: "Operate the iuran client core from a terminal",
		Long: `iuranctl signs in to the iuran API, inspects the persisted session and
preferences, and serves a small guarded admin console.

Configuration is read from --config (YAML) and IURAN_* environment
variables. IURAN_STORAGE_SECRET sets the storage encryption key.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv("IURAN_CONFIG"), "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&flags.auditLog, "audit-log", false, "log diagnostic events")

	rootCmd.AddCommand(
		loginCmd(&flags),
		logoutCmd(&flags),
		whoamiCmd(&flags),
		themeCmd(&flags),
		residentCmd(&flags),
		storageCmd(&flags),
		guardCmd(&flags),
		metricsCmd(&flags),
		lintCmd(&flags),
		serveCmd(&flags),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "iuranctl: %s\n", err)
		os.Exit(1)
	}
}

// openClient loads configuration and builds a client. The caller closes it.
func openClient(flags *globalFlags) (*iuran.Client, zerolog.Logger, error) {
	cfg, err := iuran.LoadConfig(flags.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}
	logger := iuran.NewLogger(cfg.Log, os.Stderr)

	b := iuran.New().WithConfig(cfg).WithLogger(logger)
	if flags.auditLog {
		b = b.WithAuditSink(iuran.NewLogSink(logger.With().Str("component", "audit").Logger()))
	}
	c, err := b.Build()
	if err != nil {
		return nil, logger, err
	}
	return c, logger, nil
}

// withSession opens a client, restores the persisted session and runs fn.
func withSession(cmd *cobra.Command, flags *globalFlags, fn func(*iuran.Client, zerolog.Logger) error) error {
	c, logger, err := openClient(flags)
	if err != nil {
		return err
	}
	defer c.Close()

	c.Restore(cmd.Context())
	return fn(c, logger)
}
