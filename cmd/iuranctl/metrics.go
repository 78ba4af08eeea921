package main

import (
	"fmt"

	"github.com/banjarlabs/iuran"
	"github.com/banjarlabs/iuran/metrics/export/internaldefs"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func metricsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Restore the session and print the counters it produced",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, flags, func(c *iuran.Client, _ zerolog.Logger) error {
				s := c.MetricsSnapshot()
				for _, def := range internaldefs.CounterDefs {
					fmt.Fprintf(cmd.OutOrStdout(), "%-44s %d\n", def.Name, s.Counters[def.ID])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-44s %d\n", internaldefs.AuditDroppedName, c.AuditDropped())
				return nil
			})
		},
	}
}

func lintCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Warn about weak configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := iuran.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			ws := cfg.Lint()
			if len(ws) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			for _, w := range ws {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", w.Code, w.Message)
			}
			return nil
		},
	}
}
