package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banjarlabs/iuran"
	"github.com/banjarlabs/iuran/guard"
	"github.com/banjarlabs/iuran/session"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func guardCmd(flags *globalFlags) *cobra.Command {
	var (
		mode    string
		roles   []string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "guard",
		Short: "Evaluate a route guard against the persisted session",
		Long: `Mount a guard, print every view it emits until it settles, then exit.
The configured minimum loading time applies.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var m guard.Mode
			switch strings.ToLower(mode) {
			case "auth", "authenticated":
				m = guard.ModeAuthenticated
			case "guest":
				m = guard.ModeGuest
			default:
				return fmt.Errorf("unknown mode %q", mode)
			}

			var allowed []session.Role
			for _, r := range roles {
				role, ok := session.ParseRole(r)
				if !ok {
					return fmt.Errorf("unknown role %q", r)
				}
				allowed = append(allowed, role)
			}

			return withSession(cmd, flags, func(c *iuran.Client, _ zerolog.Logger) error {
				g := c.NewGuard(m, guard.WithRoles(allowed...))
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()

				views := g.Mount(ctx)
				defer g.Unmount()

				start := time.Now()
				for {
					select {
					case v := <-views:
						out := v.Kind.String()
						if v.Target != "" {
							out += " " + v.Target
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%6dms  %s\n", time.Since(start).Milliseconds(), out)
						if v.Kind != guard.Pending {
							return nil
						}
					case <-ctx.Done():
						return errors.New("guard did not settle")
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "auth", "auth or guest")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "allowed role (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "give up after")
	return cmd
}
