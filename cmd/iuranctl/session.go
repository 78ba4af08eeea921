package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/banjarlabs/iuran"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func loginCmd(flags *globalFlags) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		Long: `Sign in with email and password. The password is taken from --password,
then IURAN_PASSWORD, then one line of standard input.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				password = os.Getenv("IURAN_PASSWORD")
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			c, _, err := openClient(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			if !c.Login(cmd.Context(), email, password) {
				return errors.New(c.Session().Snapshot().Error)
			}
			u := c.Session().Snapshot().User
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", u.Name, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func logoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := openClient(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			c.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func whoamiCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Revalidate the persisted session and print the user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, flags, func(c *iuran.Client, _ zerolog.Logger) error {
				u := c.Session().Snapshot().User
				if u == nil {
					return errors.New("not signed in")
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), u)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\nrole: %s\nid:   %s\n", u.Name, u.Email, u.Role, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
