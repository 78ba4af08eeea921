package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/banjarlabs/iuran/preference"
	"github.com/spf13/cobra"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func themeCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Read or change the console theme",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current theme",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := openClient(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			fmt.Fprintln(cmd.OutOrStdout(), c.Theme().Get())
			return nil
		},
	}, &cobra.Command{
		Use:       "set <light|dark|system>",
		Short:     "Persist a theme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(preference.ThemeLight), string(preference.ThemeDark), string(preference.ThemeSystem)},
		RunE: func(cmd *cobra.Command, args []string) error {
			theme, err := preference.ParseTheme(args[0])
			if err != nil {
				return err
			}
			c, _, err := openClient(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			return c.Theme().Set(theme)
		},
	})
	return cmd
}

func residentCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resident",
		Short: "Read or change the selected resident context",
	}

	var rc preference.ResidentContext
	set := &cobra.Command{
		Use:   "set",
		Short: "Persist the resident context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := openClient(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			return c.ResidentContext().Set(rc)
		},
	}
	set.Flags().StringVar(&rc.ResidentID, "resident-id", "", "resident id (required)")
	set.Flags().StringVar(&rc.FamilyID, "family-id", "", "family id")
	set.Flags().StringVar(&rc.BanjarID, "banjar-id", "", "banjar id")
	set.Flags().StringVar(&rc.Name, "name", "", "display name")

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the resident context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := openClient(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			v, ok := c.ResidentContext().Lookup()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no resident selected")
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}, set, &cobra.Command{
		Use:   "clear",
		Short: "Remove the resident context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := openClient(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			return c.ResidentContext().Reset()
		},
	})
	return cmd
}
