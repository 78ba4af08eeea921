package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func storageCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect secure storage entries",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print the decrypted value of key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := openClient(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			v, ok := c.Storage().GetItem(args[0])
			if !ok {
				return fmt.Errorf("%s: not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}, &cobra.Command{
		Use:   "raw <key>",
		Short: "Print the stored value of key without decrypting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := openClient(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			v, ok, err := c.Storage().Raw(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}, &cobra.Command{
		Use:   "remove <key>",
		Short: "Delete key. The session token can only be removed with logout.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := openClient(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			return c.Storage().RemoveItem(args[0])
		},
	})
	return cmd
}
