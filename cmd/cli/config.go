package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configSetCmd = &cobra.Command{
	Use:   "config-set <key> <value>",
	Short: "Upsert a Config Registry key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.ConfigSet(ctx, args[0], args[1]); err != nil {
			return fmt.Errorf("config-set: %w", err)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "config-get <key>",
	Short: "Read a Config Registry key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDispatcher(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		value, ok, err := d.ConfigGet(ctx, args[0])
		if err != nil {
			return fmt.Errorf("config-get: %w", err)
		}
		if !ok {
			return fmt.Errorf("key %q not set", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}
