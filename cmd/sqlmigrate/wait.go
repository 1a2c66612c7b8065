package main

import (
	"fmt"

	"github.com/loykin/sqlmigrate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newWaitCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until the database accepts connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := prepare(v)
			if err != nil {
				return err
			}
			if err := sqlmigrate.WaitForDatabase(cmd.Context(), doc.Database, doc.Wait.Timeout, doc.Wait.Interval); err != nil {
				return fmt.Errorf("database not ready after %s: %w", doc.Wait.Timeout, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Database is ready.")
			return err
		},
	}
	cmd.Flags().Duration("timeout", v.GetDuration("wait.timeout"), "how long to keep trying")
	cmd.Flags().Duration("interval", v.GetDuration("wait.interval"), "delay between attempts")
	bindFlags(v, cmd.Flags(), map[string]string{
		"wait.timeout":  "timeout",
		"wait.interval": "interval",
	})
	return cmd
}
