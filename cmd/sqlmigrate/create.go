package main

import (
	"fmt"
	"strings"

	"github.com/loykin/sqlmigrate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCreateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create the next numbered, empty migration file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := prepare(v)
			if err != nil {
				return err
			}
			p, err := sqlmigrate.CreateMigration(doc.MigrateDir, strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}
}
