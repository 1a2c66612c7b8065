package main

import (
	"fmt"
	"io"
	"os"

	"github.com/loykin/sqlmigrate"
	"github.com/loykin/sqlmigrate/pkg/status"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List migrations as APPLIED or PENDING",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := prepare(v)
			if err != nil {
				return err
			}
			if _, err := sqlmigrate.Discover(doc.MigrateDir); err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := sqlmigrate.OpenStore(ctx, doc.Database)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			info, err := status.FromRunner(ctx, sqlmigrate.NewStoreRunner(st), doc.MigrateDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			text, err := info.Format(output, useColor(doc, out))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(out, text)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json, yaml")
	return cmd
}

// useColor follows logging.color when set, otherwise colors only terminals.
func useColor(doc ConfigDoc, w io.Writer) bool {
	if doc.Logging.Color != nil {
		return *doc.Logging.Color
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
