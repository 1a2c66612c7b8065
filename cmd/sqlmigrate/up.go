package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/loykin/sqlmigrate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newUpCmd(v *viper.Viper) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "up [mask]",
		Short: "Apply pending migrations, optionally only those whose name contains mask",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd, v, args, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the migrations that would be applied without running them")
	return cmd
}

func runUp(cmd *cobra.Command, v *viper.Viper, args []string, dryRun bool) error {
	doc, err := prepare(v)
	if err != nil {
		return err
	}
	mask := ""
	if len(args) > 0 {
		mask = args[0]
	}
	// fail on an unreadable directory before connecting
	if _, err := sqlmigrate.Discover(doc.MigrateDir); err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := sqlmigrate.OpenStore(ctx, doc.Database)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	out := cmd.OutOrStdout()
	r := sqlmigrate.NewStoreRunner(st)
	r.OnResult = func(res sqlmigrate.Result) {
		if res.Err != nil {
			_, _ = fmt.Fprintf(out, "ERROR %s: %v\n", res.Name, cause(res.Err))
			return
		}
		_, _ = fmt.Fprintf(out, "OK %s\n", res.Name)
	}

	outcome, err := r.UpWithOptions(ctx, doc.MigrateDir, sqlmigrate.UpOptions{Filter: mask, DryRun: dryRun})
	if err != nil {
		return err
	}
	printSummary(out, outcome)
	return nil
}

func printSummary(out io.Writer, o sqlmigrate.Outcome) {
	switch {
	case o.NoOp():
		_, _ = fmt.Fprintln(out, "No pending migrations.")
	case o.DryRun:
		for _, f := range o.Pending {
			_, _ = fmt.Fprintf(out, "PENDING %s\n", f.Name)
		}
		_, _ = fmt.Fprintf(out, "%d migration(s) pending (dry run, nothing applied).\n", len(o.Pending))
	default:
		_, _ = fmt.Fprintf(out, "Applied %d migration(s).\n", len(o.Applied))
	}
}

// cause drops the FailureError prefix since the line already names the file.
func cause(err error) error {
	var ferr *sqlmigrate.FailureError
	if errors.As(err, &ferr) {
		if ferr.Stage == sqlmigrate.StageExec && ferr.Statement > 0 {
			return fmt.Errorf("statement %d: %w", ferr.Statement, ferr.Err)
		}
		return ferr.Err
	}
	return err
}
