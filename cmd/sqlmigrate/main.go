package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// newRootCmd builds the command tree around v. Running the root command with
// no subcommand applies pending migrations, like "up".
func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "sqlmigrate [mask]",
		Short:         "Apply versioned SQL migration files to a database",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd, v, args, false)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "path to a config file (default ./sqlmigrate.yaml when present)")
	pf.String("dir", v.GetString("migrate_dir"), "directory holding the *.sql migration files")
	pf.String("driver", v.GetString("database.driver"), "database driver: sqlite, postgresql or mysql")
	pf.String("dsn", "", "database connection string")
	pf.String("db-path", v.GetString("database.path"), "SQLite database file")
	pf.String("table", v.GetString("database.table"), "tracking table name")
	pf.String("log-level", v.GetString("logging.level"), "log level: error, warn, info, debug")
	pf.String("log-format", v.GetString("logging.format"), "log format: text, json, color")

	bindFlags(v, pf, map[string]string{
		"config":          "config",
		"migrate_dir":     "dir",
		"database.driver": "driver",
		"database.dsn":    "dsn",
		"database.path":   "db-path",
		"database.table":  "table",
		"logging.level":   "log-level",
		"logging.format":  "log-format",
	})

	root.AddCommand(newUpCmd(v))
	root.AddCommand(newStatusCmd(v))
	root.AddCommand(newCreateCmd(v))
	root.AddCommand(newWaitCmd(v))
	return root
}

// bindFlags binds config keys to the named flags of fs.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := fs.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// prepare loads configuration and installs the configured logger.
func prepare(v *viper.Viper) (ConfigDoc, error) {
	doc, err := loadConfig(v)
	if err != nil {
		return ConfigDoc{}, err
	}
	if err := doc.SetupLogging(); err != nil {
		return ConfigDoc{}, err
	}
	return doc, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newViper()).ExecuteContext(ctx); err != nil {
		stop()
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
