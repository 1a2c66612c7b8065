package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/sqlmigrate"
	"github.com/loykin/sqlmigrate/internal/constants"
	"github.com/spf13/viper"
)

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
	Color         *bool  `mapstructure:"color" yaml:"color"`                   // enable/disable colorized output
}

type WaitConfig struct {
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

type ConfigDoc struct {
	MigrateDir string                 `mapstructure:"migrate_dir" yaml:"migrate_dir"`
	Database   sqlmigrate.StoreConfig `mapstructure:"database" yaml:"database"`
	Wait       WaitConfig             `mapstructure:"wait" yaml:"wait"`
	Logging    LoggingConfig          `mapstructure:"logging" yaml:"logging"`
}

// setDefaults registers every key so that SQLMIGRATE_* environment variables
// are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("config", "")
	v.SetDefault("migrate_dir", constants.DefaultMigrateDir)
	v.SetDefault("database.driver", constants.DriverSqlite)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", constants.DefaultStoreDBFile)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "")
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.table", constants.DefaultSchemaMigrationsTable)
	v.SetDefault("wait.timeout", constants.DefaultWaitTimeout)
	v.SetDefault("wait.interval", constants.DefaultWaitInterval)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.mask_sensitive", true)
}

// newViper returns a viper instance reading SQLMIGRATE_* environment variables,
// e.g. SQLMIGRATE_DATABASE_DSN for database.dsn.
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SQLMIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads the config file (explicit --config, or ./sqlmigrate.yaml when
// present) and decodes the merged settings.
func loadConfig(v *viper.Viper) (ConfigDoc, error) {
	if path := strings.TrimSpace(v.GetString("config")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return ConfigDoc{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("sqlmigrate")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return ConfigDoc{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var doc ConfigDoc
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&doc, hook); err != nil {
		return ConfigDoc{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if strings.TrimSpace(doc.MigrateDir) == "" {
		doc.MigrateDir = constants.DefaultMigrateDir
	}
	return doc, nil
}

func (c *ConfigDoc) parseLogLevel() (sqlmigrate.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "error":
		return sqlmigrate.LogLevelError, nil
	case "warn", "warning":
		return sqlmigrate.LogLevelWarn, nil
	case "info", "":
		return sqlmigrate.LogLevelInfo, nil
	case "debug":
		return sqlmigrate.LogLevelDebug, nil
	default:
		return sqlmigrate.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging() error {
	level, err := c.parseLogLevel()
	if err != nil {
		return err
	}
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	useColor := format == "color" || format == "colour"
	if c.Logging.Color != nil {
		useColor = *c.Logging.Color
	}

	var logger *sqlmigrate.Logger
	switch format {
	case "json":
		logger = sqlmigrate.NewJSONLogger(level)
	case "color", "colour", "text", "":
		if useColor {
			logger = sqlmigrate.NewColorLogger(level)
		} else {
			logger = sqlmigrate.NewLogger(level)
		}
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	sqlmigrate.EnableLogMasking(maskingEnabled)
	sqlmigrate.SetDefaultLogger(logger)

	logger.Debug("logging configured",
		"level", level.String(),
		"format", format,
		"color", useColor,
		"mask_sensitive", maskingEnabled)
	return nil
}
