package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/loykin/sqlmigrate/internal/common"
	"github.com/loykin/sqlmigrate/internal/constants"
	"github.com/loykin/sqlmigrate/internal/store/mysql"
	"github.com/loykin/sqlmigrate/internal/store/postgresql"
	"github.com/loykin/sqlmigrate/internal/store/sqlite"
)

// Config selects the target database and the tracking table.
type Config struct {
	Driver string `mapstructure:"driver"`
	// DSN takes precedence over the discrete fields below.
	DSN string `mapstructure:"dsn"`
	// Path is the SQLite database file.
	Path     string            `mapstructure:"path"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	DBName   string            `mapstructure:"dbname"`
	SSLMode  string            `mapstructure:"sslmode"`
	Params   map[string]string `mapstructure:"params"`
	Table    string            `mapstructure:"table"`
}

type connectingDialect interface {
	Dialect
	Connect(dsn string) (*sql.DB, error)
}

// NormalizeDriver maps driver aliases onto sqlite, postgresql or mysql.
func NormalizeDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return constants.DriverSqlite, nil
	case "postgres", "postgresql", "pg", "pgx":
		return constants.DriverPostgresql, nil
	case "mysql", "mariadb":
		return constants.DriverMysql, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s (valid: sqlite, postgresql, mysql)", driver)
	}
}

// DialectFor returns the dialect registered for driver.
func DialectFor(driver string) (Dialect, error) {
	d, err := connectingDialectFor(driver)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func connectingDialectFor(driver string) (connectingDialect, error) {
	name, err := NormalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	switch name {
	case constants.DriverPostgresql:
		return postgresql.NewDialect(), nil
	case constants.DriverMysql:
		return mysql.NewDialect(), nil
	default:
		return sqlite.NewDialect(), nil
	}
}

// ResolveDSN returns the connection string for c, building it from the
// discrete fields when DSN is empty.
func (c Config) ResolveDSN() (string, error) {
	if dsn := strings.TrimSpace(c.DSN); dsn != "" {
		return dsn, nil
	}
	driver, err := NormalizeDriver(c.Driver)
	if err != nil {
		return "", err
	}
	var dsn string
	switch driver {
	case constants.DriverPostgresql:
		dsn = postgresql.BuildDSN(postgresql.Params{
			Host: c.Host, Port: c.Port, User: c.User, Password: c.Password, DBName: c.DBName, SSLMode: c.SSLMode,
		})
	case constants.DriverMysql:
		dsn = mysql.BuildDSN(mysql.Params{
			Host: c.Host, Port: c.Port, User: c.User, Password: c.Password, DBName: c.DBName, Params: c.Params,
		})
	default:
		path := strings.TrimSpace(c.Path)
		if path == "" {
			path = constants.DefaultStoreDBFile
		}
		return sqlite.DSNFromPath(path), nil
	}
	if dsn == "" {
		return "", fmt.Errorf("%s: either dsn or host must be configured", driver)
	}
	return dsn, nil
}

// Open connects to the configured database and wraps it in a Store. Closing
// the Store closes the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, err := connectingDialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.ResolveDSN()
	if err != nil {
		return nil, err
	}
	logger := common.GetLogger().WithStore(d.Name())
	logger.Debug("opening database", "dsn", common.MaskSensitiveData(dsn))

	db, err := d.Connect(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.Name(), err)
	}
	st, err := New(db, d, cfg.Table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	st.closer = db.Close
	logger.Info("database connection established", "table", st.Table())
	return st, nil
}

// Connect opens the configured database without pinging it, for callers that
// wait for the server to come up first.
func Connect(cfg Config) (*sql.DB, Dialect, error) {
	d, err := connectingDialectFor(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	dsn, err := cfg.ResolveDSN()
	if err != nil {
		return nil, nil, err
	}
	db, err := d.Connect(dsn)
	if err != nil {
		return nil, nil, err
	}
	return db, d, nil
}
