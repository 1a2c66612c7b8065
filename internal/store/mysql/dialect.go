package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	driver "github.com/go-sql-driver/mysql"
	"github.com/loykin/sqlmigrate/internal/constants"
)

// erDupEntry is MySQL's ER_DUP_ENTRY error number.
const erDupEntry = 1062

// Dialect implements the tracking-table dialect for MySQL and MariaDB
type Dialect struct{}

// NewDialect creates a new MySQL dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// Name returns the dialect name for logging
func (d *Dialect) Name() string {
	return constants.DriverMysql
}

// Placeholder returns MySQL-style placeholders (?)
func (d *Dialect) Placeholder(int) string {
	return "?"
}

// CreateTableSQL returns the tracking table DDL
func (d *Dialect) CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	filename VARCHAR(%d) NOT NULL UNIQUE,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, table, constants.MaxFilenameLength)
}

// IsUniqueViolation reports whether err is ER_DUP_ENTRY
func (d *Dialect) IsUniqueViolation(err error) bool {
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == erDupEntry
	}
	return false
}

// Connect opens a MySQL connection pool for dsn. parseTime is forced so
// applied_at scans as time.Time.
func (d *Dialect) Connect(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("mysql: empty DSN")
	}
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	connector, err := driver.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MySQL connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetConnMaxLifetime(constants.DefaultMaxConnLifetime)
	return db, nil
}

// Params are the discrete connection settings used when no DSN is configured.
type Params struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Params   map[string]string
}

// BuildDSN assembles a go-sql-driver DSN. It returns "" when no host is set.
func BuildDSN(p Params) string {
	host := strings.TrimSpace(p.Host)
	if host == "" {
		return ""
	}
	port := p.Port
	if port == 0 {
		port = constants.DefaultMysqlPort
	}
	cfg := driver.NewConfig()
	cfg.User = strings.TrimSpace(p.User)
	cfg.Passwd = p.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = strings.TrimSpace(p.DBName)
	cfg.ParseTime = true
	if len(p.Params) > 0 {
		cfg.Params = make(map[string]string, len(p.Params))
		for k, v := range p.Params {
			cfg.Params[k] = v
		}
	}
	return cfg.FormatDSN()
}
