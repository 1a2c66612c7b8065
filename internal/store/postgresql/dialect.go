package postgresql

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/loykin/sqlmigrate/internal/constants"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Dialect implements the tracking-table dialect for PostgreSQL
type Dialect struct{}

// NewDialect creates a new PostgreSQL dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// Name returns the dialect name for logging
func (d *Dialect) Name() string {
	return constants.DriverPostgresql
}

// Placeholder returns PostgreSQL-style placeholders ($1, $2, etc.)
func (d *Dialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// CreateTableSQL returns the tracking table DDL
func (d *Dialect) CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	filename VARCHAR(%d) NOT NULL UNIQUE,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, table, constants.MaxFilenameLength)
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505
func (d *Dialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

// Connect parses dsn with pgx and opens it through the pgx stdlib adapter.
func (d *Dialect) Connect(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgresql: empty DSN")
	}
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL DSN: %w", err)
	}
	db := stdlib.OpenDB(*cfg)
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
	SSLMode  string
}

// BuildDSN assembles a postgres:// URL. It returns "" when no host is set.
func BuildDSN(p Params) string {
	host := strings.TrimSpace(p.Host)
	if host == "" {
		return ""
	}
	port := p.Port
	if port == 0 {
		port = constants.DefaultPostgresPort
	}
	ssl := strings.TrimSpace(p.SSLMode)
	if ssl == "" {
		ssl = constants.DefaultPostgresSSLMode
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + strings.TrimSpace(p.DBName),
		RawQuery: url.Values{"sslmode": []string{ssl}}.Encode(),
	}
	if user := strings.TrimSpace(p.User); user != "" {
		if p.Password != "" {
			u.User = url.UserPassword(user, p.Password)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String()
}
