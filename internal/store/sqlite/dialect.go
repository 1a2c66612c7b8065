package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/sqlmigrate/internal/constants"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

const busyTimeoutMS = 5000

// Dialect implements the tracking-table dialect for SQLite
type Dialect struct{}

// NewDialect creates a new SQLite dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// Name returns the dialect name for logging
func (d *Dialect) Name() string {
	return constants.DriverSqlite
}

// Placeholder returns SQLite-style placeholders (?)
func (d *Dialect) Placeholder(int) string {
	return "?"
}

// CreateTableSQL returns the tracking table DDL
func (d *Dialect) CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename VARCHAR(%d) NOT NULL UNIQUE,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, table, constants.MaxFilenameLength)
}

// IsUniqueViolation reports whether err is SQLite's UNIQUE constraint failure
func (d *Dialect) IsUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		// primary result code only, when extended codes are off
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}

// DSNFromPath builds a modernc DSN for a database file with a busy timeout and
// foreign keys enabled.
func DSNFromPath(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, busyTimeoutMS)
}

// Connect opens a SQLite database. An empty dsn opens an in-memory database.
func (d *Dialect) Connect(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	// SQLite allows a single writer, and an in-memory database lives on one connection.
	db.SetMaxOpenConns(constants.DefaultSQLiteMaxConnections)
	db.SetMaxIdleConns(constants.DefaultSQLiteMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultSQLiteLifetime)
	db.SetConnMaxIdleTime(constants.DefaultSQLiteIdleTime)
	return db, nil
}
