package constants

import "time"

// Migration file conventions
const (
	MigrationFileSuffix = ".sql"
	DefaultMigrateDir   = "./migrations"
	DefaultStoreDBFile  = "sqlmigrate.db"
)

// Database Constants
const (
	DriverSqlite     = "sqlite"
	DriverPostgresql = "postgresql"
	DriverMysql      = "mysql"

	// PostgreSQL defaults
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"

	// MySQL defaults
	DefaultMysqlPort = 3306

	// Connection pool settings
	DefaultSQLiteMaxConnections = 1 // SQLite allows only one writer
	DefaultSQLiteMaxIdleConns   = 1

	// Tracking table
	DefaultSchemaMigrationsTable = "schema_migrations"
	MaxFilenameLength            = 255
)

// Time and Duration Constants
const (
	DefaultMaxConnLifetime = 5 * time.Minute
	DefaultSQLiteLifetime  = 10 * time.Minute
	DefaultSQLiteIdleTime  = 5 * time.Minute
)

// Wait Configuration Constants
const (
	DefaultWaitTimeout  = 60 * time.Second
	DefaultWaitInterval = 2 * time.Second
)
