// Package sqlmigrate applies versioned *.sql migration files to a database in
// natural file-name order, one transaction per file, stopping at the first
// failure. Applied files are tracked in a table (schema_migrations by default).
package sqlmigrate

import (
	"context"
	"io/fs"
	"time"

	"github.com/loykin/sqlmigrate/internal/common"
	"github.com/loykin/sqlmigrate/internal/constants"
	imig "github.com/loykin/sqlmigrate/internal/migration"
	"github.com/loykin/sqlmigrate/internal/store"
)

// Re-export commonly used types for public API

// File is a discovered migration file.
type File = imig.File

// Runner computes and applies pending migrations.
type Runner = imig.Runner

// Result is reported for every file Up attempts.
type Result = imig.Result

// Outcome summarises an Up call.
type Outcome = imig.Outcome

// UpOptions tune an Up call.
type UpOptions = imig.UpOptions

// StatusEntry is one discovered file and whether it has been applied.
type StatusEntry = imig.StatusEntry

// FailureError names the migration that stopped a run.
type FailureError = imig.FailureError

// Stage names the step of applying a file that failed.
type Stage = imig.Stage

const (
	StageRead   = imig.StageRead
	StageBegin  = imig.StageBegin
	StageExec   = imig.StageExec
	StageRecord = imig.StageRecord
	StageCommit = imig.StageCommit
)

// DiscoveryError is returned when the migrations directory cannot be listed.
type DiscoveryError = imig.DiscoveryError

// AppliedStore is what a Runner needs from the tracking store.
type AppliedStore = imig.AppliedStore

// Execer is a database handle statements are executed on.
type Execer = store.Execer

// Store is the tracking-table store.
type Store = store.Store

// StoreConfig selects the database and tracking table.
type StoreConfig = store.Config

// Dialect captures per-engine tracking-table SQL.
type Dialect = store.Dialect

// ErrAlreadyApplied is returned when a file is recorded twice.
var ErrAlreadyApplied = store.ErrAlreadyApplied

const (
	DriverSqlite     = constants.DriverSqlite
	DriverPostgresql = constants.DriverPostgresql
	DriverMysql      = constants.DriverMysql

	// DefaultMigrateDir is where migrations are read from when none is configured.
	DefaultMigrateDir = constants.DefaultMigrateDir
	// DefaultTable is the default tracking table name.
	DefaultTable = constants.DefaultSchemaMigrationsTable
)

// Discover lists the *.sql files directly inside dir in natural order.
func Discover(dir string) ([]File, error) { return imig.Discover(dir) }

// DiscoverFS lists migrations in dir of fsys, e.g. an embed.FS.
func DiscoverFS(fsys fs.FS, dir string) ([]File, error) { return imig.DiscoverFS(fsys, dir) }

// SplitStatements splits migration text on semicolons at the end of a line.
func SplitStatements(text string) []string { return imig.SplitStatements(text) }

// CreateMigration writes the next numbered, empty migration file into dir.
func CreateMigration(dir, name string) (string, error) { return imig.Create(dir, name) }

// OpenStore connects to the configured database. Close the store when done.
func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) { return store.Open(ctx, cfg) }

// NewStore wraps an already open handle. The table is created on first use.
func NewStore(db store.Handle, dialect Dialect, table string) (*Store, error) {
	return store.New(db, dialect, table)
}

// DialectFor returns the dialect for a driver name (sqlite, postgresql, mysql).
func DialectFor(driver string) (Dialect, error) { return store.DialectFor(driver) }

// NewRunner returns a Runner executing through db and tracking in st.
func NewRunner(db Execer, st AppliedStore) *Runner { return imig.NewRunner(db, st) }

// NewStoreRunner returns a Runner that executes through the store's own handle.
func NewStoreRunner(st *Store) *Runner { return imig.NewRunner(st.DB(), st) }

// Up opens the configured database, applies the pending migrations in dir
// matching filter and closes the database again.
func Up(ctx context.Context, cfg StoreConfig, dir, filter string) (Outcome, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return Outcome{}, err
	}
	defer func() { _ = st.Close() }()
	return NewStoreRunner(st).Up(ctx, dir, filter)
}

// Status opens the configured database and reports every migration in dir.
func Status(ctx context.Context, cfg StoreConfig, dir string) ([]StatusEntry, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()
	return NewStoreRunner(st).Status(ctx, dir)
}

// WaitForDatabase blocks until the configured database answers a ping, retrying
// every interval until timeout is spent.
func WaitForDatabase(ctx context.Context, cfg StoreConfig, timeout, interval time.Duration) error {
	return store.WaitReady(ctx, cfg, timeout, interval)
}

// Logger is the structured logger used by the library.
type Logger = common.Logger

// LogLevel is the logging verbosity.
type LogLevel = common.LogLevel

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

// NewLogger returns a text logger writing to stderr.
func NewLogger(level LogLevel) *Logger { return common.NewLogger(level) }

// NewJSONLogger returns a JSON logger writing to stderr.
func NewJSONLogger(level LogLevel) *Logger { return common.NewJSONLogger(level) }

// NewColorLogger returns a colored text logger writing to stderr.
func NewColorLogger(level LogLevel) *Logger { return common.NewColorLogger(level) }

// SetDefaultLogger replaces the library logger.
func SetDefaultLogger(l *Logger) { common.SetDefaultLogger(l) }

// EnableLogMasking toggles redaction of passwords in log output.
func EnableLogMasking(enabled bool) { common.EnableMasking(enabled) }
