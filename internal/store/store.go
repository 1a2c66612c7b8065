package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/loykin/sqlmigrate/internal/common"
	"github.com/loykin/sqlmigrate/internal/constants"
)

// ErrAlreadyApplied is returned by RecordApplied when the tracking table
// already holds a row for the filename.
var ErrAlreadyApplied = errors.New("migration already recorded")

// Execer executes a statement without returning rows. *sql.DB, *sql.Conn and
// *sql.Tx all satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Handle is the database handle the store reads from.
type Handle interface {
	Execer
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Dialect captures what differs between database engines for the tracking table.
type Dialect interface {
	Name() string
	Placeholder(index int) string
	CreateTableSQL(table string) string
	IsUniqueViolation(err error) bool
}

// Record is one row of the tracking table.
type Record struct {
	ID        int64
	Name      string
	AppliedAt time.Time
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Store persists applied migration filenames in a tracking table
// (schema_migrations by default). The table is created on first use.
type Store struct {
	db      Handle
	dialect Dialect
	table   string
	closer  func() error

	mu      sync.Mutex
	ensured bool
}

// New wraps an open database handle. An empty table selects the default name.
func New(db Handle, dialect Dialect, table string) (*Store, error) {
	if db == nil {
		return nil, errors.New("store: nil database handle")
	}
	if dialect == nil {
		return nil, errors.New("store: nil dialect")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		table = constants.DefaultSchemaMigrationsTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("store: invalid table name %q", table)
	}
	return &Store{db: db, dialect: dialect, table: table}, nil
}

// Table returns the tracking table name.
func (s *Store) Table() string { return s.table }

// Dialect returns the dialect the store was built with.
func (s *Store) Dialect() Dialect { return s.dialect }

// DB returns the handle the store reads from.
func (s *Store) DB() Handle { return s.db }

// Close releases the connection when the store opened it itself (see Open).
func (s *Store) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}

func (s *Store) logger() *common.Logger {
	return common.GetLogger().WithStore(s.dialect.Name())
}

// EnsureSchema creates the tracking table if it does not exist. It is safe to
// call on every invocation.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.ensureWith(ctx, s.db, true)
}

// ensureWith runs the CREATE through ex so that callers holding the only
// connection in a transaction do not block on a second one. A CREATE issued
// inside a caller's transaction may still be rolled back, so it is only
// remembered when remember is set.
func (s *Store) ensureWith(ctx context.Context, ex Execer, remember bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}
	q := s.dialect.CreateTableSQL(s.table)
	s.logger().Debug("ensuring tracking table", "table", s.table, "sql", q)
	if _, err := ex.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to create tracking table %s: %w", s.table, err)
	}
	s.ensured = remember
	return nil
}

// AppliedNames returns the set of filenames recorded as applied.
func (s *Store) AppliedNames(ctx context.Context) (map[string]struct{}, error) {
	records, err := s.ListApplied(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(records))
	for _, r := range records {
		names[r.Name] = struct{}{}
	}
	return names, nil
}

// ListApplied returns every tracking record ordered by id.
func (s *Store) ListApplied(ctx context.Context) ([]Record, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT id, filename, applied_at FROM %s ORDER BY id ASC", s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var r Record
		var at timestamp
		if err := rows.Scan(&r.ID, &r.Name, &at); err != nil {
			return nil, fmt.Errorf("failed to scan applied migration: %w", err)
		}
		r.AppliedAt = at.Time
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applied migrations: %w", err)
	}
	return out, nil
}

// RecordApplied inserts the tracking row for name through tx, which must be
// the transaction that ran the migration's statements. A second record for the
// same name fails with ErrAlreadyApplied.
func (s *Store) RecordApplied(ctx context.Context, tx Execer, name string) error {
	if tx == nil {
		return errors.New("store: nil transaction")
	}
	if len(name) > constants.MaxFilenameLength {
		return fmt.Errorf("filename %q exceeds %d bytes", name, constants.MaxFilenameLength)
	}
	if err := s.ensureWith(ctx, tx, false); err != nil {
		return err
	}
	logger := s.logger().WithMigration(name)

	q := fmt.Sprintf("INSERT INTO %s (filename) VALUES (%s)", s.table, s.dialect.Placeholder(1))
	if _, err := tx.ExecContext(ctx, q, name); err != nil {
		if s.dialect.IsUniqueViolation(err) {
			logger.Error("migration already recorded", "error", err)
			return fmt.Errorf("record %s: %w: %w", name, ErrAlreadyApplied, err)
		}
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	logger.Debug("migration recorded")
	return nil
}

// timestamp scans applied_at from drivers that return time.Time, string or []byte.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05",
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported applied_at type %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized applied_at value %q", s)
}
