package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var errDuplicate = errors.New("duplicate filename")

// fakeDialect treats errDuplicate as the driver's unique violation.
type fakeDialect struct{}

func (fakeDialect) Name() string { return "fake" }
func (fakeDialect) Placeholder(int) string { return "?" }
func (fakeDialect) CreateTableSQL(t string) string { return "CREATE TABLE IF NOT EXISTS " + t + " (filename TEXT)" }
func (fakeDialect) IsUniqueViolation(e error) bool { return errors.Is(e, errDuplicate) }

func newMockStore(t *testing.T) (*Store, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	st, err := New(db, fakeDialect{}, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return st, db, mock
}

var (
	createRe = regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")
	insertRe = regexp.QuoteMeta("INSERT INTO schema_migrations (filename) VALUES (?)")
	selectRe = regexp.QuoteMeta("SELECT id, filename, applied_at FROM schema_migrations ORDER BY id ASC")
)

func TestEnsureSchema_RunsOnce(t *testing.T) {
	st, _, mock := newMockStore(t)
	mock.ExpectExec(createRe).WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := st.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema: %v", err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEnsureSchema_Error(t *testing.T) {
	st, _, mock := newMockStore(t)
	mock.ExpectExec(createRe).WillReturnError(errors.New("permission denied"))
	mock.ExpectExec(createRe).WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	if err := st.EnsureSchema(ctx); err == nil {
		t.Fatal("EnsureSchema should surface the CREATE error")
	}
	// a failed ensure is retried on the next call
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecordApplied_UsesCallerTx(t *testing.T) {
	st, db, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(createRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertRe).WithArgs("001_a.sql").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if err := st.RecordApplied(ctx, tx, "001_a.sql"); err != nil {
		t.Fatalf("RecordApplied: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecordApplied_UniqueViolation(t *testing.T) {
	st, db, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(createRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertRe).WithArgs("001_a.sql").WillReturnError(errDuplicate)
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	err = st.RecordApplied(ctx, tx, "001_a.sql")
	_ = tx.Rollback()
	if !errors.Is(err, ErrAlreadyApplied) {
		t.Fatalf("error = %v, want ErrAlreadyApplied", err)
	}
	if !errors.Is(err, errDuplicate) {
		t.Errorf("driver error not preserved in %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecordApplied_OtherInsertError(t *testing.T) {
	st, db, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(createRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertRe).WithArgs("001_a.sql").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	err = st.RecordApplied(ctx, tx, "001_a.sql")
	_ = tx.Rollback()
	if err == nil {
		t.Fatal("RecordApplied should fail")
	}
	if errors.Is(err, ErrAlreadyApplied) {
		t.Errorf("non-unique failure reported as ErrAlreadyApplied: %v", err)
	}
}

func TestListApplied_Scan(t *testing.T) {
	st, _, mock := newMockStore(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(createRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectRe).WillReturnRows(
		sqlmock.NewRows([]string{"id", "filename", "applied_at"}).
			AddRow(int64(1), "001_a.sql", at).
			AddRow(int64(2), "002_b.sql", "2025-03-01 12:30:00").
			AddRow(int64(3), "003_c.sql", []byte("2025-03-01T13:00:00Z")),
	)

	records, err := st.ListApplied(context.Background())
	if err != nil {
		t.Fatalf("ListApplied: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if !records[0].AppliedAt.Equal(at) {
		t.Errorf("records[0].AppliedAt = %v, want %v", records[0].AppliedAt, at)
	}
	if got := records[1].AppliedAt.Format("15:04"); got != "12:30" {
		t.Errorf("records[1].AppliedAt = %v", records[1].AppliedAt)
	}
	if got := records[2].AppliedAt.Format("15:04"); got != "13:00" {
		t.Errorf("records[2].AppliedAt = %v", records[2].AppliedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListApplied_BadTimestamp(t *testing.T) {
	st, _, mock := newMockStore(t)
	mock.ExpectExec(createRe).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectRe).WillReturnRows(
		sqlmock.NewRows([]string{"id", "filename", "applied_at"}).AddRow(int64(1), "001_a.sql", "yesterday"),
	)
	if _, err := st.ListApplied(context.Background()); err == nil {
		t.Error("ListApplied should fail on an unparsable applied_at")
	}
}
