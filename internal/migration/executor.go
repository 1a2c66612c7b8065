package migration

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/loykin/sqlmigrate/internal/common"
	"github.com/loykin/sqlmigrate/internal/store"
)

// Recorder records a migration as applied through the transaction that ran it.
type Recorder interface {
	RecordApplied(ctx context.Context, tx store.Execer, name string) error
}

// txBeginner is satisfied by *sql.DB and *sql.Conn. A *sql.Tx does not begin
// transactions, which is how a handle with an open transaction is recognised.
type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Executor applies a single migration file.
type Executor struct {
	rec Recorder
}

// NewExecutor returns an Executor recording successes in rec.
func NewExecutor(rec Recorder) *Executor {
	return &Executor{rec: rec}
}

// Apply runs every statement of f and records it, all in one transaction.
//
// When h can begin transactions the Executor owns the transaction: it commits
// on success and rolls back on any failure. When h is already a transaction
// (*sql.Tx) the statements and the record join it and the caller decides
// whether to commit or roll back.
//
// Failures are returned as *FailureError.
func (e *Executor) Apply(ctx context.Context, h store.Execer, f File) error {
	logger := common.GetLogger().WithComponent("executor").WithMigration(f.Name)
	start := time.Now()

	text, err := f.Read()
	if err != nil {
		return &FailureError{Name: f.Name, Stage: StageRead, Err: err}
	}
	stmts := SplitStatements(text)
	if len(stmts) == 0 {
		logger.Warn("migration has no statements, recording it as applied")
	}

	ex := h
	var tx *sql.Tx
	if b, ok := h.(txBeginner); ok {
		tx, err = b.BeginTx(ctx, nil)
		if err != nil {
			return &FailureError{Name: f.Name, Stage: StageBegin, Err: err}
		}
		ex = tx
	} else {
		logger.Debug("joining caller transaction")
	}

	fail := func(ferr *FailureError) error {
		if tx != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Error("rollback failed", "error", rbErr)
			}
		}
		logger.Debug("migration failed", "stage", ferr.Stage, "error", ferr.Err)
		return ferr
	}

	for i, stmt := range stmts {
		logger.Debug("executing statement", "index", i+1, "total", len(stmts))
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return fail(&FailureError{Name: f.Name, Stage: StageExec, Statement: i + 1, Err: err})
		}
	}
	if err := e.rec.RecordApplied(ctx, ex, f.Name); err != nil {
		return fail(&FailureError{Name: f.Name, Stage: StageRecord, Err: err})
	}
	if tx != nil {
		if err := tx.Commit(); err != nil {
			return fail(&FailureError{Name: f.Name, Stage: StageCommit, Err: err})
		}
	}
	logger.Info("migration applied", "statements", len(stmts), "duration", time.Since(start))
	return nil
}
