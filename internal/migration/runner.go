package migration

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/loykin/sqlmigrate/internal/common"
	"github.com/loykin/sqlmigrate/internal/store"
)

// AppliedStore is the part of the tracking store the Runner needs.
type AppliedStore interface {
	Recorder
	AppliedNames(ctx context.Context) (map[string]struct{}, error)
}

// recordLister is implemented by stores that can report when files were applied.
type recordLister interface {
	ListApplied(ctx context.Context) ([]store.Record, error)
}

// Result is reported once for every file Up attempts.
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

// StatusEntry is one discovered file and whether it has been applied.
type StatusEntry struct {
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Outcome summarises an Up call.
type Outcome struct {
	// Pending is the set Up selected, in the order it was (or would be) applied.
	Pending []File
	// Applied are the files applied by this call, in order.
	Applied []string
	// Failed is the file that stopped the run, if any.
	Failed *FailureError
	DryRun bool
}

// NoOp reports that there was nothing pending.
func (o Outcome) NoOp() bool { return len(o.Pending) == 0 }

// UpOptions tune an Up call.
type UpOptions struct {
	// Filter narrows the pending set to names that start with or contain it.
	// It never selects a file that is already applied.
	Filter string
	// DryRun computes the pending set without executing anything.
	DryRun bool
}

// Runner computes pending migrations and applies them one at a time, stopping
// at the first failure.
type Runner struct {
	db    store.Execer
	store AppliedStore
	exec  *Executor

	// FS, when set, is listed instead of the host filesystem.
	FS fs.FS
	// OnResult is called after every attempted file.
	OnResult func(Result)
}

// NewRunner returns a Runner applying migrations through db and tracking them
// in st. db is usually a *sql.DB; a *sql.Tx makes every file join that
// transaction.
func NewRunner(db store.Execer, st AppliedStore) *Runner {
	return &Runner{db: db, store: st, exec: NewExecutor(st)}
}

func (r *Runner) discover(dir string) ([]File, error) {
	if r.FS != nil {
		return DiscoverFS(r.FS, dir)
	}
	return Discover(dir)
}

// Status lists every discovered file in order with its applied state. It does
// not modify anything beyond creating the tracking table if it is missing.
func (r *Runner) Status(ctx context.Context, dir string) ([]StatusEntry, error) {
	files, err := r.discover(dir)
	if err != nil {
		return nil, err
	}
	appliedAt := map[string]time.Time{}
	if lister, ok := r.store.(recordLister); ok {
		records, err := lister.ListApplied(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			appliedAt[rec.Name] = rec.AppliedAt
		}
	} else {
		names, err := r.store.AppliedNames(ctx)
		if err != nil {
			return nil, err
		}
		for name := range names {
			appliedAt[name] = time.Time{}
		}
	}

	out := make([]StatusEntry, 0, len(files))
	for _, f := range files {
		at, ok := appliedAt[f.Name]
		out = append(out, StatusEntry{Name: f.Name, Applied: ok, AppliedAt: at})
	}
	return out, nil
}

// Plan returns the pending set: discovered files without a tracking record,
// narrowed by filter, in natural order. It is recomputed on every call.
func (r *Runner) Plan(ctx context.Context, dir, filter string) ([]File, error) {
	files, err := r.discover(dir)
	if err != nil {
		return nil, err
	}
	applied, err := r.store.AppliedNames(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]File, 0, len(files))
	for _, f := range files {
		if _, done := applied[f.Name]; done {
			continue
		}
		if !matchesFilter(f.Name, filter) {
			continue
		}
		pending = append(pending, f)
	}
	return pending, nil
}

// matchesFilter reports whether filter is a prefix or substring of name. An
// empty filter matches everything.
func matchesFilter(name, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.HasPrefix(name, filter) || strings.Contains(name, filter)
}

// Up applies every pending file matching filter.
func (r *Runner) Up(ctx context.Context, dir, filter string) (Outcome, error) {
	return r.UpWithOptions(ctx, dir, UpOptions{Filter: filter})
}

// UpWithOptions applies the pending set in order. On the first failure it
// stops and returns the *FailureError; files applied before it stay applied.
func (r *Runner) UpWithOptions(ctx context.Context, dir string, opts UpOptions) (Outcome, error) {
	logger := common.GetLogger().WithComponent("runner")

	pending, err := r.Plan(ctx, dir, opts.Filter)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Pending: pending, DryRun: opts.DryRun}
	if out.NoOp() {
		logger.Info("no pending migrations", "dir", dir, "filter", opts.Filter)
		return out, nil
	}
	if opts.DryRun {
		logger.Info("dry run, nothing applied", "pending", len(pending))
		return out, nil
	}

	logger.Info("applying migrations", "pending", len(pending), "filter", opts.Filter)
	for _, f := range pending {
		start := time.Now()
		err := r.exec.Apply(ctx, r.db, f)
		if r.OnResult != nil {
			r.OnResult(Result{Name: f.Name, Err: err, Duration: time.Since(start)})
		}
		if err != nil {
			var ferr *FailureError
			if !errors.As(err, &ferr) {
				ferr = &FailureError{Name: f.Name, Stage: StageExec, Err: err}
			}
			out.Failed = ferr
			logger.Error("migration failed, stopping", "migration", f.Name, "error", err, "applied", len(out.Applied))
			return out, ferr
		}
		out.Applied = append(out.Applied, f.Name)
	}
	logger.Info("migrations applied", "count", len(out.Applied))
	return out, nil
}
