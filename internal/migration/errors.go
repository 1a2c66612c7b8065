package migration

import "fmt"

// Stage names the step of applying a file that failed.
type Stage string

const (
	StageRead   Stage = "read"
	StageBegin  Stage = "begin"
	StageExec   Stage = "exec"
	StageRecord Stage = "record"
	StageCommit Stage = "commit"
)

// DiscoveryError is returned when the migrations directory cannot be listed.
// It is fatal for the whole run and happens before any database work.
type DiscoveryError struct {
	Dir string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to list migrations in %s: %v", e.Dir, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// FailureError reports the migration file that could not be applied.
// Statement is the 1-based index of the failing statement for StageExec, 0 otherwise.
type FailureError struct {
	Name      string
	Stage     Stage
	Statement int
	Err       error
}

func (e *FailureError) Error() string {
	if e.Stage == StageExec && e.Statement > 0 {
		return fmt.Sprintf("migration %s failed at statement %d: %v", e.Name, e.Statement, e.Err)
	}
	return fmt.Sprintf("migration %s failed (%s): %v", e.Name, e.Stage, e.Err)
}

func (e *FailureError) Unwrap() error { return e.Err }
