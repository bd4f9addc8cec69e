package app

import "fmt"

// maxExitCode keeps failure exit codes clear of the shell's reserved range.
const maxExitCode = 125

// BuildFailedError is returned by Run when at least one task failed or the
// build was cancelled before all tasks ran.
type BuildFailedError struct {
	Failed    int
	Cancelled bool
	Err       error
}

func (e *BuildFailedError) Error() string {
	if e.Failed == 0 && e.Cancelled {
		return "build cancelled before all tasks ran"
	}
	return fmt.Sprintf("build failed: %d task(s) failed", e.Failed)
}

func (e *BuildFailedError) Unwrap() error { return e.Err }

// ExitCode is the failed-task count, capped at 125. A cancelled build with
// no failures exits 1.
func (e *BuildFailedError) ExitCode() int {
	return min(max(e.Failed, 1), maxExitCode)
}
