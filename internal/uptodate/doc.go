// Package uptodate decides whether a task's action can be skipped because
// its outputs are current.
//
// The scheduler asks a Checker once per task, synchronously, right before
// dispatch. A true answer marks the task UpToDate without running its action.
// After a task succeeds the scheduler calls RecordOutputs so the next build
// can compare against this one.
//
// FileStore is the persistent implementation: it fingerprints a task's
// action, declared inputs and declared outputs with sha256 and keeps the
// fingerprints in a SQLite database between invocations.
package uptodate
