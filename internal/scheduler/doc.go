// Package scheduler executes a task graph with bounded parallelism.
//
// # How It Works
//
// A single coordinator goroutine owns every state transition. It repeatedly
// scans the pending nodes in topological order and classifies each one:
//
//   - Blocked: a hard or ordering predecessor has not finished yet, or one of
//     its mutex resources is held by a running task.
//   - Doomed: a hard predecessor failed or was skipped, so the node is marked
//     Skipped without running.
//   - Ready: everything it waits on is finished. The up-to-date check runs
//     synchronously; a current node becomes UpToDate, any other is dispatched.
//
// Dispatched actions run on an errgroup limited to MaxWorkers and report back
// over a channel, so the coordinator is the only writer of node state. Mutex
// resources are acquired all-or-nothing by the coordinator before dispatch
// and released when the result arrives.
//
// # Stopping
//
// With FailFast the first failure stops new dispatch. Context cancellation
// does the same. In both cases in-flight actions are drained, never
// interrupted, and every node that was not dispatched is recorded as Skipped
// with the reason.
package scheduler
