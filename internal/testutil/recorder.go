package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/buildgrid/internal/toolchain"
	"github.com/zclconf/go-cty/cty"
)

// RecordKind is the action kind served by RecorderModule.
const RecordKind = "record"

// ExecutionRecord captures the timing of a single task execution.
type ExecutionRecord struct {
	Task  string
	Start time.Time
	End   time.Time
}

// RecorderModule is a self-contained action module for tests. Its "record"
// kind records the execution time of each task that uses it. Accepted args:
//
//	sleep = "50ms"   # optional duration
//	fail  = "boom"   # optional error message
type RecorderModule struct {
	mu      sync.Mutex
	records []ExecutionRecord
}

// Register implements toolchain.Module.
func (m *RecorderModule) Register(t *toolchain.Toolchain) {
	t.Register(RecordKind, m.newRecord)
}

type recordArgs struct {
	Sleep *string `cty:"sleep"`
	Fail  *string `cty:"fail"`
}

func (m *RecorderModule) newRecord(raw cty.Value) (toolchain.Func, error) {
	var args recordArgs
	if err := toolchain.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	var sleep time.Duration
	if args.Sleep != nil {
		d, err := time.ParseDuration(*args.Sleep)
		if err != nil {
			return nil, err
		}
		sleep = d
	}
	return func(ctx context.Context, inv toolchain.Invocation) error {
		rec := ExecutionRecord{Task: inv.Task, Start: time.Now()}
		if sleep > 0 {
			time.Sleep(sleep)
		}
		rec.End = time.Now()

		m.mu.Lock()
		m.records = append(m.records, rec)
		m.mu.Unlock()

		if args.Fail != nil {
			return errors.New(*args.Fail)
		}
		return nil
	}, nil
}

// Records returns a copy of the execution records in completion order.
func (m *RecorderModule) Records() []ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExecutionRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Tasks returns the ids of executed tasks in completion order.
func (m *RecorderModule) Tasks() []string {
	var ids []string
	for _, r := range m.Records() {
		ids = append(ids, r.Task)
	}
	return ids
}

// Find returns the record of one task.
func (m *RecorderModule) Find(task string) (ExecutionRecord, bool) {
	for _, r := range m.Records() {
		if r.Task == task {
			return r, true
		}
	}
	return ExecutionRecord{}, false
}
