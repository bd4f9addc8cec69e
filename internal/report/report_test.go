package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/specialistvlad/buildgrid/internal/builder"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/scheduler"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func failedResult() *scheduler.BuildResult {
	return &scheduler.BuildResult{
		Succeeded: []string{"app:generate", "app:compile"},
		UpToDate:  []string{"lib:compile"},
		Skipped:   []string{"app:package"},
		Failures: []scheduler.TaskFailure{
			{Task: "app:test", Err: &scheduler.TaskActionError{Task: "app:test", Err: errors.New("exit status 1")}},
		},
		Duration: 1234 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	_, err = ParseFormat("xml")
	assert.ErrorContains(t, err, "invalid report format")
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Text, failedResult()))
	newGolden(t).Assert(t, "text_failed", buf.Bytes())

	buf.Reset()
	require.NoError(t, Write(&buf, Text, &scheduler.BuildResult{Succeeded: []string{"app:a"}, Duration: 5 * time.Millisecond}))
	assert.Equal(t, "BUILD SUCCESSFUL in 5ms\n1 task: 1 executed, 0 up-to-date, 0 skipped, 0 failed\n", buf.String())
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, failedResult()))
	newGolden(t).Assert(t, "json_failed", buf.Bytes())

	buf.Reset()
	require.NoError(t, Write(&buf, JSON, &scheduler.BuildResult{}))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "success", decoded["status"])
	assert.Equal(t, []any{}, decoded["failures"])
}

func TestWrite_Cancelled(t *testing.T) {
	res := &scheduler.BuildResult{
		Succeeded: []string{"app:slow"},
		Skipped:   []string{"app:after"},
		Cancelled: true,
		Duration:  50 * time.Millisecond,
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Text, res))
	assert.Equal(t, "BUILD CANCELLED in 50ms\n2 tasks: 1 executed, 0 up-to-date, 1 skipped, 0 failed\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, JSON, res))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "cancelled", decoded["status"])
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("xml"), &scheduler.BuildResult{}))
}

func TestPlan(t *testing.T) {
	compile := node.New(task.New("app", "compile"), nil)
	lint := node.New(task.New("app", "lint"), nil)
	lint.Spec.Enabled = false
	test := node.New(task.New("app", "test"), nil)
	test.Deps = []string{"app:compile", "app:lint"}
	g, err := builder.NewGraph([]*node.TaskNode{test, compile, lint}, "app:test")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Plan(&buf, g))
	assert.Equal(t, ":app:compile SKIPPED\n:app:lint SKIPPED (disabled)\n:app:test SKIPPED\n", buf.String())
}
