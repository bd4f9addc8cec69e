package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_TaskLifecycle(t *testing.T) {
	m := NewMetrics()

	m.TaskStarted("app:a")
	m.TaskStarted("app:b")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksRunning))

	m.TaskFinished("app:a", node.Succeeded, 20*time.Millisecond)
	m.TaskFinished("app:b", node.Failed, time.Millisecond)
	m.TaskFinished("app:c", node.Skipped, 0)
	m.TaskFinished("app:d", node.UpToDate, 0)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.tasksRunning))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksTotal.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksTotal.WithLabelValues("up-to-date")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.taskDuration))
}

func TestMetrics_RecordBuild(t *testing.T) {
	m := NewMetrics()
	m.RecordBuild(false, time.Second)
	m.RecordBuild(true, time.Second)
	m.RecordBuild(true, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.buildsTotal.WithLabelValues("failure")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.TaskStarted("app:a")
	m.TaskFinished("app:a", node.Succeeded, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `buildgrid_tasks_total{state="succeeded"} 1`), body)
	assert.Contains(t, body, "buildgrid_task_duration_seconds_bucket")
}

func TestTracer(t *testing.T) {
	assert.NotNil(t, Tracer())
}
