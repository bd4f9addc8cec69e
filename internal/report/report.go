// Package report renders build results for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/specialistvlad/buildgrid/internal/builder"
	"github.com/specialistvlad/buildgrid/internal/scheduler"
)

// Format selects how a result is rendered.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid report format %q: must be 'text' or 'json'", s)
	}
}

// Write renders res in the given format.
func Write(w io.Writer, f Format, res *scheduler.BuildResult) error {
	switch f {
	case JSON:
		return writeJSON(w, res)
	case Text, "":
		return writeText(w, res)
	default:
		return fmt.Errorf("invalid report format %q", f)
	}
}

func writeText(w io.Writer, res *scheduler.BuildResult) error {
	var b strings.Builder
	status := "SUCCESSFUL"
	switch {
	case res.Failed():
		status = "FAILED"
	case res.Cancelled:
		status = "CANCELLED"
	}
	total := len(res.Succeeded) + len(res.UpToDate) + len(res.Skipped) + len(res.Failures)
	fmt.Fprintf(&b, "BUILD %s in %s\n", status, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "%d %s: %d executed, %d up-to-date, %d skipped, %d failed\n",
		total, plural(total, "task", "tasks"),
		len(res.Succeeded), len(res.UpToDate), len(res.Skipped), len(res.Failures))
	for _, f := range res.Failures {
		fmt.Fprintf(&b, "  FAILED %s: %v\n", f.Task, f.Err)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type jsonFailure struct {
	Task  string `json:"task"`
	Error string `json:"error"`
}

type jsonReport struct {
	Status     string        `json:"status"`
	DurationMS int64         `json:"duration_ms"`
	Succeeded  []string      `json:"succeeded"`
	UpToDate   []string      `json:"up_to_date"`
	Skipped    []string      `json:"skipped"`
	Failures   []jsonFailure `json:"failures"`
}

func writeJSON(w io.Writer, res *scheduler.BuildResult) error {
	out := jsonReport{
		Status:     "success",
		DurationMS: res.Duration.Milliseconds(),
		Succeeded:  nonNil(res.Succeeded),
		UpToDate:   nonNil(res.UpToDate),
		Skipped:    nonNil(res.Skipped),
		Failures:   []jsonFailure{},
	}
	switch {
	case res.Failed():
		out.Status = "failure"
	case res.Cancelled:
		out.Status = "cancelled"
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, jsonFailure{Task: f.Task, Error: f.Err.Error()})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Plan lists the tasks of g in execution order without running them.
func Plan(w io.Writer, g *builder.Graph) error {
	var b strings.Builder
	for _, id := range g.Order() {
		n, _ := g.Node(id)
		note := ""
		if !n.Enabled() {
			note = " (disabled)"
		}
		fmt.Fprintf(&b, ":%s SKIPPED%s\n", id, note)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
