package builder

import (
	"fmt"
	"strings"
)

// UnknownTaskError is returned when a selector or a dependsOn reference does
// not match any declared task.
type UnknownTaskError struct {
	Selector string
	// From is the task whose declaration held the reference, if any.
	From        string
	Suggestions []string
}

func (e *UnknownTaskError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "task '%s' not found", e.Selector)
	if e.From != "" {
		fmt.Fprintf(&b, " (referenced by '%s')", e.From)
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, "; did you mean %s?", quoteJoin(e.Suggestions))
	}
	return b.String()
}

// AmbiguousTaskError is returned when a selector matches more than one task.
type AmbiguousTaskError struct {
	Selector   string
	Candidates []string
}

func (e *AmbiguousTaskError) Error() string {
	return fmt.Sprintf("task '%s' is ambiguous, candidates are %s", e.Selector, quoteJoin(e.Candidates))
}

// GraphCycleError is returned when hard or mustRunAfter edges form a cycle.
type GraphCycleError struct {
	Path []string
}

func (e *GraphCycleError) Error() string {
	return "circular dependency between tasks: " + strings.Join(e.Path, " -> ")
}

func quoteJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return strings.Join(quoted, ", ")
}
