package dag

import (
	"fmt"
	"strings"
)

// CycleError reports a cycle. Path starts and ends with the same node and
// follows edge direction.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}
