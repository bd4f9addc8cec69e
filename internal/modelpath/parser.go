// internal/modelpath/parser.go
package modelpath

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex matches a single path segment, e.g. `compile` or `compile-java`.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Parse creates a Path by parsing its canonical string representation.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return nil, fmt.Errorf("model path cannot be empty")
	}

	segments := strings.Split(raw, ".")
	p := make(Path, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("model path %q contains an empty segment", raw)
		}
		if !segmentRegex.MatchString(seg) {
			return nil, fmt.Errorf("invalid model path segment %q in %q", seg, raw)
		}
		p = append(p, seg)
	}
	return p, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}
