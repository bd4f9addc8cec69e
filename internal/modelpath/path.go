// internal/modelpath/path.go
package modelpath

import "strings"

// Path is a hierarchical model address. The zero value is the root path.
type Path []string

// Root is the empty path every other path descends from.
var Root = Path(nil)

// String serializes the Path into its canonical dot-separated form.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// IsRoot reports whether p addresses the root of the model.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Name returns the last segment, or "" for the root.
func (p Path) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns the enclosing path. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return Root
	}
	return append(Path(nil), p[:len(p)-1]...)
}

// Child returns a new path with name appended. The receiver is not modified.
func (p Path) Child(name string) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, p...)
	return append(out, name)
}

// Ancestors returns every proper ancestor of p, outermost first. The root is
// not included.
func (p Path) Ancestors() []Path {
	if len(p) <= 1 {
		return nil
	}
	out := make([]Path, 0, len(p)-1)
	for i := 1; i < len(p); i++ {
		out = append(out, append(Path(nil), p[:i]...))
	}
	return out
}

// HasPrefix reports whether prefix is p itself or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal checks two paths segment by segment.
func (p Path) Equal(other Path) bool {
	return len(p) == len(other) && p.HasPrefix(other)
}
