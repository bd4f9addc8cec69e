package builder

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"github.com/specialistvlad/buildgrid/internal/task"
)

// index is the catalog of declared tasks used for name resolution.
type index struct {
	byID      map[string]task.Ref
	byProject map[string][]string
	projects  []string
}

func newIndex(refs []task.Ref) *index {
	idx := &index{
		byID:      make(map[string]task.Ref, len(refs)),
		byProject: make(map[string][]string),
	}
	for _, r := range refs {
		if _, dup := idx.byID[r.ID()]; dup {
			continue
		}
		idx.byID[r.ID()] = r
		if _, ok := idx.byProject[r.Project]; !ok {
			idx.projects = append(idx.projects, r.Project)
		}
		idx.byProject[r.Project] = append(idx.byProject[r.Project], r.Name)
	}
	sort.Strings(idx.projects)
	for _, names := range idx.byProject {
		sort.Strings(names)
	}
	return idx
}

// lookup returns the declared task with the given id.
func (idx *index) lookup(id string) (task.Ref, bool) {
	r, ok := idx.byID[id]
	return r, ok
}

// selectTasks resolves one selector into zero or more tasks.
func (idx *index) selectTasks(selector string) ([]task.Ref, error) {
	if name, ok := strings.CutPrefix(selector, "*:"); ok {
		var out []task.Ref
		for _, p := range idx.projects {
			if r, ok := idx.byID[p+":"+name]; ok {
				out = append(out, r)
			}
		}
		return out, nil
	}

	if strings.Contains(selector, ":") {
		ref, err := task.ParseRef(selector)
		if err != nil {
			return nil, err
		}
		names, ok := idx.byProject[ref.Project]
		if !ok {
			return nil, &UnknownTaskError{Selector: selector, Suggestions: suggest(ref.Project, idx.projects)}
		}
		if _, ok := idx.byID[ref.ID()]; ok {
			return []task.Ref{ref}, nil
		}
		matches := abbreviationMatches(ref.Name, names)
		switch len(matches) {
		case 0:
			return nil, &UnknownTaskError{Selector: selector, Suggestions: prefixAll(ref.Project, suggest(ref.Name, names))}
		case 1:
			return []task.Ref{{Project: ref.Project, Name: matches[0]}}, nil
		default:
			return nil, &AmbiguousTaskError{Selector: selector, Candidates: prefixAll(ref.Project, matches)}
		}
	}

	var exact []task.Ref
	for _, p := range idx.projects {
		if r, ok := idx.byID[p+":"+selector]; ok {
			exact = append(exact, r)
		}
	}
	switch len(exact) {
	case 1:
		return exact, nil
	case 0:
	default:
		return nil, &AmbiguousTaskError{Selector: selector, Candidates: ids(exact)}
	}

	var abbreviated []task.Ref
	var allNames []string
	for _, p := range idx.projects {
		names := idx.byProject[p]
		allNames = append(allNames, names...)
		for _, m := range abbreviationMatches(selector, names) {
			abbreviated = append(abbreviated, task.Ref{Project: p, Name: m})
		}
	}
	switch len(abbreviated) {
	case 0:
		return nil, &UnknownTaskError{Selector: selector, Suggestions: suggest(selector, dedupeSorted(allNames))}
	case 1:
		return abbreviated, nil
	default:
		return nil, &AmbiguousTaskError{Selector: selector, Candidates: ids(abbreviated)}
	}
}

// abbreviationMatches returns the names matching a camel-case abbreviation.
// Whole-name matches win over prefix matches, so "cJ" prefers "compileJava"
// to "compileJavaTests".
func abbreviationMatches(pattern string, names []string) []string {
	re := camelCasePattern(pattern)
	if re == nil {
		return nil
	}
	var full, prefix []string
	for _, n := range names {
		loc := re.FindStringIndex(n)
		if loc == nil {
			continue
		}
		if loc[1] == len(n) {
			full = append(full, n)
		} else {
			prefix = append(prefix, n)
		}
	}
	if len(full) > 0 {
		return full
	}
	return prefix
}

// camelCasePattern builds an anchored regexp from the camel-case parts of an
// abbreviation: each part must start a word of the candidate name.
func camelCasePattern(pattern string) *regexp.Regexp {
	parts := splitCamelCase(pattern)
	if len(parts) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("^")
	for _, p := range parts {
		b.WriteString(regexp.QuoteMeta(p))
		b.WriteString("[a-z0-9]*")
	}
	return regexp.MustCompile(b.String())
}

func splitCamelCase(s string) []string {
	var parts []string
	start := 0
	for i, r := range s {
		if i > 0 && (unicode.IsUpper(r) || r == '_' || r == '-') {
			parts = append(parts, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

// suggest returns up to three candidates close to name by edit distance.
func suggest(name string, candidates []string) []string {
	type scored struct {
		name string
		dist int
	}
	limit := max(2, len(name)/3)
	var hits []scored
	for _, c := range candidates {
		d := levenshtein.Distance(strings.ToLower(name), strings.ToLower(c), nil)
		if d <= limit || strings.HasPrefix(strings.ToLower(c), strings.ToLower(name)) {
			hits = append(hits, scored{c, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].name < hits[j].name
	})
	var out []string
	for i := 0; i < len(hits) && i < 3; i++ {
		out = append(out, hits[i].name)
	}
	return out
}

func prefixAll(project string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = project + ":" + n
	}
	return out
}

func ids(refs []task.Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.ID()
	}
	return out
}

func dedupeSorted(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	for i, s := range in {
		if i == 0 || s != in[i-1] {
			out = append(out, s)
		}
	}
	return out
}
