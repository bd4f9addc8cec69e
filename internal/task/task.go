// Package task defines the declaration of a unit of build work as it is held
// by the configuration model. A Spec is the value of a model node under
// "<project>.tasks.<name>"; the graph builder turns specs into executable
// task nodes.
package task

import (
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/modelpath"
	"github.com/zclconf/go-cty/cty"
)

// ModelType is the type descriptor of model nodes holding a *Spec.
const ModelType = "task"

// Ref identifies a task within a build.
type Ref struct {
	Project string
	Name    string
}

// ID returns the canonical "project:name" form used as the graph node id.
func (r Ref) ID() string {
	return r.Project + ":" + r.Name
}

func (r Ref) String() string { return r.ID() }

// ParseRef parses the canonical "project:name" form. A leading ':' is
// accepted.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimPrefix(s, ":")
	project, name, ok := strings.Cut(s, ":")
	if !ok || project == "" || name == "" || strings.Contains(name, ":") {
		return Ref{}, fmt.Errorf("invalid task reference %q, expected project:task", s)
	}
	return Ref{Project: project, Name: name}, nil
}

// tasksSegment is the container segment under a project holding its tasks.
const tasksSegment = "tasks"

// Path returns the model path of the task declaration: "<project>.tasks.<name>".
func (r Ref) Path() modelpath.Path {
	return modelpath.Path{r.Project, tasksSegment, r.Name}
}

// RefFromPath is the inverse of Ref.Path. It reports false for paths that do
// not address a task.
func RefFromPath(p modelpath.Path) (Ref, bool) {
	if len(p) != 3 || p[1] != tasksSegment {
		return Ref{}, false
	}
	return Ref{Project: p[0], Name: p[2]}, true
}

// Action selects the toolchain action a task runs and carries its raw
// arguments. Args is decoded by the toolchain for the given Kind.
type Action struct {
	Kind string
	Args cty.Value
}

// Spec is a task declaration.
type Spec struct {
	Project string
	Name    string
	// Dir is the project directory relative paths are resolved against.
	Dir         string
	Description string
	Action      Action
	// DependsOn are hard predecessors. Each entry is a task reference,
	// either "project:name" or a bare name resolved within Project.
	DependsOn []string
	// MustRunAfter and ShouldRunAfter only order tasks that are already part
	// of the graph; they never add tasks.
	MustRunAfter   []string
	ShouldRunAfter []string
	// Mutex names resources that must be held exclusively while running.
	Mutex   []string
	Inputs  []string
	Outputs []string
	Enabled bool
}

// New returns an enabled spec with a lifecycle action.
func New(project, name string) *Spec {
	return &Spec{
		Project: project,
		Name:    name,
		Action:  Action{Kind: "lifecycle", Args: cty.EmptyObjectVal},
		Enabled: true,
	}
}

// Ref returns the reference of this task.
func (s *Spec) Ref() Ref {
	return Ref{Project: s.Project, Name: s.Name}
}

// Resolve qualifies a reference written inside this task's declaration.
func (s *Spec) Resolve(ref string) (Ref, error) {
	if strings.Contains(ref, ":") {
		return ParseRef(ref)
	}
	if ref == "" {
		return Ref{}, fmt.Errorf("task %s: empty task reference", s.Ref())
	}
	return Ref{Project: s.Project, Name: ref}, nil
}

// Clone returns a deep copy whose slices can be modified independently.
func (s *Spec) Clone() *Spec {
	c := *s
	c.DependsOn = slices.Clone(s.DependsOn)
	c.MustRunAfter = slices.Clone(s.MustRunAfter)
	c.ShouldRunAfter = slices.Clone(s.ShouldRunAfter)
	c.Mutex = slices.Clone(s.Mutex)
	c.Inputs = slices.Clone(s.Inputs)
	c.Outputs = slices.Clone(s.Outputs)
	return &c
}
