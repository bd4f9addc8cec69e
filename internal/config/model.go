package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified representation of every loaded build file.
type Model struct {
	Projects []*Project
	Settings []*Setting
	Rules    []*RuleBlock
}

// Project groups the tasks declared under one project name.
type Project struct {
	Name string
	// Dir is the directory of the first file that declared the project.
	// Tasks carry their own directory, since a project may span files.
	Dir   string
	Tasks []*Task
	Range hcl.Range
}

// Task is the format-agnostic representation of a `task` block.
type Task struct {
	Name           string
	Description    string
	Action         string
	Args           cty.Value
	DependsOn      []string
	MustRunAfter   []string
	ShouldRunAfter []string
	Mutex          []string
	Inputs         []string
	Outputs        []string
	// Enabled is nil when the attribute was omitted.
	Enabled *bool
	// Dir is the directory of the declaring file. Relative inputs and
	// outputs resolve against it and the action runs there.
	Dir   string
	Range hcl.Range
}

// Setting is a model node holding a plain value.
type Setting struct {
	Path  string
	Value cty.Value
	Range hcl.Range
}

// RuleBlock is a declarative rule against an existing model path.
type RuleBlock struct {
	Stage  string
	Target string
	Inputs []string
	// Attributes are evaluated when the rule runs, with the rule's
	// declared inputs available as `input["<path>"]`.
	Attributes map[string]hcl.Expression
	Range      hcl.Range
}

// Merge appends every declaration of other to m. Projects with the same name
// are combined.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	for _, p := range other.Projects {
		if existing := m.Project(p.Name); existing != nil {
			existing.Tasks = append(existing.Tasks, p.Tasks...)
			continue
		}
		m.Projects = append(m.Projects, p)
	}
	m.Settings = append(m.Settings, other.Settings...)
	m.Rules = append(m.Rules, other.Rules...)
}

// Project returns the project with the given name, or nil.
func (m *Model) Project(name string) *Project {
	for _, p := range m.Projects {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// TaskCount returns the number of declared tasks across all projects.
func (m *Model) TaskCount() int {
	n := 0
	for _, p := range m.Projects {
		n += len(p.Tasks)
	}
	return n
}
