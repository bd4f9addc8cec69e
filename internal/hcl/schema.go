package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block of a build file.
type fileRoot struct {
	Projects []*projectBlock `hcl:"project,block"`
	Settings []*settingBlock `hcl:"setting,block"`
	Rules    []*ruleBlock    `hcl:"rule,block"`
}

type projectBlock struct {
	Name      string       `hcl:"name,label"`
	Tasks     []*taskBlock `hcl:"task,block"`
	DeclRange hcl.Range    `hcl:",def_range"`
}

type taskBlock struct {
	Name           string         `hcl:"name,label"`
	Description    *string        `hcl:"description,optional"`
	Action         *string        `hcl:"action,optional"`
	Args           hcl.Expression `hcl:"args,optional"`
	DependsOn      []string       `hcl:"depends_on,optional"`
	MustRunAfter   []string       `hcl:"must_run_after,optional"`
	ShouldRunAfter []string       `hcl:"should_run_after,optional"`
	Mutex          []string       `hcl:"mutex,optional"`
	Inputs         []string       `hcl:"inputs,optional"`
	Outputs        []string       `hcl:"outputs,optional"`
	Enabled        *bool          `hcl:"enabled,optional"`
	DeclRange      hcl.Range      `hcl:",def_range"`
}

type settingBlock struct {
	Path      string         `hcl:"path,label"`
	Value     hcl.Expression `hcl:"value"`
	DeclRange hcl.Range      `hcl:",def_range"`
}

type ruleBlock struct {
	Stage     string    `hcl:"stage,label"`
	Target    string    `hcl:"target,label"`
	Inputs    []string  `hcl:"inputs,optional"`
	Remain    hcl.Body  `hcl:",remain"`
	DeclRange hcl.Range `hcl:",def_range"`
}
