package builder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/dag"
	"github.com/specialistvlad/buildgrid/internal/node"
)

// Graph is the validated task graph of one build invocation.
type Graph struct {
	// Requested holds the entry task ids in request order.
	Requested []string

	nodes map[string]*node.TaskNode
	// strict holds hard and ordering edges; it is acyclic once built.
	strict *dag.Graph
}

func newGraph() *Graph {
	return &Graph{
		nodes:  make(map[string]*node.TaskNode),
		strict: dag.New(),
	}
}

// NewGraph assembles a graph from prepared nodes. Edges come from each
// node's Deps and Ordering lists, which must reference nodes in the set.
func NewGraph(nodes []*node.TaskNode, requested ...string) (*Graph, error) {
	g := newGraph()
	g.Requested = requested
	for _, n := range nodes {
		g.add(n)
	}
	for _, n := range nodes {
		for _, p := range append(append([]string(nil), n.Deps...), n.Ordering...) {
			if err := g.strict.AddEdge(p, n.ID); err != nil {
				return nil, err
			}
		}
	}
	if err := g.strict.DetectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) add(n *node.TaskNode) {
	g.nodes[n.ID] = n
	g.strict.AddNode(n.ID)
}

// Len returns the number of task nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*node.TaskNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node sorted by id.
func (g *Graph) Nodes() []*node.TaskNode {
	out := make([]*node.TaskNode, 0, len(g.nodes))
	for _, id := range g.ids() {
		out = append(out, g.nodes[id])
	}
	return out
}

// Order returns a topological order of the node ids that honors both hard
// and ordering edges.
func (g *Graph) Order() []string {
	order, err := g.strict.TopologicalOrder()
	if err != nil {
		// Unreachable: the graph was validated when built.
		panic(err)
	}
	return order
}

func (g *Graph) ids() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DOT exports the graph as Graphviz DOT text. Hard dependencies are solid
// edges, ordering constraints are dashed, requested tasks are bold.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph buildgrid {\n")
	b.WriteString("  rankdir=LR;\n")

	requested := make(map[string]bool, len(g.Requested))
	for _, id := range g.Requested {
		requested[id] = true
	}

	ids := g.ids()
	aliases := make(map[string]string, len(ids))
	for i, id := range ids {
		alias := fmt.Sprintf("n%d", i)
		aliases[id] = alias
		n := g.nodes[id]
		label := escapeDOT(id)
		if n.Spec != nil && n.Spec.Action.Kind != "" {
			label += "\\n(" + escapeDOT(n.Spec.Action.Kind) + ")"
		}
		attrs := fmt.Sprintf("label=\"%s\"", label)
		if requested[id] {
			attrs += ", style=bold"
		}
		if !n.Enabled() {
			attrs += ", color=gray"
		}
		b.WriteString(fmt.Sprintf("  %s [%s];\n", alias, attrs))
	}
	for _, id := range ids {
		n := g.nodes[id]
		for _, dep := range n.Deps {
			b.WriteString(fmt.Sprintf("  %s -> %s;\n", aliases[dep], aliases[id]))
		}
		for _, after := range n.Ordering {
			b.WriteString(fmt.Sprintf("  %s -> %s [style=dashed];\n", aliases[after], aliases[id]))
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
