package dag

import "sort"

// DetectCycles checks the graph for cycles. The returned *CycleError carries
// the full path of one cycle.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	sccs := g.cyclicComponents()
	if len(sccs) == 0 {
		return nil
	}
	return &CycleError{Path: g.cycleWithin(sccs[0])}
}

// cyclicComponents runs Tarjan's algorithm and returns every component with
// more than one node, each sorted, ordered by first ID. Callers hold the read
// lock.
func (g *Graph) cyclicComponents() [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range sortedKeys(g.nodes[v].dependents) {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 {
				sort.Strings(scc)
				sccs = append(sccs, scc)
			}
		}
	}

	for _, id := range sortedKeys(g.nodes) {
		if _, visited := indices[id]; !visited {
			strongConnect(id)
		}
	}

	sort.Slice(sccs, func(i, j int) bool { return sccs[i][0] < sccs[j][0] })
	return sccs
}

// cycleWithin finds the shortest cycle through the first node of a strongly
// connected component, staying inside the component.
func (g *Graph) cycleWithin(scc []string) []string {
	members := make(map[string]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}
	start := scc[0]

	parent := map[string]string{}
	queue := []string{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range sortedKeys(g.nodes[v].dependents) {
			if !members[w] {
				continue
			}
			if w == start {
				path := []string{start}
				for at := v; at != start; at = parent[at] {
					path = append(path, at)
				}
				// path is start, v, ..., second; reverse the tail.
				tail := path[1:]
				for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
					tail[i], tail[j] = tail[j], tail[i]
				}
				return append(path, start)
			}
			if _, seen := parent[w]; !seen {
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	return append(scc, start)
}
