// Package graph implements the dependency graph and Kahn's-algorithm batch
// planner (C8): expression sites are topologically ordered into batches
// whose members share no intra-batch dependency, so a batch's sites may be
// evaluated in any order — or in parallel — once every earlier batch has
// completed.
package graph

import "fmt"

// Graph is a directed dependency graph over site keys (an expression
// site's schema path, by convention). An edge from A to B means B depends
// on A: A must be evaluated first because B's read-set intersects A's
// target-data-path.
type Graph struct {
	nodes []string
	// dependents[a] lists every node whose read-set depends on a's output.
	dependents map[string][]string
	// present tracks declared nodes so a repeated AddNode is a no-op.
	present map[string]bool
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		dependents: make(map[string][]string),
		present:    make(map[string]bool),
	}
}

// AddNode declares a site. Declaring the same node twice is a no-op;
// insertion order is preserved for the stable batch tie-break.
func (g *Graph) AddNode(node string) {
	if g.present[node] {
		return
	}
	g.present[node] = true
	g.nodes = append(g.nodes, node)
}

// AddEdge records that "to" depends on "from": from must be evaluated
// before to. Both nodes must already be declared via AddNode.
func (g *Graph) AddEdge(from, to string) {
	g.dependents[from] = append(g.dependents[from], to)
}

// CycleError reports the nodes that remain unresolved after Kahn's
// algorithm terminates early — every node on a cycle plus every node that
// depends, directly or transitively, on one — at path-list granularity so
// schema authors can locate the offending expressions.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle through %v", e.Nodes)
}

// Plan runs Kahn's algorithm: batch 0 is every node with no unresolved
// predecessor; each batch removes its members' out-edges and repeats.
// Ties within a batch preserve declaration order. Any node remaining once
// no further batch can be formed indicates a cycle.
func (g *Graph) Plan() ([][]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		indegree[n] = 0
	}
	for _, tos := range g.dependents {
		for _, to := range tos {
			indegree[to]++
		}
	}

	remaining := len(g.nodes)
	var batches [][]string
	resolved := make(map[string]bool, len(g.nodes))

	for remaining > 0 {
		var batch []string
		for _, n := range g.nodes {
			if resolved[n] {
				continue
			}
			if indegree[n] == 0 {
				batch = append(batch, n)
			}
		}
		if len(batch) == 0 {
			var leftover []string
			for _, n := range g.nodes {
				if !resolved[n] {
					leftover = append(leftover, n)
				}
			}
			return nil, &CycleError{Nodes: leftover}
		}
		for _, n := range batch {
			resolved[n] = true
			remaining--
		}
		for _, n := range batch {
			for _, to := range g.dependents[n] {
				indegree[to]--
			}
		}
		batches = append(batches, batch)
	}
	return batches, nil
}
