package taskmanager

import (
	"fmt"
	"sort"
)

// DAG represents a directed acyclic graph of nodes and edges. Nodes remember
// the order they were added in so that sorting is deterministic.
type DAG struct {
	nodes    map[string]int      // node -> insertion index
	edges    map[string][]string // node -> list of nodes it depends on
	inDegree map[string]int      // node -> number of incoming edges
}

// NewDAG creates a new empty DAG.
func NewDAG() *DAG {
	return &DAG{
		nodes:    make(map[string]int),
		edges:    make(map[string][]string),
		inDegree: make(map[string]int),
	}
}

// AddNode adds a node to the DAG.
func (d *DAG) AddNode(id string) {
	if _, ok := d.nodes[id]; !ok {
		d.nodes[id] = len(d.nodes)
		d.inDegree[id] = 0
	}
}

// AddEdge adds a dependency edge from 'from' to 'to' (from depends on to).
func (d *DAG) AddEdge(from, to string) {
	d.AddNode(from)
	d.AddNode(to)

	d.edges[from] = append(d.edges[from], to)
	d.inDegree[from]++
}

// TopologicalSort performs a topological sort and returns the nodes in execution order.
// When several nodes are ready at once the earliest added runs first.
// Returns an error if a cycle is detected.
func (d *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.inDegree))
	for node, degree := range d.inDegree {
		inDegree[node] = degree
	}
	dependents := d.dependents()

	var ready []string
	for node, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, node)
		}
	}

	result := make([]string, 0, len(d.nodes))
	for len(ready) > 0 {
		d.sortByInsertion(ready)
		current := ready[0]
		ready = ready[1:]
		result = append(result, current)

		for _, node := range dependents[current] {
			inDegree[node]--
			if inDegree[node] == 0 {
				ready = append(ready, node)
			}
		}
	}

	if len(result) != len(d.nodes) {
		return nil, fmt.Errorf("circular dependency detected in DAG")
	}

	return result, nil
}

// Levels groups nodes so that every node's dependencies live in an earlier
// group. Nodes inside a group are independent of each other.
func (d *DAG) Levels() ([][]string, error) {
	inDegree := make(map[string]int, len(d.inDegree))
	for node, degree := range d.inDegree {
		inDegree[node] = degree
	}
	dependents := d.dependents()

	var current []string
	for node, degree := range inDegree {
		if degree == 0 {
			current = append(current, node)
		}
	}

	var levels [][]string
	seen := 0
	for len(current) > 0 {
		d.sortByInsertion(current)
		levels = append(levels, current)
		seen += len(current)

		var next []string
		for _, node := range current {
			for _, dep := range dependents[node] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}

	if seen != len(d.nodes) {
		return nil, fmt.Errorf("circular dependency detected in DAG")
	}

	return levels, nil
}

// dependents inverts the edge map: node -> nodes that depend on it. Duplicate
// edges are kept so in-degree bookkeeping stays balanced.
func (d *DAG) dependents() map[string][]string {
	out := make(map[string][]string, len(d.nodes))
	for node, deps := range d.edges {
		for _, dep := range deps {
			out[dep] = append(out[dep], node)
		}
	}
	return out
}

func (d *DAG) sortByInsertion(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return d.nodes[ids[i]] < d.nodes[ids[j]] })
}
