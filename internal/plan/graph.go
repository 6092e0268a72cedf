package plan

import (
	"sort"
)

// graph is a directed dependency graph over resource ids. An edge from a to
// b means b depends on a (a must complete first).
type graph struct {
	nodes map[string]bool
	// dependents[a] lists nodes that depend on a.
	dependents map[string][]string
	indegree   map[string]int
}

func newGraph() *graph {
	return &graph{
		nodes:      make(map[string]bool),
		dependents: make(map[string][]string),
		indegree:   make(map[string]int),
	}
}

func (g *graph) addNode(id string) {
	if !g.nodes[id] {
		g.nodes[id] = true
		g.indegree[id] = 0
	}
}

// addEdge records that dependent requires dep to complete first.
// Both nodes must already exist; unknown endpoints are ignored so callers
// can declare edges against entities that produced no step.
func (g *graph) addEdge(dep, dependent string) {
	if !g.nodes[dep] || !g.nodes[dependent] || dep == dependent {
		return
	}
	g.dependents[dep] = append(g.dependents[dep], dependent)
	g.indegree[dependent]++
}

// topoSort returns all nodes in dependency order, ties broken by ascending
// resource id. The second return lists the members of a cycle when one
// exists, in sorted order.
func (g *graph) topoSort() ([]string, []string) {
	indegree := make(map[string]int, len(g.indegree))
	for id, d := range g.indegree {
		indegree[id] = d
	}

	var ready []string
	for id := range g.nodes {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := false
		for _, dep := range g.dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}

	var cycle []string
	for id := range g.nodes {
		if indegree[id] > 0 {
			cycle = append(cycle, id)
		}
	}
	sort.Strings(cycle)
	return nil, cycle
}

// predecessors returns the direct dependencies of a node, sorted.
func (g *graph) predecessors(id string) []string {
	var preds []string
	for dep, list := range g.dependents {
		for _, d := range list {
			if d == id {
				preds = append(preds, dep)
				break
			}
		}
	}
	sort.Strings(preds)
	return preds
}
