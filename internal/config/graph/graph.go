/*
Copyright 2026 The Lifecycle Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package graph implements the dependency graph build and topological sort
// used by the config resolver (§4.3 step 6): nodes are service names,
// edges are env-template references plus declared deploymentDependsOn.
package graph

import (
	"fmt"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
)

// edge records one dependency of a node on another. hard marks an edge
// that came from a declared deploymentDependsOn, as opposed to an
// env-template reference (`{{name_publicUrl}}`/`{{name_internalHostname}}`).
// Only hard edges make a cycle fatal (§4.3 step 6).
type edge struct {
	to   string
	hard bool
}

// Graph is an adjacency-list dependency graph over service names, built in
// declaration order so ties in the topological sort resolve predictably.
type Graph struct {
	order []string
	edges map[string][]edge
	seen  map[string]map[string]int // from -> to -> index into edges[from]
}

// New builds an empty graph whose nodes will be added in the order given
// by AddNode, establishing the tie-break order for Toposort.
func New() *Graph {
	return &Graph{
		edges: map[string][]edge{},
		seen:  map[string]map[string]int{},
	}
}

// AddNode registers a service name as a graph node if not already present.
func (g *Graph) AddNode(name string) {
	if _, ok := g.edges[name]; ok {
		return
	}
	g.order = append(g.order, name)
	g.edges[name] = nil
	g.seen[name] = map[string]int{}
}

// AddEdge records that `from` depends on `to` (i.e. `to` must be ordered
// before `from`). hard marks a declared deploymentDependsOn edge, as
// opposed to an env-template reference; cycle detection walks every edge,
// but only a cycle containing a hard edge is fatal (§4.3 step 6).
// Duplicate edges are merged, and an edge seen once as hard stays hard
// even if re-added as soft. A node not yet added is added via AddNode.
func (g *Graph) AddEdge(from, to string, hard bool) {
	g.AddNode(from)
	g.AddNode(to)
	if idx, ok := g.seen[from][to]; ok {
		if hard {
			g.edges[from][idx].hard = true
		}
		return
	}
	g.edges[from] = append(g.edges[from], edge{to: to, hard: hard})
	g.seen[from][to] = len(g.edges[from]) - 1
}

// Toposort returns nodes ordered so that every node appears after all
// nodes it depends on, using Kahn's algorithm with ties broken by
// declaration order (§4.3). A cycle made up entirely of env-reference
// edges is permitted and still produces an order (declaration order
// breaks the tie among its members); a cycle containing at least one
// deploymentDependsOn edge returns a *lifecycleerrors.DependencyCycleError
// naming it.
func (g *Graph) Toposort() ([]string, error) {
	if cyc, fatal := findCycle(g); fatal {
		return nil, lifecycleerrors.NewDependencyCycleError(cyc)
	}

	fullIn := make(map[string]int, len(g.order))
	hardIn := make(map[string]int, len(g.order))
	fullDependents := make(map[string][]string, len(g.order))
	hardDependents := make(map[string][]string, len(g.order))
	for _, n := range g.order {
		for _, e := range g.edges[n] {
			fullIn[n]++
			fullDependents[e.to] = append(fullDependents[e.to], n)
			if e.hard {
				hardIn[n]++
				hardDependents[e.to] = append(hardDependents[e.to], n)
			}
		}
	}

	remaining := make(map[string]bool, len(g.order))
	for _, n := range g.order {
		remaining[n] = true
	}

	out := make([]string, 0, len(g.order))
	for len(remaining) > 0 {
		next := pickReady(g.order, remaining, fullIn)
		if next == "" {
			// Every remaining node is blocked by a still-outstanding
			// env-reference edge (an env-only cycle): fall back to the
			// hard subgraph, which findCycle above already proved free of
			// any hard-edge cycle, so some remaining node must be
			// hard-ready.
			next = pickReady(g.order, remaining, hardIn)
		}
		if next == "" {
			return nil, lifecycleerrors.NewDependencyCycleError([]string{"<unknown>"})
		}

		out = append(out, next)
		delete(remaining, next)
		for _, dependent := range fullDependents[next] {
			fullIn[dependent]--
		}
		for _, dependent := range hardDependents[next] {
			hardIn[dependent]--
		}
	}
	return out, nil
}

// pickReady returns the first not-yet-placed node (in declaration order)
// whose in-degree has been fully satisfied.
func pickReady(order []string, remaining map[string]bool, in map[string]int) string {
	for _, n := range order {
		if remaining[n] && in[n] <= 0 {
			return n
		}
	}
	return ""
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

// findCycle walks every edge (hard and soft) looking for a cycle, via
// plain DFS colour-marking, same as a standard cycle check. A cycle made
// up entirely of env-reference edges is not fatal and DFS simply keeps
// exploring past it; the first cycle found that contains at least one
// deploymentDependsOn edge short-circuits the search and is returned with
// fatal=true.
func findCycle(g *Graph) (cycle []string, fatal bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var path []string

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		path = append(path, n)
		for _, e := range g.edges[n] {
			switch color[e.to] {
			case white:
				if visit(e.to) {
					return true
				}
			case gray:
				start := indexOf(path, e.to)
				candidate := append([]string{}, path[start:]...)
				if cycleHasHardEdge(g, candidate) {
					cycle = candidate
					fatal = true
					return true
				}
				// pure env-reference cycle: not fatal, keep searching the
				// rest of n's edges and the rest of the graph.
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return false
	}

	for _, n := range g.order {
		if color[n] == white {
			if visit(n) {
				break
			}
		}
	}
	return cycle, fatal
}

// cycleHasHardEdge reports whether the cycle (given as a node sequence
// that wraps back to its first element) contains a deploymentDependsOn
// edge.
func cycleHasHardEdge(g *Graph, cycle []string) bool {
	for i, n := range cycle {
		next := cycle[(i+1)%len(cycle)]
		for _, e := range g.edges[n] {
			if e.to == next && e.hard {
				return true
			}
		}
	}
	return false
}

// String renders a DOT representation of the graph (§4.3 optional output).
// Env-reference edges are dashed to distinguish them from deploymentDependsOn.
func (g *Graph) String() string {
	out := "digraph deps {\n"
	for _, n := range g.order {
		for _, e := range g.edges[n] {
			if e.hard {
				out += fmt.Sprintf("  %q -> %q;\n", e.to, n)
			} else {
				out += fmt.Sprintf("  %q -> %q [style=dashed];\n", e.to, n)
			}
		}
	}
	out += "}\n"
	return out
}
