package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/bindgen/internal/ir"
)

// CycleWarning reports a reference cycle between declarations.
//
// Cycles are informational: a struct holding a pointer to a handle whose
// release method takes the struct is legal metadata, and the resolver
// terminates on them through its visited set.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["Ns.A", "Ns.B", "Ns.A"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // always "info"
}

// AnalyzeCycles finds reference cycles in a declaration set.
//
// The algorithm:
//  1. Build the name -> refs graph (edges to undeclared names are dropped)
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop
//
// Warnings are ordered by the smallest name in each cycle. An acyclic set
// returns an empty list.
func AnalyzeCycles(decls []ir.Declaration) []CycleWarning {
	if len(decls) == 0 {
		return []CycleWarning{}
	}

	graph := buildDependencyGraph(decls)
	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Path[0] < warnings[j].Path[0]
	})
	return warnings
}

// dependencyGraph maps a declaration name to the names it references.
type dependencyGraph map[string][]string

func buildDependencyGraph(decls []ir.Declaration) dependencyGraph {
	graph := make(dependencyGraph, len(decls))
	for _, d := range decls {
		graph[d.Name] = []string{}
	}
	for _, d := range decls {
		for _, ref := range d.Refs {
			if _, ok := graph[ref]; ok {
				graph[d.Name] = append(graph[d.Name], ref)
			}
		}
		sort.Strings(graph[d.Name])
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are deterministic.
func tarjanSCC(graph dependencyGraph) [][]string {
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

		for _, w := range graph[v] {
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
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning whose path starts at
// the smallest name in the component.
func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	sorted := append([]string(nil), scc...)
	sort.Strings(sorted)

	if len(sorted) == 1 {
		name := sorted[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-referencing declaration: %s → %s", name, name),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(sorted, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Reference cycle: %s", strings.Join(path, " → ")),
		Level:   "info",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
