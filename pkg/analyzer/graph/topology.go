// Package graph builds the dependency graph over a component set, detects
// and breaks cycles, produces topological orders, identifies leaves, and
// computes graph metrics.
package graph

import (
	"log/slog"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/topo"

	"github.com/codeatlas/atlas/pkg/models"
)

// DetectCycles finds all strongly connected components of size > 1 using
// Tarjan's algorithm. Each cycle is returned in traversal order (consecutive
// entries are connected by edges) starting from its smallest ID, and cycles
// are sorted by that starting ID, so results are deterministic.
func DetectCycles(g models.DependencyGraph) [][]string {
	gg := toGonum(g)

	var cycles [][]string
	for _, scc := range topo.TarjanSCC(gg.directed) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, 0, len(scc))
		for _, n := range scc {
			ids = append(ids, gg.toStr[n.ID()])
		}
		cycles = append(cycles, orderCycle(ids, g))
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles
}

// orderCycle arranges an SCC so consecutive entries are connected by edges:
// start from the smallest ID and follow the smallest unvisited successor
// inside the SCC. Falls back to sorted order if the walk gets stuck.
func orderCycle(scc []string, g models.DependencyGraph) []string {
	member := make(map[string]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}

	start := scc[0]
	for _, n := range scc[1:] {
		if n < start {
			start = n
		}
	}

	ordered := []string{start}
	visited := map[string]bool{start: true}
	current := start

	for len(ordered) < len(scc) {
		next := ""
		for _, succ := range g[current] {
			if member[succ] && !visited[succ] {
				next = succ
				break
			}
		}
		if next == "" {
			// No edge to an unvisited member; append the rest sorted.
			var rest []string
			for _, n := range scc {
				if !visited[n] {
					rest = append(rest, n)
				}
			}
			sort.Strings(rest)
			return append(ordered, rest...)
		}
		ordered = append(ordered, next)
		visited[next] = true
		current = next
	}
	return ordered
}

// maxCycleBreakPasses bounds the detect-and-break loop. Each pass removes at
// least one edge per remaining cycle, so the bound is never reached on sane
// input; hitting it is degraded to a warning rather than a crash.
const maxCycleBreakPasses = 10000

// ResolveCycles produces an acyclic copy of the graph by removing, for each
// detected cycle, the edge from the first to the second node in traversal
// order. This is a deterministic tie-break, not a minimum cut. Passes repeat
// until no SCC of size > 1 remains, since one removal per SCC may leave
// smaller cycles inside it. An already-acyclic graph is returned unchanged.
func ResolveCycles(g models.DependencyGraph) models.DependencyGraph {
	cycles := DetectCycles(g)
	if len(cycles) == 0 {
		return g
	}

	acyclic := g.Clone()
	for pass := 0; pass < maxCycleBreakPasses; pass++ {
		removed := false
		for _, cycle := range cycles {
			for i := 0; i+1 < len(cycle); i++ {
				if containsEdge(acyclic, cycle[i], cycle[i+1]) {
					slog.Debug("breaking cycle",
						"cycle", strings.Join(cycle, " -> "),
						"removed", cycle[i]+" -> "+cycle[i+1])
					acyclic.RemoveEdge(cycle[i], cycle[i+1])
					removed = true
					break
				}
			}
		}

		cycles = DetectCycles(acyclic)
		if len(cycles) == 0 {
			return acyclic
		}
		if !removed {
			break
		}
	}

	slog.Warn("cycle resolution did not converge, returning partially resolved graph",
		"remaining_cycles", len(cycles))
	return acyclic
}

func containsEdge(g models.DependencyGraph, from, to string) bool {
	for _, d := range g[from] {
		if d == to {
			return true
		}
	}
	return false
}

// TopologicalSort runs Kahn's algorithm over the cycle-resolved graph and
// returns nodes with dependencies before dependents. If residual nodes remain
// unsorted on a graph that should be acyclic, that indicates a resolver bug:
// the full node set is returned in sorted order with a warning, never a
// partial list.
func TopologicalSort(g models.DependencyGraph) []string {
	acyclic := ResolveCycles(g)

	// in-degree counted over reversed edges: how many nodes depend on each.
	inDegree := make(map[string]int, len(acyclic))
	for node := range acyclic {
		inDegree[node] = 0
	}
	for _, deps := range acyclic {
		for _, dep := range deps {
			if _, ok := inDegree[dep]; ok {
				inDegree[dep]++
			}
		}
	}

	var queue []string
	for _, node := range acyclic.Nodes() {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(acyclic))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dep := range acyclic[node] {
			if _, ok := inDegree[dep]; !ok {
				continue
			}
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(result) != len(acyclic) {
		slog.Warn("topological sort left residual nodes, returning full node set",
			"sorted", len(result), "total", len(acyclic))
		return acyclic.Nodes()
	}

	// Reverse so dependencies come first.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// DependencyFirstOrder returns a depth-first post-order over the
// cycle-resolved graph: every component appears after everything it depends
// on. Traversal starts from the roots (components nothing depends on) and
// expands dependencies in sorted order; nodes unreachable from any root are
// appended by a final sweep, so the result always covers the full node set.
func DependencyFirstOrder(g models.DependencyGraph) []string {
	acyclic := ResolveCycles(g)

	dependedOn := make(map[string]bool, len(acyclic))
	for _, deps := range acyclic {
		for _, dep := range deps {
			dependedOn[dep] = true
		}
	}

	var roots []string
	for _, node := range acyclic.Nodes() {
		if !dependedOn[node] {
			roots = append(roots, node)
		}
	}
	if len(roots) == 0 && len(acyclic) > 0 {
		slog.Warn("no root components found, starting from the full node set")
		roots = acyclic.Nodes()
	}

	visited := make(map[string]bool, len(acyclic))
	result := make([]string, 0, len(acyclic))

	var visit func(node string)
	visit = func(node string) {
		if visited[node] {
			return
		}
		visited[node] = true

		deps := append([]string(nil), acyclic[node]...)
		sort.Strings(deps)
		for _, dep := range deps {
			if _, ok := acyclic[dep]; ok {
				visit(dep)
			}
		}
		result = append(result, node)
	}

	for _, root := range roots {
		visit(root)
	}
	for _, node := range acyclic.Nodes() {
		if !visited[node] {
			visit(node)
		}
	}
	return result
}

// leafPruneThreshold is the candidate count above which only components that
// nothing else depends on are kept, to bound downstream fan-out on large
// non-Go repositories.
const leafPruneThreshold = 400

// LeafComponents returns the entry-point candidates of the cycle-resolved
// graph: every component of a language-appropriate leaf type. When a non-Go
// repository yields leafPruneThreshold or more candidates, the set is pruned
// to components no other component depends on. Go repositories skip the prune
// to preserve function coverage.
func LeafComponents(g models.DependencyGraph, components map[string]*models.Component) []string {
	acyclic := ResolveCycles(g)

	hasGo := hasGoComponents(components)
	valid := validLeafTypes(components, hasGo)

	filter := func(nodes []string) []string {
		var kept []string
		for _, node := range nodes {
			if c, ok := components[node]; ok && valid[c.Type] {
				kept = append(kept, node)
			}
		}
		return kept
	}

	leaves := filter(acyclic.Nodes())
	if len(leaves) >= leafPruneThreshold && !hasGo {
		slog.Warn("large repository, pruning components that others depend on",
			"candidates", len(leaves))
		dependedOn := make(map[string]bool, len(acyclic))
		for _, deps := range acyclic {
			for _, dep := range deps {
				dependedOn[dep] = true
			}
		}
		var strict []string
		for _, node := range acyclic.Nodes() {
			if !dependedOn[node] {
				strict = append(strict, node)
			}
		}
		leaves = filter(strict)
	}

	return leaves
}

// validLeafTypes returns the leaf-type filter: class-like types generally,
// with function/method retained for Go and for repositories that define no
// class-like components at all.
func validLeafTypes(components map[string]*models.Component, hasGo bool) map[models.ComponentType]bool {
	valid := map[models.ComponentType]bool{
		models.TypeClass:     true,
		models.TypeInterface: true,
		models.TypeStruct:    true,
	}

	if hasGo {
		valid[models.TypeFunction] = true
		valid[models.TypeMethod] = true
		return valid
	}

	hasClassLike := false
	for _, c := range components {
		if valid[c.Type] {
			hasClassLike = true
			break
		}
	}
	if !hasClassLike {
		valid[models.TypeFunction] = true
	}
	return valid
}

func hasGoComponents(components map[string]*models.Component) bool {
	for _, c := range components {
		path := c.RelativePath
		if path == "" {
			path = c.FilePath
		}
		if strings.HasSuffix(strings.ToLower(path), ".go") {
			return true
		}
	}
	return false
}
