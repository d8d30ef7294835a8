package models

import "sort"

// DependencyGraph is the derived adjacency structure over a component set:
// component ID to the set of IDs it depends on, restricted to IDs that exist
// in the set. Dangling references are dropped here, not earlier, so they stay
// visible in CallRelationship for diagnostics.
type DependencyGraph map[string][]string

// BuildDependencyGraph derives the adjacency structure from a component set.
// Edges to IDs absent from the set are dropped.
func BuildDependencyGraph(components map[string]*Component) DependencyGraph {
	g := make(DependencyGraph, len(components))
	for id, c := range components {
		deps := make([]string, 0, len(c.DependsOn))
		for _, d := range c.DependsOn {
			if _, ok := components[d]; ok {
				deps = append(deps, d)
			}
		}
		sort.Strings(deps)
		g[id] = deps
	}
	return g
}

// Nodes returns the graph's node IDs in sorted order.
func (g DependencyGraph) Nodes() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EdgeCount returns the total number of edges.
func (g DependencyGraph) EdgeCount() int {
	n := 0
	for _, deps := range g {
		n += len(deps)
	}
	return n
}

// Reverse returns the reversed adjacency: for each node, the set of nodes
// that depend on it.
func (g DependencyGraph) Reverse() DependencyGraph {
	r := make(DependencyGraph, len(g))
	for id := range g {
		r[id] = nil
	}
	for id, deps := range g {
		for _, d := range deps {
			r[d] = append(r[d], id)
		}
	}
	for id := range r {
		sort.Strings(r[id])
	}
	return r
}

// Clone returns a deep copy of the graph.
func (g DependencyGraph) Clone() DependencyGraph {
	c := make(DependencyGraph, len(g))
	for id, deps := range g {
		c[id] = append([]string(nil), deps...)
	}
	return c
}

// RemoveEdge deletes the from → to edge if present.
func (g DependencyGraph) RemoveEdge(from, to string) {
	deps := g[from]
	for i, d := range deps {
		if d == to {
			g[from] = append(deps[:i:i], deps[i+1:]...)
			return
		}
	}
}

// ToMermaid renders the graph as Mermaid diagram syntax.
func (g DependencyGraph) ToMermaid() string {
	result := "graph TD\n"
	for _, id := range g.Nodes() {
		result += "    " + sanitizeMermaidID(id) + "[\"" + id + "\"]\n"
	}
	for _, id := range g.Nodes() {
		for _, dep := range g[id] {
			result += "    " + sanitizeMermaidID(id) + " --> " + sanitizeMermaidID(dep) + "\n"
		}
	}
	return result
}

// sanitizeMermaidID makes an ID safe for Mermaid.
func sanitizeMermaidID(id string) string {
	out := make([]byte, 0, len(id))
	for _, c := range id {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			out = append(out, byte(c))
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
