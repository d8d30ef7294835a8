package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas/pkg/models"
)

func graphFromEdges(edges map[string][]string) models.DependencyGraph {
	g := make(models.DependencyGraph, len(edges))
	for from, tos := range edges {
		g[from] = append([]string(nil), tos...)
	}
	return g
}

func TestDetectCyclesFindsSCC(t *testing.T) {
	g := graphFromEdges(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"a"},
	})

	cycles := DetectCycles(g)
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cycles[0])
}

func TestDetectCyclesMultipleDeterministic(t *testing.T) {
	g := graphFromEdges(map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"x": {"y"},
		"y": {"z"},
		"z": {"x"},
	})

	cycles := DetectCycles(g)
	require.Len(t, cycles, 2)
	// Ordered by smallest member, walked edge by edge from it.
	assert.Equal(t, []string{"a", "b"}, cycles[0])
	assert.Equal(t, []string{"x", "y", "z"}, cycles[1])
}

func TestDetectCyclesAcyclic(t *testing.T) {
	g := graphFromEdges(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {},
	})
	assert.Empty(t, DetectCycles(g))
}

func TestResolveCyclesBreaksSmallestEdgeFirst(t *testing.T) {
	g := graphFromEdges(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"a"},
	})

	resolved := ResolveCycles(g)
	assert.Empty(t, DetectCycles(resolved))
	// Walking from the smallest ID means a->b is removed first.
	assert.NotContains(t, resolved["a"], "b")
	assert.Contains(t, resolved["b"], "c")
	assert.Contains(t, resolved["c"], "a")
	assert.Contains(t, resolved["d"], "a")
}

func TestResolveCyclesTwoNodeCycleKeepsOneEdge(t *testing.T) {
	g := graphFromEdges(map[string][]string{
		"x": {"y"},
		"y": {"x"},
	})

	resolved := ResolveCycles(g)
	assert.Empty(t, DetectCycles(resolved))
	kept := len(resolved["x"]) + len(resolved["y"])
	assert.Equal(t, 1, kept)
}

func TestResolveCyclesAcyclicUnchanged(t *testing.T) {
	g := graphFromEdges(map[string][]string{
		"a": {"b"},
		"b": {},
	})
	resolved := ResolveCycles(g)
	assert.Equal(t, g, resolved)
}

func TestTopologicalSortDependenciesFirst(t *testing.T) {
	g := graphFromEdges(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {},
		"d": {"c"},
	})

	order := TopologicalSort(g)
	require.Len(t, order, 4)

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	// An edge from -> to means the dependency comes earlier.
	assert.Less(t, pos["c"], pos["b"])
	assert.Less(t, pos["b"], pos["a"])
	assert.Less(t, pos["c"], pos["d"])
}

func TestTopologicalSortAfterCycleBreak(t *testing.T) {
	g := graphFromEdges(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"a"},
	})

	resolved := ResolveCycles(g)
	order := TopologicalSort(resolved)
	require.Len(t, order, 4)

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for from, deps := range resolved {
		for _, to := range deps {
			assert.Less(t, pos[to], pos[from], "%s should come after its dependency %s", from, to)
		}
	}
}

func TestDependencyFirstOrderDepsBeforeDependents(t *testing.T) {
	g := graphFromEdges(map[string][]string{
		"a": {"b", "c"},
		"b": {"c"},
		"c": {},
		"d": {"c"},
	})

	order := DependencyFirstOrder(g)
	require.Len(t, order, 4)

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for from, deps := range g {
		for _, to := range deps {
			assert.Less(t, pos[to], pos[from], "%s should come after its dependency %s", from, to)
		}
	}
	// Roots are expanded in sorted order, dependencies first.
	assert.Equal(t, []string{"c", "b", "a", "d"}, order)
}

func TestDependencyFirstOrderCoversCyclicGraph(t *testing.T) {
	g := graphFromEdges(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"a"},
	})

	order := DependencyFirstOrder(g)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, order)

	resolved := ResolveCycles(g)
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for from, deps := range resolved {
		for _, to := range deps {
			assert.Less(t, pos[to], pos[from])
		}
	}
}

func TestLeafComponentsKeepsAllBelowThreshold(t *testing.T) {
	components := map[string]*models.Component{
		"pkg.Base":   {ID: "pkg.Base", Name: "Base", Type: models.TypeClass, RelativePath: "pkg.py"},
		"pkg.Child":  {ID: "pkg.Child", Name: "Child", Type: models.TypeClass, RelativePath: "pkg.py", DependsOn: []string{"pkg.Base"}},
		"pkg.Lonely": {ID: "pkg.Lonely", Name: "Lonely", Type: models.TypeClass, RelativePath: "pkg.py"},
	}
	g := models.BuildDependencyGraph(components)

	leaves := LeafComponents(g, components)
	assert.ElementsMatch(t, []string{"pkg.Base", "pkg.Child", "pkg.Lonely"}, leaves)
}

func TestLeafComponentsPrunesLargeRepository(t *testing.T) {
	components := make(map[string]*models.Component, leafPruneThreshold+1)
	for i := 0; i < leafPruneThreshold; i++ {
		id := fmt.Sprintf("pkg.Class%03d", i)
		c := &models.Component{ID: id, Name: fmt.Sprintf("Class%03d", i), Type: models.TypeClass, RelativePath: "pkg.py"}
		if i > 0 {
			// Everything except Class000 depends on the shared base.
			c.DependsOn = []string{"pkg.Class000"}
		}
		components[id] = c
	}
	g := models.BuildDependencyGraph(components)

	leaves := LeafComponents(g, components)
	assert.NotContains(t, leaves, "pkg.Class000")
	assert.Len(t, leaves, leafPruneThreshold-1)
}

func TestLeafComponentsGoSkipsPrune(t *testing.T) {
	components := make(map[string]*models.Component, leafPruneThreshold+1)
	for i := 0; i < leafPruneThreshold; i++ {
		id := fmt.Sprintf("pkg.Func%03d", i)
		c := &models.Component{ID: id, Name: fmt.Sprintf("Func%03d", i), Type: models.TypeFunction, RelativePath: "pkg.go"}
		if i > 0 {
			c.DependsOn = []string{"pkg.Func000"}
		}
		components[id] = c
	}
	g := models.BuildDependencyGraph(components)

	leaves := LeafComponents(g, components)
	assert.Contains(t, leaves, "pkg.Func000")
	assert.Len(t, leaves, leafPruneThreshold)
}

func TestLeafComponentsFiltersTypes(t *testing.T) {
	components := map[string]*models.Component{
		"pkg.Thing": {ID: "pkg.Thing", Name: "Thing", Type: models.TypeClass, RelativePath: "pkg.py"},
		"pkg.v":     {ID: "pkg.v", Name: "v", Type: models.TypeVariable, RelativePath: "pkg.py"},
	}
	g := models.BuildDependencyGraph(components)

	leaves := LeafComponents(g, components)
	assert.Equal(t, []string{"pkg.Thing"}, leaves)
}

func TestLeafComponentsGoKeepsFunctions(t *testing.T) {
	components := map[string]*models.Component{
		"pkg.Run":  {ID: "pkg.Run", Name: "Run", Type: models.TypeFunction, RelativePath: "pkg.go"},
		"pkg.Type": {ID: "pkg.Type", Name: "Type", Type: models.TypeStruct, RelativePath: "pkg.go"},
	}
	g := models.BuildDependencyGraph(components)

	leaves := LeafComponents(g, components)
	assert.ElementsMatch(t, []string{"pkg.Run", "pkg.Type"}, leaves)
}
