package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas/pkg/models"
)

func metricComponents() map[string]*models.Component {
	// core is depended on by everything; util depends on core; a, b, c form
	// the consuming edge of the graph.
	mk := func(id, name string, deps ...string) *models.Component {
		c := models.NewComponent(id, name, models.TypeFunction)
		c.RelativePath = "pkg.py"
		c.DependsOn = deps
		return c
	}
	return map[string]*models.Component{
		"pkg.core": mk("pkg.core", "core"),
		"pkg.util": mk("pkg.util", "util", "pkg.core"),
		"pkg.a":    mk("pkg.a", "a", "pkg.core", "pkg.util"),
		"pkg.b":    mk("pkg.b", "b", "pkg.core"),
		"pkg.c":    mk("pkg.c", "c", "pkg.core"),
	}
}

func TestAnnotateDegreesAndInstability(t *testing.T) {
	components := metricComponents()
	New().Annotate(components)

	core := components["pkg.core"]
	assert.Equal(t, 4, core.Metrics.FanIn)
	assert.Equal(t, 0, core.Metrics.FanOut)
	assert.Equal(t, 0.0, core.Metrics.Instability)

	a := components["pkg.a"]
	assert.Equal(t, 0, a.Metrics.FanIn)
	assert.Equal(t, 2, a.Metrics.FanOut)
	assert.Equal(t, 1.0, a.Metrics.Instability)

	util := components["pkg.util"]
	assert.InDelta(t, 0.5, util.Metrics.Instability, 1e-9)
}

func TestAnnotateInstabilityIsolatedIsZero(t *testing.T) {
	c := models.NewComponent("pkg.x", "x", models.TypeFunction)
	components := map[string]*models.Component{"pkg.x": c}
	New().Annotate(components)
	assert.Equal(t, 0.0, c.Metrics.Instability)
}

func TestAnnotatePageRankSumsToOne(t *testing.T) {
	components := metricComponents()
	New().Annotate(components)

	sum := 0.0
	for _, c := range components {
		assert.GreaterOrEqual(t, c.Metrics.PageRank, 0.0)
		sum += c.Metrics.PageRank
	}
	assert.InDelta(t, 1.0, sum, 1e-3)

	// The most depended-on component accumulates the most rank.
	for id, c := range components {
		if id == "pkg.core" {
			continue
		}
		assert.Greater(t, components["pkg.core"].Metrics.PageRank, c.Metrics.PageRank)
	}
}

func TestPersonalizedPageRankSumsToOne(t *testing.T) {
	components := metricComponents()
	components["pkg.core"].Name = "resolveImportGraph"
	New(WithPersonalizedPageRank()).Annotate(components)

	sum := 0.0
	for _, c := range components {
		sum += c.Metrics.PageRank
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestPersonalizationWeight(t *testing.T) {
	assert.Equal(t, 10.0, personalizationWeight("resolveImportGraph"))
	assert.Equal(t, 10.0, personalizationWeight("build_dependency_map"))
	assert.Equal(t, 0.1, personalizationWeight("_helper"))
	assert.Equal(t, 0.1, personalizationWeight("main"))
	assert.Equal(t, 0.1, personalizationWeight("get"))
	assert.Equal(t, 1.0, personalizationWeight("parse"))
	// Multi-word but too short stays neutral.
	assert.Equal(t, 1.0, personalizationWeight("doIt"))
}

func TestClassifyHubsByFanIn(t *testing.T) {
	components := metricComponents()
	summary := New().Annotate(components)

	assert.True(t, components["pkg.core"].Metrics.IsHub)
	assert.Contains(t, summary.Hubs, "pkg.core")
	assert.False(t, components["pkg.b"].Metrics.IsHub)
}

func TestAnnotateCommunitiesAssignsIDs(t *testing.T) {
	components := metricComponents()
	summary := New().Annotate(components)

	require.GreaterOrEqual(t, summary.Communities, 1)
	for _, c := range components {
		assert.GreaterOrEqual(t, c.CommunityID, 0)
	}
	assert.False(t, math.IsNaN(summary.Modularity))
}

func TestEnumerateSimpleCycles(t *testing.T) {
	components := map[string]*models.Component{
		"pkg.a": {ID: "pkg.a", Name: "a", Type: models.TypeFunction, CommunityID: -1, DependsOn: []string{"pkg.b"}},
		"pkg.b": {ID: "pkg.b", Name: "b", Type: models.TypeFunction, CommunityID: -1, DependsOn: []string{"pkg.a"}},
	}
	summary := New().Annotate(components)

	require.Len(t, summary.SimpleCycles, 1)
	assert.ElementsMatch(t, []string{"pkg.a", "pkg.b"}, summary.SimpleCycles[0])
}

func TestAnnotateEmptyComponents(t *testing.T) {
	summary := New().Annotate(map[string]*models.Component{})
	assert.Empty(t, summary.Hubs)
	assert.Empty(t, summary.SimpleCycles)
	assert.Zero(t, summary.Communities)
}
