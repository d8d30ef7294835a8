package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas/pkg/config"
	"github.com/codeatlas/atlas/pkg/models"
)

func evaluator() *Evaluator {
	return New(config.DefaultConfig().Rules)
}

func findRule(violations []Violation, rule string) []Violation {
	var out []Violation
	for _, v := range violations {
		if v.Rule == rule {
			out = append(out, v)
		}
	}
	return out
}

func TestGodComponent(t *testing.T) {
	god := models.NewComponent("pkg.God", "God", models.TypeClass)
	god.Metrics.FanIn = 25
	god.Metrics.FanOut = 30
	fine := models.NewComponent("pkg.Fine", "Fine", models.TypeClass)
	fine.Metrics.FanIn = 25 // high fan-in alone is not a god component

	violations := evaluator().Evaluate(Inputs{
		Components: map[string]*models.Component{god.ID: god, fine.ID: fine},
	})

	hits := findRule(violations, "god-component")
	require.Len(t, hits, 1)
	assert.Equal(t, "pkg.God", hits[0].ComponentID)
	assert.Equal(t, SeverityError, hits[0].Severity)
}

func TestCycleParticipants(t *testing.T) {
	violations := evaluator().Evaluate(Inputs{
		Cycles: [][]string{{"pkg.a", "pkg.b", "pkg.c"}},
	})

	hits := findRule(violations, "circular-dependency")
	assert.Len(t, hits, 3)
}

func TestUnstableHub(t *testing.T) {
	hub := models.NewComponent("pkg.Hub", "Hub", models.TypeClass)
	hub.Metrics.IsHub = true
	hub.Metrics.Instability = 0.9
	stableHub := models.NewComponent("pkg.Stable", "Stable", models.TypeClass)
	stableHub.Metrics.IsHub = true
	stableHub.Metrics.Instability = 0.1

	violations := evaluator().Evaluate(Inputs{
		Components: map[string]*models.Component{hub.ID: hub, stableHub.ID: stableHub},
	})

	hits := findRule(violations, "unstable-hub")
	require.Len(t, hits, 1)
	assert.Equal(t, "pkg.Hub", hits[0].ComponentID)
}

func TestLowMaintainability(t *testing.T) {
	c := models.NewComponent("pkg.Mess", "Mess", models.TypeFunction)
	c.Metrics.NLOC = 200
	c.Metrics.Maintainability = 12

	violations := evaluator().Evaluate(Inputs{
		Components: map[string]*models.Component{c.ID: c},
	})

	assert.Len(t, findRule(violations, "low-maintainability"), 1)
}

func TestTemporalCouplingRule(t *testing.T) {
	violations := evaluator().Evaluate(Inputs{
		Coupling: []models.FileCoupling{
			{FileA: "a.go", FileB: "b.go", SharedCommits: 10, Ratio: 0.95},
			{FileA: "c.go", FileB: "d.go", SharedCommits: 6, Ratio: 0.4},
		},
	})

	hits := findRule(violations, "temporal-coupling")
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Message, "a.go")
}

func TestEvaluateSorted(t *testing.T) {
	a := models.NewComponent("pkg.a", "a", models.TypeClass)
	a.Metrics.IsHub = true
	a.Metrics.Instability = 1.0
	b := models.NewComponent("pkg.b", "b", models.TypeClass)
	b.Metrics.IsHub = true
	b.Metrics.Instability = 1.0

	violations := evaluator().Evaluate(Inputs{
		Components: map[string]*models.Component{b.ID: b, a.ID: a},
	})

	require.Len(t, violations, 2)
	assert.Equal(t, "pkg.a", violations[0].ComponentID)
	assert.Equal(t, "pkg.b", violations[1].ComponentID)
}
