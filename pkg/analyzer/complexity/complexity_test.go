package complexity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeatlas/atlas/pkg/models"
)

func component(id, source string) *models.Component {
	c := models.NewComponent(id, id, models.TypeFunction)
	c.SourceCode = source
	return c
}

func TestScoreComponentStraightLine(t *testing.T) {
	c := component("pkg.simple", "func simple() {\n\treturn\n}")
	scoreComponent(c)

	assert.Equal(t, 1, c.Metrics.Cyclomatic)
	assert.Equal(t, 0, c.Metrics.Cognitive)
	assert.Equal(t, 3, c.Metrics.NLOC)
}

func TestScoreComponentBranches(t *testing.T) {
	src := `func branchy(a, b bool) {
	if a && b {
		return
	}
	for i := 0; i < 10; i++ {
		if a || b {
			break
		}
	}
}`
	c := component("pkg.branchy", src)
	scoreComponent(c)

	// 1 base + 2 ifs + 1 for + 2 boolean operators.
	assert.Equal(t, 6, c.Metrics.Cyclomatic)
	// Nesting is relative to the signature line: body constructs sit at
	// depth 1, the inner if at depth 2, plus 2 boolean operators.
	assert.Equal(t, 9, c.Metrics.Cognitive)
}

func TestScoreComponentNestingPenalty(t *testing.T) {
	flat := component("pkg.flat", "if a {\n}\nif b {\n}")
	nested := component("pkg.nested", "if a {\n\tif b {\n\t}\n}")
	scoreComponent(flat)
	scoreComponent(nested)

	assert.Equal(t, flat.Metrics.Cyclomatic, nested.Metrics.Cyclomatic)
	assert.Greater(t, nested.Metrics.Cognitive, flat.Metrics.Cognitive)
}

func TestScoreComponentElseAfterBrace(t *testing.T) {
	src := "if a {\n\treturn 1\n} else {\n\treturn 2\n}"
	c := component("pkg.elsy", src)
	scoreComponent(c)

	// if and else each contribute at depth 0; only the if is cyclomatic.
	assert.Equal(t, 2, c.Metrics.Cyclomatic)
	assert.Equal(t, 2, c.Metrics.Cognitive)
}

func TestScoreComponentCountsCommentsForMI(t *testing.T) {
	commented := component("pkg.a", "// explains everything\nreturn 1")
	bare := component("pkg.b", "return 1")
	scoreComponent(commented)
	scoreComponent(bare)

	assert.Equal(t, 1, commented.Metrics.NLOC)
	assert.Greater(t, commented.Metrics.Maintainability, bare.Metrics.Maintainability)
}

func TestMaintainabilityBounds(t *testing.T) {
	assert.Equal(t, 100.0, maintainabilityIndex(0, 1, 0, 0))

	mi := maintainabilityIndex(5000, 60, 900, 0)
	assert.GreaterOrEqual(t, mi, 0.0)
	assert.LessOrEqual(t, mi, 100.0)
}

func TestAnnotateNormalizedScoreBounds(t *testing.T) {
	components := map[string]*models.Component{
		"pkg.simple":  component("pkg.simple", "return 1"),
		"pkg.branchy": component("pkg.branchy", "if a {\n\tif b {\n\t\tif c && d {\n\t\t}\n\t}\n}"),
	}
	New().Annotate(components)

	for _, c := range components {
		assert.GreaterOrEqual(t, c.Metrics.ComplexityScore, 0.0)
		assert.LessOrEqual(t, c.Metrics.ComplexityScore, 100.0)
	}
	assert.Equal(t, 0.0, components["pkg.simple"].Metrics.ComplexityScore)
	assert.Equal(t, 100.0, components["pkg.branchy"].Metrics.ComplexityScore)
}

func TestAnnotateZeroVarianceScoresZero(t *testing.T) {
	components := map[string]*models.Component{
		"pkg.a": component("pkg.a", "return 1"),
		"pkg.b": component("pkg.b", "return 2"),
	}
	New().Annotate(components)

	assert.Equal(t, 0.0, components["pkg.a"].Metrics.ComplexityScore)
	assert.Equal(t, 0.0, components["pkg.b"].Metrics.ComplexityScore)
}

func TestAnnotateEmptySourceDefaults(t *testing.T) {
	c := component("pkg.empty", "")
	New().Annotate(map[string]*models.Component{"pkg.empty": c})

	assert.Equal(t, 0, c.Metrics.NLOC)
	assert.Equal(t, 100.0, c.Metrics.Maintainability)
}
