// Package complexity scores components by structural analysis of their
// source spans: cyclomatic and cognitive complexity, size counts, a
// maintainability index, and a run-normalized 0-100 complexity score.
package complexity

import (
	"math"
	"strings"

	"github.com/codeatlas/atlas/pkg/models"
)

// decisionKeywords are control-flow tokens that add a cyclomatic branch.
var decisionKeywords = map[string]bool{
	"if": true, "elif": true, "for": true, "while": true,
	"case": true, "when": true, "catch": true, "except": true,
}

// cognitiveKeywords open a control-flow construct for the cognitive score.
// "else" counts here but not for cyclomatic.
var cognitiveKeywords = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "while": true,
	"catch": true, "except": true, "case": true, "when": true,
}

const spacesPerIndent = 4

// Analyzer fills the complexity annotations on a component set.
type Analyzer struct{}

// New creates a complexity analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Annotate computes complexity metrics for every component from its source
// span, then min-max normalizes the combined score across the run.
func (a *Analyzer) Annotate(components map[string]*models.Component) {
	for _, c := range components {
		scoreComponent(c)
	}
	normalizeScores(components)
}

// scoreComponent fills the per-component structural metrics.
func scoreComponent(c *models.Component) {
	lines := strings.Split(c.SourceCode, "\n")

	var nloc, commentLines, totalLines int
	var tokens int
	cyclomatic := 1
	cognitive := 0

	baseIndent := -1
	for _, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		totalLines++
		if isCommentLine(trimmed) {
			commentLines++
			continue
		}
		nloc++

		lineTokens := tokenize(trimmed)
		tokens += len(lineTokens)

		indent := indentLevel(raw)
		if baseIndent < 0 {
			baseIndent = indent
		}
		nesting := indent - baseIndent
		if nesting < 0 {
			nesting = 0
		}

		boolOps := countBooleanOperators(trimmed, lineTokens)
		cyclomatic += boolOps
		cognitive += boolOps

		for _, tok := range lineTokens {
			if decisionKeywords[tok] {
				cyclomatic++
			}
		}
		if kw := leadingKeyword(lineTokens); cognitiveKeywords[kw] {
			cognitive += 1 + nesting
		}
	}

	c.Metrics.Cyclomatic = cyclomatic
	c.Metrics.Cognitive = cognitive
	c.Metrics.NLOC = nloc
	c.Metrics.TokenCount = tokens
	c.Metrics.ParamCount = len(c.Parameters)
	c.Metrics.Maintainability = maintainabilityIndex(tokens, cyclomatic, nloc, commentRatio(commentLines, totalLines))
}

func commentRatio(commentLines, totalLines int) float64 {
	if totalLines == 0 {
		return 0
	}
	return float64(commentLines) / float64(totalLines)
}

// maintainabilityIndex is the classic MI rescaled to [0,100]. Components
// with no code default to 100.
func maintainabilityIndex(tokens, cyclomatic, nloc int, commentRatio float64) float64 {
	if nloc == 0 {
		return 100
	}

	volume := 1.0
	if tokens > 0 {
		volume = float64(tokens) * math.Log2(float64(tokens))
	}
	if volume < 1 {
		volume = 1
	}
	loc := nloc
	if loc < 1 {
		loc = 1
	}

	mi := 171 - 5.2*math.Log(volume) - 0.23*float64(cyclomatic) -
		16.2*math.Log(float64(loc)) + 50*math.Sin(math.Sqrt(2.4*commentRatio))
	mi = 100 * mi / 171
	if mi < 0 {
		mi = 0
	}
	if mi > 100 {
		mi = 100
	}
	return mi
}

// normalizeScores min-max normalizes 3*cyclomatic + 2*cognitive + (100-MI)
// to [0,100] within the run. Zero variance yields 0 for every component.
func normalizeScores(components map[string]*models.Component) {
	if len(components) == 0 {
		return
	}

	raw := make(map[string]float64, len(components))
	minScore := math.Inf(1)
	maxScore := math.Inf(-1)
	for id, c := range components {
		s := 3*float64(c.Metrics.Cyclomatic) + 2*float64(c.Metrics.Cognitive) + (100 - c.Metrics.Maintainability)
		raw[id] = s
		minScore = math.Min(minScore, s)
		maxScore = math.Max(maxScore, s)
	}

	spread := maxScore - minScore
	for id, c := range components {
		if spread == 0 {
			c.Metrics.ComplexityScore = 0
			continue
		}
		c.Metrics.ComplexityScore = 100 * (raw[id] - minScore) / spread
	}
}

func isCommentLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*") ||
		strings.HasPrefix(trimmed, "--")
}

// indentLevel approximates nesting depth from leading whitespace: one tab or
// four spaces per level.
func indentLevel(line string) int {
	spaces := 0
	level := 0
	for _, r := range line {
		switch r {
		case '\t':
			level++
		case ' ':
			spaces++
		default:
			return level + spaces/spacesPerIndent
		}
	}
	return level + spaces/spacesPerIndent
}

// tokenize splits a line into identifier, number, and operator tokens.
func tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range line {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			cur.WriteRune(r)
		case r == ' ' || r == '\t':
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return tokens
}

// countBooleanOperators counts && and || sequences plus word-form and/or.
func countBooleanOperators(line string, tokens []string) int {
	count := strings.Count(line, "&&") + strings.Count(line, "||")
	for _, tok := range tokens {
		if tok == "and" || tok == "or" {
			count++
		}
	}
	return count
}

// leadingKeyword returns the first token of a line, unwrapping a closing
// brace so "} else {" is seen as "else".
func leadingKeyword(tokens []string) string {
	for _, tok := range tokens {
		if tok == "}" || tok == ")" || tok == "{" {
			continue
		}
		return tok
	}
	return ""
}
