// Package keywords extracts TF-IDF scored identifier keywords per component.
// Each component is one document; terms come from splitting identifiers in
// its source and docstring on camelCase and snake_case boundaries.
package keywords

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/codeatlas/atlas/pkg/models"
)

// topK is the number of keywords kept per component.
const topK = 5

// minTermLength filters out single-letter and two-letter fragments.
const minTermLength = 3

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "from": true, "are": true, "was": true, "not": true,
	"func": true, "return": true, "var": true, "const": true, "type": true,
	"struct": true, "interface": true, "package": true, "import": true,
	"def": true, "class": true, "self": true, "none": true, "true": true,
	"false": true, "nil": true, "null": true, "void": true, "new": true,
	"get": true, "set": true, "err": true, "error": true, "string": true,
	"int": true, "bool": true, "float": true, "len": true, "range": true,
	"if": true, "else": true, "elif": true, "while": true, "case": true,
	"switch": true, "break": true, "continue": true, "export": true,
	"default": true, "public": true, "private": true, "static": true,
	"let": true, "async": true, "await": true, "function": true,
}

// Annotate computes top-k TF-IDF keywords for every component.
func Annotate(components map[string]*models.Component) {
	if len(components) == 0 {
		return
	}

	termFreqs := make(map[string]map[string]int, len(components))
	docFreq := make(map[string]int)

	for id, c := range components {
		tf := termFrequencies(c)
		termFreqs[id] = tf
		for term := range tf {
			docFreq[term]++
		}
	}

	total := float64(len(components))
	for id, c := range components {
		c.Metrics.Keywords = topKeywords(termFreqs[id], docFreq, total)
	}
}

// termFrequencies tokenizes a component's name, source, and docstring.
func termFrequencies(c *models.Component) map[string]int {
	tf := make(map[string]int)
	addTerms(tf, c.Name)
	addTerms(tf, c.Docstring)
	addTerms(tf, c.SourceCode)
	return tf
}

func addTerms(tf map[string]int, text string) {
	for _, ident := range splitIdentifiers(text) {
		for _, term := range splitWords(ident) {
			term = strings.ToLower(term)
			if len(term) < minTermLength || stopwords[term] || isNumeric(term) {
				continue
			}
			tf[term]++
		}
	}
}

// splitIdentifiers pulls identifier-shaped runs out of raw text.
func splitIdentifiers(text string) []string {
	var idents []string
	var cur strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			idents = append(idents, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		idents = append(idents, cur.String())
	}
	return idents
}

// splitWords breaks an identifier on underscores and camelCase boundaries.
func splitWords(ident string) []string {
	var words []string
	for _, part := range strings.Split(ident, "_") {
		start := 0
		runes := []rune(part)
		for i := 1; i < len(runes); i++ {
			if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
				words = append(words, string(runes[start:i]))
				start = i
			}
		}
		if start < len(runes) {
			words = append(words, string(runes[start:]))
		}
	}
	return words
}

func isNumeric(term string) bool {
	for _, r := range term {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(term) > 0
}

// topKeywords scores terms by tf * idf and keeps the highest k, weight
// descending with term as tie-break.
func topKeywords(tf map[string]int, docFreq map[string]int, totalDocs float64) []models.Keyword {
	if len(tf) == 0 {
		return nil
	}

	scored := make([]models.Keyword, 0, len(tf))
	for term, freq := range tf {
		idf := math.Log(totalDocs/float64(docFreq[term])) + 1
		scored = append(scored, models.Keyword{Term: term, Weight: float64(freq) * idf})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Weight != scored[j].Weight {
			return scored[i].Weight > scored[j].Weight
		}
		return scored[i].Term < scored[j].Term
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
