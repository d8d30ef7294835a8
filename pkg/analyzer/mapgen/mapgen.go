// Package mapgen assembles the versioned interchange structure external
// tooling consumes: nodes, edges, community summaries, and run-level
// summary metrics over a fully annotated component set.
package mapgen

import (
	"sort"
	"time"

	"github.com/codeatlas/atlas/pkg/analyzer/graph"
	"github.com/codeatlas/atlas/pkg/models"
)

const (
	// topListSize bounds the most/least-stable and high-cognitive lists.
	topListSize = 10
	// highCognitiveCutoff marks a component as cognitively heavy.
	highCognitiveCutoff = 15
)

// Generator builds codebase maps.
type Generator struct {
	projectName string
	commitSHA   string
}

// Option is a functional option for configuring Generator.
type Option func(*Generator)

// WithCommitSHA records the analyzed commit in the map metadata.
func WithCommitSHA(sha string) Option {
	return func(g *Generator) {
		g.commitSHA = sha
	}
}

// New creates a map generator for the named project.
func New(projectName string, opts ...Option) *Generator {
	g := &Generator{projectName: projectName}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate assembles the interchange map from the annotated component set,
// the detected languages, and the graph metric summary. Nodes and edges are
// sorted so the output is byte-stable for identical input.
func (g *Generator) Generate(components map[string]*models.Component, languages []string, summary *graph.Summary) *models.CodebaseMap {
	if summary == nil {
		summary = &graph.Summary{}
	}

	m := &models.CodebaseMap{
		Version: models.CodebaseMapVersion,
		Metadata: models.MapMetadata{
			ProjectName:     g.projectName,
			GeneratedAt:     time.Now().UTC(),
			CommitSHA:       g.commitSHA,
			Languages:       sortedCopy(languages),
			TotalComponents: len(components),
		},
		Nodes:          buildNodes(components),
		Edges:          buildEdges(components),
		Communities:    buildCommunities(components),
		SummaryMetrics: buildSummary(components, summary),
	}
	return m
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func buildNodes(components map[string]*models.Component) []models.MapNode {
	nodes := make([]models.MapNode, 0, len(components))
	for _, c := range components {
		deps := sortedCopy(c.DependsOn)
		nodes = append(nodes, models.MapNode{
			ID:          c.ID,
			Name:        c.Name,
			Type:        c.Type,
			FilePath:    c.RelativePath,
			Metrics:     c.Metrics,
			CommunityID: c.CommunityID,
			DependsOn:   deps,
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// buildEdges emits one edge per resolved dependency whose target exists in
// the component set.
func buildEdges(components map[string]*models.Component) []models.MapEdge {
	var edges []models.MapEdge
	for id, c := range components {
		for _, dep := range c.DependsOn {
			if _, ok := components[dep]; !ok {
				continue
			}
			edges = append(edges, models.MapEdge{
				Source: id,
				Target: dep,
				Type:   "depends_on",
			})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}

// buildCommunities aggregates node and hub counts plus merged keywords per
// community. Unassigned components (community -1) are not summarized.
func buildCommunities(components map[string]*models.Component) []models.CommunitySummary {
	type agg struct {
		nodes    int
		hubs     int
		keywords map[string]float64
	}
	byID := make(map[int]*agg)

	for _, c := range components {
		if c.CommunityID < 0 {
			continue
		}
		a := byID[c.CommunityID]
		if a == nil {
			a = &agg{keywords: make(map[string]float64)}
			byID[c.CommunityID] = a
		}
		a.nodes++
		if c.Metrics.IsHub {
			a.hubs++
		}
		for _, kw := range c.Metrics.Keywords {
			a.keywords[kw.Term] += kw.Weight
		}
	}

	summaries := make([]models.CommunitySummary, 0, len(byID))
	for id, a := range byID {
		summaries = append(summaries, models.CommunitySummary{
			ID:        id,
			NodeCount: a.nodes,
			HubCount:  a.hubs,
			Keywords:  topKeywords(a.keywords, 5),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

func topKeywords(weights map[string]float64, k int) []models.Keyword {
	kws := make([]models.Keyword, 0, len(weights))
	for term, w := range weights {
		kws = append(kws, models.Keyword{Term: term, Weight: w})
	}
	sort.Slice(kws, func(i, j int) bool {
		if kws[i].Weight != kws[j].Weight {
			return kws[i].Weight > kws[j].Weight
		}
		return kws[i].Term < kws[j].Term
	})
	if len(kws) > k {
		kws = kws[:k]
	}
	return kws
}

func buildSummary(components map[string]*models.Component, summary *graph.Summary) models.SummaryMetrics {
	sm := models.SummaryMetrics{
		TotalNodes:           len(components),
		HubFiles:             summary.Hubs,
		CircularDependencies: summary.SimpleCycles,
		BottleneckComponents: summary.Bottlenecks,
	}

	var edges int
	var miSum float64
	var miCount int
	var connected []*models.Component
	var high []string

	for _, c := range components {
		edges += len(c.DependsOn)
		if c.Metrics.NLOC > 0 {
			miSum += c.Metrics.Maintainability
			miCount++
		}
		if c.Metrics.FanIn+c.Metrics.FanOut > 0 {
			connected = append(connected, c)
		}
		if c.Metrics.Cognitive >= highCognitiveCutoff {
			high = append(high, c.ID)
		}
	}

	sm.TotalEdges = edges
	if miCount > 0 {
		sm.AvgMaintainability = miSum / float64(miCount)
	}

	sort.Strings(high)
	if len(high) > topListSize {
		high = high[:topListSize]
	}
	sm.HighCognitiveComplexity = high

	sm.MostUnstable = rankByInstability(connected, true)
	sm.MostStable = rankByInstability(connected, false)
	return sm
}

// rankByInstability returns the top component IDs by instability, descending
// when unstable is true and ascending otherwise, ID as tie-break.
func rankByInstability(components []*models.Component, unstable bool) []string {
	sorted := append([]*models.Component(nil), components...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].Metrics.Instability, sorted[j].Metrics.Instability
		if a != b {
			if unstable {
				return a > b
			}
			return a < b
		}
		return sorted[i].ID < sorted[j].ID
	})

	n := len(sorted)
	if n > topListSize {
		n = topListSize
	}
	ids := make([]string, 0, n)
	for _, c := range sorted[:n] {
		ids = append(ids, c.ID)
	}
	return ids
}
