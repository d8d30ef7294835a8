package graph

import (
	"log/slog"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/codeatlas/atlas/pkg/models"
)

const (
	pageRankDamping   = 0.85
	pageRankTolerance = 1e-6

	// louvainResolution favors more, smaller communities than standard
	// modularity.
	louvainResolution = 1.5

	// simpleCycleCap bounds cycle enumeration for reporting.
	simpleCycleCap = 100
	// simpleCycleNodeLimit skips enumeration on graphs where Johnson's
	// algorithm could blow up before the cap applies.
	simpleCycleNodeLimit = 2000

	hubPageRankPercent    = 10
	bottleneckBetweenness = 5
	hubFanInThreshold     = 3
)

// pageRankStoplist contains generic identifier names weighted down by the
// personalization heuristic.
var pageRankStoplist = map[string]bool{
	"get": true, "set": true, "run": true, "main": true, "init": true,
	"new": true, "test": true, "data": true, "self": true, "cls": true,
	"args": true,
}

// Analyzer computes graph metrics over a component set and annotates the
// components in place. Each metric is individually fault-tolerant: a failure
// logs and leaves that metric at its default.
type Analyzer struct {
	personalized bool
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithPersonalizedPageRank biases PageRank teleport probability toward
// descriptively named components and away from boilerplate names.
func WithPersonalizedPageRank() Option {
	return func(a *Analyzer) {
		a.personalized = true
	}
}

// New creates a graph metrics analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summary holds the run-level metric outputs.
type Summary struct {
	Hubs         []string   `json:"hubs"`
	Bottlenecks  []string   `json:"bottlenecks"`
	SimpleCycles [][]string `json:"simple_cycles"`
	Communities  int        `json:"communities"`
	Modularity   float64    `json:"modularity"`
}

// Annotate computes all graph metrics for the component set, writing the
// per-component annotations and returning the run summary.
func (a *Analyzer) Annotate(components map[string]*models.Component) *Summary {
	summary := &Summary{}
	if len(components) == 0 {
		return summary
	}

	g := models.BuildDependencyGraph(components)
	gg := toGonum(g)

	a.tryMetric("degrees", func() { annotateDegrees(g, components) })
	a.tryMetric("pagerank", func() { a.annotatePageRank(g, gg, components) })
	a.tryMetric("betweenness", func() { summary.Bottlenecks = annotateBetweenness(gg, components) })
	a.tryMetric("hubs", func() { summary.Hubs = classifyHubs(components, summary.Bottlenecks) })
	a.tryMetric("communities", func() {
		summary.Communities, summary.Modularity = annotateCommunities(gg, components)
	})
	a.tryMetric("cycles", func() { summary.SimpleCycles = enumerateSimpleCycles(gg) })

	return summary
}

// tryMetric runs one metric computation, downgrading a failure to a log line
// so the remaining metrics still run.
func (a *Analyzer) tryMetric(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("metric computation failed, leaving defaults", "metric", name, "error", r)
		}
	}()
	fn()
}

// gonumGraph holds the gonum representation and ID mappings.
type gonumGraph struct {
	directed   *simple.DirectedGraph
	undirected *simple.UndirectedGraph
	toInt      map[string]int64
	toStr      map[int64]string
}

// toGonum converts the dependency graph to gonum graph types. Node IDs are
// assigned in sorted order so downstream algorithms see a stable graph.
// Self-loops are skipped; gonum simple graphs do not support them.
func toGonum(g models.DependencyGraph) *gonumGraph {
	gg := &gonumGraph{
		directed:   simple.NewDirectedGraph(),
		undirected: simple.NewUndirectedGraph(),
		toInt:      make(map[string]int64, len(g)),
		toStr:      make(map[int64]string, len(g)),
	}

	for i, id := range g.Nodes() {
		gid := int64(i)
		gg.toInt[id] = gid
		gg.toStr[gid] = id
		gg.directed.AddNode(simple.Node(gid))
		gg.undirected.AddNode(simple.Node(gid))
	}

	for from, deps := range g {
		fromID := gg.toInt[from]
		for _, to := range deps {
			toID, ok := gg.toInt[to]
			if !ok || fromID == toID {
				continue
			}
			gg.directed.SetEdge(simple.Edge{F: simple.Node(fromID), T: simple.Node(toID)})
			if !gg.undirected.HasEdgeBetween(fromID, toID) {
				gg.undirected.SetEdge(simple.Edge{F: simple.Node(fromID), T: simple.Node(toID)})
			}
		}
	}
	return gg
}

// annotateDegrees fills fan-in, fan-out, and instability.
func annotateDegrees(g models.DependencyGraph, components map[string]*models.Component) {
	fanIn := make(map[string]int, len(g))
	for _, deps := range g {
		for _, dep := range deps {
			fanIn[dep]++
		}
	}
	for id, c := range components {
		c.Metrics.FanOut = len(g[id])
		c.Metrics.FanIn = fanIn[id]
		total := c.Metrics.FanIn + c.Metrics.FanOut
		if total > 0 {
			c.Metrics.Instability = float64(c.Metrics.FanOut) / float64(total)
		} else {
			c.Metrics.Instability = 0
		}
	}
}

// annotatePageRank computes the damped random-walk centrality, optionally
// personalized by identifier-naming teleport weights.
func (a *Analyzer) annotatePageRank(g models.DependencyGraph, gg *gonumGraph, components map[string]*models.Component) {
	if a.personalized {
		ranks := personalizedPageRank(g, components)
		for id, c := range components {
			c.Metrics.PageRank = ranks[id]
		}
		return
	}

	ranks := network.PageRank(gg.directed, pageRankDamping, pageRankTolerance)
	for gid, score := range ranks {
		if c, ok := components[gg.toStr[gid]]; ok {
			c.Metrics.PageRank = score
		}
	}
}

// personalizationWeight implements the naming heuristic: multi-word
// identifiers of length >= 8 are weighted up, underscore-prefixed or generic
// names down, everything else neutral.
func personalizationWeight(name string) float64 {
	if strings.HasPrefix(name, "_") || pageRankStoplist[strings.ToLower(name)] {
		return 0.1
	}
	if len(name) >= 8 && isMultiWord(name) {
		return 10
	}
	return 1
}

func isMultiWord(name string) bool {
	if strings.Contains(strings.Trim(name, "_"), "_") {
		return true
	}
	for i := 1; i < len(name); i++ {
		prev, cur := name[i-1], name[i]
		if prev >= 'a' && prev <= 'z' && cur >= 'A' && cur <= 'Z' {
			return true
		}
	}
	return false
}

// personalizedPageRank is a sparse power iteration with a weighted teleport
// vector. Dangling mass is redistributed by the same weights, so scores sum
// to 1.
func personalizedPageRank(g models.DependencyGraph, components map[string]*models.Component) map[string]float64 {
	nodes := g.Nodes()
	n := len(nodes)
	if n == 0 {
		return map[string]float64{}
	}

	idx := make(map[string]int, n)
	for i, id := range nodes {
		idx[id] = i
	}

	weights := make([]float64, n)
	var weightSum float64
	for i, id := range nodes {
		w := 1.0
		if c, ok := components[id]; ok {
			w = personalizationWeight(c.Name)
		}
		weights[i] = w
		weightSum += w
	}
	for i := range weights {
		weights[i] /= weightSum
	}

	out := make([][]int, n)
	for i, id := range nodes {
		for _, dep := range g[id] {
			if j, ok := idx[dep]; ok && j != i {
				out[i] = append(out[i], j)
			}
		}
	}

	rank := make([]float64, n)
	next := make([]float64, n)
	for i := range rank {
		rank[i] = weights[i]
	}

	for iter := 0; iter < 100; iter++ {
		for i := range next {
			next[i] = (1 - pageRankDamping) * weights[i]
		}
		for i := range rank {
			if len(out[i]) > 0 {
				contrib := pageRankDamping * rank[i] / float64(len(out[i]))
				for _, j := range out[i] {
					next[j] += contrib
				}
			} else {
				dangling := pageRankDamping * rank[i]
				for j := range next {
					next[j] += dangling * weights[j]
				}
			}
		}

		diff := 0.0
		for i := range rank {
			d := next[i] - rank[i]
			if d < 0 {
				d = -d
			}
			diff += d
		}
		rank, next = next, rank
		if diff < pageRankTolerance {
			break
		}
	}

	result := make(map[string]float64, n)
	for i, id := range nodes {
		result[id] = rank[i]
	}
	return result
}

// annotateBetweenness fills betweenness centrality and returns the top 5%
// flagged as bottleneck candidates.
func annotateBetweenness(gg *gonumGraph, components map[string]*models.Component) []string {
	scores := network.Betweenness(gg.directed)
	for gid, score := range scores {
		if c, ok := components[gg.toStr[gid]]; ok {
			c.Metrics.Betweenness = score
		}
	}
	return topPercentByScore(components, bottleneckBetweenness, func(c *models.Component) float64 {
		return c.Metrics.Betweenness
	})
}

// classifyHubs marks a component as a hub if it is in the top 10% by
// PageRank, has fan-in >= 3, or is a betweenness bottleneck.
func classifyHubs(components map[string]*models.Component, bottlenecks []string) []string {
	topRank := make(map[string]bool)
	for _, id := range topPercentByScore(components, hubPageRankPercent, func(c *models.Component) float64 {
		return c.Metrics.PageRank
	}) {
		topRank[id] = true
	}
	bottleneckSet := make(map[string]bool, len(bottlenecks))
	for _, id := range bottlenecks {
		bottleneckSet[id] = true
	}

	var hubs []string
	for id, c := range components {
		c.Metrics.IsHub = topRank[id] || c.Metrics.FanIn >= hubFanInThreshold || bottleneckSet[id]
		if c.Metrics.IsHub {
			hubs = append(hubs, id)
		}
	}
	sort.Strings(hubs)
	return hubs
}

// topPercentByScore returns the IDs of the top percent components by score,
// at least one, ordered by score descending with ID as tie-break.
func topPercentByScore(components map[string]*models.Component, percent int, score func(*models.Component) float64) []string {
	type scored struct {
		id    string
		value float64
	}
	all := make([]scored, 0, len(components))
	for id, c := range components {
		all = append(all, scored{id: id, value: score(c)})
	}
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].value != all[j].value {
			return all[i].value > all[j].value
		}
		return all[i].id < all[j].id
	})

	count := len(all) * percent / 100
	if count < 1 {
		count = 1
	}
	ids := make([]string, 0, count)
	for _, s := range all[:count] {
		if s.value <= 0 {
			break
		}
		ids = append(ids, s.id)
	}
	return ids
}

// annotateCommunities runs Louvain modularity partitioning on the undirected
// projection. On failure or a degenerate graph every community ID stays -1.
func annotateCommunities(gg *gonumGraph, components map[string]*models.Component) (int, float64) {
	if len(gg.toStr) == 0 {
		return 0, 0
	}

	reduced := community.Modularize(gg.undirected, louvainResolution, nil)
	comms := reduced.Communities()

	for commID, comm := range comms {
		for _, node := range comm {
			if c, ok := components[gg.toStr[node.ID()]]; ok {
				c.CommunityID = commID
			}
		}
	}

	modularity := community.Q(gg.undirected, comms, louvainResolution)
	return len(comms), modularity
}

// enumerateSimpleCycles lists elementary cycles for reporting, capped. This
// is independent of the cycle breaking done for topological sorting.
func enumerateSimpleCycles(gg *gonumGraph) [][]string {
	if len(gg.toStr) > simpleCycleNodeLimit {
		slog.Debug("skipping simple-cycle enumeration on large graph", "nodes", len(gg.toStr))
		return nil
	}

	raw := topo.DirectedCyclesIn(gg.directed)
	cycles := make([][]string, 0, len(raw))
	for _, cycle := range raw {
		if len(cycles) >= simpleCycleCap {
			break
		}
		ids := make([]string, 0, len(cycle))
		for _, node := range cycle {
			ids = append(ids, gg.toStr[node.ID()])
		}
		// Johnson's algorithm repeats the start node at the end.
		if len(ids) > 1 && ids[0] == ids[len(ids)-1] {
			ids = ids[:len(ids)-1]
		}
		cycles = append(cycles, ids)
	}
	return cycles
}
