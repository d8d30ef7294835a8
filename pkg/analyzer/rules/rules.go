// Package rules evaluates structural architecture rules over the analyzed
// component set: god components, circular dependency participation,
// unstable hubs, and maintainability floors.
package rules

import (
	"fmt"
	"sort"

	"github.com/codeatlas/atlas/pkg/config"
	"github.com/codeatlas/atlas/pkg/models"
)

// Severity classifies a violation.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Violation is one rule hit on one component or file pair.
type Violation struct {
	Rule        string   `json:"rule"`
	Severity    Severity `json:"severity"`
	ComponentID string   `json:"component_id,omitempty"`
	Message     string   `json:"message"`
}

// Inputs is everything rule evaluation consumes: the component set plus the
// circular-dependency and temporal-coupling lists.
type Inputs struct {
	Components map[string]*models.Component
	Cycles     [][]string
	Coupling   []models.FileCoupling
}

// Evaluator runs the built-in rules with configured thresholds.
type Evaluator struct {
	cfg config.RulesConfig
}

// New creates a rule evaluator.
func New(cfg config.RulesConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate runs every rule and returns violations sorted by component ID
// then rule name.
func (e *Evaluator) Evaluate(in Inputs) []Violation {
	var violations []Violation
	violations = append(violations, e.godComponents(in.Components)...)
	violations = append(violations, e.cycleParticipants(in.Cycles)...)
	violations = append(violations, e.unstableHubs(in.Components)...)
	violations = append(violations, e.lowMaintainability(in.Components)...)
	violations = append(violations, e.tightCoupling(in.Coupling)...)

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].ComponentID != violations[j].ComponentID {
			return violations[i].ComponentID < violations[j].ComponentID
		}
		return violations[i].Rule < violations[j].Rule
	})
	return violations
}

// godComponents flags components whose combined coupling exceeds both
// thresholds: they know too much and are known by too many.
func (e *Evaluator) godComponents(components map[string]*models.Component) []Violation {
	var out []Violation
	for id, c := range components {
		if c.Metrics.FanIn >= e.cfg.GodComponentFanIn && c.Metrics.FanOut >= e.cfg.GodComponentFanOut {
			out = append(out, Violation{
				Rule:        "god-component",
				Severity:    SeverityError,
				ComponentID: id,
				Message: fmt.Sprintf("fan-in %d and fan-out %d both exceed the god-component thresholds (%d/%d)",
					c.Metrics.FanIn, c.Metrics.FanOut, e.cfg.GodComponentFanIn, e.cfg.GodComponentFanOut),
			})
		}
	}
	return out
}

// cycleParticipants flags every component inside a detected dependency cycle.
func (e *Evaluator) cycleParticipants(cycles [][]string) []Violation {
	var out []Violation
	seen := make(map[string]bool)
	for _, cycle := range cycles {
		for _, id := range cycle {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, Violation{
				Rule:        "circular-dependency",
				Severity:    SeverityWarning,
				ComponentID: id,
				Message:     fmt.Sprintf("participates in a dependency cycle of %d components", len(cycle)),
			})
		}
	}
	return out
}

// unstableHubs flags hubs with high instability: heavily depended-upon
// components that themselves depend on many others.
func (e *Evaluator) unstableHubs(components map[string]*models.Component) []Violation {
	var out []Violation
	for id, c := range components {
		if c.Metrics.IsHub && c.Metrics.Instability > e.cfg.UnstableHubCutoff {
			out = append(out, Violation{
				Rule:        "unstable-hub",
				Severity:    SeverityWarning,
				ComponentID: id,
				Message: fmt.Sprintf("hub with instability %.2f above the %.2f cutoff",
					c.Metrics.Instability, e.cfg.UnstableHubCutoff),
			})
		}
	}
	return out
}

// lowMaintainability flags components under the maintainability floor.
func (e *Evaluator) lowMaintainability(components map[string]*models.Component) []Violation {
	var out []Violation
	for id, c := range components {
		if c.Metrics.NLOC > 0 && c.Metrics.Maintainability < e.cfg.LowMaintainability {
			out = append(out, Violation{
				Rule:        "low-maintainability",
				Severity:    SeverityWarning,
				ComponentID: id,
				Message: fmt.Sprintf("maintainability index %.1f below the %.1f floor",
					c.Metrics.Maintainability, e.cfg.LowMaintainability),
			})
		}
	}
	return out
}

// tightCoupling flags file pairs that always change together but share no
// dependency edge, using the temporal coupling list.
func (e *Evaluator) tightCoupling(coupling []models.FileCoupling) []Violation {
	var out []Violation
	for _, fc := range coupling {
		if fc.Ratio < 0.9 {
			continue
		}
		out = append(out, Violation{
			Rule:     "temporal-coupling",
			Severity: SeverityWarning,
			Message: fmt.Sprintf("%s and %s change together in %d commits (ratio %.2f)",
				fc.FileA, fc.FileB, fc.SharedCommits, fc.Ratio),
		})
	}
	return out
}
