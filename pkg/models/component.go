// Package models defines the shared data types produced and consumed by the
// analysis stages: components, call relationships, graph structures, and the
// codebase map interchange format.
package models

// ComponentType classifies a component.
type ComponentType string

const (
	TypeFunction    ComponentType = "function"
	TypeMethod      ComponentType = "method"
	TypeClass       ComponentType = "class"
	TypeStruct      ComponentType = "struct"
	TypeInterface   ComponentType = "interface"
	TypeEnum        ComponentType = "enum"
	TypeTypeAlias   ComponentType = "type_alias"
	TypeVariable    ComponentType = "variable"
	TypeUIComponent ComponentType = "ui_component"
)

// Parameter describes one parameter in a component's signature. Type is empty
// when it cannot be determined statically.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Keyword is a TF-IDF scored identifier keyword.
type Keyword struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Component is the unit of analysis: a named, located span of source code
// (function, method, class, struct, interface, ...). Parsers fill the identity,
// location, content, and signature fields; the metric and keyword annotations
// are filled by later stages.
type Component struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name,omitempty"`
	Type        ComponentType `json:"component_type"`
	// NodeType optionally refines Type for framework-specific units
	// (e.g. a reactivity wrapper kind).
	NodeType string `json:"node_type,omitempty"`

	FilePath     string `json:"file_path"`
	RelativePath string `json:"relative_path"`
	StartLine    int    `json:"start_line"`
	EndLine      int    `json:"end_line"`

	SourceCode   string `json:"source_code,omitempty"`
	HasDocstring bool   `json:"has_docstring"`
	Docstring    string `json:"docstring,omitempty"`

	Parameters []Parameter `json:"parameters,omitempty"`
	// ClassName is the owning type for methods, empty otherwise.
	ClassName string `json:"class_name,omitempty"`
	// ModulePath is the file's module path (relative path, extension
	// stripped, separators normalized to dots). Component IDs are derived
	// from it.
	ModulePath string `json:"component_id,omitempty"`

	// DependsOn is the authoritative outgoing edge list once cross-file
	// resolution completes: IDs of components this one references.
	DependsOn []string `json:"depends_on"`

	Metrics     ComponentMetrics `json:"metrics"`
	CommunityID int              `json:"community_id"`
}

// ComponentMetrics holds the computed annotations for a component. Zero values
// are the documented defaults when a metric could not be computed.
type ComponentMetrics struct {
	PageRank    float64 `json:"pagerank"`
	FanIn       int     `json:"fan_in"`
	FanOut      int     `json:"fan_out"`
	Instability float64 `json:"instability"`
	IsHub       bool    `json:"is_hub"`
	Betweenness float64 `json:"betweenness"`

	Cyclomatic      int     `json:"cyclomatic_complexity"`
	Cognitive       int     `json:"cognitive_complexity"`
	NLOC            int     `json:"loc"`
	TokenCount      int     `json:"token_count,omitempty"`
	ParamCount      int     `json:"parameter_count,omitempty"`
	Maintainability float64 `json:"maintainability_index"`
	ComplexityScore float64 `json:"complexity_score"`

	Keywords []Keyword `json:"tfidf_keywords,omitempty"`
}

// NewComponent creates a component with defaults applied: unassigned community
// and an empty dependency set.
func NewComponent(id, name string, ctype ComponentType) *Component {
	return &Component{
		ID:          id,
		Name:        name,
		Type:        ctype,
		DependsOn:   make([]string, 0),
		CommunityID: -1,
	}
}

// AddDependency records a dependency on the given component ID, ignoring
// self-references and duplicates.
func (c *Component) AddDependency(id string) {
	if id == "" || id == c.ID {
		return
	}
	for _, d := range c.DependsOn {
		if d == id {
			return
		}
	}
	c.DependsOn = append(c.DependsOn, id)
}

// RelationshipType classifies a call relationship edge.
type RelationshipType string

const (
	RelCalls      RelationshipType = "calls"
	RelEmbeds     RelationshipType = "embeds"
	RelImplements RelationshipType = "implements"
	RelInherits   RelationshipType = "inherits"
	RelUses       RelationshipType = "uses"
	RelReferences RelationshipType = "references"
)

// CallRelationship is a directed edge from a caller component to a callee.
// When IsResolved is false, Callee holds the best-effort textual name rather
// than a verified component ID and must not be assumed present in the
// component set.
type CallRelationship struct {
	Caller     string           `json:"caller"`
	Callee     string           `json:"callee"`
	CallLine   int              `json:"call_line"`
	IsResolved bool             `json:"is_resolved"`
	Type       RelationshipType `json:"relationship_type"`
}
