package models

import "time"

// CodebaseMapVersion is the interchange format version. External tooling
// (graph viewers, rule evaluators) depends on the field names in this shape,
// so changes require a version bump.
const CodebaseMapVersion = "1.0"

// CodebaseMap is the JSON interchange structure the engine emits.
type CodebaseMap struct {
	Version        string             `json:"version"`
	Metadata       MapMetadata        `json:"metadata"`
	Nodes          []MapNode          `json:"nodes"`
	Edges          []MapEdge          `json:"edges"`
	Communities    []CommunitySummary `json:"communities"`
	SummaryMetrics SummaryMetrics     `json:"summary_metrics"`
}

// MapMetadata describes the analysis run.
type MapMetadata struct {
	ProjectName     string    `json:"project_name"`
	GeneratedAt     time.Time `json:"generated_at"`
	CommitSHA       string    `json:"commit_sha,omitempty"`
	Languages       []string  `json:"languages"`
	TotalComponents int       `json:"total_components"`
}

// MapNode is one component entry in the interchange output.
type MapNode struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Type        ComponentType    `json:"type"`
	FilePath    string           `json:"file_path"`
	Metrics     ComponentMetrics `json:"metrics"`
	CommunityID int              `json:"community_id"`
	DependsOn   []string         `json:"depends_on"`
}

// MapEdge is one dependency edge in the interchange output.
type MapEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// CommunitySummary aggregates one detected community.
type CommunitySummary struct {
	ID        int       `json:"id"`
	NodeCount int       `json:"node_count"`
	HubCount  int       `json:"hub_count"`
	Keywords  []Keyword `json:"tfidf_keywords,omitempty"`
}

// SummaryMetrics aggregates run-level graph statistics.
type SummaryMetrics struct {
	TotalNodes              int        `json:"total_nodes"`
	TotalEdges              int        `json:"total_edges"`
	HubFiles                []string   `json:"hub_files"`
	MostUnstable            []string   `json:"most_unstable"`
	MostStable              []string   `json:"most_stable"`
	CircularDependencies    [][]string `json:"circular_dependencies"`
	AvgMaintainability      float64    `json:"avg_maintainability"`
	HighCognitiveComplexity []string   `json:"high_cognitive_complexity"`
	BottleneckComponents    []string   `json:"bottleneck_components"`
}
