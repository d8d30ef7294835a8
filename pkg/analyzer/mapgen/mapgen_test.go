package mapgen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas/pkg/analyzer/graph"
	"github.com/codeatlas/atlas/pkg/models"
)

func sampleComponents() map[string]*models.Component {
	core := models.NewComponent("pkg.core", "core", models.TypeFunction)
	core.RelativePath = "pkg.go"
	core.Metrics.FanIn = 2
	core.Metrics.IsHub = true
	core.Metrics.NLOC = 10
	core.Metrics.Maintainability = 80
	core.CommunityID = 0

	a := models.NewComponent("pkg.a", "a", models.TypeFunction)
	a.RelativePath = "pkg.go"
	a.DependsOn = []string{"pkg.core", "pkg.external"}
	a.Metrics.FanOut = 1
	a.Metrics.Instability = 1.0
	a.Metrics.NLOC = 5
	a.Metrics.Maintainability = 60
	a.CommunityID = 0

	return map[string]*models.Component{core.ID: core, a.ID: a}
}

func TestGenerateVersionAndMetadata(t *testing.T) {
	m := New("atlas", WithCommitSHA("abc123")).Generate(sampleComponents(), []string{"go"}, nil)

	assert.Equal(t, "1.0", m.Version)
	assert.Equal(t, "atlas", m.Metadata.ProjectName)
	assert.Equal(t, "abc123", m.Metadata.CommitSHA)
	assert.Equal(t, []string{"go"}, m.Metadata.Languages)
	assert.Equal(t, 2, m.Metadata.TotalComponents)
	assert.False(t, m.Metadata.GeneratedAt.IsZero())
}

func TestGenerateNodesSortedEdgesFiltered(t *testing.T) {
	m := New("atlas").Generate(sampleComponents(), nil, nil)

	require.Len(t, m.Nodes, 2)
	assert.Equal(t, "pkg.a", m.Nodes[0].ID)
	assert.Equal(t, "pkg.core", m.Nodes[1].ID)

	// The edge to the unknown pkg.external target is dropped.
	require.Len(t, m.Edges, 1)
	assert.Equal(t, "pkg.a", m.Edges[0].Source)
	assert.Equal(t, "pkg.core", m.Edges[0].Target)
	assert.Equal(t, "depends_on", m.Edges[0].Type)
}

func TestGenerateCommunities(t *testing.T) {
	components := sampleComponents()
	components["pkg.core"].Metrics.Keywords = []models.Keyword{{Term: "core", Weight: 2}}

	m := New("atlas").Generate(components, nil, nil)

	require.Len(t, m.Communities, 1)
	assert.Equal(t, 0, m.Communities[0].ID)
	assert.Equal(t, 2, m.Communities[0].NodeCount)
	assert.Equal(t, 1, m.Communities[0].HubCount)
	require.NotEmpty(t, m.Communities[0].Keywords)
	assert.Equal(t, "core", m.Communities[0].Keywords[0].Term)
}

func TestGenerateSummaryMetrics(t *testing.T) {
	summary := &graph.Summary{
		Hubs:        []string{"pkg.core"},
		Bottlenecks: []string{"pkg.core"},
	}
	m := New("atlas").Generate(sampleComponents(), nil, summary)

	sm := m.SummaryMetrics
	assert.Equal(t, 2, sm.TotalNodes)
	assert.Equal(t, 2, sm.TotalEdges)
	assert.Equal(t, []string{"pkg.core"}, sm.HubFiles)
	assert.Equal(t, []string{"pkg.core"}, sm.BottleneckComponents)
	assert.InDelta(t, 70.0, sm.AvgMaintainability, 1e-9)
	assert.Equal(t, "pkg.a", sm.MostUnstable[0])
	assert.Equal(t, "pkg.core", sm.MostStable[0])
}

func TestGenerateStableFieldNames(t *testing.T) {
	m := New("atlas").Generate(sampleComponents(), []string{"go"}, nil)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, field := range []string{"version", "metadata", "nodes", "edges", "communities", "summary_metrics"} {
		assert.Contains(t, decoded, field)
	}

	metadata := decoded["metadata"].(map[string]any)
	for _, field := range []string{"project_name", "generated_at", "languages", "total_components"} {
		assert.Contains(t, metadata, field)
	}

	nodes := decoded["nodes"].([]any)
	node := nodes[0].(map[string]any)
	for _, field := range []string{"id", "name", "type", "file_path", "metrics", "community_id", "depends_on"} {
		assert.Contains(t, node, field)
	}

	metrics := node["metrics"].(map[string]any)
	for _, field := range []string{"pagerank", "fan_in", "fan_out", "instability", "is_hub", "cyclomatic_complexity", "maintainability_index", "complexity_score", "loc"} {
		assert.Contains(t, metrics, field)
	}
}

func TestGenerateEmptyComponentSet(t *testing.T) {
	m := New("atlas").Generate(map[string]*models.Component{}, nil, nil)

	assert.Empty(t, m.Nodes)
	assert.Empty(t, m.Edges)
	assert.Empty(t, m.Communities)
	assert.Zero(t, m.SummaryMetrics.TotalNodes)
}
