package callgraph

import (
	"github.com/codeatlas/atlas/pkg/models"
	"github.com/codeatlas/atlas/pkg/parser"
)

// FileInfo is one input file: its path and language classification. File
// discovery happens upstream; the analyzer consumes {path, language} pairs
// plus the repository root.
type FileInfo struct {
	Path     string          `json:"path"`
	Language parser.Language `json:"language"`
}

// Result is the merged output of a full call-graph analysis pass.
type Result struct {
	// Components maps component ID to component, the shape rule evaluators
	// consume.
	Components map[string]*models.Component `json:"components"`
	// Relationships is the deduplicated edge list, resolved where possible.
	Relationships []models.CallRelationship `json:"relationships"`

	FilesAnalyzed int      `json:"files_analyzed"`
	FailedFiles   []string `json:"failed_files,omitempty"`
	Languages     []string `json:"languages"`
}

// fileResult is one file's analysis output, merged on a single owner
// goroutine after the pool drains.
type fileResult struct {
	path          string
	components    []*models.Component
	relationships []models.CallRelationship
}
