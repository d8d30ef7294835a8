package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeatlas/atlas/internal/cache"
	"github.com/codeatlas/atlas/internal/output"
	"github.com/codeatlas/atlas/internal/progress"
	"github.com/codeatlas/atlas/internal/scanner"
	"github.com/codeatlas/atlas/internal/vcs"
	"github.com/codeatlas/atlas/pkg/analyzer"
	"github.com/codeatlas/atlas/pkg/analyzer/callgraph"
	"github.com/codeatlas/atlas/pkg/analyzer/complexity"
	"github.com/codeatlas/atlas/pkg/analyzer/graph"
	"github.com/codeatlas/atlas/pkg/analyzer/keywords"
	"github.com/codeatlas/atlas/pkg/analyzer/mapgen"
	"github.com/codeatlas/atlas/pkg/analyzer/rules"
	"github.com/codeatlas/atlas/pkg/analyzer/temporal"
	"github.com/codeatlas/atlas/pkg/models"
)

const mapCacheKey = "codebase_map"

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a repository and emit its codebase map",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("format", "f", "text", "Output format: text, json, markdown")
	analyzeCmd.Flags().StringP("output", "o", "", "Codebase map output path (default <path>/.atlas/codebase_map.json)")
	analyzeCmd.Flags().Bool("no-cache", false, "Disable caching")
	analyzeCmd.Flags().String("cache-dir", "", "Cache directory (default from config)")
	analyzeCmd.Flags().Int("workers", 0, "Analysis worker count (default 2x CPU count)")
	analyzeCmd.Flags().Bool("personalized-pagerank", false, "Weight PageRank teleports by identifier naming")
	analyzeCmd.Flags().String("project", "", "Project name recorded in the map metadata (default directory name)")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root, err := filepath.Abs(pathArg(args))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	cacheEnabled := cfg.Cache.Enabled && !noCache
	if dir, _ := cmd.Flags().GetString("cache-dir"); dir != "" {
		cfg.Cache.Dir = dir
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Analysis.Workers = workers
	}
	if ppr, _ := cmd.Flags().GetBool("personalized-pagerank"); ppr {
		cfg.Analysis.PersonalizedPageRank = true
	}

	projectName, _ := cmd.Flags().GetString("project")
	if projectName == "" {
		projectName = filepath.Base(root)
	}

	mapPath, _ := cmd.Flags().GetString("output")
	if mapPath == "" {
		mapPath = filepath.Join(root, ".atlas", "codebase_map.json")
	}

	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(cmd)), "", cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	files, err := scanner.New(cfg).Scan(root)
	if err != nil {
		return err
	}
	files, skipped := scanner.FilterBySize(root, files, cfg.Analysis.MaxFileSize)
	if skipped > 0 {
		slog.Debug("skipped oversized files", "count", skipped)
	}
	if len(files) == 0 {
		formatter.Warning("No source files found")
		return nil
	}

	cacheDir := cfg.Cache.Dir
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(root, cacheDir)
	}
	manifest := cache.LoadManifest(filepath.Join(cacheDir, "manifest.json"))
	changed := manifest.Changed(root, filePaths(files))

	store, err := cache.NewStore(cacheDir, cacheEnabled)
	if err != nil {
		slog.Warn("cache store unavailable", "error", err)
		store, _ = cache.NewStore(cacheDir, false)
	}

	commitSHA := vcs.HeadSHA(root)

	// Nothing changed since the last run at this commit: reuse the stored
	// map instead of re-analyzing.
	if cacheEnabled && len(changed) == 0 && commitSHA != "" {
		if data, ok := store.Get(mapCacheKey, commitSHA); ok {
			var cached models.CodebaseMap
			if uerr := json.Unmarshal(data, &cached); uerr != nil {
				slog.Warn("cached map unreadable, re-analyzing", "error", uerr)
			} else {
				formatter.Success("Using cached analysis (%d components)", len(cached.Nodes))
				return emitMap(formatter, &cached, mapPath)
			}
		}
	}

	start := time.Now()
	formatter.Success("Analyzing %d files (%d changed)", len(files), len(changed))

	stage := progress.NewStage("Analyzing files", len(files))
	tracker := analyzer.NewTracker(func(current, total int, path string) {
		stage.Tick()
	})
	ctx := analyzer.WithTracker(cmd.Context(), tracker)

	cg := callgraph.New(callgraph.WithWorkers(cfg.Analysis.Workers))
	defer cg.Close()

	result, err := cg.Analyze(ctx, root, files)
	if err != nil {
		stage.Fail(err)
		return err
	}
	stage.Done()

	if len(result.FailedFiles) > 0 {
		formatter.Warning("%d files could not be parsed", len(result.FailedFiles))
	}

	depGraph := models.BuildDependencyGraph(result.Components)
	cycles := graph.DetectCycles(depGraph)

	var graphOpts []graph.Option
	if cfg.Analysis.PersonalizedPageRank {
		graphOpts = append(graphOpts, graph.WithPersonalizedPageRank())
	}
	summary := graph.New(graphOpts...).Annotate(result.Components)

	if cfg.Analysis.Complexity {
		complexity.New().Annotate(result.Components)
	}
	if cfg.Analysis.Keywords {
		keywords.Annotate(result.Components)
	}

	var coupling []models.FileCoupling
	if cfg.Analysis.Temporal {
		ta, err := temporal.New(cfg.Temporal).Analyze(cmd.Context(), root)
		if err != nil {
			slog.Debug("temporal coupling skipped", "error", err)
		} else {
			coupling = ta.Couplings
		}
	}

	violations := rules.New(cfg.Rules).Evaluate(rules.Inputs{
		Components: result.Components,
		Cycles:     cycles,
		Coupling:   coupling,
	})

	gen := mapgen.New(projectName, mapgen.WithCommitSHA(commitSHA))
	codebaseMap := gen.Generate(result.Components, result.Languages, summary)

	if cacheEnabled {
		if data, err := json.Marshal(codebaseMap); err == nil && commitSHA != "" {
			if err := store.Set(mapCacheKey, commitSHA, data); err != nil {
				slog.Warn("failed to cache map", "error", err)
			}
		}
		if err := manifest.Save(); err != nil {
			slog.Warn("failed to save manifest", "error", err)
		}
	}

	if err := emitMap(formatter, codebaseMap, mapPath); err != nil {
		return err
	}
	if err := renderAnalysis(formatter, codebaseMap, violations); err != nil {
		return err
	}

	formatter.Success("Analyzed %d components in %s", len(codebaseMap.Nodes), time.Since(start).Round(time.Millisecond))
	return nil
}

// filePaths extracts the relative paths from scanned file infos.
func filePaths(files []callgraph.FileInfo) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

// emitMap writes the codebase map JSON to the output path.
func emitMap(formatter *output.Formatter, m *models.CodebaseMap, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding codebase map: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing codebase map: %w", err)
	}
	formatter.Success("Codebase map written to %s", path)
	return nil
}

// renderAnalysis prints the run summary and any rule violations.
func renderAnalysis(formatter *output.Formatter, m *models.CodebaseMap, violations []rules.Violation) error {
	sm := m.SummaryMetrics
	summaryRows := [][]string{
		{"Components", fmt.Sprintf("%d", sm.TotalNodes)},
		{"Dependencies", fmt.Sprintf("%d", sm.TotalEdges)},
		{"Hubs", fmt.Sprintf("%d", len(sm.HubFiles))},
		{"Communities", fmt.Sprintf("%d", len(m.Communities))},
		{"Avg maintainability", fmt.Sprintf("%.1f", sm.AvgMaintainability)},
	}
	if err := formatter.Output(output.NewTable("Summary", []string{"Metric", "Value"}, summaryRows, sm)); err != nil {
		return err
	}

	if len(violations) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(violations))
	for _, v := range violations {
		rows = append(rows, []string{string(v.Severity), v.Rule, v.ComponentID, v.Message})
	}
	return formatter.Output(output.NewTable("Violations", []string{"Severity", "Rule", "Component", "Message"}, rows, violations))
}

// getFormat returns the format flag value from the command.
func getFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("format")
	return format
}
