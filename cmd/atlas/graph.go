package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codeatlas/atlas/internal/output"
	"github.com/codeatlas/atlas/internal/progress"
	"github.com/codeatlas/atlas/internal/scanner"
	"github.com/codeatlas/atlas/pkg/analyzer"
	"github.com/codeatlas/atlas/pkg/analyzer/callgraph"
	"github.com/codeatlas/atlas/pkg/analyzer/graph"
	"github.com/codeatlas/atlas/pkg/config"
	"github.com/codeatlas/atlas/pkg/models"
)

var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Inspect the dependency graph: cycles, build order, leaves, hubs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().StringP("format", "f", "text", "Output format: text, json, markdown")
	graphCmd.Flags().Bool("mermaid", false, "Emit the graph as a Mermaid diagram")
	graphCmd.Flags().Bool("dependency-first", false, "Order the build table by depth-first dependency traversal instead of Kahn layers")

	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	result, err := analyzeComponents(cmd, cfg, pathArg(args))
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(cmd)), "", cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	depGraph := models.BuildDependencyGraph(result.Components)

	if mermaid, _ := cmd.Flags().GetBool("mermaid"); mermaid {
		_, err := fmt.Fprintln(formatter.Writer(), depGraph.ToMermaid())
		return err
	}

	var graphOpts []graph.Option
	if cfg.Analysis.PersonalizedPageRank {
		graphOpts = append(graphOpts, graph.WithPersonalizedPageRank())
	}
	summary := graph.New(graphOpts...).Annotate(result.Components)

	cycles := graph.DetectCycles(depGraph)
	var order []string
	if depFirst, _ := cmd.Flags().GetBool("dependency-first"); depFirst {
		order = graph.DependencyFirstOrder(depGraph)
	} else {
		order = graph.TopologicalSort(graph.ResolveCycles(depGraph))
	}
	leaves := graph.LeafComponents(depGraph, result.Components)

	cycleRows := make([][]string, 0, len(cycles))
	for i, cycle := range cycles {
		cycleRows = append(cycleRows, []string{fmt.Sprintf("%d", i+1), strings.Join(cycle, " -> ")})
	}
	if len(cycleRows) > 0 {
		if err := formatter.Output(output.NewTable("Circular Dependencies", []string{"#", "Cycle"}, cycleRows, cycles)); err != nil {
			return err
		}
	} else {
		formatter.Success("No circular dependencies")
	}

	hubRows := make([][]string, 0, len(summary.Hubs))
	for _, id := range summary.Hubs {
		c := result.Components[id]
		if c == nil {
			continue
		}
		hubRows = append(hubRows, []string{
			id,
			fmt.Sprintf("%d", c.Metrics.FanIn),
			fmt.Sprintf("%d", c.Metrics.FanOut),
			fmt.Sprintf("%.4f", c.Metrics.PageRank),
			fmt.Sprintf("%.2f", c.Metrics.Instability),
		})
	}
	if len(hubRows) > 0 {
		if err := formatter.Output(output.NewTable("Hubs", []string{"Component", "Fan-in", "Fan-out", "PageRank", "Instability"}, hubRows, summary.Hubs)); err != nil {
			return err
		}
	}

	orderRows := make([][]string, 0, len(order))
	for i, id := range order {
		orderRows = append(orderRows, []string{fmt.Sprintf("%d", i+1), id})
	}
	if err := formatter.Output(output.NewTable("Build Order", []string{"#", "Component"}, orderRows, order)); err != nil {
		return err
	}

	leafRows := make([][]string, 0, len(leaves))
	for _, id := range leaves {
		leafRows = append(leafRows, []string{id})
	}
	return formatter.Output(output.NewTable("Leaf Components", []string{"Component"}, leafRows, leaves))
}

// analyzeComponents scans the repository and runs the call-graph pass,
// returning nil when no source files were found.
func analyzeComponents(cmd *cobra.Command, cfg *config.Config, path string) (*callgraph.Result, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	files, err := scanner.New(cfg).Scan(root)
	if err != nil {
		return nil, err
	}
	files, _ = scanner.FilterBySize(root, files, cfg.Analysis.MaxFileSize)
	if len(files) == 0 {
		return nil, nil
	}

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
		return nil, err
	}
	stage.Done()
	return result, nil
}
