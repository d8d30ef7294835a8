package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/codeatlas/atlas/internal/output"
	"github.com/codeatlas/atlas/pkg/analyzer/complexity"
	"github.com/codeatlas/atlas/pkg/models"
)

var complexityCmd = &cobra.Command{
	Use:   "complexity [path]",
	Short: "Rank components by complexity",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runComplexity,
}

func init() {
	complexityCmd.Flags().StringP("format", "f", "text", "Output format: text, json, markdown")
	complexityCmd.Flags().IntP("top", "t", 20, "Number of components to show")

	rootCmd.AddCommand(complexityCmd)
}

func runComplexity(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	result, err := analyzeComponents(cmd, cfg, pathArg(args))
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(cmd)), "", cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if result == nil {
		formatter.Warning("No source files found")
		return nil
	}

	complexity.New().Annotate(result.Components)

	ranked := make([]*models.Component, 0, len(result.Components))
	for _, c := range result.Components {
		if c.Metrics.NLOC > 0 {
			ranked = append(ranked, c)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Metrics.ComplexityScore != ranked[j].Metrics.ComplexityScore {
			return ranked[i].Metrics.ComplexityScore > ranked[j].Metrics.ComplexityScore
		}
		return ranked[i].ID < ranked[j].ID
	})

	top, _ := cmd.Flags().GetInt("top")
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	rows := make([][]string, 0, len(ranked))
	for _, c := range ranked {
		rows = append(rows, []string{
			c.ID,
			fmt.Sprintf("%d", c.Metrics.Cyclomatic),
			fmt.Sprintf("%d", c.Metrics.Cognitive),
			fmt.Sprintf("%d", c.Metrics.NLOC),
			fmt.Sprintf("%.1f", c.Metrics.Maintainability),
			fmt.Sprintf("%.1f", c.Metrics.ComplexityScore),
		})
	}
	return formatter.Output(output.NewTable(
		"Most Complex Components",
		[]string{"Component", "Cyclomatic", "Cognitive", "NLOC", "MI", "Score"},
		rows, ranked,
	))
}
