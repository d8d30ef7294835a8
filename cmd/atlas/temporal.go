package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeatlas/atlas/internal/output"
	"github.com/codeatlas/atlas/internal/progress"
	"github.com/codeatlas/atlas/pkg/analyzer/temporal"
)

var temporalCmd = &cobra.Command{
	Use:     "temporal [path]",
	Aliases: []string{"tc"},
	Short:   "Identify files that frequently change together",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runTemporal,
}

func init() {
	temporalCmd.Flags().StringP("format", "f", "text", "Output format: text, json, markdown")
	temporalCmd.Flags().IntP("top", "t", 20, "Show top N file pairs by coupling ratio")

	rootCmd.AddCommand(temporalCmd)
}

func runTemporal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root, err := filepath.Abs(pathArg(args))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	stage := progress.NewStage("Analyzing co-change history", -1)
	result, err := temporal.New(cfg.Temporal).Analyze(cmd.Context(), root)
	if err != nil {
		stage.Fail(err)
		return fmt.Errorf("temporal coupling analysis failed (is this a git repository?): %w", err)
	}
	stage.Done()

	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(cmd)), "", cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	topN, _ := cmd.Flags().GetInt("top")
	couplings := result.Couplings
	if topN > 0 && len(couplings) > topN {
		couplings = couplings[:topN]
	}

	rows := make([][]string, 0, len(couplings))
	for _, fc := range couplings {
		ratio := fmt.Sprintf("%.2f", fc.Ratio)
		if fc.Ratio >= 0.7 {
			ratio = color.RedString(ratio)
		} else if fc.Ratio >= 0.4 {
			ratio = color.YellowString(ratio)
		}
		rows = append(rows, []string{
			fc.FileA,
			fc.FileB,
			fmt.Sprintf("%d", fc.SharedCommits),
			ratio,
		})
	}

	title := fmt.Sprintf("Temporal Coupling (%d commits analyzed)", result.CommitsAnalyzed)
	return formatter.Output(output.NewTable(
		title,
		[]string{"File A", "File B", "Shared Commits", "Ratio"},
		rows,
		result,
	))
}
