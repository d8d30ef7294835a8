package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeatlas/atlas/pkg/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Multi-language dependency and call-graph analysis",
	Long: `Atlas statically analyzes a source repository and produces a directed
dependency/call graph of its components (functions, methods, classes,
structs, interfaces), annotated with structural and complexity metrics.

Supports: Go, Python, TypeScript, TSX, JavaScript`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (TOML, YAML, or JSON)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose output")
}

// loadConfig resolves the effective configuration: the --config flag if
// given, otherwise the standard search locations, otherwise defaults.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadOrDefault(), nil
}

// pathArg returns the repository path from positional args, defaulting to
// the current directory.
func pathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
