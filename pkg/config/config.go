package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for atlas.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis"`

	// Architectural rule thresholds
	Rules RulesConfig `koanf:"rules"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude"`

	// Temporal coupling settings
	Temporal TemporalConfig `koanf:"temporal"`

	// Cache settings
	Cache CacheConfig `koanf:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output"`
}

// AnalysisConfig controls the analysis pipeline.
type AnalysisConfig struct {
	Workers              int   `koanf:"workers"` // 0 = 2x CPU count
	MaxFileSize          int64 `koanf:"max_file_size"`
	PersonalizedPageRank bool  `koanf:"personalized_pagerank"`
	Keywords             bool  `koanf:"keywords"`
	Temporal             bool  `koanf:"temporal"`
	Complexity           bool  `koanf:"complexity"`
}

// RulesConfig defines thresholds for architectural rule evaluation.
type RulesConfig struct {
	GodComponentFanIn   int     `koanf:"god_component_fan_in"`
	GodComponentFanOut  int     `koanf:"god_component_fan_out"`
	UnstableHubCutoff   float64 `koanf:"unstable_hub_cutoff"`
	HighCognitiveCutoff int     `koanf:"high_cognitive_cutoff"`
	LowMaintainability  float64 `koanf:"low_maintainability"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns"`
	Extensions []string `koanf:"extensions"`
	Dirs       []string `koanf:"dirs"`
	Gitignore  bool     `koanf:"gitignore"`
}

// TemporalConfig bounds the git history scan for co-change coupling.
type TemporalConfig struct {
	MaxCommits        int     `koanf:"max_commits"`
	MinSharedCommits  int     `koanf:"min_shared_commits"`
	MinCouplingRatio  float64 `koanf:"min_coupling_ratio"`
	MaxFilesPerCommit int     `koanf:"max_files_per_commit"`
}

// CacheConfig controls the incremental content-hash cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json, markdown
	Color   bool   `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Workers:              0,
			MaxFileSize:          1 << 20,
			PersonalizedPageRank: true,
			Keywords:             true,
			Temporal:             true,
			Complexity:           true,
		},
		Rules: RulesConfig{
			GodComponentFanIn:   20,
			GodComponentFanOut:  20,
			UnstableHubCutoff:   0.7,
			HighCognitiveCutoff: 15,
			LowMaintainability:  20,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*_test.go",
				"*.test.ts",
				"*.test.tsx",
				"*.spec.js",
				"test_*.py",
				"*.min.js",
			},
			Extensions: []string{
				".lock",
				".sum",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				".atlas",
				"dist",
				"build",
				"__pycache__",
			},
			Gitignore: true,
		},
		Temporal: TemporalConfig{
			MaxCommits:        500,
			MinSharedCommits:  5,
			MinCouplingRatio:  0.3,
			MaxFilesPerCommit: 50,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".atlas/cache",
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// Load loads configuration from a file, layered over defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault tries standard config locations or returns defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"atlas.toml",
		"atlas.yaml",
		"atlas.yml",
		"atlas.json",
		".atlas.toml",
		".atlas.yaml",
		".atlas.yml",
		".atlas.json",
	}
	searchDirs := []string{".", ".atlas"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				if cfg, err := Load(path); err == nil {
					return cfg
				}
			}
		}
	}

	return DefaultConfig()
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	ext := filepath.Ext(path)
	for _, excludeExt := range c.Exclude.Extensions {
		if ext == excludeExt {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
