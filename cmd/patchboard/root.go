package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/patchboard/pkg/config"
	"github.com/dd0wney/patchboard/pkg/graph"
	"github.com/dd0wney/patchboard/pkg/logging"
	"github.com/dd0wney/patchboard/pkg/metrics"
)

// version is stamped by the release build via ldflags.
var version = "dev"

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "patchboard",
	Short: "Inspect and manage patchboard documents",
	Long: `patchboard works with XML board documents: validating and summarizing
them, converting legacy files to the canonical format, browsing archived
revisions, and running a live session that autosaves and follows external
edits.`,
	Version:      version,
	SilenceUsage: true,
}

// Execute runs the command tree. Errors are printed by cobra; we only set
// the exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log verbosity: debug, info, warn or error")
}

// loadConfig resolves the effective configuration: the file when --config
// is given, defaults otherwise, --log-level on top of either.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger builds the session logger writing JSON lines to stderr,
// keeping stdout clean for command output.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewJSONLogger(os.Stderr, cfg.LogLevel())
}

// newGraph builds a graph with the configured type catalog loaded.
func newGraph(cfg *config.Config, logger logging.Logger, reg *metrics.Registry) (*graph.Graph, error) {
	catalog := graph.NewCatalog()
	if cfg.Catalog.Path != "" {
		if err := catalog.LoadFile(cfg.Catalog.Path); err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}
	return graph.New(graph.Config{Logger: logger, Metrics: reg, Catalog: catalog}), nil
}
