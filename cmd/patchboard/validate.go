package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/patchboard/pkg/docstore"
	"github.com/dd0wney/patchboard/pkg/metrics"
)

var validateStrict bool

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a board document and report what would load",
	Long: `Decodes the document, lists malformed entities, then loads it into a
throwaway graph to find edges that cannot resolve.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false,
		"exit nonzero when any entity fails")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store := docstore.NewStore(args[0], docstore.WithStoreLogger(logger))
	doc, malformed, err := store.Load()
	if err != nil {
		return err
	}
	for _, m := range malformed {
		fmt.Printf("malformed: %v\n", m)
	}

	g, err := newGraph(cfg, logger, metrics.NewRegistry())
	if err != nil {
		return err
	}
	summary := g.LoadDocument(doc, "validate")
	for _, f := range summary.Failures {
		fmt.Printf("dropped: %v\n", f)
	}
	fmt.Printf("nodes: %d loaded, %d failed\n", summary.NodesLoaded, summary.NodesFailed)
	fmt.Printf("edges: %d loaded, %d failed\n", summary.EdgesLoaded, summary.EdgesFailed)

	failed := len(malformed) + summary.NodesFailed + summary.EdgesFailed
	if validateStrict && failed > 0 {
		return fmt.Errorf("%d entities failed validation", failed)
	}
	return nil
}
