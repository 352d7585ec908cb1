package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dd0wney/patchboard/pkg/docstore"
	"github.com/dd0wney/patchboard/pkg/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Summarize a board document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	g, err := newGraph(cfg, logger, metrics.NewRegistry())
	if err != nil {
		return err
	}
	summary := g.LoadDocument(doc, "stats")

	fmt.Printf("nodes: %d\n", g.NodeCount())
	fmt.Printf("edges: %d\n", g.EdgeCount())
	fmt.Printf("malformed entities: %d\n", len(malformed))
	fmt.Printf("unresolved edges: %d\n", summary.EdgesFailed)

	byType := make(map[string]int)
	degrees := make(map[int]int)
	for _, n := range g.Nodes() {
		byType[n.Type()]++
		degrees[n.Degree()]++
	}

	fmt.Println("\ntypes:")
	tags := make([]string, 0, len(byType))
	for tag := range byType {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Printf("  %-12s %d\n", tag, byType[tag])
	}

	fmt.Println("\ndegree distribution:")
	ds := make([]int, 0, len(degrees))
	for d := range degrees {
		ds = append(ds, d)
	}
	sort.Ints(ds)
	for _, d := range ds {
		fmt.Printf("  %d connection(s): %d node(s)\n", d, degrees[d])
	}
	return nil
}
