package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/patchboard/pkg/docstore"
)

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Rewrite a document in the canonical format",
	Long: `Reads a document tolerantly, accepting legacy attribute aliases and
wrapper containers, and writes it back in the current canonical form.
Entities too malformed to parse are dropped and reported.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	in := docstore.NewStore(args[0], docstore.WithStoreLogger(logger))
	doc, malformed, err := in.Load()
	if err != nil {
		return err
	}
	for _, m := range malformed {
		fmt.Printf("dropped: %v\n", m)
	}

	out := docstore.NewStore(args[1], docstore.WithStoreLogger(logger))
	if err := out.Save(doc); err != nil {
		return err
	}
	fmt.Printf("wrote %s: %d nodes, %d edges\n", args[1], len(doc.Nodes), len(doc.Edges))
	return nil
}
