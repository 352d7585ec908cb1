package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/patchboard/pkg/docstore"
	"github.com/dd0wney/patchboard/pkg/metrics"
)

var (
	restoreRevision uint64
	restoreOut      string
)

var revisionsCmd = &cobra.Command{
	Use:   "revisions <file>",
	Short: "List a document's archived revisions",
	Long: `Lists the revisions archived alongside the document. With --restore,
extracts one revision to the file named by --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runRevisions,
}

func init() {
	rootCmd.AddCommand(revisionsCmd)
	revisionsCmd.Flags().Uint64Var(&restoreRevision, "restore", 0,
		"revision number to extract")
	revisionsCmd.Flags().StringVar(&restoreOut, "out", "",
		"file to write the restored revision to")
}

func runRevisions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	archive, err := docstore.OpenArchive(docstore.ArchivePath(args[0]),
		docstore.WithArchiveLogger(logger),
		docstore.WithArchiveMetrics(metrics.NewRegistry()))
	if err != nil {
		return err
	}
	defer archive.Close()

	if restoreRevision > 0 {
		if restoreOut == "" {
			return fmt.Errorf("--restore requires --out")
		}
		doc, err := archive.Read(restoreRevision)
		if err != nil {
			return err
		}
		out := docstore.NewStore(restoreOut, docstore.WithStoreLogger(logger))
		if err := out.Save(doc); err != nil {
			return err
		}
		fmt.Printf("restored revision %d to %s\n", restoreRevision, restoreOut)
		return nil
	}

	revs := archive.Revisions()
	if len(revs) == 0 {
		fmt.Println("no revisions")
		return nil
	}
	for _, r := range revs {
		fmt.Printf("%6d  %s  %6d bytes (%d on disk)\n",
			r.Revision, r.Time.Format(time.RFC3339), r.RawBytes, r.CompressedBytes)
	}
	stats := archive.Stats()
	fmt.Printf("%d revisions, %.0f%% saved by compression\n",
		stats.Revisions, stats.CompressionRatio*100)
	return nil
}
