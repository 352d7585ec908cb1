package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dd0wney/patchboard/pkg/autosave"
	"github.com/dd0wney/patchboard/pkg/docstore"
	"github.com/dd0wney/patchboard/pkg/livesync"
	"github.com/dd0wney/patchboard/pkg/logging"
	"github.com/dd0wney/patchboard/pkg/metrics"
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Run a live session over a board document",
	Long: `Loads the document, mirrors every change, and autosaves after each
quiet period. External edits reload the graph; SIGINT flushes pending
changes before exiting. The file argument overrides the configured
document path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	reg := metrics.NewRegistry()

	path := cfg.Document.Path
	if len(args) == 1 {
		path = args[0]
	}

	storeOpts := []docstore.StoreOption{docstore.WithStoreLogger(logger)}
	if cfg.Archive.Enabled {
		archive, err := docstore.OpenArchive(docstore.ArchivePath(path),
			docstore.WithArchiveLogger(logger),
			docstore.WithArchiveMetrics(reg))
		if err != nil {
			return err
		}
		defer archive.Close()
		storeOpts = append(storeOpts, docstore.WithArchive(archive))
	}
	store := docstore.NewStore(path, storeOpts...)

	g, err := newGraph(cfg, logger, reg)
	if err != nil {
		return err
	}
	if store.Exists() {
		doc, _, err := store.Load()
		if err != nil {
			return err
		}
		g.LoadDocument(doc, path)
	}

	var watcher *docstore.Watcher
	var changes <-chan struct{}
	if cfg.Watch.Enabled {
		watcher, err = docstore.NewWatcher(docstore.WatcherConfig{
			Path:     path,
			Debounce: time.Duration(cfg.Watch.Debounce),
		}, docstore.WithWatcherLogger(logger), docstore.WithWatcherMetrics(reg))
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			watcher.Close()
			return err
		}
		defer watcher.Close()
		changes = watcher.Changes()
	}

	mirror := livesync.NewMirror(g, livesync.WithLogger(logger))
	g.Attach(mirror)

	var saver *autosave.Saver
	if cfg.Autosave.Enabled {
		saverOpts := []autosave.SaverOption{
			autosave.WithDelay(time.Duration(cfg.Autosave.Delay)),
			autosave.WithLogger(logger),
			autosave.WithMetrics(reg),
		}
		if watcher != nil {
			ignoreFor := 2 * time.Duration(cfg.Watch.Debounce)
			saverOpts = append(saverOpts, autosave.WithBeforeFlush(func() {
				watcher.Ignore(ignoreFor)
			}))
		}
		saver = autosave.NewSaver(mirror, store, saverOpts...)
		g.Attach(saver)
	}

	if cfg.Metrics.Listen != "" {
		srv := metricsServer(cfg.Metrics.Listen, reg, logger)
		defer srv.Close()
	}

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigC)

	fmt.Printf("session open on %s\n", path)
	for {
		select {
		case <-changes:
			doc, _, err := store.Load()
			if err != nil {
				logger.Error("reload failed", logging.Err(err))
				continue
			}
			g.LoadDocument(doc, "reload")

		case s := <-sigC:
			logger.Info("shutting down", logging.String("signal", s.String()))
			if saver != nil {
				if err := saver.Close(); err != nil {
					return fmt.Errorf("flush on shutdown: %w", err)
				}
			}
			return nil
		}
	}
}

// metricsServer exposes the registry on addr until the server is closed.
func metricsServer(addr string, reg *metrics.Registry, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", logging.Err(err))
		}
	}()
	logger.Info("metrics endpoint up", logging.String("listen", addr))
	return srv
}
