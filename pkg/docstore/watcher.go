package docstore

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dd0wney/patchboard/pkg/logging"
	"github.com/dd0wney/patchboard/pkg/metrics"
)

// DefaultDebounce is the watcher's event-coalescing window.
const DefaultDebounce = time.Second

// WatcherConfig holds watcher options.
type WatcherConfig struct {
	// Path is the document file to watch.
	Path string
	// Debounce is the quiet period before a change signal is delivered.
	// Zero means DefaultDebounce.
	Debounce time.Duration
}

// Watcher reports external changes to the document file. Bursts of events
// (editor save dances, partial writes) coalesce into one signal. The
// process's own saves can be masked with Ignore.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	debounce time.Duration
	changes  chan struct{}
	done     chan struct{}

	mu          sync.Mutex
	ignoreUntil time.Time

	logger  logging.Logger
	metrics *metrics.Registry

	closeOnce sync.Once
	closeErr  error
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger overrides the default logger.
func WithWatcherLogger(l logging.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithWatcherMetrics overrides the default metrics registry.
func WithWatcherMetrics(r *metrics.Registry) WatcherOption {
	return func(w *Watcher) { w.metrics = r }
}

// NewWatcher creates a watcher for cfg.Path. Call Start to begin watching.
func NewWatcher(cfg WatcherConfig, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		fsw:      fsw,
		path:     cfg.Path,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		logger:   logging.Default(),
		metrics:  metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logging.Component("watcher"), logging.Path(cfg.Path))
	return w, nil
}

// Start watches the document's directory. Watching the directory rather
// than the file itself keeps the watch alive across atomic-rename saves,
// which replace the file's inode.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	go w.loop()
	w.logger.Info("watching for external changes")
	return nil
}

// Changes delivers one signal per coalesced burst of external edits. If
// the receiver lags, further signals are dropped rather than queued.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Ignore suppresses events arriving within d from now. Call it just before
// the process saves the document itself, so the save does not echo back as
// an external change.
func (w *Watcher) Ignore(d time.Duration) {
	w.mu.Lock()
	w.ignoreUntil = time.Now().Add(d)
	w.mu.Unlock()
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.fsw.Close()
	})
	return w.closeErr
}

func (w *Watcher) ignored() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Now().Before(w.ignoreUntil)
}

// loop coalesces file events with a resettable timer.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if w.ignored() {
				w.logger.Debug("own save echoed back, ignoring")
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					// Drain the channel if the timer already fired.
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = true

		case <-timerC(timer):
			if pending {
				pending = false
				select {
				case w.changes <- struct{}{}:
					w.metrics.RecordWatcherReload()
					w.logger.Info("document changed on disk")
				default:
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Err(err))

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// timerC returns the timer's channel, or nil when no timer is armed.
func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// relevant filters events to writes, creates, and renames of the document
// file itself.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Base(event.Name) == filepath.Base(w.path)
}
