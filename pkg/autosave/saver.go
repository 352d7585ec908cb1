// Package autosave flushes graph changes to disk after a quiet period.
// A Saver observes the graph, marks itself dirty on every change, and
// writes a snapshot through the document store once changes stop arriving.
package autosave

import (
	"sync"
	"time"

	"github.com/dd0wney/patchboard/pkg/docstore"
	"github.com/dd0wney/patchboard/pkg/document"
	"github.com/dd0wney/patchboard/pkg/graph"
	"github.com/dd0wney/patchboard/pkg/logging"
	"github.com/dd0wney/patchboard/pkg/metrics"
)

// DefaultDelay is the quiet period between the last change and the flush.
const DefaultDelay = 2 * time.Second

// Target supplies the document to persist. livesync.Mirror satisfies it;
// Snapshot must be safe to call from the saver's timer goroutine.
type Target interface {
	Snapshot() *document.Document
}

// Saver debounces changes into saves. Every change restarts a single-shot
// timer; the flush runs once the graph has been quiet for the configured
// delay. During a batch the timer stays parked and one flush is scheduled
// when the batch ends, so bulk operations cannot starve the save.
type Saver struct {
	graph.BaseObserver

	mu          sync.Mutex
	target      Target
	store       *docstore.Store
	delay       time.Duration
	timer       *time.Timer
	dirty       bool
	enabled     bool
	inBatch     bool
	closed      bool
	beforeFlush func()

	logger  logging.Logger
	metrics *metrics.Registry
}

var _ graph.Observer = (*Saver)(nil)

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithDelay sets the quiet period. Non-positive values mean DefaultDelay.
func WithDelay(d time.Duration) SaverOption {
	return func(s *Saver) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(l logging.Logger) SaverOption {
	return func(s *Saver) { s.logger = l }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(r *metrics.Registry) SaverOption {
	return func(s *Saver) { s.metrics = r }
}

// WithBeforeFlush runs fn just before each save hits the disk. Used to
// warn a file watcher that the next change is our own.
func WithBeforeFlush(fn func()) SaverOption {
	return func(s *Saver) { s.beforeFlush = fn }
}

// NewSaver creates a saver flushing target snapshots through store. The
// caller attaches it: g.Attach(s).
func NewSaver(target Target, store *docstore.Store, opts ...SaverOption) *Saver {
	s := &Saver{
		target:  target,
		store:   store,
		delay:   DefaultDelay,
		enabled: true,
		logger:  logging.Default(),
		metrics: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("autosave"))
	return s
}

// Delay returns the current quiet period.
func (s *Saver) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// SetDelay changes the quiet period. An armed timer is rescheduled with
// the new delay.
func (s *Saver) SetDelay(d time.Duration) {
	if d <= 0 {
		d = DefaultDelay
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	if s.timer != nil {
		s.scheduleLocked()
	}
}

// Enabled reports whether autosaving is active.
func (s *Saver) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetEnabled turns autosaving on or off. Disabling stops the armed timer;
// enabling with changes pending schedules a flush.
func (s *Saver) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled == enabled {
		return
	}
	s.enabled = enabled
	if !enabled {
		s.stopTimerLocked()
	} else if s.dirty && !s.inBatch && !s.closed {
		s.scheduleLocked()
	}
	s.logger.Info("autosave toggled", logging.Bool("enabled", enabled))
}

// Dirty reports whether changes are waiting to be flushed.
func (s *Saver) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SaveNow stops the timer and flushes synchronously. It saves pending
// changes even while autosaving is disabled; with nothing pending it is a
// no-op.
func (s *Saver) SaveNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked("manual")
}

// Close flushes pending changes and stops the saver for good.
func (s *Saver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.flushLocked("close")
	s.closed = true
	return err
}

// markDirty records a change and restarts the quiet-period timer unless a
// batch is open.
func (s *Saver) markDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.closed {
		return
	}
	s.dirty = true
	if s.inBatch {
		return
	}
	s.scheduleLocked()
}

func (s *Saver) scheduleLocked() {
	s.stopTimerLocked()
	s.timer = time.AfterFunc(s.delay, s.timerFired)
}

func (s *Saver) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// timerFired runs on the timer goroutine once the quiet period elapses.
func (s *Saver) timerFired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.closed {
		return
	}
	if err := s.flushLocked("autosave"); err != nil {
		s.logger.Error("autosave failed", logging.Err(err))
	}
}

// flushLocked snapshots the target and saves it. The dirty flag survives a
// failed save, so the next change retries.
func (s *Saver) flushLocked(trigger string) error {
	s.stopTimerLocked()
	if !s.dirty {
		return nil
	}

	if s.beforeFlush != nil {
		s.beforeFlush()
	}
	start := time.Now()
	doc := s.target.Snapshot()
	err := s.store.Save(doc)
	duration := time.Since(start)

	if err != nil {
		s.metrics.RecordDocumentSave(trigger, "error", duration)
		return err
	}
	s.dirty = false
	s.metrics.RecordDocumentSave(trigger, "ok", duration)
	s.logger.Info("document flushed",
		logging.Operation(trigger),
		logging.Int("nodes", len(doc.Nodes)),
		logging.Int("edges", len(doc.Edges)),
		logging.Latency(duration))
	return nil
}

// Observer callbacks. Every change marks dirty; batch boundaries park and
// release the timer.

func (s *Saver) OnNodeAdded(*graph.Node)                            { s.markDirty() }
func (s *Saver) OnNodeRemoved(graph.NodeID)                         { s.markDirty() }
func (s *Saver) OnNodeMoved(graph.NodeID, graph.Point, graph.Point) { s.markDirty() }
func (s *Saver) OnEdgeAdded(*graph.Edge)                            { s.markDirty() }
func (s *Saver) OnEdgeRemoved(graph.EdgeID)                         { s.markDirty() }
func (s *Saver) OnGraphCleared()                                    { s.markDirty() }
func (s *Saver) OnGraphLoaded(string)                               { s.markDirty() }

// OnBatchBegun parks the timer while bulk changes stream in.
func (s *Saver) OnBatchBegun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inBatch = true
	s.stopTimerLocked()
}

// OnBatchEnded schedules one flush for everything the batch accumulated.
func (s *Saver) OnBatchEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inBatch = false
	if s.dirty && s.enabled && !s.closed {
		s.scheduleLocked()
	}
}
