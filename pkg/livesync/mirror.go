// Package livesync keeps a persistence-ready document synchronized with a
// live graph. A Mirror listens to graph notifications and applies them
// incrementally, so saving never has to walk the topology and other
// goroutines can snapshot the current state without touching the engine.
package livesync

import (
	"io"
	"sort"
	"sync"

	"github.com/dd0wney/patchboard/pkg/document"
	"github.com/dd0wney/patchboard/pkg/graph"
	"github.com/dd0wney/patchboard/pkg/logging"
)

// Mirror maintains a document copy of a graph, updated from observer
// callbacks. Callbacks arrive on the engine goroutine; Snapshot and Encode
// may be called from any goroutine.
//
// Snapshots list records in id order, matching the engine's own document
// writer, so a mirror snapshot and a direct save of the same state encode
// identically.
type Mirror struct {
	mu      sync.RWMutex
	graph   *graph.Graph
	doc     *document.Document
	nodeIdx map[string]int
	edgeIdx map[string]int
	enabled bool

	logger logging.Logger
}

var _ graph.Observer = (*Mirror)(nil)

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithLogger overrides the default logger.
func WithLogger(l logging.Logger) MirrorOption {
	return func(m *Mirror) { m.logger = l }
}

// NewMirror creates a mirror primed from g's current state. The caller
// attaches it: g.Attach(m).
func NewMirror(g *graph.Graph, opts ...MirrorOption) *Mirror {
	m := &Mirror{
		enabled: true,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logging.Component("livesync"))
	m.Rebuild(g)
	return m
}

// Rebuild regenerates the mirror from g and tracks g from then on.
func (m *Mirror) Rebuild(g *graph.Graph) {
	doc := g.SaveDocument()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.graph = g
	m.replaceLocked(doc)
	m.logger.Debug("mirror rebuilt",
		logging.Int("nodes", len(doc.Nodes)),
		logging.Int("edges", len(doc.Edges)))
}

// SetEnabled turns mirroring on or off. While disabled the mirror goes
// stale; enabling rebuilds it from the tracked graph.
func (m *Mirror) SetEnabled(enabled bool) {
	m.mu.Lock()
	if m.enabled == enabled {
		m.mu.Unlock()
		return
	}
	m.enabled = enabled
	g := m.graph
	m.mu.Unlock()

	m.logger.Info("mirroring toggled", logging.Bool("enabled", enabled))
	if enabled && g != nil {
		m.Rebuild(g)
	}
}

// Enabled reports whether the mirror is applying changes.
func (m *Mirror) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Snapshot returns a deep copy of the mirrored document, records sorted by
// id.
func (m *Mirror) Snapshot() *document.Document {
	m.mu.RLock()
	doc := m.doc.Clone()
	m.mu.RUnlock()

	sort.Slice(doc.Nodes, func(i, j int) bool { return doc.Nodes[i].ID < doc.Nodes[j].ID })
	sort.Slice(doc.Edges, func(i, j int) bool { return doc.Edges[i].ID < doc.Edges[j].ID })
	return doc
}

// Encode writes the mirrored document to w.
func (m *Mirror) Encode(w io.Writer) error {
	return document.Encode(w, m.Snapshot())
}

// NodeCount returns the number of mirrored node records.
func (m *Mirror) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.doc.Nodes)
}

// EdgeCount returns the number of mirrored edge records.
func (m *Mirror) EdgeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.doc.Edges)
}

// replaceLocked swaps in doc and rebuilds both indexes.
func (m *Mirror) replaceLocked(doc *document.Document) {
	m.doc = doc
	m.nodeIdx = make(map[string]int, len(doc.Nodes))
	for i, n := range doc.Nodes {
		m.nodeIdx[n.ID] = i
	}
	m.edgeIdx = make(map[string]int, len(doc.Edges))
	for i, e := range doc.Edges {
		m.edgeIdx[e.ID] = i
	}
}

// Observer callbacks. Each applies one incremental update under the lock.

// OnNodeAdded upserts the node's record.
func (m *Mirror) OnNodeAdded(n *graph.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}

	rec := n.Record()
	if i, ok := m.nodeIdx[rec.ID]; ok {
		m.doc.Nodes[i] = rec
		return
	}
	m.nodeIdx[rec.ID] = len(m.doc.Nodes)
	m.doc.Nodes = append(m.doc.Nodes, rec)
}

// OnNodeRemoved drops the node's record.
func (m *Mirror) OnNodeRemoved(id graph.NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}

	i, ok := m.nodeIdx[string(id)]
	if !ok {
		return
	}
	last := len(m.doc.Nodes) - 1
	if i != last {
		m.doc.Nodes[i] = m.doc.Nodes[last]
		m.nodeIdx[m.doc.Nodes[i].ID] = i
	}
	m.doc.Nodes = m.doc.Nodes[:last]
	delete(m.nodeIdx, string(id))
}

// OnNodeMoved updates the record's position in place.
func (m *Mirror) OnNodeMoved(id graph.NodeID, _, to graph.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}

	if i, ok := m.nodeIdx[string(id)]; ok {
		m.doc.Nodes[i].X = to.X
		m.doc.Nodes[i].Y = to.Y
	}
}

// OnEdgeAdded upserts the edge's record.
func (m *Mirror) OnEdgeAdded(e *graph.Edge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}

	rec := e.Record()
	if i, ok := m.edgeIdx[rec.ID]; ok {
		m.doc.Edges[i] = rec
		return
	}
	m.edgeIdx[rec.ID] = len(m.doc.Edges)
	m.doc.Edges = append(m.doc.Edges, rec)
}

// OnEdgeRemoved drops the edge's record.
func (m *Mirror) OnEdgeRemoved(id graph.EdgeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}

	i, ok := m.edgeIdx[string(id)]
	if !ok {
		return
	}
	last := len(m.doc.Edges) - 1
	if i != last {
		m.doc.Edges[i] = m.doc.Edges[last]
		m.edgeIdx[m.doc.Edges[i].ID] = i
	}
	m.doc.Edges = m.doc.Edges[:last]
	delete(m.edgeIdx, string(id))
}

// OnGraphCleared empties the mirror.
func (m *Mirror) OnGraphCleared() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}
	m.replaceLocked(document.New())
}

// OnGraphLoaded resynchronizes from the tracked graph. Loads announce
// every entity individually, so the mirror is normally current already;
// the rebuild guarantees it even if the mirror attached mid-session.
func (m *Mirror) OnGraphLoaded(string) {
	m.mu.RLock()
	g := m.graph
	enabled := m.enabled
	m.mu.RUnlock()

	if enabled && g != nil {
		m.Rebuild(g)
	}
}

// OnGraphSaved is a no-op; the mirror is the thing being saved.
func (m *Mirror) OnGraphSaved(string) {}

// OnBatchBegun is a no-op; mirror updates are cheap enough to apply live.
func (m *Mirror) OnBatchBegun() {}

// OnBatchEnded is a no-op.
func (m *Mirror) OnBatchEnded() {}
