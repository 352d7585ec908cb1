package graph

import (
	"time"

	"github.com/dd0wney/patchboard/pkg/document"
	"github.com/dd0wney/patchboard/pkg/logging"
)

// LoadSummary reports what a document load materialized and what it had
// to drop.
type LoadSummary struct {
	NodesLoaded int
	NodesFailed int
	EdgesLoaded int
	EdgesFailed int
	Failures    []error
}

// Ok reports whether every entity in the document materialized.
func (s *LoadSummary) Ok() bool {
	return s.NodesFailed == 0 && s.EdgesFailed == 0
}

// LoadDocument replaces the graph's content with the document's. Nodes
// materialize first, then edges resolve against them; an entity that
// fails is dropped and counted, never aborting the rest. The whole load
// runs inside one batch and ends with the loaded notification.
//
// Node ports come from the document's recorded counts, not the catalog,
// so documents survive catalog drift.
func (g *Graph) LoadDocument(doc *document.Document, origin string) *LoadSummary {
	start := time.Now()
	summary := &LoadSummary{}

	if len(g.nodes) > 0 || len(g.edges) > 0 {
		g.Clear()
	}

	g.BeginBatch()

	for _, rec := range doc.Nodes {
		if err := g.loadNode(rec); err != nil {
			summary.NodesFailed++
			summary.Failures = append(summary.Failures, err)
			g.metrics.RecordLoadEntity("node", "failed")
			g.logger.Warn("node dropped during load", logging.Err(err))
			continue
		}
		summary.NodesLoaded++
		g.metrics.RecordLoadEntity("node", "ok")
	}

	pending := make([]*Edge, 0, len(doc.Edges))
	seen := make(map[EdgeID]struct{}, len(doc.Edges))
	for _, rec := range doc.Edges {
		id := EdgeID(rec.ID)
		if rec.ID == "" {
			summary.EdgesFailed++
			err := NewError("load").Edge(id).Cause(document.ErrMalformedEntity).Err()
			summary.Failures = append(summary.Failures, err)
			g.metrics.RecordLoadEntity("edge", "failed")
			g.logger.Warn("edge dropped during load", logging.Err(err))
			continue
		}
		if _, dup := seen[id]; dup {
			summary.EdgesFailed++
			err := NewError("load").Edge(id).Cause(ErrDuplicateID).Err()
			summary.Failures = append(summary.Failures, err)
			g.metrics.RecordLoadEntity("edge", "failed")
			g.logger.Warn("edge dropped during load", logging.Err(err))
			continue
		}
		seen[id] = struct{}{}
		pending = append(pending, newEdge(id,
			NodeID(rec.SourceNodeID), rec.SourceSocketIndex,
			NodeID(rec.TargetNodeID), rec.TargetSocketIndex))
	}

	for _, e := range pending {
		if err := e.resolve(g); err != nil {
			summary.EdgesFailed++
			wrapped := NewError("load").Edge(e.id).Cause(err).Err()
			summary.Failures = append(summary.Failures, wrapped)
			g.metrics.RecordLoadEntity("edge", "failed")
			g.metrics.RecordConnectionFailure(failureReason(err))
			g.logger.Warn("edge dropped during load", logging.Err(wrapped))
			continue
		}
		g.edges[e.id] = e
		g.notifyEdgeAdded(e)
		summary.EdgesLoaded++
		g.metrics.RecordLoadEntity("edge", "ok")
	}

	g.notifyGraphLoaded(origin)
	g.EndBatch()

	status := "ok"
	if !summary.Ok() {
		status = "partial"
	}
	g.metrics.RecordTopologyOperation("load_document", status, time.Since(start))
	g.syncSizeMetrics()
	g.logger.Info("document loaded",
		logging.Origin(origin),
		logging.Int("nodes", summary.NodesLoaded),
		logging.Int("edges", summary.EdgesLoaded),
		logging.Int("failed", summary.NodesFailed+summary.EdgesFailed))
	return summary
}

// loadNode materializes one node record.
func (g *Graph) loadNode(rec document.NodeRecord) error {
	id := NodeID(rec.ID)
	if rec.ID == "" {
		return NewError("load").Node(id).Cause(document.ErrMalformedEntity).Err()
	}
	if _, dup := g.nodes[id]; dup {
		return NewError("load").Node(id).Cause(ErrDuplicateID).Err()
	}
	if rec.InputCount < 0 || rec.InputCount > document.MaxPortCount ||
		rec.OutputCount < 0 || rec.OutputCount > document.MaxPortCount {
		return NewError("load").Node(id).Context("port counts").
			Cause(document.ErrMalformedEntity).Err()
	}

	n := newNode(id, rec.Type, Point{X: rec.X, Y: rec.Y},
		rec.InputCount, rec.OutputCount, g)
	g.nodes[id] = n
	g.notifyNodeAdded(n)
	return nil
}

// SaveDocument captures the graph as a document. Entities appear in ID
// order so equal graphs serialize identically.
func (g *Graph) SaveDocument() *document.Document {
	doc := document.New()
	for _, id := range g.sortedNodeIDs() {
		doc.Nodes = append(doc.Nodes, g.nodes[id].Record())
	}
	for _, id := range g.sortedEdgeIDs() {
		doc.Edges = append(doc.Edges, g.edges[id].Record())
	}
	return doc
}

// NotifySaved announces a completed save to observers. The graph itself
// never touches files; whoever persisted the document reports it here.
func (g *Graph) NotifySaved(origin string) {
	g.notifyGraphSaved(origin)
}
