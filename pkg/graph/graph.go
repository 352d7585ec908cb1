package graph

import (
	"sort"
	"time"

	"github.com/dd0wney/patchboard/pkg/logging"
	"github.com/dd0wney/patchboard/pkg/metrics"
)

// Graph is the owning registry for nodes and edges. It hands out plain
// pointers and guarantees they stay safe to hold: entities removed from
// the graph are invalidated, never left dangling.
//
// A Graph is not safe for concurrent use. All mutations and observer
// callbacks run on the caller's goroutine; observers needing another
// goroutine must hand off their own copies (see the livesync package).
type Graph struct {
	logger  logging.Logger
	metrics *metrics.Registry
	catalog *Catalog

	nodes map[NodeID]*Node
	edges map[EdgeID]*Edge

	observers  []Observer
	batchDepth int

	draft    *draft
	clearing bool
}

// Config carries the graph's collaborators. Zero values get working
// defaults.
type Config struct {
	Logger  logging.Logger
	Metrics *metrics.Registry
	Catalog *Catalog
}

// New creates an empty graph.
func New(cfg Config) *Graph {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Graph{
		logger:  logger.With(logging.Component("graph")),
		metrics: reg,
		catalog: catalog,
		nodes:   make(map[NodeID]*Node),
		edges:   make(map[EdgeID]*Edge),
	}
}

// Catalog returns the node type catalog.
func (g *Graph) Catalog() *Catalog {
	return g.catalog
}

// Metrics returns the metrics registry recording this graph's activity.
func (g *Graph) Metrics() *metrics.Registry {
	return g.metrics
}

// CreateNode inserts a node of the given type at a position and announces
// it. Unknown type tags get the default single-input, single-output port
// layout and keep their tag.
func (g *Graph) CreateNode(typeTag string, pos Point) *Node {
	start := time.Now()
	tmpl, known := g.catalog.Lookup(typeTag)
	if !known {
		g.logger.Debug("unknown node type, using default ports",
			logging.NodeType(typeTag))
	}

	n := newNode(newNodeID(), tmpl.Type, pos, tmpl.Inputs, tmpl.Outputs, g)
	g.nodes[n.id] = n
	g.notifyNodeAdded(n)

	g.metrics.RecordTopologyOperation("create_node", "ok", time.Since(start))
	g.syncSizeMetrics()
	g.logger.Debug("node created",
		logging.NodeID(string(n.id)), logging.NodeType(n.typeTag))
	return n
}

// DeleteNode removes a node and every edge incident to it. Edge removals
// are announced first, then the node removal, and only then is the node
// disposed. Deleting an unknown ID is a logged no-op.
func (g *Graph) DeleteNode(id NodeID) {
	start := time.Now()
	n, ok := g.nodes[id]
	if !ok {
		g.logger.Warn("delete node: not found", logging.NodeID(string(id)))
		return
	}

	if g.draft != nil && g.draft.sourcePort.node == n {
		g.CancelConnection()
	}

	g.removeIncidentEdges(n)
	delete(g.nodes, id)
	g.notifyNodeRemoved(id)
	n.dispose()

	g.metrics.RecordTopologyOperation("delete_node", "ok", time.Since(start))
	g.syncSizeMetrics()
	g.logger.Debug("node deleted", logging.NodeID(string(id)))
}

// CreateEdge connects an output port to an input port. The connection
// rules run before anything is touched; on failure no graph state changes
// and the error names the failed check.
func (g *Graph) CreateEdge(sourceID NodeID, sourceIndex int, targetID NodeID, targetIndex int) (*Edge, error) {
	start := time.Now()
	e := newEdge(newEdgeID(), sourceID, sourceIndex, targetID, targetIndex)
	if err := e.resolve(g); err != nil {
		g.metrics.RecordTopologyOperation("create_edge", "error", time.Since(start))
		g.metrics.RecordConnectionFailure(failureReason(err))
		g.logger.Debug("edge rejected", logging.Err(err))
		return nil, err
	}

	g.edges[e.id] = e
	g.notifyEdgeAdded(e)

	g.metrics.RecordTopologyOperation("create_edge", "ok", time.Since(start))
	g.syncSizeMetrics()
	g.logger.Debug("edge created",
		logging.EdgeID(string(e.id)),
		logging.String("source", string(sourceID)),
		logging.String("target", string(targetID)))
	return e, nil
}

// DeleteEdge detaches an edge from both endpoints, removes it and
// announces the removal. Deleting an unknown ID is a logged no-op.
func (g *Graph) DeleteEdge(id EdgeID) {
	start := time.Now()
	e, ok := g.edges[id]
	if !ok {
		g.logger.Warn("delete edge: not found", logging.EdgeID(string(id)))
		return
	}

	e.detach()
	delete(g.edges, id)
	g.notifyEdgeRemoved(id)

	g.metrics.RecordTopologyOperation("delete_edge", "ok", time.Since(start))
	g.syncSizeMetrics()
	g.logger.Debug("edge deleted", logging.EdgeID(string(id)))
}

// Clear wipes the graph inside one batch: every edge first, then every
// node, each removal announced, then the cleared notification. A clear
// triggered from inside clear's own callbacks is ignored.
func (g *Graph) Clear() {
	if g.clearing {
		g.logger.Warn("clear re-entered, ignoring")
		return
	}
	g.clearing = true
	defer func() { g.clearing = false }()

	start := time.Now()
	nodes, edges := len(g.nodes), len(g.edges)

	g.CancelConnection()
	g.BeginBatch()

	for _, id := range g.sortedEdgeIDs() {
		e := g.edges[id]
		e.detach()
		delete(g.edges, id)
		g.notifyEdgeRemoved(id)
	}
	for _, id := range g.sortedNodeIDs() {
		n := g.nodes[id]
		delete(g.nodes, id)
		g.notifyNodeRemoved(id)
		n.dispose()
	}

	g.notifyGraphCleared()
	g.EndBatch()

	g.metrics.RecordTopologyOperation("clear", "ok", time.Since(start))
	g.syncSizeMetrics()
	g.logger.Info("graph cleared",
		logging.Int("nodes", nodes), logging.Int("edges", edges))
}

// Node looks up a node by ID.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge looks up an edge by ID.
func (g *Graph) Edge(id EdgeID) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Nodes returns every node, ordered by ID.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, id := range g.sortedNodeIDs() {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns every edge, ordered by ID.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, id := range g.sortedEdgeIDs() {
		out = append(out, g.edges[id])
	}
	return out
}

// removeIncidentEdges deletes every edge touching the node. The snapshot
// runs in ID order; edges added by observer callbacks mid-cascade are
// drained afterwards so the node ends up edge-free.
func (g *Graph) removeIncidentEdges(n *Node) {
	ids := make([]EdgeID, 0, len(n.incident))
	for id := range n.incident {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, ok := g.edges[id]; ok {
			g.DeleteEdge(id)
		}
	}

	for len(n.incident) > 0 {
		var id EdgeID
		for eid := range n.incident {
			id = eid
			break
		}
		if _, ok := g.edges[id]; !ok {
			g.logger.Warn("incident edge missing from graph",
				logging.NodeID(string(n.id)), logging.EdgeID(string(id)))
			n.unregisterIncident(id)
			continue
		}
		g.DeleteEdge(id)
	}
}

func (g *Graph) sortedNodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (g *Graph) sortedEdgeIDs() []EdgeID {
	ids := make([]EdgeID, 0, len(g.edges))
	for id := range g.edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (g *Graph) syncSizeMetrics() {
	g.metrics.SetTopologySize(len(g.nodes), len(g.edges))
}
