package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/dd0wney/patchboard/pkg/logging"
	"github.com/dd0wney/patchboard/pkg/metrics"
)

func newTestGraph() *Graph {
	return New(Config{
		Logger:  logging.NewNopLogger(),
		Metrics: metrics.NewRegistry(),
	})
}

// eventRecorder captures the notification stream as "kind:detail" strings.
type eventRecorder struct {
	BaseObserver
	events []string
}

func (r *eventRecorder) OnNodeAdded(n *Node) {
	r.events = append(r.events, "node-added:"+string(n.ID()))
}

func (r *eventRecorder) OnNodeRemoved(id NodeID) {
	r.events = append(r.events, "node-removed:"+string(id))
}

func (r *eventRecorder) OnNodeMoved(id NodeID, from, to Point) {
	r.events = append(r.events, "node-moved:"+string(id))
}

func (r *eventRecorder) OnEdgeAdded(e *Edge) {
	r.events = append(r.events, "edge-added:"+string(e.ID()))
}

func (r *eventRecorder) OnEdgeRemoved(id EdgeID) {
	r.events = append(r.events, "edge-removed:"+string(id))
}

func (r *eventRecorder) OnGraphCleared() {
	r.events = append(r.events, "cleared")
}

func (r *eventRecorder) OnGraphLoaded(origin string) {
	r.events = append(r.events, "loaded:"+origin)
}

func (r *eventRecorder) OnGraphSaved(origin string) {
	r.events = append(r.events, "saved:"+origin)
}

func (r *eventRecorder) OnBatchBegun() {
	r.events = append(r.events, "batch-begin")
}

func (r *eventRecorder) OnBatchEnded() {
	r.events = append(r.events, "batch-end")
}

func (r *eventRecorder) reset() {
	r.events = nil
}

func (r *eventRecorder) ofKind(kind string) []string {
	var out []string
	for _, ev := range r.events {
		if ev == kind || strings.HasPrefix(ev, kind+":") {
			out = append(out, ev)
		}
	}
	return out
}

func (r *eventRecorder) indexOf(event string) int {
	for i, ev := range r.events {
		if ev == event {
			return i
		}
	}
	return -1
}

// buildChain creates SOURCE -> TRANSFORM -> SINK with both edges wired.
func buildChain(t *testing.T, g *Graph) (*Node, *Node, *Node, *Edge, *Edge) {
	t.Helper()
	source := g.CreateNode("SOURCE", Point{X: 0, Y: 0})
	transform := g.CreateNode("TRANSFORM", Point{X: 100, Y: 0})
	sink := g.CreateNode("SINK", Point{X: 200, Y: 0})

	// SOURCE has no inputs, so its output sits at combined index 0.
	// TRANSFORM's input is index 0, its output index 1.
	e1, err := g.CreateEdge(source.ID(), 0, transform.ID(), 0)
	if err != nil {
		t.Fatalf("CreateEdge(source->transform) failed: %v", err)
	}
	e2, err := g.CreateEdge(transform.ID(), 1, sink.ID(), 0)
	if err != nil {
		t.Fatalf("CreateEdge(transform->sink) failed: %v", err)
	}
	return source, transform, sink, e1, e2
}

func TestCreateNodeUsesCatalogTemplate(t *testing.T) {
	g := newTestGraph()

	tests := []struct {
		typeTag string
		inputs  int
		outputs int
	}{
		{"SOURCE", 0, 1},
		{"SINK", 1, 0},
		{"TRANSFORM", 1, 1},
		{"MERGE", 2, 1},
		{"SPLIT", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.typeTag, func(t *testing.T) {
			n := g.CreateNode(tt.typeTag, Point{X: 1, Y: 2})
			if n.Type() != tt.typeTag {
				t.Errorf("Type() = %q, want %q", n.Type(), tt.typeTag)
			}
			if n.InputCount() != tt.inputs {
				t.Errorf("InputCount() = %d, want %d", n.InputCount(), tt.inputs)
			}
			if n.OutputCount() != tt.outputs {
				t.Errorf("OutputCount() = %d, want %d", n.OutputCount(), tt.outputs)
			}
			if n.Position() != (Point{X: 1, Y: 2}) {
				t.Errorf("Position() = %v, want {1 2}", n.Position())
			}
			got, ok := g.Node(n.ID())
			if !ok || got != n {
				t.Error("created node not retrievable from graph")
			}
		})
	}
}

func TestCreateNodeUnknownTypeFallsBack(t *testing.T) {
	g := newTestGraph()

	n := g.CreateNode("WOBBLE", Point{})
	if n.Type() != "WOBBLE" {
		t.Errorf("Type() = %q, want tag preserved", n.Type())
	}
	if n.InputCount() != 1 || n.OutputCount() != 1 {
		t.Errorf("port counts = %d/%d, want 1/1 fallback",
			n.InputCount(), n.OutputCount())
	}
}

func TestThreeNodeChain(t *testing.T) {
	g := newTestGraph()
	rec := &eventRecorder{}
	g.Attach(rec)

	source, transform, sink, e1, e2 := buildChain(t, g)

	if !e1.Resolved() || !e2.Resolved() {
		t.Fatal("chain edges should be resolved")
	}
	if g.NodeCount() != 3 || g.EdgeCount() != 2 {
		t.Fatalf("counts = %d nodes / %d edges, want 3/2",
			g.NodeCount(), g.EdgeCount())
	}
	if source.Degree() != 1 || transform.Degree() != 2 || sink.Degree() != 1 {
		t.Errorf("degrees = %d/%d/%d, want 1/2/1",
			source.Degree(), transform.Degree(), sink.Degree())
	}

	// Every wired port is occupied by its own edge.
	srcOut, _ := source.PortAt(0)
	if srcOut.Edge() != e1 {
		t.Error("source output should hold the first edge")
	}
	tIn, _ := transform.PortAt(0)
	tOut, _ := transform.PortAt(1)
	if tIn.Edge() != e1 || tOut.Edge() != e2 {
		t.Error("transform ports misreferenced")
	}

	added := rec.ofKind("node-added")
	if len(added) != 3 {
		t.Errorf("node-added events = %d, want 3", len(added))
	}
	edgeAdded := rec.ofKind("edge-added")
	if len(edgeAdded) != 2 {
		t.Errorf("edge-added events = %d, want 2", len(edgeAdded))
	}
}

func TestDeleteNodeCascades(t *testing.T) {
	g := newTestGraph()
	source, transform, sink, e1, e2 := buildChain(t, g)

	rec := &eventRecorder{}
	g.Attach(rec)

	g.DeleteNode(transform.ID())

	if g.NodeCount() != 2 || g.EdgeCount() != 0 {
		t.Fatalf("counts = %d/%d, want 2 nodes, 0 edges",
			g.NodeCount(), g.EdgeCount())
	}

	// Both edge removals must be announced before the node removal.
	nodeIdx := rec.indexOf("node-removed:" + string(transform.ID()))
	if nodeIdx == -1 {
		t.Fatal("node removal not announced")
	}
	removed := rec.ofKind("edge-removed")
	if len(removed) != 2 {
		t.Fatalf("edge-removed events = %d, want 2", len(removed))
	}
	for _, ev := range removed {
		if rec.indexOf(ev) > nodeIdx {
			t.Errorf("%s announced after node removal", ev)
		}
	}

	// Surviving endpoints are released.
	if source.Degree() != 0 || sink.Degree() != 0 {
		t.Errorf("survivor degrees = %d/%d, want 0/0",
			source.Degree(), sink.Degree())
	}
	srcOut, _ := source.PortAt(0)
	if srcOut.Connected() {
		t.Error("source output still occupied")
	}

	// Held edge pointers are invalidated but still describe endpoints.
	if e1.State() != EdgeInvalidated || e2.State() != EdgeInvalidated {
		t.Error("cascaded edges should be invalidated")
	}
	if !e1.ConnectsNode(transform.ID()) {
		t.Error("invalidated edge lost its endpoint descriptors")
	}
	if _, ok := e1.Source(); ok {
		t.Error("invalidated edge should expose no node references")
	}
}

func TestDeleteUnknownIsNoOp(t *testing.T) {
	g := newTestGraph()
	g.CreateNode("SOURCE", Point{})

	rec := &eventRecorder{}
	g.Attach(rec)

	g.DeleteNode(NodeID("no-such-node"))
	g.DeleteEdge(EdgeID("no-such-edge"))

	if len(rec.events) != 0 {
		t.Errorf("unexpected events: %v", rec.events)
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, want 1", g.NodeCount())
	}
}

func TestOccupancyConflict(t *testing.T) {
	g := newTestGraph()
	a := g.CreateNode("SOURCE", Point{})
	b := g.CreateNode("SOURCE", Point{})
	sink := g.CreateNode("SINK", Point{})

	first, err := g.CreateEdge(a.ID(), 0, sink.ID(), 0)
	if err != nil {
		t.Fatalf("first edge failed: %v", err)
	}

	rec := &eventRecorder{}
	g.Attach(rec)

	_, err = g.CreateEdge(b.ID(), 0, sink.ID(), 0)
	if !errors.Is(err, ErrPortAlreadyConnected) {
		t.Fatalf("err = %v, want ErrPortAlreadyConnected", err)
	}

	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
	if len(rec.ofKind("edge-added")) != 0 {
		t.Error("rejected edge must not be announced")
	}
	sinkIn, _ := sink.PortAt(0)
	if sinkIn.Edge() != first {
		t.Error("existing edge displaced by rejected one")
	}
	if b.Degree() != 0 {
		t.Error("rejected edge left residue on source node")
	}
}

func TestClearRemovesEverything(t *testing.T) {
	g := newTestGraph()
	buildChain(t, g)

	rec := &eventRecorder{}
	g.Attach(rec)

	g.Clear()

	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Fatalf("counts after clear = %d/%d, want 0/0",
			g.NodeCount(), g.EdgeCount())
	}

	if rec.events[0] != "batch-begin" {
		t.Errorf("first event = %q, want batch-begin", rec.events[0])
	}
	if rec.events[len(rec.events)-1] != "batch-end" {
		t.Errorf("last event = %q, want batch-end", rec.events[len(rec.events)-1])
	}

	clearedIdx := rec.indexOf("cleared")
	if clearedIdx == -1 {
		t.Fatal("cleared event missing")
	}

	// Edges go first, then nodes, then the cleared notification.
	lastEdge := -1
	for _, ev := range rec.ofKind("edge-removed") {
		if i := rec.indexOf(ev); i > lastEdge {
			lastEdge = i
		}
	}
	firstNode := len(rec.events)
	for _, ev := range rec.ofKind("node-removed") {
		if i := rec.indexOf(ev); i < firstNode {
			firstNode = i
		}
	}
	if lastEdge > firstNode {
		t.Error("node removal announced before an edge removal")
	}
	if firstNode > clearedIdx {
		t.Error("cleared announced before node removals finished")
	}

	if len(rec.ofKind("edge-removed")) != 2 || len(rec.ofKind("node-removed")) != 3 {
		t.Errorf("removal events = %d edges / %d nodes, want 2/3",
			len(rec.ofKind("edge-removed")), len(rec.ofKind("node-removed")))
	}
}

func TestClearLeavesHeldPointersInert(t *testing.T) {
	g := newTestGraph()
	source, _, _, e1, _ := buildChain(t, g)

	g.Clear()

	// Disposed nodes ignore mutations instead of dangling.
	before := source.Position()
	source.MoveTo(Point{X: 999, Y: 999})
	if source.Position() != before {
		t.Error("disposed node accepted a move")
	}
	source.SetType("MERGE")
	if source.Type() != "SOURCE" {
		t.Error("disposed node accepted a retype")
	}
	if e1.State() != EdgeInvalidated {
		t.Error("cleared edge should be invalidated")
	}
}

func TestClearDuringClearIsIgnored(t *testing.T) {
	g := newTestGraph()
	buildChain(t, g)

	rec := &eventRecorder{}
	g.Attach(rec)
	g.Attach(&clearOnRemove{g: g})

	g.Clear()

	if len(rec.ofKind("cleared")) != 1 {
		t.Errorf("cleared events = %d, want 1", len(rec.ofKind("cleared")))
	}
	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Error("graph not empty after re-entrant clear")
	}
}

// clearOnRemove re-enters Clear from inside a removal callback.
type clearOnRemove struct {
	BaseObserver
	g *Graph
}

func (c *clearOnRemove) OnEdgeRemoved(EdgeID) {
	c.g.Clear()
}

func (c *clearOnRemove) OnNodeRemoved(NodeID) {
	c.g.Clear()
}

func TestMutationFromCallback(t *testing.T) {
	g := newTestGraph()

	spawner := &spawnOnAdd{g: g}
	g.Attach(spawner)

	g.CreateNode("SOURCE", Point{})

	if g.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2 (observer spawned one)", g.NodeCount())
	}
}

// spawnOnAdd creates one extra node from inside the added callback.
type spawnOnAdd struct {
	BaseObserver
	g       *Graph
	spawned bool
}

func (s *spawnOnAdd) OnNodeAdded(*Node) {
	if s.spawned {
		return
	}
	s.spawned = true
	s.g.CreateNode("SINK", Point{})
}

func TestNodesAndEdgesAreSorted(t *testing.T) {
	g := newTestGraph()
	for i := 0; i < 8; i++ {
		g.CreateNode("TRANSFORM", Point{X: float64(i)})
	}

	nodes := g.Nodes()
	for i := 1; i < len(nodes); i++ {
		if nodes[i-1].ID() >= nodes[i].ID() {
			t.Fatal("Nodes() not sorted by ID")
		}
	}
}
