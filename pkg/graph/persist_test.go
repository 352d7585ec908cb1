package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dd0wney/patchboard/pkg/document"
)

func TestSaveDocumentIsDeterministic(t *testing.T) {
	g := newTestGraph()
	buildChain(t, g)

	first := g.SaveDocument()
	second := g.SaveDocument()

	if !reflect.DeepEqual(first, second) {
		t.Error("two saves of the same graph differ")
	}
	if first.Version != document.CurrentVersion {
		t.Errorf("version = %q, want %q", first.Version, document.CurrentVersion)
	}
	if len(first.Nodes) != 3 || len(first.Edges) != 2 {
		t.Errorf("document = %d nodes / %d edges, want 3/2",
			len(first.Nodes), len(first.Edges))
	}
}

func TestLoadDocumentMaterializesEverything(t *testing.T) {
	doc := document.New()
	doc.Nodes = []document.NodeRecord{
		{ID: "n1", X: 0, Y: 0, Type: "SOURCE", InputCount: 0, OutputCount: 1},
		{ID: "n2", X: 100, Y: 0, Type: "SINK", InputCount: 1, OutputCount: 0},
	}
	doc.Edges = []document.EdgeRecord{
		{ID: "e1", SourceNodeID: "n1", SourceSocketIndex: 0, TargetNodeID: "n2", TargetSocketIndex: 0},
	}

	g := newTestGraph()
	rec := &eventRecorder{}
	g.Attach(rec)

	summary := g.LoadDocument(doc, "/tmp/patch.xml")

	if !summary.Ok() {
		t.Fatalf("summary = %+v, want clean load", summary)
	}
	if summary.NodesLoaded != 2 || summary.EdgesLoaded != 1 {
		t.Errorf("loaded = %d nodes / %d edges, want 2/1",
			summary.NodesLoaded, summary.EdgesLoaded)
	}
	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Errorf("graph = %d/%d, want 2/1", g.NodeCount(), g.EdgeCount())
	}

	e, ok := g.Edge(EdgeID("e1"))
	if !ok || !e.Resolved() {
		t.Fatal("loaded edge missing or unresolved")
	}

	// Ports reconstructed from recorded counts, wired by combined index.
	n1, _ := g.Node(NodeID("n1"))
	out, _ := n1.PortAt(0)
	if out.Role() != RoleOutput || out.Edge() != e {
		t.Error("loaded source port not wired")
	}

	// The whole load is one batch ending with the loaded notification.
	if rec.events[0] != "batch-begin" || rec.events[len(rec.events)-1] != "batch-end" {
		t.Errorf("load not batched: %v", rec.events)
	}
	loadedIdx := rec.indexOf("loaded:/tmp/patch.xml")
	if loadedIdx == -1 {
		t.Fatal("loaded notification missing")
	}
	if loadedIdx > rec.indexOf("batch-end") {
		t.Error("loaded fired after batch end")
	}
	if len(rec.ofKind("node-added")) != 2 || len(rec.ofKind("edge-added")) != 1 {
		t.Errorf("per-entity events missing: %v", rec.events)
	}
}

func TestLoadDocumentDropsUnresolvableEdges(t *testing.T) {
	doc := document.New()
	doc.Nodes = []document.NodeRecord{
		{ID: "n1", Type: "SOURCE", InputCount: 0, OutputCount: 1},
		{ID: "n2", Type: "SINK", InputCount: 1, OutputCount: 0},
	}
	doc.Edges = []document.EdgeRecord{
		{ID: "good", SourceNodeID: "n1", SourceSocketIndex: 0, TargetNodeID: "n2", TargetSocketIndex: 0},
		{ID: "ghost-endpoint", SourceNodeID: "n1", SourceSocketIndex: 0, TargetNodeID: "nope", TargetSocketIndex: 0},
	}

	g := newTestGraph()
	summary := g.LoadDocument(doc, "test")

	if summary.NodesLoaded != 2 || summary.NodesFailed != 0 {
		t.Errorf("nodes = %d/%d failed, want 2/0",
			summary.NodesLoaded, summary.NodesFailed)
	}
	if summary.EdgesLoaded != 1 || summary.EdgesFailed != 1 {
		t.Errorf("edges = %d loaded / %d failed, want 1/1",
			summary.EdgesLoaded, summary.EdgesFailed)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(summary.Failures))
	}
	if !errors.Is(summary.Failures[0], ErrEndpointNotFound) {
		t.Errorf("failure = %v, want ErrEndpointNotFound", summary.Failures[0])
	}

	// The failed edge leaves no residue.
	if _, ok := g.Edge(EdgeID("ghost-endpoint")); ok {
		t.Error("unresolvable edge kept in registry")
	}
	n1, _ := g.Node(NodeID("n1"))
	if n1.Degree() != 1 {
		t.Errorf("Degree() = %d, want 1", n1.Degree())
	}
}

func TestLoadDocumentRejectsDuplicates(t *testing.T) {
	doc := document.New()
	doc.Nodes = []document.NodeRecord{
		{ID: "dup", Type: "SOURCE", InputCount: 0, OutputCount: 1},
		{ID: "dup", Type: "SINK", InputCount: 1, OutputCount: 0},
	}

	g := newTestGraph()
	summary := g.LoadDocument(doc, "test")

	if summary.NodesLoaded != 1 || summary.NodesFailed != 1 {
		t.Errorf("nodes = %d loaded / %d failed, want 1/1",
			summary.NodesLoaded, summary.NodesFailed)
	}
	if !errors.Is(summary.Failures[0], ErrDuplicateID) {
		t.Errorf("failure = %v, want ErrDuplicateID", summary.Failures[0])
	}

	// First occurrence wins.
	n, ok := g.Node(NodeID("dup"))
	if !ok || n.Type() != "SOURCE" {
		t.Error("first record did not win the duplicate")
	}
}

func TestLoadDocumentRejectsAbsurdPortCounts(t *testing.T) {
	doc := document.New()
	doc.Nodes = []document.NodeRecord{
		{ID: "huge", Type: "SOURCE", InputCount: 0, OutputCount: document.MaxPortCount + 1},
	}

	g := newTestGraph()
	summary := g.LoadDocument(doc, "test")

	if summary.NodesFailed != 1 {
		t.Fatalf("NodesFailed = %d, want 1", summary.NodesFailed)
	}
	if !errors.Is(summary.Failures[0], document.ErrMalformedEntity) {
		t.Errorf("failure = %v, want ErrMalformedEntity", summary.Failures[0])
	}
}

func TestLoadDocumentReplacesContent(t *testing.T) {
	g := newTestGraph()
	old := g.CreateNode("MERGE", Point{})

	doc := document.New()
	doc.Nodes = []document.NodeRecord{
		{ID: "fresh", Type: "SOURCE", InputCount: 0, OutputCount: 1},
	}

	g.LoadDocument(doc, "test")

	if g.NodeCount() != 1 {
		t.Fatalf("NodeCount() = %d, want 1", g.NodeCount())
	}
	if _, ok := g.Node(old.ID()); ok {
		t.Error("pre-load content survived")
	}
	if _, ok := g.Node(NodeID("fresh")); !ok {
		t.Error("loaded node missing")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := newTestGraph()
	source, transform, _, _, _ := buildChain(t, g)
	source.MoveTo(Point{X: 42, Y: 17})
	transform.MoveTo(Point{X: 120, Y: 60})

	saved := g.SaveDocument()

	restored := newTestGraph()
	summary := restored.LoadDocument(saved, "round-trip")
	if !summary.Ok() {
		t.Fatalf("round-trip load failed: %+v", summary.Failures)
	}

	resaved := restored.SaveDocument()
	if !reflect.DeepEqual(saved, resaved) {
		t.Errorf("round trip drifted:\n save: %+v\nresave: %+v", saved, resaved)
	}
}

func TestLoadDocumentSurvivesCatalogDrift(t *testing.T) {
	// A document written when MERGE had 2 inputs must reload identically
	// even after the catalog changes, because port counts are recorded.
	doc := document.New()
	doc.Nodes = []document.NodeRecord{
		{ID: "m", Type: "MERGE", InputCount: 2, OutputCount: 1},
	}

	c := NewCatalog()
	if err := c.Register(Template{Type: "MERGE", Inputs: 6, Outputs: 6}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	g := New(Config{Catalog: c})

	g.LoadDocument(doc, "test")

	n, _ := g.Node(NodeID("m"))
	if n.InputCount() != 2 || n.OutputCount() != 1 {
		t.Errorf("ports = %d/%d, want the recorded 2/1",
			n.InputCount(), n.OutputCount())
	}
}
