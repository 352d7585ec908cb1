package graph

import (
	"errors"
	"testing"
)

func TestDraftCommit(t *testing.T) {
	g := newTestGraph()
	source := g.CreateNode("SOURCE", Point{})
	sink := g.CreateNode("SINK", Point{})

	if err := g.StartConnection(source.ID(), 0); err != nil {
		t.Fatalf("StartConnection failed: %v", err)
	}

	info, active := g.ActiveDraft()
	if !active {
		t.Fatal("draft not active after start")
	}
	if info.SourceNodeID != source.ID() || info.SourcePortIndex != 0 {
		t.Errorf("draft info = %+v", info)
	}

	// Hovering the compatible input reports acceptance.
	if err := g.HoverConnection(sink.ID(), 0); err != nil {
		t.Errorf("hover over valid target = %v, want nil", err)
	}

	e, err := g.FinishConnection(sink.ID(), 0)
	if err != nil {
		t.Fatalf("FinishConnection failed: %v", err)
	}
	if !e.Resolved() {
		t.Error("committed edge not resolved")
	}
	if _, active := g.ActiveDraft(); active {
		t.Error("draft survived the commit")
	}
}

func TestDraftStartRules(t *testing.T) {
	g := newTestGraph()
	source := g.CreateNode("SOURCE", Point{})
	sink := g.CreateNode("SINK", Point{})
	taken := g.CreateNode("SOURCE", Point{})
	if _, err := g.CreateEdge(taken.ID(), 0, sink.ID(), 0); err != nil {
		t.Fatalf("setup edge failed: %v", err)
	}

	tests := []struct {
		name  string
		node  NodeID
		index int
		want  error
	}{
		{"unknown node", "ghost", 0, ErrEndpointNotFound},
		{"index out of range", source.ID(), 7, ErrPortIndexOutOfRange},
		{"input port cannot anchor", sink.ID(), 0, ErrRoleMismatch},
		{"occupied output cannot anchor", taken.ID(), 0, ErrPortAlreadyConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.StartConnection(tt.node, tt.index); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if _, active := g.ActiveDraft(); active {
				t.Error("failed start left a draft active")
			}
		})
	}
}

func TestDraftHoverRules(t *testing.T) {
	g := newTestGraph()
	source := g.CreateNode("SPLIT", Point{}) // 1 in, 2 out
	sink := g.CreateNode("SINK", Point{})
	taken := g.CreateNode("SINK", Point{})
	other := g.CreateNode("SOURCE", Point{})
	if _, err := g.CreateEdge(other.ID(), 0, taken.ID(), 0); err != nil {
		t.Fatalf("setup edge failed: %v", err)
	}

	if err := g.HoverConnection(sink.ID(), 0); !errors.Is(err, ErrNoActiveDraft) {
		t.Errorf("hover without draft = %v, want ErrNoActiveDraft", err)
	}

	// SPLIT's outputs sit at combined indices 1 and 2.
	if err := g.StartConnection(source.ID(), 1); err != nil {
		t.Fatalf("StartConnection failed: %v", err)
	}

	tests := []struct {
		name  string
		node  NodeID
		index int
		want  error
	}{
		{"unknown node", "ghost", 0, ErrEndpointNotFound},
		{"own node refused", source.ID(), 0, ErrSameNode},
		{"index out of range", sink.ID(), 9, ErrPortIndexOutOfRange},
		{"output is not a target", other.ID(), 0, ErrRoleMismatch},
		{"occupied input refused", taken.ID(), 0, ErrPortAlreadyConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.HoverConnection(tt.node, tt.index); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	// Hover never mutates: the draft is still live and commits fine.
	if _, active := g.ActiveDraft(); !active {
		t.Fatal("hover checks consumed the draft")
	}
	if _, err := g.FinishConnection(sink.ID(), 0); err != nil {
		t.Errorf("commit after hovers failed: %v", err)
	}
}

func TestDraftFinishFailureEndsDraft(t *testing.T) {
	g := newTestGraph()
	source := g.CreateNode("SOURCE", Point{})
	sink := g.CreateNode("SINK", Point{})
	other := g.CreateNode("SOURCE", Point{})
	if _, err := g.CreateEdge(other.ID(), 0, sink.ID(), 0); err != nil {
		t.Fatalf("setup edge failed: %v", err)
	}

	if err := g.StartConnection(source.ID(), 0); err != nil {
		t.Fatalf("StartConnection failed: %v", err)
	}

	// Release over the occupied input: the protocol rejects, the draft
	// still ends.
	_, err := g.FinishConnection(sink.ID(), 0)
	if !errors.Is(err, ErrPortAlreadyConnected) {
		t.Fatalf("err = %v, want ErrPortAlreadyConnected", err)
	}
	if _, active := g.ActiveDraft(); active {
		t.Error("draft survived a failed commit")
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
}

func TestDraftFinishWithoutStart(t *testing.T) {
	g := newTestGraph()
	sink := g.CreateNode("SINK", Point{})

	if _, err := g.FinishConnection(sink.ID(), 0); !errors.Is(err, ErrNoActiveDraft) {
		t.Errorf("err = %v, want ErrNoActiveDraft", err)
	}
}

func TestDraftCancelIsIdempotent(t *testing.T) {
	g := newTestGraph()
	source := g.CreateNode("SOURCE", Point{})

	g.CancelConnection() // nothing active, nothing happens

	if err := g.StartConnection(source.ID(), 0); err != nil {
		t.Fatalf("StartConnection failed: %v", err)
	}
	g.CancelConnection()
	g.CancelConnection()

	if _, active := g.ActiveDraft(); active {
		t.Error("draft survived cancellation")
	}
	if g.EdgeCount() != 0 {
		t.Error("cancelled draft produced an edge")
	}
}

func TestDraftReplacedByNewStart(t *testing.T) {
	g := newTestGraph()
	a := g.CreateNode("SOURCE", Point{})
	b := g.CreateNode("SOURCE", Point{})

	if err := g.StartConnection(a.ID(), 0); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := g.StartConnection(b.ID(), 0); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	info, active := g.ActiveDraft()
	if !active || info.SourceNodeID != b.ID() {
		t.Errorf("draft = %+v active=%v, want anchored at second node", info, active)
	}
}

func TestDeleteNodeCancelsItsDraft(t *testing.T) {
	g := newTestGraph()
	source := g.CreateNode("SOURCE", Point{})

	if err := g.StartConnection(source.ID(), 0); err != nil {
		t.Fatalf("StartConnection failed: %v", err)
	}
	g.DeleteNode(source.ID())

	if _, active := g.ActiveDraft(); active {
		t.Error("draft survived the death of its anchor")
	}
}

func TestClearCancelsDraft(t *testing.T) {
	g := newTestGraph()
	source := g.CreateNode("SOURCE", Point{})

	if err := g.StartConnection(source.ID(), 0); err != nil {
		t.Fatalf("StartConnection failed: %v", err)
	}
	g.Clear()

	if _, active := g.ActiveDraft(); active {
		t.Error("draft survived clear")
	}
}

func TestDraftPath(t *testing.T) {
	g := newTestGraph()

	if _, ok := g.DraftPath(Point{X: 10, Y: 10}); ok {
		t.Error("DraftPath reported a path with no draft active")
	}

	source := g.CreateNode("SOURCE", Point{X: 5, Y: 5})
	if err := g.StartConnection(source.ID(), 0); err != nil {
		t.Fatalf("StartConnection failed: %v", err)
	}

	path, ok := g.DraftPath(Point{X: 105, Y: 5})
	if !ok {
		t.Fatal("DraftPath inactive during draft")
	}
	if path.Start != (Point{X: 5, Y: 5}) || path.End != (Point{X: 105, Y: 5}) {
		t.Errorf("ghost path = %v -> %v", path.Start, path.End)
	}
}
