// Package document defines the persisted flat representation of a board:
// one record per entity, no nesting. Readers are tolerant (legacy attribute
// aliases, container wrappers, per-entity skip on malformation); writers
// emit only the canonical form.
package document

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CurrentVersion is stamped on every written document.
const CurrentVersion = "1.0"

// MaxPortCount bounds the per-side port count a node record may declare.
const MaxPortCount = 64

// NodeRecord is the persisted form of a node. Ports are reconstructed from
// the counts plus type defaults, not stored individually.
type NodeRecord struct {
	ID          string `validate:"required"`
	X           float64
	Y           float64
	Type        string `validate:"required"`
	InputCount  int    `validate:"gte=0,lte=64"`
	OutputCount int    `validate:"gte=0,lte=64"`
}

// EdgeRecord is the persisted form of an edge: endpoint node ids plus the
// socket index on each side.
type EdgeRecord struct {
	ID                string `validate:"required"`
	SourceNodeID      string `validate:"required"`
	SourceSocketIndex int    `validate:"gte=0"`
	TargetNodeID      string `validate:"required"`
	TargetSocketIndex int    `validate:"gte=0"`
}

// Document is a parsed or to-be-written board file.
type Document struct {
	Version string
	Nodes   []NodeRecord
	Edges   []EdgeRecord
}

// New returns an empty document at the current version.
func New() *Document {
	return &Document{Version: CurrentVersion}
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := &Document{
		Version: d.Version,
		Nodes:   make([]NodeRecord, len(d.Nodes)),
		Edges:   make([]EdgeRecord, len(d.Edges)),
	}
	copy(c.Nodes, d.Nodes)
	copy(c.Edges, d.Edges)
	return c
}

// FindNode returns the node record with the given id.
func (d *Document) FindNode(id string) (NodeRecord, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeRecord{}, false
}

// FindEdge returns the edge record with the given id.
func (d *Document) FindEdge(id string) (EdgeRecord, bool) {
	for _, e := range d.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return EdgeRecord{}, false
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks every record's structural constraints and id uniqueness.
// It returns one error per problem; an empty slice means the document is
// structurally sound. Resolution problems (dangling endpoints, occupied
// ports) are the topology layer's concern, not the document's.
func (d *Document) Validate() []error {
	var problems []error

	nodeIDs := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if err := validate.Struct(n); err != nil {
			problems = append(problems, fmt.Errorf("node %d (id %q): %w", i, n.ID, err))
		}
		if n.ID != "" {
			if nodeIDs[n.ID] {
				problems = append(problems, fmt.Errorf("duplicate node id %q", n.ID))
			}
			nodeIDs[n.ID] = true
		}
	}

	edgeIDs := make(map[string]bool, len(d.Edges))
	for i, e := range d.Edges {
		if err := validate.Struct(e); err != nil {
			problems = append(problems, fmt.Errorf("edge %d (id %q): %w", i, e.ID, err))
		}
		if e.ID != "" {
			if edgeIDs[e.ID] {
				problems = append(problems, fmt.Errorf("duplicate edge id %q", e.ID))
			}
			edgeIDs[e.ID] = true
		}
	}

	return problems
}
