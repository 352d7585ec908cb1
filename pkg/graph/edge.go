package graph

import (
	"github.com/google/uuid"

	"github.com/dd0wney/patchboard/pkg/document"
)

// EdgeID uniquely identifies an edge within a graph.
type EdgeID string

func newEdgeID() EdgeID {
	return EdgeID(uuid.NewString())
}

// EdgeState tracks an edge through its lifecycle.
type EdgeState uint8

const (
	// EdgeUnresolved means the edge carries only endpoint descriptors;
	// no node references exist yet.
	EdgeUnresolved EdgeState = iota
	// EdgeResolved means both endpoints were verified and direct
	// references are wired.
	EdgeResolved
	// EdgeInvalidated means an endpoint vanished or the edge was
	// detached; the references are gone for good.
	EdgeInvalidated
)

// String returns the state name.
func (s EdgeState) String() string {
	switch s {
	case EdgeUnresolved:
		return "unresolved"
	case EdgeResolved:
		return "resolved"
	case EdgeInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Edge connects an output port to an input port. It is created from
// endpoint descriptors (node IDs plus port indices) and only gains direct
// references once resolve verifies every connection rule. The descriptors
// outlive resolution, so an invalidated edge still describes what it
// connected.
type Edge struct {
	id EdgeID

	sourceNodeID NodeID
	sourceIndex  int
	targetNodeID NodeID
	targetIndex  int

	state      EdgeState
	source     *Node
	target     *Node
	sourcePort *Port
	targetPort *Port
	path       PathSpec
}

func newEdge(id EdgeID, sourceID NodeID, sourceIndex int, targetID NodeID, targetIndex int) *Edge {
	return &Edge{
		id:           id,
		sourceNodeID: sourceID,
		sourceIndex:  sourceIndex,
		targetNodeID: targetID,
		targetIndex:  targetIndex,
		state:        EdgeUnresolved,
	}
}

// ID returns the edge's identifier.
func (e *Edge) ID() EdgeID {
	return e.id
}

// State returns the edge's lifecycle state.
func (e *Edge) State() EdgeState {
	return e.state
}

// Resolved reports whether both endpoints are wired.
func (e *Edge) Resolved() bool {
	return e.state == EdgeResolved
}

// SourceNodeID returns the source endpoint descriptor.
func (e *Edge) SourceNodeID() NodeID {
	return e.sourceNodeID
}

// SourcePortIndex returns the source port index descriptor.
func (e *Edge) SourcePortIndex() int {
	return e.sourceIndex
}

// TargetNodeID returns the target endpoint descriptor.
func (e *Edge) TargetNodeID() NodeID {
	return e.targetNodeID
}

// TargetPortIndex returns the target port index descriptor.
func (e *Edge) TargetPortIndex() int {
	return e.targetIndex
}

// Source returns the resolved source node.
func (e *Edge) Source() (*Node, bool) {
	return e.source, e.source != nil
}

// Target returns the resolved target node.
func (e *Edge) Target() (*Node, bool) {
	return e.target, e.target != nil
}

// SourcePort returns the resolved source port.
func (e *Edge) SourcePort() (*Port, bool) {
	return e.sourcePort, e.sourcePort != nil
}

// TargetPort returns the resolved target port.
func (e *Edge) TargetPort() (*Port, bool) {
	return e.targetPort, e.targetPort != nil
}

// Path returns the last computed bezier spec. Only meaningful while the
// edge is resolved.
func (e *Edge) Path() PathSpec {
	return e.path
}

// ConnectsNode reports whether either endpoint descriptor names the node.
func (e *Edge) ConnectsNode(id NodeID) bool {
	return e.sourceNodeID == id || e.targetNodeID == id
}

// Record returns the edge's persisted form.
func (e *Edge) Record() document.EdgeRecord {
	return document.EdgeRecord{
		ID:                string(e.id),
		SourceNodeID:      string(e.sourceNodeID),
		SourceSocketIndex: e.sourceIndex,
		TargetNodeID:      string(e.targetNodeID),
		TargetSocketIndex: e.targetIndex,
	}
}

// resolve verifies the connection rules against the graph and, only when
// every check passes, wires direct references, occupies both ports and
// registers the edge with its endpoints. On failure the edge is left
// untouched and no graph state changes.
//
// Check order: endpoint existence, port index bounds, port roles, port
// occupancy, then graph membership.
func (e *Edge) resolve(g *Graph) error {
	if e.state == EdgeResolved {
		return nil
	}

	source, ok := g.nodes[e.sourceNodeID]
	if !ok {
		return EndpointNotFoundError("resolve", e.sourceNodeID)
	}
	target, ok := g.nodes[e.targetNodeID]
	if !ok {
		return EndpointNotFoundError("resolve", e.targetNodeID)
	}

	sourcePort, err := source.PortAt(e.sourceIndex)
	if err != nil {
		return err
	}
	targetPort, err := target.PortAt(e.targetIndex)
	if err != nil {
		return err
	}

	if sourcePort.role != RoleOutput {
		return RoleMismatchError("resolve", source.id, e.sourceIndex, RoleOutput)
	}
	if targetPort.role != RoleInput {
		return RoleMismatchError("resolve", target.id, e.targetIndex, RoleInput)
	}

	if sourcePort.Connected() {
		return PortConnectedError("resolve", source.id, e.sourceIndex)
	}
	if targetPort.Connected() {
		return PortConnectedError("resolve", target.id, e.targetIndex)
	}

	if source.graph != g || target.graph != g {
		return CrossGraphError("resolve", e.id)
	}

	e.source = source
	e.target = target
	e.sourcePort = sourcePort
	e.targetPort = targetPort
	sourcePort.edge = e
	targetPort.edge = e
	source.registerIncident(e)
	if target != source {
		target.registerIncident(e)
	}
	e.state = EdgeResolved
	e.updatePath()
	return nil
}

// detach releases both ports and unregisters the edge from its endpoints,
// leaving it invalidated. Safe to call in any state.
func (e *Edge) detach() {
	if e.sourcePort != nil && e.sourcePort.edge == e {
		e.sourcePort.edge = nil
	}
	if e.targetPort != nil && e.targetPort.edge == e {
		e.targetPort.edge = nil
	}
	if e.source != nil {
		e.source.unregisterIncident(e.id)
	}
	if e.target != nil && e.target != e.source {
		e.target.unregisterIncident(e.id)
	}
	e.source = nil
	e.target = nil
	e.sourcePort = nil
	e.targetPort = nil
	e.state = EdgeInvalidated
}

// invalidateNode clears references to a node that is being disposed. The
// other side's references survive so the edge still names what remains.
func (e *Edge) invalidateNode(n *Node) {
	hit := false
	if e.source == n {
		e.source = nil
		e.sourcePort = nil
		hit = true
	}
	if e.target == n {
		e.target = nil
		e.targetPort = nil
		hit = true
	}
	if hit {
		e.state = EdgeInvalidated
	}
}

// updatePath recomputes the bezier spec from the endpoints' live
// positions.
func (e *Edge) updatePath() {
	if e.state != EdgeResolved || e.source == nil || e.target == nil {
		return
	}
	e.path = PathBetween(e.source.pos, e.target.pos)
}
