package graph

import "github.com/dd0wney/patchboard/pkg/logging"

// draft is an in-progress connection gesture anchored at an output port.
type draft struct {
	sourcePort *Port
}

// DraftInfo describes the active connection draft.
type DraftInfo struct {
	SourceNodeID    NodeID
	SourcePortIndex int
}

// StartConnection begins a connection draft from an output port. The
// anchor must exist, be an output and be free. Starting while a draft is
// active cancels the previous one first.
func (g *Graph) StartConnection(nodeID NodeID, portIndex int) error {
	n, ok := g.nodes[nodeID]
	if !ok {
		g.metrics.RecordDraftGesture("rejected")
		return EndpointNotFoundError("start draft", nodeID)
	}
	p, err := n.PortAt(portIndex)
	if err != nil {
		g.metrics.RecordDraftGesture("rejected")
		return err
	}
	if p.role != RoleOutput {
		g.metrics.RecordDraftGesture("rejected")
		return RoleMismatchError("start draft", nodeID, portIndex, RoleOutput)
	}
	if p.Connected() {
		g.metrics.RecordDraftGesture("rejected")
		return PortConnectedError("start draft", nodeID, portIndex)
	}

	if g.draft != nil {
		g.logger.Debug("connection draft replaced",
			logging.NodeID(string(g.draft.sourcePort.node.id)))
		g.CancelConnection()
	}
	g.draft = &draft{sourcePort: p}
	g.logger.Debug("connection draft started",
		logging.NodeID(string(nodeID)), logging.PortIndex(portIndex))
	return nil
}

// HoverConnection is the live accept/reject pre-check while a draft
// tracks the pointer. It never mutates anything: nil means releasing here
// would plausibly connect, an error names the objection. The commit
// itself re-runs the full connection protocol.
func (g *Graph) HoverConnection(nodeID NodeID, portIndex int) error {
	if g.draft == nil {
		return ErrNoActiveDraft
	}
	n, ok := g.nodes[nodeID]
	if !ok {
		return EndpointNotFoundError("hover", nodeID)
	}
	if n == g.draft.sourcePort.node {
		return NewError("hover").Node(nodeID).Cause(ErrSameNode).Err()
	}
	p, err := n.PortAt(portIndex)
	if err != nil {
		return err
	}
	if p.role != RoleInput {
		return RoleMismatchError("hover", nodeID, portIndex, RoleInput)
	}
	if p.Connected() {
		return PortConnectedError("hover", nodeID, portIndex)
	}
	return nil
}

// FinishConnection commits the draft onto a target port. The draft ends
// either way; success returns the new edge, failure returns what the
// connection protocol objected to.
func (g *Graph) FinishConnection(nodeID NodeID, portIndex int) (*Edge, error) {
	if g.draft == nil {
		return nil, ErrNoActiveDraft
	}
	source := g.draft.sourcePort
	g.draft = nil

	e, err := g.CreateEdge(source.node.id, source.index, nodeID, portIndex)
	if err != nil {
		g.metrics.RecordDraftGesture("rejected")
		g.logger.Debug("connection draft rejected", logging.Err(err))
		return nil, err
	}
	g.metrics.RecordDraftGesture("committed")
	g.logger.Debug("connection draft committed", logging.EdgeID(string(e.id)))
	return e, nil
}

// CancelConnection abandons the draft. Cancelling with no draft active is
// a no-op; cancellation is a normal gesture outcome, not an error.
func (g *Graph) CancelConnection() {
	if g.draft == nil {
		return
	}
	source := g.draft.sourcePort
	g.draft = nil
	g.metrics.RecordDraftGesture("cancelled")
	g.logger.Debug("connection draft cancelled",
		logging.NodeID(string(source.node.id)), logging.PortIndex(source.index))
}

// ActiveDraft reports the current draft, if any.
func (g *Graph) ActiveDraft() (DraftInfo, bool) {
	if g.draft == nil {
		return DraftInfo{}, false
	}
	return DraftInfo{
		SourceNodeID:    g.draft.sourcePort.node.id,
		SourcePortIndex: g.draft.sourcePort.index,
	}, true
}

// DraftPath computes the ghost path from the draft's anchor to a pointer
// position, for render layers that show the in-progress connection.
func (g *Graph) DraftPath(to Point) (PathSpec, bool) {
	if g.draft == nil {
		return PathSpec{}, false
	}
	return PathBetween(g.draft.sourcePort.node.pos, to), true
}
