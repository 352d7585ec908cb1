package graph

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/patchboard/pkg/document"
	"github.com/dd0wney/patchboard/pkg/logging"
)

// NodeID uniquely identifies a node within a graph.
type NodeID string

func newNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// Node is a typed, positioned entity owned by a Graph. Its ports are
// derived from the node type: inputs occupy indices 0..InputCount-1,
// outputs continue the sequence from InputCount.
//
// Nodes are created through Graph.CreateNode and become inert once the
// graph removes them; methods on a removed node are no-ops.
type Node struct {
	id      NodeID
	typeTag string

	pos          Point
	lastNotified Point // last position observers were told about

	inputs  int
	outputs int
	ports   []*Port

	incident map[EdgeID]*Edge

	graph *Graph
}

func newNode(id NodeID, typeTag string, pos Point, inputs, outputs int, g *Graph) *Node {
	n := &Node{
		id:           id,
		typeTag:      typeTag,
		pos:          pos,
		lastNotified: pos,
		incident:     make(map[EdgeID]*Edge),
		graph:        g,
	}
	n.buildPorts(inputs, outputs)
	return n
}

// buildPorts regenerates the port list. Inputs come first, outputs
// continue the same index sequence, so an edge's port index addresses one
// combined list.
func (n *Node) buildPorts(inputs, outputs int) {
	if inputs < 0 {
		inputs = 0
	}
	if outputs < 0 {
		outputs = 0
	}
	n.inputs = inputs
	n.outputs = outputs
	n.ports = make([]*Port, 0, inputs+outputs)
	index := 0
	for i := 0; i < inputs; i++ {
		n.ports = append(n.ports, &Port{node: n, role: RoleInput, index: index})
		index++
	}
	for i := 0; i < outputs; i++ {
		n.ports = append(n.ports, &Port{node: n, role: RoleOutput, index: index})
		index++
	}
}

// ID returns the node's identifier.
func (n *Node) ID() NodeID {
	return n.id
}

// Type returns the node's type tag.
func (n *Node) Type() string {
	return n.typeTag
}

// Position returns the node's current position.
func (n *Node) Position() Point {
	return n.pos
}

// InputCount returns the number of input ports.
func (n *Node) InputCount() int {
	return n.inputs
}

// OutputCount returns the number of output ports.
func (n *Node) OutputCount() int {
	return n.outputs
}

// PortCount returns the total number of ports.
func (n *Node) PortCount() int {
	return len(n.ports)
}

// PortAt returns the port at the given combined index.
func (n *Node) PortAt(index int) (*Port, error) {
	if index < 0 || index >= len(n.ports) {
		return nil, PortOutOfRangeError("lookup", n.id, index)
	}
	return n.ports[index], nil
}

// Ports returns the combined port list in index order.
func (n *Node) Ports() []*Port {
	out := make([]*Port, len(n.ports))
	copy(out, n.ports)
	return out
}

// Degree returns the number of resolved edges incident to this node.
func (n *Node) Degree() int {
	return len(n.incident)
}

// IncidentEdges returns the resolved edges touching this node, ordered by
// edge ID.
func (n *Node) IncidentEdges() []*Edge {
	out := make([]*Edge, 0, len(n.incident))
	for _, e := range n.incident {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// MoveTo updates the node position. The position always changes, but
// incident edge paths and observers are only refreshed once the node has
// drifted more than the notify threshold from the last reported position.
func (n *Node) MoveTo(pos Point) {
	if n.graph == nil {
		return
	}
	n.pos = pos
	if manhattan(pos, n.lastNotified) <= moveNotifyThreshold {
		return
	}
	start := time.Now()
	from := n.lastNotified
	n.lastNotified = pos
	for _, e := range n.incident {
		e.updatePath()
	}
	n.graph.notifyNodeMoved(n.id, from, pos)
	n.graph.metrics.RecordTopologyOperation("move_node", "ok", time.Since(start))
}

// SetType retags the node and regenerates its ports from the graph's
// catalog. Every incident edge is deleted first since port counts may
// shrink. Observers see the edge removals, then a remove/add pair for the
// node itself, all inside one batch.
func (n *Node) SetType(tag string) {
	if n.graph == nil {
		return
	}
	start := time.Now()
	g := n.graph
	tmpl, known := g.catalog.Lookup(tag)
	if !known {
		g.logger.Debug("unknown node type, using default ports",
			logging.NodeID(string(n.id)), logging.NodeType(tag))
	}

	g.BeginBatch()
	g.removeIncidentEdges(n)
	g.notifyNodeRemoved(n.id)
	n.typeTag = tmpl.Type
	n.buildPorts(tmpl.Inputs, tmpl.Outputs)
	g.notifyNodeAdded(n)
	g.EndBatch()

	g.metrics.RecordTopologyOperation("set_type", "ok", time.Since(start))
}

// Record returns the node's persisted form. The serialized position is
// the last notified one, matching what observers have seen.
func (n *Node) Record() document.NodeRecord {
	return document.NodeRecord{
		ID:          string(n.id),
		X:           n.lastNotified.X,
		Y:           n.lastNotified.Y,
		Type:        n.typeTag,
		InputCount:  n.inputs,
		OutputCount: n.outputs,
	}
}

// registerIncident records a resolved edge against this node.
func (n *Node) registerIncident(e *Edge) {
	if _, dup := n.incident[e.id]; dup {
		if n.graph != nil {
			n.graph.logger.Warn("edge already registered on node",
				logging.NodeID(string(n.id)), logging.EdgeID(string(e.id)))
		}
		return
	}
	n.incident[e.id] = e
}

// unregisterIncident drops an edge from this node's incident set.
func (n *Node) unregisterIncident(id EdgeID) {
	if _, ok := n.incident[id]; !ok {
		if n.graph != nil {
			n.graph.logger.Warn("edge not registered on node",
				logging.NodeID(string(n.id)), logging.EdgeID(string(id)))
		}
		return
	}
	delete(n.incident, id)
}

// dispose severs the node from its graph. Any incident edge still holding
// a reference to this node is invalidated so no dangling access is
// possible afterwards.
func (n *Node) dispose() {
	for _, e := range n.incident {
		e.invalidateNode(n)
	}
	n.incident = nil
	for _, p := range n.ports {
		p.edge = nil
	}
	n.graph = nil
}
