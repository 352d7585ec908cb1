package graph

// Role distinguishes the two kinds of connection ports on a node.
type Role uint8

const (
	RoleInput Role = iota
	RoleOutput
)

// String returns the lowercase role name.
func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Port is a connection endpoint on a node. A node's ports live in one
// list: inputs first, outputs continuing the same index sequence. A port
// holds at most one edge.
type Port struct {
	node  *Node
	role  Role
	index int
	edge  *Edge
}

// Node returns the owning node.
func (p *Port) Node() *Node {
	return p.node
}

// Role returns the port role.
func (p *Port) Role() Role {
	return p.role
}

// Index returns the port's position in the owner's combined port list.
func (p *Port) Index() int {
	return p.index
}

// Connected reports whether an edge occupies this port.
func (p *Port) Connected() bool {
	return p.edge != nil
}

// Edge returns the occupying edge, or nil when the port is free.
func (p *Port) Edge() *Edge {
	return p.edge
}
