package graph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrEndpointNotFound     = errors.New("endpoint node not found")
	ErrPortIndexOutOfRange  = errors.New("port index out of range")
	ErrRoleMismatch         = errors.New("port role mismatch")
	ErrPortAlreadyConnected = errors.New("port already connected")
	ErrCrossGraphEdge       = errors.New("endpoints belong to different graphs")
	ErrDuplicateID          = errors.New("duplicate entity id")
	ErrNoActiveDraft        = errors.New("no active connection draft")
	ErrSameNode             = errors.New("connection targets its own source node")
)

// TopologyError provides structured error information for graph operations.
type TopologyError struct {
	Op      string // Operation that failed (e.g., "resolve", "load")
	Entity  string // Entity type (e.g., "node", "edge", "port")
	ID      string // Entity ID (if applicable)
	Port    int    // Port index (when Entity is "port")
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *TopologyError) Error() string {
	if e.Entity == "port" && e.ID != "" {
		if e.Context != "" {
			return fmt.Sprintf("%s port %d of node %s (%s): %v", e.Op, e.Port, e.ID, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s port %d of node %s: %v", e.Op, e.Port, e.ID, e.Cause)
	}
	if e.ID != "" {
		if e.Context != "" {
			return fmt.Sprintf("%s %s %s (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *TopologyError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *TopologyError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building TopologyErrors.
type ErrorBuilder struct {
	err TopologyError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: TopologyError{Op: op}}
}

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id NodeID) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = string(id)
	return b
}

// Edge sets the entity to "edge" with the given ID.
func (b *ErrorBuilder) Edge(id EdgeID) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = string(id)
	return b
}

// Port sets the entity to "port" on the given owner node.
func (b *ErrorBuilder) Port(owner NodeID, index int) *ErrorBuilder {
	b.err.Entity = "port"
	b.err.ID = string(owner)
	b.err.Port = index
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed TopologyError.
func (b *ErrorBuilder) Build() *TopologyError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// Convenience functions for common error patterns

// EndpointNotFoundError reports a missing endpoint node.
func EndpointNotFoundError(op string, id NodeID) error {
	return NewError(op).Node(id).Cause(ErrEndpointNotFound).Err()
}

// PortOutOfRangeError reports a port index beyond the node's port list.
func PortOutOfRangeError(op string, owner NodeID, index int) error {
	return NewError(op).Port(owner, index).Cause(ErrPortIndexOutOfRange).Err()
}

// RoleMismatchError reports a port with the wrong role for its edge side.
func RoleMismatchError(op string, owner NodeID, index int, want Role) error {
	return NewError(op).Port(owner, index).Context("want " + want.String()).Cause(ErrRoleMismatch).Err()
}

// PortConnectedError reports a port that is already occupied by an edge.
func PortConnectedError(op string, owner NodeID, index int) error {
	return NewError(op).Port(owner, index).Cause(ErrPortAlreadyConnected).Err()
}

// CrossGraphError reports an edge whose endpoints live in different graphs.
func CrossGraphError(op string, id EdgeID) error {
	return NewError(op).Edge(id).Cause(ErrCrossGraphEdge).Err()
}

// IsConnectionFailure returns true if the error is one of the edge
// resolution failures.
func IsConnectionFailure(err error) bool {
	return errors.Is(err, ErrEndpointNotFound) ||
		errors.Is(err, ErrPortIndexOutOfRange) ||
		errors.Is(err, ErrRoleMismatch) ||
		errors.Is(err, ErrPortAlreadyConnected) ||
		errors.Is(err, ErrCrossGraphEdge)
}

// failureReason maps a resolution failure to its metrics label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEndpointNotFound):
		return "endpoint_not_found"
	case errors.Is(err, ErrPortIndexOutOfRange):
		return "port_index_out_of_range"
	case errors.Is(err, ErrRoleMismatch):
		return "role_mismatch"
	case errors.Is(err, ErrPortAlreadyConnected):
		return "port_already_connected"
	case errors.Is(err, ErrCrossGraphEdge):
		return "cross_graph"
	default:
		return "other"
	}
}
