package graphbuilder

import (
	"errors"
	"fmt"
)

// Sentinel errors for IR decoding.
var (
	// ErrUnknownRole indicates a role name or value outside the closed set.
	ErrUnknownRole = errors.New("unknown role")

	// ErrUnknownEdgeKind indicates an edge kind outside the closed set.
	ErrUnknownEdgeKind = errors.New("unknown edge kind")
)

// Sentinel errors for editor mutations.
var (
	// ErrNodeNotFound indicates a mutation referenced a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound indicates a mutation referenced a non-existent edge.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrDuplicateID indicates a node or edge id is already in use.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrEmptyID indicates a node was inserted without an id.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEdgeKindDerived indicates a request to make a branching edge normal.
	// Conditional status of branching edges follows topology.
	ErrEdgeKindDerived = errors.New("edge kind is derived from branching")

	// ErrRouteKeyOnNormal indicates a route key was set on a normal edge.
	ErrRouteKeyOnNormal = errors.New("route key requires a conditional edge")

	// ErrRoleLocked indicates an attempt to remove the agent role.
	ErrRoleLocked = errors.New("role cannot be removed")
)

// ErrInvariant indicates the IR broke a normalization invariant: the
// normalizer or inference contract was bypassed. It is a programming
// error, not a user-input issue.
var ErrInvariant = errors.New("graph invariant violated")

// MutationError wraps a failed editor mutation with its operation and target.
type MutationError struct {
	// Op is the mutation that failed (e.g., "connect", "remove_node").
	Op string
	// ID is the node or edge the mutation addressed.
	ID string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// InvariantError describes a broken IR invariant found while generating code.
type InvariantError struct {
	// NodeID is the offending node, if any.
	NodeID string
	// EdgeID is the offending edge, if any.
	EdgeID string
	// Msg describes the violation.
	Msg string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	switch {
	case e.EdgeID != "":
		return fmt.Sprintf("%s: edge %s: %s", ErrInvariant, e.EdgeID, e.Msg)
	case e.NodeID != "":
		return fmt.Sprintf("%s: node %s: %s", ErrInvariant, e.NodeID, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", ErrInvariant, e.Msg)
	}
}

// Unwrap returns ErrInvariant for errors.Is support.
func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

// CheckInvariants reports the first broken invariant that would make
// generated code wrong: an edge endpoint missing from nodes, a node without
// the agent role, or a role value outside the closed set.
func CheckInvariants(nodes []*Node, edges []*Edge) error {
	idx := nodeIndex(nodes)
	for _, n := range nodes {
		for _, r := range n.Roles {
			if !r.Valid() {
				return &InvariantError{NodeID: n.ID, Msg: fmt.Sprintf("corrupt role value %d", int(r))}
			}
		}
		if !n.HasRole(RoleAgent) {
			return &InvariantError{NodeID: n.ID, Msg: "roles do not include agent"}
		}
	}
	for i, e := range edges {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i+1)
		}
		if idx[e.Source] == nil {
			return &InvariantError{EdgeID: id, Msg: fmt.Sprintf("source %q does not exist", e.Source)}
		}
		if idx[e.Target] == nil {
			return &InvariantError{EdgeID: id, Msg: fmt.Sprintf("target %q does not exist", e.Target)}
		}
	}
	return nil
}
