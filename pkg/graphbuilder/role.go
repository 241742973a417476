package graphbuilder

import (
	"fmt"
	"strings"
)

// Role is a functional role a node plays in the workflow.
// The set is closed; canonical order is the declaration order below.
type Role int

const (
	// RoleAgent is held by every node after inference.
	RoleAgent Role = iota
	// RoleTool marks a node with at least one attached tool.
	RoleTool
	// RoleRouter marks a node that branches to more than one successor.
	RoleRouter
	// RoleMemory marks a node that reads or writes long-lived context.
	RoleMemory
)

// canonicalRoles lists every role in canonical order.
var canonicalRoles = [...]Role{RoleAgent, RoleTool, RoleRouter, RoleMemory}

// Roles returns every role in canonical order.
func Roles() []Role {
	out := make([]Role, len(canonicalRoles))
	copy(out, canonicalRoles[:])
	return out
}

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleAgent:
		return "agent"
	case RoleTool:
		return "tool"
	case RoleRouter:
		return "router"
	case RoleMemory:
		return "memory"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r >= RoleAgent && r <= RoleMemory
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRole parses a role name (case-insensitive).
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "agent":
		return RoleAgent, nil
	case "tool":
		return RoleTool, nil
	case "router":
		return RoleRouter, nil
	case "memory":
		return RoleMemory, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// CanonicalRoles returns the valid roles of rs in canonical order with
// duplicates collapsed. Invalid values are dropped.
func CanonicalRoles(rs []Role) []Role {
	var present [len(canonicalRoles)]bool
	for _, r := range rs {
		if r.Valid() {
			present[r] = true
		}
	}
	out := make([]Role, 0, len(rs))
	for _, r := range canonicalRoles {
		if present[r] {
			out = append(out, r)
		}
	}
	return out
}

// HasRole reports whether rs contains r.
func HasRole(rs []Role, r Role) bool {
	for _, have := range rs {
		if have == r {
			return true
		}
	}
	return false
}

// EdgeKind classifies a control-flow edge.
type EdgeKind int

const (
	// EdgeNormal is unconditional wiring.
	EdgeNormal EdgeKind = iota
	// EdgeConditional is one branch of a routing decision, selected by its route key.
	EdgeConditional
)

// String returns the kind name.
func (k EdgeKind) String() string {
	switch k {
	case EdgeNormal:
		return "normal"
	case EdgeConditional:
		return "conditional"
	default:
		return fmt.Sprintf("edgekind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EdgeKind) MarshalText() ([]byte, error) {
	if k != EdgeNormal && k != EdgeConditional {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEdgeKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// An empty value decodes as EdgeNormal.
func (k *EdgeKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "normal":
		*k = EdgeNormal
	case "conditional":
		*k = EdgeConditional
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEdgeKind, string(text))
	}
	return nil
}
