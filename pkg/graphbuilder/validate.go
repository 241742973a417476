package graphbuilder

import (
	"errors"
	"fmt"
	"strings"
)

// IssueCode identifies the kind of a validation finding.
type IssueCode string

// Issue codes reported by Validate.
const (
	IssueEmptyGraph        IssueCode = "empty_graph"
	IssueDuplicateNode     IssueCode = "duplicate_node"
	IssueDanglingSource    IssueCode = "dangling_source"
	IssueDanglingTarget    IssueCode = "dangling_target"
	IssueMissingRouteKey   IssueCode = "missing_route_key"
	IssueDuplicateRouteKey IssueCode = "duplicate_route_key"
	IssueNoEntry           IssueCode = "no_entry"
	IssueAmbiguousEntry    IssueCode = "ambiguous_entry"
	IssueEntryNotFound     IssueCode = "entry_not_found"
	IssueUnreachable       IssueCode = "unreachable_node"
	IssueStaleTool         IssueCode = "stale_tool"
)

// Issue is a non-fatal finding about a graph. Issues gate export, never
// normalization or inference.
type Issue struct {
	Code    IssueCode `json:"code" yaml:"code"`
	Message string    `json:"message" yaml:"message"`
	NodeID  string    `json:"nodeId,omitempty" yaml:"nodeId,omitempty"`
	EdgeID  string    `json:"edgeId,omitempty" yaml:"edgeId,omitempty"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	return i.Message
}

// Issues is the result of Validate. An empty list means export-ready.
type Issues []Issue

// Err joins the issues into a single error, or returns nil when empty.
func (is Issues) Err() error {
	if len(is) == 0 {
		return nil
	}
	errs := make([]error, len(is))
	for i, issue := range is {
		errs[i] = issue
	}
	return errors.Join(errs...)
}

// Has reports whether any issue carries code.
func (is Issues) Has(code IssueCode) bool {
	for _, issue := range is {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// Messages returns the issue messages in order.
func (is Issues) Messages() []string {
	out := make([]string, len(is))
	for i, issue := range is {
		out[i] = issue.Message
	}
	return out
}

type validateConfig struct {
	entry string
}

// ValidateOption configures Validate.
type ValidateOption func(*validateConfig)

// WithEntry designates the entry node, resolving ambiguity when several
// nodes have no incoming edges.
func WithEntry(nodeID string) ValidateOption {
	return func(c *validateConfig) {
		c.entry = nodeID
	}
}

// Validate checks the invariants generated code relies on and reports every
// violation as an Issue, in a stable order:
//
//  1. The graph has at least one node and no duplicate node ids
//  2. Every edge source and target refers to an existing node
//  3. Conditional edges carry a route key, unique among edges of the same source
//  4. Exactly one entry node (in-degree 0) exists, or the caller chose one
//  5. Every node is reachable from the entry
//
// Validate never panics and never mutates its input.
func Validate(nodes []*Node, edges []*Edge, opts ...ValidateOption) Issues {
	var cfg validateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var issues Issues
	if len(nodes) == 0 {
		issues = append(issues, Issue{
			Code:    IssueEmptyGraph,
			Message: "graph has no nodes",
		})
	}

	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.ID] {
			issues = append(issues, Issue{
				Code:    IssueDuplicateNode,
				Message: fmt.Sprintf("duplicate node id %q", n.ID),
				NodeID:  n.ID,
			})
		}
		seen[n.ID] = true
	}
	idx := nodeIndex(nodes)

	issues = append(issues, validateEdges(idx, edges)...)
	issues = append(issues, validateEntry(cfg, nodes, edges, idx)...)
	return issues
}

func validateEdges(idx map[string]*Node, edges []*Edge) Issues {
	var issues Issues
	keyCounts := make(map[string]map[string]int)
	for i, e := range edges {
		ref := edgeRef(e, i)
		if idx[e.Source] == nil {
			issues = append(issues, Issue{
				Code:    IssueDanglingSource,
				Message: fmt.Sprintf("edge %s starts at unknown node %q", ref, e.Source),
				EdgeID:  e.ID,
			})
		}
		if idx[e.Target] == nil {
			issues = append(issues, Issue{
				Code:    IssueDanglingTarget,
				Message: fmt.Sprintf("edge %s ends at unknown node %q", ref, e.Target),
				EdgeID:  e.ID,
			})
		}
		if e.Kind != EdgeConditional {
			continue
		}
		if e.RouteKey == "" {
			issues = append(issues, Issue{
				Code:    IssueMissingRouteKey,
				Message: fmt.Sprintf("conditional edge %s from %s has no route key", ref, describeNode(idx, e.Source)),
				EdgeID:  e.ID,
			})
			continue
		}
		keys := keyCounts[e.Source]
		if keys == nil {
			keys = make(map[string]int)
			keyCounts[e.Source] = keys
		}
		keys[e.RouteKey]++
		if keys[e.RouteKey] == 2 {
			issues = append(issues, Issue{
				Code:    IssueDuplicateRouteKey,
				Message: fmt.Sprintf("route key %q is used by more than one edge from %s", e.RouteKey, describeNode(idx, e.Source)),
				NodeID:  e.Source,
				EdgeID:  e.ID,
			})
		}
	}
	return issues
}

func validateEntry(cfg validateConfig, nodes []*Node, edges []*Edge, idx map[string]*Node) Issues {
	if len(nodes) == 0 {
		return nil
	}

	var entry *Node
	if cfg.entry != "" {
		entry = idx[cfg.entry]
		if entry == nil {
			return Issues{{
				Code:    IssueEntryNotFound,
				Message: fmt.Sprintf("entry node %q does not exist", cfg.entry),
				NodeID:  cfg.entry,
			}}
		}
	} else {
		candidates := EntryCandidates(nodes, edges)
		switch len(candidates) {
		case 0:
			return Issues{{
				Code:    IssueNoEntry,
				Message: "no entry node: every node has an incoming edge",
			}}
		case 1:
			entry = candidates[0]
		default:
			names := make([]string, len(candidates))
			for i, n := range candidates {
				names[i] = nodeName(n)
			}
			return Issues{{
				Code:    IssueAmbiguousEntry,
				Message: fmt.Sprintf("ambiguous entry: %d nodes have no incoming edges (%s)", len(candidates), strings.Join(names, ", ")),
			}}
		}
	}

	reachable := Reachable(entry.ID, nodes, edges)
	var issues Issues
	for _, n := range nodes {
		if !reachable[n.ID] {
			issues = append(issues, Issue{
				Code:    IssueUnreachable,
				Message: fmt.Sprintf("node %s is unreachable from entry %s", nodeName(n), nodeName(entry)),
				NodeID:  n.ID,
			})
		}
	}
	return issues
}

// Reachable returns the ids reachable from start by following edges whose
// endpoints both exist. start itself is included when it exists.
func Reachable(start string, nodes []*Node, edges []*Edge) map[string]bool {
	idx := nodeIndex(nodes)
	reachable := make(map[string]bool)
	if idx[start] == nil {
		return reachable
	}

	successors := make(map[string][]string)
	for _, e := range edges {
		if idx[e.Source] != nil && idx[e.Target] != nil {
			successors[e.Source] = append(successors[e.Source], e.Target)
		}
	}

	queue := []string{start}
	reachable[start] = true
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range successors[current] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}
	return reachable
}

func nodeName(n *Node) string {
	if strings.TrimSpace(n.Label) == "" {
		return n.ID
	}
	return fmt.Sprintf("%q", n.Label)
}

func describeNode(idx map[string]*Node, id string) string {
	if n := idx[id]; n != nil {
		return nodeName(n)
	}
	return id
}

func edgeRef(e *Edge, i int) string {
	if e.ID != "" {
		return e.ID
	}
	return fmt.Sprintf("#%d", i+1)
}
