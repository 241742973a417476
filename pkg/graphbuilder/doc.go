/*
Package graphbuilder keeps an agent-workflow graph canonical under
incremental edits and prepares it for code generation.

# Overview

A workflow is a directed graph: nodes are agents that may hold tools,
route to several successors, or manage memory; edges are control-flow
transitions. Users edit the graph one event at a time. After every event
two deterministic passes re-derive what the user never sets by hand:

  - NormalizeEdges marks an edge conditional exactly when its source
    branches, and gives every conditional edge a route key
  - Inferrer.Infer classifies each node's roles from its declared roles,
    its tools, its out-degree and its vocabulary

Validate then reports the findings that would make generated code wrong,
and the codegen subpackage renders Python and TypeScript LangGraph
skeletons from the same canonical graph.

# Editing

The Editor applies mutation events and re-derives after each:

	ed := graphbuilder.NewEditor()
	triage := ed.AddNode(graphbuilder.RoleAgent, "Triage", "Classify intent.")
	billing := ed.AddNode(graphbuilder.RoleAgent, "Billing", "")
	support := ed.AddNode(graphbuilder.RoleAgent, "Support", "")

	ed.Connect(triage.ID, billing.ID)
	ed.Connect(triage.ID, support.ID)

	g := ed.Graph()
	// both edges are now conditional with route keys "billing" and "support",
	// and Triage holds the router role

The passes are also usable directly on any Graph:

	g = graphbuilder.Normalize(g)
	issues := graphbuilder.Validate(g.Nodes, g.Edges)
	if err := issues.Err(); err != nil {
	    log.Fatal(err)
	}

# Role inference

Roles are derived, never edited directly. DeclaredRoles records what the
user or a template asked for; Roles is the canonical union of the declared
roles and the signals that currently fire:

	agent   always
	tool    the node has at least one tool
	router  the node has more than one outgoing edge
	memory  label or description mentions memory, context, history, store,
	        persist, recall, retrieve, knowledge or cache; or a memory tool
	        (db-query, notion) is attached

Removing a declared role does not remove a role a signal still backs.
WithStickyRoles keeps a role once any signal has produced it.

# Identity

Both passes return unchanged elements by reference, so callers can detect
what a mutation touched with pointer comparison. Fingerprint digests the
fields code generation reads, for caching.

# Concurrency

Derivation functions are pure and safe for concurrent use. An Editor is
single-owner: callers serialize mutations.
*/
package graphbuilder
