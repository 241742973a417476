// Package catalog holds the libraries the canvas offers: tools that can be
// attached to nodes and templates that seed a whole graph.
//
// # Tools
//
// A Tool is a record {ID, Name, Description, Category}. The core treats tool
// ids as opaque; the catalog only answers display and existence questions:
//
// 	tools := catalog.DefaultTools()
// 	names := tools.DisplayNames(node)        // unknown ids shown verbatim
// 	issues := tools.StaleReferences(g.Nodes) // graphbuilder.IssueStaleTool
//
// # Templates
//
// A Template lists nodes with an initial role and edges by node index.
// Instantiate mints fresh ids, lays the nodes out on the canvas, and
// returns the graph already normalized:
//
// 	tmpl, _ := catalog.DefaultTemplates().Lookup("support-copilot")
// 	g, err := catalog.Instantiate(tmpl)
//
// Templates and tools can also be loaded from YAML or JSON, and from a
// directory tree with doublestar patterns:
//
// 	templates, err := catalog.LoadTemplatesFS(os.DirFS("templates"), "**/*.{yaml,yml,json}")
//
// Every loaded record is checked with struct validation before use.
package catalog
