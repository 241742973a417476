package codegen

import (
	"strings"
	"text/template"
)

var pythonReserved = []string{
	// keywords and soft keywords; slugs are lowercase, so True/False/None
	// never collide
	"and", "as", "assert", "async", "await", "break", "case", "class", "continue",
	"def", "del", "elif", "else", "except", "finally", "for", "from",
	"global", "if", "import", "in", "is", "lambda", "match", "nonlocal",
	"not", "or", "pass", "raise", "return", "try", "type", "while",
	"with", "yield",
	// builtins a stub body is likely to call
	"print", "len", "input", "open", "range", "format", "filter", "map", "next", "super",
	// names the skeleton itself binds or annotates with
	"app", "graph", "state", "tools", "list", "str", "dict",
}

type pythonUnit struct {
	Unit
	Func string
	Doc  []string
}

type pythonRouter struct {
	Router
	Func    string
	Default string
}

type pythonView struct {
	*Plan
	Banner  []string
	Units   []pythonUnit
	Routers []pythonRouter
}

// Python renders a LangGraph StateGraph module.
type Python struct{}

// Name returns "python".
func (Python) Name() string { return "python" }

// FileName returns the project slug with a .py extension.
func (Python) FileName(project string) string { return fileName(project, ".py") }

// Render emits the Python skeleton.
func (Python) Render(p *Plan) ([]byte, error) {
	ids := newIdentifiers(pythonReserved, "node_", "_", "_")
	view := pythonView{Plan: p, Banner: bannerLines(p.Banner)}
	for _, u := range p.Units {
		view.Units = append(view.Units, pythonUnit{
			Unit: u,
			Func: ids.claim(u.Name),
			Doc:  docLines(u, pythonDocEscape),
		})
	}
	for _, r := range p.Routers {
		view.Routers = append(view.Routers, pythonRouter{
			Router:  r,
			Func:    ids.claim("route_" + r.Source),
			Default: r.Default(),
		})
	}
	return render(pythonTemplate, view)
}

func pythonDocEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"""`, `\"\"\"`)
}

var pythonTemplate = template.Must(template.New("python").Funcs(funcs).Parse(`
{{- range .Banner}}#{{if .}} {{.}}{{end}}
{{end -}}
from typing import TypedDict

from langgraph.graph import END, START, StateGraph


class AgentState(TypedDict, total=False):
    messages: list
    route: str
{{range .Units}}

def {{.Func}}(state: AgentState) -> dict:
    """{{index .Doc 0}}
{{- range slice .Doc 1}}
{{if .}}    {{.}}{{end}}
{{- end}}
    """
    tools = {{quoteList .Tools}}
{{- if .Default}}
    return {"route": {{quote .Default}}}
{{- else}}
    return {}
{{- end}}
{{end}}
{{- range .Routers}}

def {{.Func}}(state: AgentState) -> str:
    return state.get("route", {{quote .Default}})
{{end}}

graph = StateGraph(AgentState)
{{range .Units}}graph.add_node({{quote .Name}}, {{.Func}})
{{end}}
{{- if .Entry}}graph.add_edge(START, {{quote .Entry}})
{{end}}
{{- range .Wires}}graph.add_edge({{quote .Source}}, {{quote .Target}})
{{end}}
{{- range .Routers}}graph.add_conditional_edges(
    {{quote .Source}},
    {{.Func}},
    {
{{- range .Routes}}
        {{quote .Key}}: {{quote .Target}},
{{- end}}
    },
)
{{end}}
{{- range .Terminals}}graph.add_edge({{quote .}}, END)
{{end}}
app = graph.compile()
`))
