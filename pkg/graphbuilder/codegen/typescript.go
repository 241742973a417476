package codegen

import (
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var typescriptReserved = []string{
	// reserved and strict-mode words
	"break", "case", "catch", "class", "const", "continue", "debugger", "default",
	"delete", "do", "else", "enum", "export", "extends", "false", "finally", "for",
	"function", "if", "import", "in", "instanceof", "new", "null", "return",
	"super", "switch", "this", "throw", "true", "try", "typeof", "var", "void",
	"while", "with", "yield", "let", "static", "implements", "interface",
	"package", "private", "protected", "public", "await", "arguments", "eval",
	// contextual TypeScript keywords
	"any", "as", "async", "boolean", "declare", "from", "get", "module", "number",
	"of", "require", "set", "string", "symbol", "type", "undefined", "unknown",
	// names the skeleton itself binds
	"app", "graph", "state", "tools",
}

// camel converts a snake_case name to lowerCamelCase.
func camel(name string) string {
	// Casers are stateful; one per call.
	titleCase := cases.Title(language.Und)
	parts := strings.Split(name, "_")
	var b strings.Builder
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 {
			b.WriteString(part)
			continue
		}
		b.WriteString(titleCase.String(part))
	}
	return b.String()
}

type typescriptUnit struct {
	Unit
	Func string
	Doc  []string
}

type typescriptRouter struct {
	Router
	Func    string
	Default string
}

type typescriptView struct {
	*Plan
	Banner  []string
	Units   []typescriptUnit
	Routers []typescriptRouter
}

// TypeScript renders a LangGraph.js StateGraph module.
type TypeScript struct{}

// Name returns "typescript".
func (TypeScript) Name() string { return "typescript" }

// FileName returns the project slug with a .ts extension.
func (TypeScript) FileName(project string) string { return fileName(project, ".ts") }

// Render emits the TypeScript skeleton.
func (TypeScript) Render(p *Plan) ([]byte, error) {
	ids := newIdentifiers(typescriptReserved, "node", "_", "")
	view := typescriptView{Plan: p, Banner: bannerLines(p.Banner)}
	for _, u := range p.Units {
		view.Units = append(view.Units, typescriptUnit{
			Unit: u,
			Func: ids.claim(camel(u.Name)),
			Doc:  docLines(u, jsDocEscape),
		})
	}
	for _, r := range p.Routers {
		view.Routers = append(view.Routers, typescriptRouter{
			Router:  r,
			Func:    ids.claim(camel("route_" + r.Source)),
			Default: r.Default(),
		})
	}
	return render(typescriptTemplate, view)
}

func jsDocEscape(s string) string {
	return strings.ReplaceAll(s, "*/", `*\/`)
}

var typescriptTemplate = template.Must(template.New("typescript").Funcs(funcs).Parse(`
{{- range .Banner}}//{{if .}} {{.}}{{end}}
{{end -}}
import { Annotation, END, START, StateGraph } from "@langchain/langgraph";

const AgentState = Annotation.Root({
  messages: Annotation<unknown[]>({
    reducer: (left, right) => left.concat(right),
    default: () => [],
  }),
  route: Annotation<string>(),
});

type State = typeof AgentState.State;
{{range .Units}}
/**
{{- range .Doc}}
 *{{if .}} {{.}}{{end}}
{{- end}}
 */
async function {{.Func}}(state: State): Promise<Partial<State>> {
  const tools = {{quoteList .Tools}};
{{- if .Default}}
  return { route: {{quote .Default}} };
{{- else}}
  return {};
{{- end}}
}
{{end}}
{{- range .Routers}}
function {{.Func}}(state: State): string {
  return state.route ?? {{quote .Default}};
}
{{end}}
const graph = new StateGraph(AgentState)
{{- range .Units}}
  .addNode({{quote .Name}}, {{.Func}})
{{- end}}
{{- if .Entry}}
  .addEdge(START, {{quote .Entry}})
{{- end}}
{{- range .Wires}}
  .addEdge({{quote .Source}}, {{quote .Target}})
{{- end}}
{{- range .Routers}}
  .addConditionalEdges({{quote .Source}}, {{.Func}}, {
{{- range .Routes}}
    {{quote .Key}}: {{quote .Target}},
{{- end}}
  })
{{- end}}
{{- range .Terminals}}
  .addEdge({{quote .}}, END)
{{- end}};

export const app = graph.compile();
`))
