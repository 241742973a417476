package codegen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
)

// ErrUnknownTarget indicates a target name with no registered renderer.
var ErrUnknownTarget = errors.New("unknown target")

// Target renders a Plan as source text in one language.
type Target interface {
	// Name is the canonical target name ("python", "typescript").
	Name() string
	// FileName is the file the output is written to for project.
	FileName(project string) string
	// Render emits the program skeleton for p.
	Render(p *Plan) ([]byte, error)
}

// identifiers allocates unique, non-reserved identifiers for one rendering.
type identifiers struct {
	taken    map[string]bool
	reserved map[string]bool
	// prefix is prepended to names that do not start with a letter.
	prefix string
	// escape is appended to reserved words.
	escape string
	// sep separates a name from its de-duplication counter.
	sep string
}

func newIdentifiers(reserved []string, prefix, escape, sep string) *identifiers {
	ids := &identifiers{
		taken:    make(map[string]bool),
		reserved: make(map[string]bool, len(reserved)),
		prefix:   prefix,
		escape:   escape,
		sep:      sep,
	}
	for _, w := range reserved {
		ids.reserved[w] = true
	}
	return ids
}

// claim returns base, adjusted to be a legal unused identifier.
func (ids *identifiers) claim(base string) string {
	if base == "" || !isLetter(base[0]) {
		base = ids.prefix + base
	}
	if ids.reserved[base] {
		base += ids.escape
	}
	name := base
	for n := 2; ids.taken[name] || ids.reserved[name]; n++ {
		name = base + ids.sep + strconv.Itoa(n)
	}
	ids.taken[name] = true
	return name
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// quote renders s as a double-quoted literal valid in both Python and JavaScript.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Strings always encode.
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func roleNames(roles []graphbuilder.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}

// lines splits free text into trimmed lines, dropping a trailing empty one.
func lines(s string) []string {
	s = strings.TrimRight(strings.ReplaceAll(s, "\r\n", "\n"), "\n ")
	if s == "" {
		return nil
	}
	out := strings.Split(s, "\n")
	for i := range out {
		out[i] = strings.TrimRight(out[i], " \t")
	}
	return out
}

var funcs = template.FuncMap{
	"quote":     quote,
	"quoteList": quoteList,
	"roleNames": roleNames,
	"lines":     lines,
}

func render(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

func fileName(project, ext string) string {
	base := graphbuilder.Slug(project)
	if base == "" {
		base = "graph"
	}
	return base + ext
}

// docLines lays out a unit's documentation: label, description, roles and
// tools, each line passed through escape.
func docLines(u Unit, escape func(string) string) []string {
	title := u.Label
	if strings.TrimSpace(title) == "" {
		title = u.Name
	}
	out := []string{escape(strings.Join(lines(title), " "))}
	if desc := lines(u.Description); len(desc) > 0 {
		out = append(out, "")
		for _, l := range desc {
			out = append(out, escape(l))
		}
	}
	tools := "none"
	if len(u.Tools) > 0 {
		tools = strings.Join(u.Tools, ", ")
	}
	out = append(out, "",
		escape("Roles: "+roleNames(u.Roles)),
		escape("Tools: "+tools),
	)
	return out
}

// bannerLines splits every banner entry on newlines.
func bannerLines(banner []string) []string {
	var out []string
	for _, b := range banner {
		split := lines(b)
		if len(split) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, split...)
	}
	return out
}
