package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/snapshot"
)

const supportYAML = `name: support
entry: triage
nodes:
  - id: triage
    label: Triage
    tools: [web-search]
  - id: billing
    label: Billing
  - id: tech
    label: Tech Support
edges:
  - {id: e1, source: triage, target: billing}
  - {id: e2, source: triage, target: tech}
`

// lockedBuffer is a bytes.Buffer safe for the watch goroutine and the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errOut lockedBuffer
	code = run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "support.yaml", supportYAML)

	t.Run("valid", func(t *testing.T) {
		stdout, _, code := runCLI(t, "validate", doc)
		assert.Equal(t, 0, code)
		assert.Equal(t, "support: valid\n", stdout)
	})

	t.Run("roles", func(t *testing.T) {
		stdout, _, code := runCLI(t, "validate", doc, "--roles")
		assert.Equal(t, 0, code)
		assert.Contains(t, stdout, "NODE")
		assert.Regexp(t, `Triage\s+router\s+fan-out`, stdout)
		assert.Regexp(t, `Triage\s+tool\s+tools`, stdout)
		assert.Regexp(t, `Billing\s+agent\s+always`, stdout)
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, code := runCLI(t, "validate", doc, "--format", "json")
		assert.Equal(t, 0, code)

		var report struct {
			Project string `json:"project"`
			Valid   bool   `json:"valid"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &report))
		assert.Equal(t, "support", report.Project)
		assert.True(t, report.Valid)
	})

	t.Run("issues", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.json", `{
			"nodes": [
				{"id": "a", "label": "Writer", "tools": ["legacy-fax"]},
				{"id": "b", "label": "Reviewer"}
			],
			"edges": []
		}`)
		stdout, stderr, code := runCLI(t, "validate", bad)
		assert.Equal(t, 1, code)
		assert.Contains(t, stdout, "bad: 2 issue(s)")
		assert.Contains(t, stdout, "[ambiguous_entry]")
		assert.Contains(t, stdout, `[stale_tool] node "Writer" references unknown tool "legacy-fax"`)
		assert.Contains(t, stderr, "validation issues found")
	})

	t.Run("entry flag", func(t *testing.T) {
		_, _, code := runCLI(t, "validate", doc, "--entry", "nowhere")
		assert.Equal(t, 1, code)
	})

	t.Run("roles only document", func(t *testing.T) {
		rolesOnly := writeFile(t, dir, "solo.yaml", `nodes:
  - id: hub
    label: Dispatcher
    roles: [agent, router]
`)
		stdout, _, code := runCLI(t, "validate", rolesOnly, "--roles")
		assert.Equal(t, 0, code)
		assert.Regexp(t, `Dispatcher\s+router\s+declared`, stdout)
	})

	t.Run("unknown field", func(t *testing.T) {
		bad := writeFile(t, dir, "typo.yaml", "name: x\nnodez: []\n")
		_, stderr, code := runCLI(t, "validate", bad)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "nodez")
	})
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "support.yaml", supportYAML)

	t.Run("writes every target", func(t *testing.T) {
		out := filepath.Join(dir, "gen")
		stdout, _, code := runCLI(t, "generate", doc, "--out", out)
		require.Equal(t, 0, code)
		assert.Equal(t, filepath.Join(out, "support.py")+"\n"+filepath.Join(out, "support.ts")+"\n", stdout)

		py, err := os.ReadFile(filepath.Join(out, "support.py"))
		require.NoError(t, err)
		assert.Contains(t, string(py), "StateGraph(AgentState)")
		assert.Contains(t, string(py), `"billing": "billing"`)

		ts, err := os.ReadFile(filepath.Join(out, "support.ts"))
		require.NoError(t, err)
		assert.Contains(t, string(ts), "new StateGraph(AgentState)")
	})

	t.Run("stdout", func(t *testing.T) {
		stdout, _, code := runCLI(t, "generate", doc, "--stdout", "-t", "ts", "--project", "Help Desk")
		require.Equal(t, 0, code)
		assert.True(t, strings.HasPrefix(stdout, "==> help_desk.ts <==\n"), stdout)
		assert.NotContains(t, stdout, ".py")
	})

	t.Run("unknown target", func(t *testing.T) {
		_, stderr, code := runCLI(t, "generate", doc, "--stdout", "-t", "cobol")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "unknown target")
	})

	t.Run("strict refuses issues", func(t *testing.T) {
		bad := writeFile(t, dir, "pair.yaml", "nodes: [{id: a, label: A}, {id: b, label: B}]\n")
		_, stderr, code := runCLI(t, "generate", bad, "--stdout", "--strict")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "graph has validation issues")
	})

	t.Run("issues are reported but not fatal", func(t *testing.T) {
		bad := writeFile(t, dir, "pair.yaml", "nodes: [{id: a, label: A}, {id: b, label: B}]\n")
		stdout, stderr, code := runCLI(t, "generate", bad, "--stdout", "-t", "py")
		assert.Equal(t, 0, code)
		assert.Contains(t, stderr, "pair: 1 issue(s)")
		assert.Contains(t, stdout, "==> pair.py <==")
	})
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "support.yaml", supportYAML)
	cfg := writeFile(t, dir, "conf/graphbuilder.yaml", `
codegen:
  targets: [py]
  output: generated
  banner: ["${project}: edit freely"]
catalog:
  tools: tools.yaml
`)
	writeFile(t, dir, "conf/tools.yaml", `
tools:
  - {id: web-search, name: Web Search, category: research}
  - {id: pager, name: Pager, category: ops}
`)

	stdout, _, code := runCLI(t, "--config", cfg, "generate", doc)
	require.Equal(t, 0, code)
	path := filepath.Join(dir, "conf", "generated", "support.py")
	assert.Equal(t, path+"\n", stdout)

	py, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(py), "# support: edit freely\n"), string(py))

	stdout, _, code = runCLI(t, "--config", cfg, "tools")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "pager")
	assert.NotContains(t, stdout, "crm-update")

	bad := writeFile(t, dir, "bad.yaml", "codegen:\n  targets: []\n")
	_, stderr, code := runCLI(t, "--config", bad, "tools")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid settings")
}

func TestTemplates(t *testing.T) {
	t.Run("list is the default", func(t *testing.T) {
		stdout, _, code := runCLI(t, "templates")
		require.Equal(t, 0, code)
		assert.Contains(t, stdout, "research-sprint")
		assert.Regexp(t, `support-copilot\s+Support Copilot\s+3\s+ticketing, email, crm-update`, stdout)
	})

	t.Run("new then validate", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "copilot.yaml")
		stdout, _, code := runCLI(t, "templates", "new", "support-copilot", "-o", path, "--name", "copilot")
		require.Equal(t, 0, code)
		assert.Equal(t, path+"\n", stdout)

		doc, err := readDocument(path)
		require.NoError(t, err)
		assert.Equal(t, "copilot", doc.Name)
		require.Len(t, doc.Nodes, 3)
		assert.Equal(t, doc.Nodes[0].ID, doc.Entry)
		assert.True(t, doc.Nodes[2].HasRole(graphbuilder.RoleTool))

		stdout, _, code = runCLI(t, "validate", path)
		assert.Equal(t, 0, code)
		assert.Equal(t, "copilot: valid\n", stdout)
	})

	t.Run("new json to stdout", func(t *testing.T) {
		stdout, _, code := runCLI(t, "templates", "new", "prd-builder", "-f", "json")
		require.Equal(t, 0, code)
		var doc graphbuilder.Document
		require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
		assert.Equal(t, "Product Requirements", doc.Name)
		assert.Len(t, doc.Edges, 1)
	})

	t.Run("configured templates", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "templates/team/triage.yaml", "id: triage\nname: Triage\nnodes: [{label: Intake}]\n")
		writeFile(t, dir, "templates/override.yaml", "id: prd-builder\nname: Lean PRD\nnodes: [{label: Writer}]\n")
		cfg := writeFile(t, dir, "graphbuilder.yaml", "catalog:\n  templates: \"templates/**/*.yaml\"\n")

		stdout, _, code := runCLI(t, "-c", cfg, "templates", "list")
		require.Equal(t, 0, code)
		assert.Contains(t, stdout, "triage")
		assert.Contains(t, stdout, "Lean PRD")
		assert.NotContains(t, stdout, "Product Requirements")
	})

	t.Run("unknown", func(t *testing.T) {
		_, stderr, code := runCLI(t, "templates", "new", "nope")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, `unknown template "nope"`)
	})
}

func TestTools(t *testing.T) {
	stdout, _, code := runCLI(t, "tools", "--category", "data")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "db-query")
	assert.NotContains(t, stdout, "web-search")
}

func TestSnapshots(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "graphbuilder.yaml", "snapshots:\n  path: state/snapshots.db\n")

	doc, err := readDocument(writeFile(t, dir, "support.yaml", supportYAML))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "state"), 0o755))
	store, err := snapshot.NewSQLiteStore(filepath.Join(dir, "state", "snapshots.db"))
	require.NoError(t, err)
	_, err = snapshot.SaveDocument(store, doc)
	require.NoError(t, err)
	doc.Nodes[1].Label = "Payments"
	_, err = snapshot.SaveDocument(store, doc)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	stdout, _, code := runCLI(t, "-c", cfg, "snapshots")
	require.Equal(t, 0, code)
	assert.Regexp(t, `support\s+2\s+`, stdout)

	stdout, _, code = runCLI(t, "-c", cfg, "snapshots", "list", "support")
	require.Equal(t, 0, code)
	assert.Regexp(t, `(?m)^1\s+`, stdout)
	assert.Regexp(t, `(?m)^2\s+`, stdout)

	stdout, _, code = runCLI(t, "-c", cfg, "snapshots", "show", "support", "-r", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "label: Billing")

	stdout, _, code = runCLI(t, "-c", cfg, "snapshots", "show", "support")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "label: Payments")

	stdout, _, code = runCLI(t, "-c", cfg, "snapshots", "delete", "support")
	require.Equal(t, 0, code)
	assert.Equal(t, "deleted support\n", stdout)

	_, stderr, code := runCLI(t, "-c", cfg, "snapshots", "list", "support")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "snapshot not found")

	_, stderr, code = runCLI(t, "snapshots")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no snapshot store configured")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"deploy"}},
		{"missing document", []string{"validate"}},
		{"document does not exist", []string{"validate", "/nonexistent/graph.yaml"}},
		{"bad log level", []string{"--log-level", "loud", "tools"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCLI(t, tt.args...)
			assert.Equal(t, 2, code)
			assert.True(t, strings.HasPrefix(stderr, "graphbuilder: "), stderr)
		})
	}
}

func TestLogging(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "support.yaml", supportYAML)

	_, stderr, code := runCLI(t, "--log-level", "debug", "--log-format", "json", "generate", doc, "--stdout", "-t", "py")
	require.Equal(t, 0, code)

	var sawGenerate bool
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		if entry["msg"] == "code generated" {
			sawGenerate = true
			assert.Equal(t, "python", entry["target"])
		}
	}
	assert.True(t, sawGenerate, stderr)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "support.yaml", supportYAML)
	out := filepath.Join(dir, "gen")
	cfg := writeFile(t, dir, "graphbuilder.yaml", "snapshots:\n  path: snapshots.db\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr lockedBuffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"-c", cfg, "watch", doc, "--out", out, "-t", "py", "--debounce", "20ms"}, &stdout, &stderr)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "saved support revision 1")
	}, 5*time.Second, 10*time.Millisecond, stderr.String())

	edited := strings.Replace(supportYAML, "label: Billing", "label: Payments", 1)
	require.NoError(t, os.WriteFile(doc, []byte(edited), 0o600))

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "saved support revision 2")
	}, 5*time.Second, 10*time.Millisecond, stderr.String())

	py, err := os.ReadFile(filepath.Join(out, "support.py"))
	require.NoError(t, err)
	assert.Contains(t, string(py), "def payments(")

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code, stderr.String())
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
