package codegen

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
)

func TestCache_Generate(t *testing.T) {
	metrics := &recordingMetrics{}
	c := NewCache(WithCacheMetrics(metrics))

	src, hit, err := c.Generate("python", supportGraph())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, MustGenerate("python", supportGraph()), src)

	again, hit, err := c.Generate("py", supportGraph())
	require.NoError(t, err)
	assert.True(t, hit, "alias resolves to the same entry")
	assert.Equal(t, src, again)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
}

func TestCache_Keys(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *graphbuilder.Graph)
		opts    []Option
		wantHit bool
	}{
		{
			name:    "canvas position is ignored",
			mutate:  func(g *graphbuilder.Graph) { g.Nodes[0].Position = graphbuilder.Position{X: 900, Y: 40} },
			wantHit: true,
		},
		{
			name:   "label change misses",
			mutate: func(g *graphbuilder.Graph) { g.Nodes[1].Label = "Payments" },
		},
		{
			name:   "route key change misses",
			mutate: func(g *graphbuilder.Graph) { g.Edges[0].RouteKey = "pay" },
		},
		{
			name: "project option misses",
			opts: []Option{WithProject("other")},
		},
		{
			name: "banner option misses",
			opts: []Option{WithBanner("custom")},
		},
		{
			name: "entry option misses",
			opts: []Option{WithEntry("billing")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache()
			_, _, err := c.Generate("typescript", supportGraph())
			require.NoError(t, err)

			g := supportGraph()
			if tt.mutate != nil {
				tt.mutate(g)
			}
			_, hit, err := c.Generate("typescript", g, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHit, hit)
		})
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	c := NewCache()
	broken := &graphbuilder.Graph{Nodes: []*graphbuilder.Node{agent("a", "A")}}

	_, _, err := c.Generate("python", broken)
	assert.True(t, errors.Is(err, graphbuilder.ErrInvariant))
	assert.Zero(t, c.Len())

	_, _, err = c.Generate("fortran", supportGraph())
	assert.True(t, errors.Is(err, ErrUnknownTarget))
}

func TestCache_Reset(t *testing.T) {
	c := NewCache()
	for _, target := range Targets() {
		_, _, err := c.Generate(target, supportGraph())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())

	c.Reset()
	assert.Zero(t, c.Len())
	_, hit, err := c.Generate("python", supportGraph())
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache()
	want := MustGenerate("python", supportGraph())

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src, _, err := c.Generate("python", supportGraph())
			if err == nil {
				results[i] = src
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 1, c.Len())
}
