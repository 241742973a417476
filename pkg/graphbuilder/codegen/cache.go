package codegen

import (
	"context"
	"strings"
	"sync"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/observability"
)

type cacheKey struct {
	target      string
	fingerprint string
	options     string
}

// Cache memoizes generated source by target, graph fingerprint and options.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]byte
	metrics observability.MetricsRecorder
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheMetrics records hit and miss counts.
func WithCacheMetrics(m observability.MetricsRecorder) CacheOption {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[cacheKey][]byte),
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the cached rendering of g for target, rendering and
// storing it on a miss. The boolean reports a hit. Failed renderings are
// not cached.
func (c *Cache) Generate(target string, g *graphbuilder.Graph, opts ...Option) (string, bool, error) {
	t, err := Lookup(target)
	if err != nil {
		return "", false, err
	}
	out, hit, err := c.generate(context.Background(), t, g, buildOptions(opts))
	return string(out), hit, err
}

func (c *Cache) generate(ctx context.Context, t Target, g *graphbuilder.Graph, o Options) ([]byte, bool, error) {
	key := cacheKey{
		target:      t.Name(),
		fingerprint: graphbuilder.Fingerprint(g),
		options:     o.Project + "\x00" + o.Entry + "\x00" + strings.Join(o.Banner, "\x00"),
	}

	c.mu.RLock()
	out, ok := c.entries[key]
	c.mu.RUnlock()
	c.metrics.RecordCacheLookup(ctx, key.target, ok)
	if ok {
		return out, true, nil
	}

	// Rendering is pure; concurrent misses may both render and store the same bytes.
	out, err := generate(t, g, o)
	if err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	c.entries[key] = out
	c.mu.Unlock()
	return out, false, nil
}

// Len returns the number of cached renderings.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every cached rendering.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey][]byte)
}
