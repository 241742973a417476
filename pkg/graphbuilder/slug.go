package graphbuilder

import (
	"strconv"
	"strings"
)

// Slug lowercases s and collapses every run of characters outside
// [a-z0-9] into a single underscore, trimming underscores at both ends.
// The result is pure ASCII and may be empty.
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// DefaultRouteKey derives the route key for a conditional edge that has none:
// the slug of the target label, else "route_" plus the first six characters
// of the edge id, else "route_" plus the 1-based edge position.
func DefaultRouteKey(targetLabel, edgeID string, position int) string {
	if key := Slug(targetLabel); key != "" {
		return key
	}
	if edgeID != "" {
		return "route_" + prefix(edgeID, 6)
	}
	return "route_" + strconv.Itoa(position)
}

// UniqueKey returns base, or base with the smallest "_N" suffix (N >= 2)
// that is not in taken.
func UniqueKey(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// prefix returns the first n runes of s. Ids outside the Basic
// Multilingual Plane keep n whole characters rather than n UTF-16 units.
func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
