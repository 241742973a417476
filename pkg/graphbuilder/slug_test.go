package graphbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSlug tests route key slugging.
func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Billing", "billing"},
		{"Resolution Agent", "resolution_agent"},
		{"  CRM -- Sync!! ", "crm_sync"},
		{"Step 2: Review", "step_2_review"},
		{"___", ""},
		{"", ""},
		{"Café Crème", "caf_cr_me"},
		{"日本語", ""},
		{"a__b", "a_b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

// TestDefaultRouteKey tests the fallback chain.
func TestDefaultRouteKey(t *testing.T) {
	assert.Equal(t, "support", DefaultRouteKey("Support", "7f3a9c21", 2))
	assert.Equal(t, "route_7f3a9c", DefaultRouteKey("!!!", "7f3a9c21", 2))
	assert.Equal(t, "route_ab", DefaultRouteKey("", "ab", 2))
	assert.Equal(t, "route_3", DefaultRouteKey("", "", 3))
	assert.Equal(t, "route_ééééé😀", DefaultRouteKey("", "ééééé😀xyz", 1), "six characters, not UTF-16 units")
}

// TestUniqueKey tests collision suffixing.
func TestUniqueKey(t *testing.T) {
	assert.Equal(t, "x", UniqueKey("x", map[string]bool{}))
	assert.Equal(t, "x_2", UniqueKey("x", map[string]bool{"x": true}))
	assert.Equal(t, "x_3", UniqueKey("x", map[string]bool{"x": true, "x_2": true}))
}
