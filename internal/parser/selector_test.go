package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/dbfill/internal/exclusion"
	"github.com/vvka-141/dbfill/internal/registry"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

func accountsRegistry(t *testing.T) *registry.Snapshot {
	t.Helper()
	actor := ref("auth", "user")
	snap, err := registry.NewSnapshot(&actor,
		&dbfill.EntityType{Group: "auth", Type: "permission"},
		&dbfill.EntityType{Group: "auth", Type: "user"},
		&dbfill.EntityType{Group: "auth", Type: "user_groups", Synthetic: true},
		&dbfill.EntityType{Group: "sessions", Type: "session"},
		&dbfill.EntityType{Group: "shop", Type: "order"},
		&dbfill.EntityType{Group: "shop", Type: "item"},
		&dbfill.EntityType{Group: "audit", Type: "event"},
	)
	require.NoError(t, err)
	return snap
}

func rulesFor(t *testing.T, reg dbfill.Registry, o exclusion.Overrides) *exclusion.Rules {
	t.Helper()
	var actor *dbfill.TypeRef
	if a, ok := reg.Actor(); ok {
		actor = &a
	}
	rules, err := exclusion.New(o, actor)
	require.NoError(t, err)
	return rules
}

func groupNames(sel *Selection) []string {
	var out []string
	for _, g := range sel.Groups() {
		out = append(out, g.Group)
	}
	return out
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name      string
		overrides exclusion.Overrides
		groups    []string
		refs      []dbfill.TypeRef
	}{
		{
			name:   "defaults keep forced actor only",
			groups: []string{"auth", "shop", "audit"},
			refs:   []dbfill.TypeRef{ref("auth", "user"), ref("shop", "order"), ref("shop", "item"), ref("audit", "event")},
		},
		{
			name:      "excluded group without forced types is absent",
			overrides: exclusion.Overrides{ExcludedGroups: []string{"audit"}},
			groups:    []string{"auth", "shop"},
			refs:      []dbfill.TypeRef{ref("auth", "user"), ref("shop", "order"), ref("shop", "item")},
		},
		{
			name:      "type exclusion inside kept group",
			overrides: exclusion.Overrides{ExcludedTypes: map[string][]string{"shop": {"item"}}},
			groups:    []string{"auth", "shop", "audit"},
			refs:      []dbfill.TypeRef{ref("auth", "user"), ref("shop", "order"), ref("audit", "event")},
		},
		{
			name:      "kept group emptied by type exclusion stays present",
			overrides: exclusion.Overrides{ExcludedTypes: map[string][]string{"audit": {"event"}}},
			groups:    []string{"auth", "shop", "audit"},
			refs:      []dbfill.TypeRef{ref("auth", "user"), ref("shop", "order"), ref("shop", "item")},
		},
		{
			name:      "forced type excluded explicitly drops its group",
			overrides: exclusion.Overrides{ExcludedTypes: map[string][]string{"auth": {"user"}}},
			groups:    []string{"shop", "audit"},
			refs:      []dbfill.TypeRef{ref("shop", "order"), ref("shop", "item"), ref("audit", "event")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := accountsRegistry(t)
			sel := Select(reg, rulesFor(t, reg, tt.overrides))

			assert.Equal(t, tt.groups, groupNames(sel))
			assert.Equal(t, tt.refs, sel.Refs())
			assert.Equal(t, len(tt.refs), sel.Len())
			for _, r := range tt.refs {
				assert.True(t, sel.Contains(r), r.String())
			}
		})
	}
}

func TestSelect_SyntheticNeverSurvives(t *testing.T) {
	snap, err := registry.NewSnapshot(nil,
		&dbfill.EntityType{Group: "shop", Type: "order"},
		&dbfill.EntityType{Group: "shop", Type: "order_items", Synthetic: true},
	)
	require.NoError(t, err)

	sel := Select(snap, rulesFor(t, snap, exclusion.Overrides{}))
	assert.Equal(t, []dbfill.TypeRef{ref("shop", "order")}, sel.Refs())
	assert.False(t, sel.Contains(ref("shop", "order_items")))
}

func TestSelect_ForcedSurvivesGroupExclusion(t *testing.T) {
	reg := accountsRegistry(t)
	o := exclusion.Overrides{ExcludedGroups: []string{"auth", "shop", "audit"}}
	sel := Select(reg, rulesFor(t, reg, o))

	assert.Equal(t, []dbfill.TypeRef{ref("auth", "user")}, sel.Refs())
	assert.False(t, sel.Contains(ref("auth", "permission")))
}
