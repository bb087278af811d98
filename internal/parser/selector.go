package parser

import (
	"github.com/vvka-141/dbfill/internal/exclusion"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// SelectedGroup is a group of the selection with its surviving entity types.
type SelectedGroup struct {
	Group dbfill.GroupID
	Types []*dbfill.EntityType
}

// Selection is the surviving set: the (group, type) pairs exported to the
// parsed cache, in registry order. Never mutated after Select returns.
type Selection struct {
	groups  []SelectedGroup
	members map[dbfill.TypeRef]struct{}
}

// Groups returns the selected groups in registry order.
// A group may be present with no types.
func (s *Selection) Groups() []SelectedGroup {
	return s.groups
}

// Contains reports whether the entity type survives.
func (s *Selection) Contains(ref dbfill.TypeRef) bool {
	_, ok := s.members[ref]
	return ok
}

// Len returns the number of surviving entity types.
func (s *Selection) Len() int {
	return len(s.members)
}

// Refs returns the surviving entity types in registry order.
func (s *Selection) Refs() []dbfill.TypeRef {
	refs := make([]dbfill.TypeRef, 0, len(s.members))
	for _, g := range s.groups {
		for _, et := range g.Types {
			refs = append(refs, et.Ref())
		}
	}
	return refs
}

// Select applies rules to every group of reg:
//
//  1. group not excluded: all types except the individually excluded ones;
//  2. group excluded with forced types: only the forced types, minus the
//     individually excluded ones;
//  3. group excluded without forced types: nothing.
//
// Synthetic entity types never survive. Groups without registered types are
// skipped. An excluded group appears only when a forced type survives; a
// group that is not excluded appears even when type filtering empties it.
func Select(reg dbfill.Registry, rules *exclusion.Rules) *Selection {
	sel := &Selection{members: make(map[dbfill.TypeRef]struct{})}

	for _, g := range reg.Groups() {
		types := reg.Types(g)
		if len(types) == 0 {
			continue
		}

		excluded := rules.GroupExcluded(g)
		if excluded && !rules.HasForced(g) {
			continue
		}

		kept := make([]*dbfill.EntityType, 0, len(types))
		for _, et := range types {
			switch {
			case et.Synthetic:
				continue
			case excluded && !rules.Forced(g, et.Type):
				continue
			case rules.TypeExcluded(g, et.Type):
				continue
			}
			kept = append(kept, et)
			sel.members[et.Ref()] = struct{}{}
		}

		if excluded && len(kept) == 0 {
			continue
		}
		sel.groups = append(sel.groups, SelectedGroup{Group: g, Types: kept})
	}

	return sel
}
