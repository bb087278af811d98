// Package exclusion resolves user exclusion overrides against the built-in
// defaults into the immutable rule sets used to select entity types.
package exclusion

import (
	"fmt"
	"sort"

	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// Overrides is the user-supplied part of the exclusion rules.
// A nil ExcludedGroups or ExcludedTypes means the key was absent.
type Overrides struct {
	ExcludedGroups []dbfill.GroupID
	ExcludedTypes  map[dbfill.GroupID][]dbfill.TypeID
}

type set map[string]struct{}

func newSet(items []string) set {
	s := make(set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func (s set) has(item string) bool {
	_, ok := s[item]
	return ok
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// Rules holds the effective exclusion rules. It is immutable after New.
//
// Forced types override exclusion of their group for that type only;
// the rest of the group stays excluded.
type Rules struct {
	excludedGroups set
	excludedTypes  map[dbfill.GroupID]set
	forcedTypes    map[dbfill.GroupID]set
}

// New builds Rules from overrides. Excluded groups are the union of the
// overrides and dbfill.DefaultExcludedGroups. Excluded types are taken from
// the overrides as given. The actor entity type, when known, is forced so it
// is exported even if its group is excluded.
func New(o Overrides, actor *dbfill.TypeRef) (*Rules, error) {
	r := &Rules{
		excludedGroups: newSet(dbfill.DefaultExcludedGroups),
		excludedTypes:  make(map[dbfill.GroupID]set),
		forcedTypes:    make(map[dbfill.GroupID]set),
	}

	for _, g := range o.ExcludedGroups {
		if g == "" {
			return nil, &dbfill.InvalidConfigError{Key: "apps_exclude", Reason: "must not contain empty group names"}
		}
		r.excludedGroups[g] = struct{}{}
	}

	for g, types := range o.ExcludedTypes {
		if g == "" {
			return nil, &dbfill.InvalidConfigError{Key: "tables_exclude", Reason: "must not contain an empty group name"}
		}
		for _, t := range types {
			if t == "" {
				return nil, &dbfill.InvalidConfigError{
					Key:    "tables_exclude." + g,
					Reason: "must not contain empty type names",
				}
			}
		}
		r.excludedTypes[g] = newSet(types)
	}

	if actor != nil {
		r.forcedTypes[actor.Group] = newSet([]string{actor.Type})
	}

	return r, nil
}

// GroupExcluded reports whether the whole group is excluded.
func (r *Rules) GroupExcluded(g dbfill.GroupID) bool {
	return r.excludedGroups.has(g)
}

// TypeExcluded reports whether the type is excluded individually.
func (r *Rules) TypeExcluded(g dbfill.GroupID, t dbfill.TypeID) bool {
	return r.excludedTypes[g].has(t)
}

// HasForced reports whether the group has force-included types.
func (r *Rules) HasForced(g dbfill.GroupID) bool {
	return len(r.forcedTypes[g]) > 0
}

// Forced reports whether the type is force-included.
func (r *Rules) Forced(g dbfill.GroupID, t dbfill.TypeID) bool {
	return r.forcedTypes[g].has(t)
}

// ExcludedGroups returns the effective excluded groups, sorted.
func (r *Rules) ExcludedGroups() []dbfill.GroupID {
	return r.excludedGroups.sorted()
}

// ExcludedTypes returns the excluded types of a group, sorted.
func (r *Rules) ExcludedTypes(g dbfill.GroupID) []dbfill.TypeID {
	return r.excludedTypes[g].sorted()
}

// ForcedTypes returns the force-included types as sorted references.
func (r *Rules) ForcedTypes() []dbfill.TypeRef {
	var refs []dbfill.TypeRef
	for g, types := range r.forcedTypes {
		for _, t := range types.sorted() {
			refs = append(refs, dbfill.TypeRef{Group: g, Type: t})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].String() < refs[j].String()
	})
	return refs
}

// String summarizes the rules for verbose logging.
func (r *Rules) String() string {
	return fmt.Sprintf("excluded groups=%v, groups with excluded types=%d, forced=%v",
		r.ExcludedGroups(), len(r.excludedTypes), r.ForcedTypes())
}
