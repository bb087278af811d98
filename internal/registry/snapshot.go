// Package registry provides schema registry snapshots: an in-memory
// implementation of dbfill.Registry and a loader for YAML schema files.
package registry

import (
	"fmt"

	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// Snapshot is a read-only schema registry taken once per run.
// Safe for concurrent reads.
type Snapshot struct {
	groups []dbfill.GroupID
	types  map[dbfill.GroupID][]*dbfill.EntityType
	index  map[dbfill.TypeRef]*dbfill.EntityType
	actor  *dbfill.TypeRef
}

// NewSnapshot builds a Snapshot from entity types in enumeration order.
// Groups are ordered by first appearance. Entity types without a stable id
// (ID == 0) are assigned ids above the highest explicit id, in order.
// The entity types are copied; later changes to the arguments are not seen.
func NewSnapshot(actor *dbfill.TypeRef, types ...*dbfill.EntityType) (*Snapshot, error) {
	s := &Snapshot{
		types: make(map[dbfill.GroupID][]*dbfill.EntityType),
		index: make(map[dbfill.TypeRef]*dbfill.EntityType, len(types)),
	}
	if actor != nil {
		a := *actor
		s.actor = &a
	}

	ids := make(map[dbfill.StableID]dbfill.TypeRef)
	var maxID dbfill.StableID

	for _, et := range types {
		if et == nil {
			continue
		}
		if et.Group == "" || et.Type == "" {
			return nil, fmt.Errorf("entity type %q in group %q: group and type must be set: %w", et.Type, et.Group, dbfill.ErrRegistry)
		}
		ref := et.Ref()
		if _, dup := s.index[ref]; dup {
			return nil, fmt.Errorf("entity type %s registered twice: %w", ref, dbfill.ErrRegistry)
		}
		if et.ID != 0 {
			if other, dup := ids[et.ID]; dup {
				return nil, fmt.Errorf("stable id %d used by both %s and %s: %w", et.ID, other, ref, dbfill.ErrRegistry)
			}
			ids[et.ID] = ref
			if et.ID > maxID {
				maxID = et.ID
			}
		}

		cp := *et
		if _, seen := s.types[cp.Group]; !seen {
			s.groups = append(s.groups, cp.Group)
		}
		s.types[cp.Group] = append(s.types[cp.Group], &cp)
		s.index[ref] = &cp
	}

	next := maxID + 1
	for _, g := range s.groups {
		for _, et := range s.types[g] {
			if et.ID == 0 {
				et.ID = next
				next++
			}
		}
	}

	return s, nil
}

// Groups returns all group ids in enumeration order.
func (s *Snapshot) Groups() []dbfill.GroupID {
	out := make([]dbfill.GroupID, len(s.groups))
	copy(out, s.groups)
	return out
}

// Types returns the entity types of a group in enumeration order.
func (s *Snapshot) Types(group dbfill.GroupID) []*dbfill.EntityType {
	return s.types[group]
}

// Lookup finds an entity type by reference.
func (s *Snapshot) Lookup(ref dbfill.TypeRef) (*dbfill.EntityType, bool) {
	et, ok := s.index[ref]
	return et, ok
}

// StableID resolves the persistent id of an entity type.
func (s *Snapshot) StableID(ref dbfill.TypeRef) (dbfill.StableID, bool) {
	et, ok := s.index[ref]
	if !ok {
		return 0, false
	}
	return et.ID, true
}

// Actor returns the principal user entity type, if the snapshot declares one.
func (s *Snapshot) Actor() (dbfill.TypeRef, bool) {
	if s.actor == nil {
		return dbfill.TypeRef{}, false
	}
	return *s.actor, true
}

// WithActor returns a copy of the snapshot whose principal entity type is
// actor. The actor must be registered.
func (s *Snapshot) WithActor(actor dbfill.TypeRef) (*Snapshot, error) {
	if _, ok := s.index[actor]; !ok {
		return nil, fmt.Errorf("actor %s is not registered: %w", actor, dbfill.ErrRegistry)
	}
	cp := *s
	cp.actor = &actor
	return &cp, nil
}

// Len returns the number of entity types, synthetic ones included.
func (s *Snapshot) Len() int {
	return len(s.index)
}

var _ dbfill.Registry = (*Snapshot)(nil)
