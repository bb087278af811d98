package dbfill

import (
	"fmt"
	"strings"
)

// GroupID names a namespace of entity types (an application, or a database schema).
type GroupID = string

// TypeID names an entity type within its group (a model, or a table).
type TypeID = string

// StableID is the persistent numeric identifier of an entity type.
type StableID = int64

// TypeRef addresses an entity type by group and type.
type TypeRef struct {
	Group GroupID
	Type  TypeID
}

// String renders the reference in dotted form: "group.type".
func (r TypeRef) String() string {
	return r.Group + "." + r.Type
}

// ParseTypeRef parses the dotted "group.type" form.
// The group is everything before the last dot, so groups may contain dots.
func ParseTypeRef(s string) (TypeRef, error) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return TypeRef{}, fmt.Errorf("invalid entity type reference %q: expected <group>.<type>", s)
	}
	return TypeRef{Group: s[:i], Type: s[i+1:]}, nil
}

// FieldKind discriminates the field variants.
type FieldKind int

const (
	FieldSimple FieldKind = iota // Scalar column
	FieldToOne                   // Single-valued relation (foreign key)
	FieldToMany                  // Multi-valued relation (many-to-many)
)

// String returns a human-readable string representation of the FieldKind.
func (k FieldKind) String() string {
	switch k {
	case FieldSimple:
		return "simple"
	case FieldToOne:
		return "to-one"
	case FieldToMany:
		return "to-many"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Field describes a single field of an entity type.
//
// ScalarKind is set for simple fields. Target is set for relations and
// RelatedQueryName for to-many relations. Through marks a relation carried by
// an explicit join entity type; the join type is described on its own, so
// such relations are never classified directly.
type Field struct {
	Name             string
	Kind             FieldKind
	ScalarKind       string
	Target           TypeRef
	RelatedQueryName string
	PrimaryKey       bool
	Through          bool
}

// IsRelation reports whether the field references another entity type.
func (f Field) IsRelation() bool {
	return f.Kind == FieldToOne || f.Kind == FieldToMany
}

// EntityType is the registry's description of one entity type.
//
// Fields holds concrete fields (simple and to-one) in declaration order;
// ManyToMany holds multi-valued relations in declaration order. Synthetic
// entity types are auto-generated join types and are never exported directly.
type EntityType struct {
	Group              GroupID
	Type               TypeID
	ID                 StableID
	Name               string
	Synthetic          bool
	Fields             []Field
	ManyToMany         []Field
	DefaultRelatedName *string
}

// Ref returns the entity type's address.
func (e *EntityType) Ref() TypeRef {
	return TypeRef{Group: e.Group, Type: e.Type}
}

// ModelName returns the display name, falling back to the type id.
func (e *EntityType) ModelName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Type
}

// Registry enumerates a schema snapshot: groups, their entity types, and stable ids.
// Enumeration order is significant; it becomes the order of the parsed cache.
type Registry interface {
	// Groups returns all group ids in enumeration order.
	Groups() []GroupID

	// Types returns the entity types of a group in enumeration order.
	Types(group GroupID) []*EntityType

	// Lookup finds an entity type by reference.
	Lookup(ref TypeRef) (*EntityType, bool)

	// StableID resolves the persistent id of an entity type.
	StableID(ref TypeRef) (StableID, bool)

	// Actor returns the entity type backing the principal user/actor, if any.
	// It is always exported because other entity types hold relations to it.
	Actor() (TypeRef, bool)
}
