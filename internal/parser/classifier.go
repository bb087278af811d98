package parser

import (
	"fmt"

	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// Classifier turns an entity type into its exported record and validates
// its relations against the selection.
//
// A to-one relation whose target does not survive is a hard failure
// (*dbfill.ConflictRelationError): the field is part of the record's shape.
// A to-many relation whose target does not survive is dropped and reported
// through the sink.
type Classifier struct {
	registry  dbfill.Registry
	selection *Selection
	sink      dbfill.Sink
}

// NewClassifier creates a Classifier. sink may be nil, in which case every
// classification fails with dbfill.ErrSinkNotConfigured.
func NewClassifier(reg dbfill.Registry, sel *Selection, sink dbfill.Sink) *Classifier {
	return &Classifier{registry: reg, selection: sel, sink: sink}
}

// Classify builds the record of et. Fields are visited simple first, then
// to-one, then to-many, each in declaration order, so records and warnings
// are reproducible.
func (c *Classifier) Classify(et *dbfill.EntityType) (*dbfill.EntityRecord, error) {
	if c.sink == nil {
		return nil, dbfill.ErrSinkNotConfigured
	}
	return c.classify(et, c.sink)
}

func (c *Classifier) classify(et *dbfill.EntityType, sink dbfill.Sink) (*dbfill.EntityRecord, error) {
	rec := dbfill.NewEntityRecord(et.ID, et.ModelName(), et.DefaultRelatedName)

	for _, f := range et.Fields {
		if f.PrimaryKey || f.IsRelation() {
			continue
		}
		rec.Simple.Set(f.Name, f.ScalarKind)
	}

	for _, f := range et.Fields {
		if f.Kind != dbfill.FieldToOne || f.PrimaryKey || f.Through {
			continue
		}
		if !c.selection.Contains(f.Target) {
			return nil, &dbfill.ConflictRelationError{
				Source: et.Ref(),
				Field:  f.Name,
				Target: f.Target,
				Reason: c.missingReason(f.Target),
			}
		}
		id, err := c.stableID(et, f)
		if err != nil {
			return nil, err
		}
		rec.FK.Set(f.Name, id)
	}

	for _, f := range et.ManyToMany {
		if f.Kind != dbfill.FieldToMany || f.Through {
			continue
		}
		if !c.selection.Contains(f.Target) {
			sink.WriteLine(fmt.Sprintf("%s%s: many-to-many relation %q to %s dropped: %s",
				dbfill.WarningPrefix, et.Ref(), f.Name, f.Target, c.missingReason(f.Target)))
			continue
		}
		id, err := c.stableID(et, f)
		if err != nil {
			return nil, err
		}
		rec.MTM.Set(f.Name, dbfill.ManyToManyRecord{
			ContentTypeID: id,
			RelatedName:   f.RelatedQueryName,
		})
	}

	return rec, nil
}

func (c *Classifier) missingReason(target dbfill.TypeRef) string {
	et, ok := c.registry.Lookup(target)
	switch {
	case !ok:
		return "target is not registered"
	case et.Synthetic:
		return "target is a synthetic join type"
	default:
		return "target is excluded"
	}
}

func (c *Classifier) stableID(owner *dbfill.EntityType, f dbfill.Field) (dbfill.StableID, error) {
	id, ok := c.registry.StableID(f.Target)
	if !ok {
		return 0, fmt.Errorf("%s.%s: no stable id for %s: %w", owner.Ref(), f.Name, f.Target, dbfill.ErrRegistry)
	}
	return id, nil
}
