// Package postgres builds a schema registry snapshot from the PostgreSQL
// system catalog.
//
// Schemas are groups and tables are entity types; the table OID is the
// stable id. Single-column foreign keys become to-one fields. A table made
// of exactly two foreign key columns, plus an optional "id" primary key, is
// treated as an auto-created many-to-many join table: it is marked synthetic
// and contributes a many-to-many field to the table its first foreign key
// references.
package postgres

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/vvka-141/dbfill/internal/registry"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// Options controls introspection.
type Options struct {
	Schemas []string        // Limits and orders the introspected schemas; all user schemas when empty
	Actor   *dbfill.TypeRef // Principal entity type, forced past group exclusion
}

// Introspect reads the catalog through q and returns a registry snapshot.
func Introspect(ctx context.Context, q Querier, opts Options) (*registry.Snapshot, error) {
	cat, err := readCatalog(ctx, q, opts.Schemas)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dbfill.ErrRegistry, err)
	}

	types := buildTypes(cat)
	if opts.Actor != nil {
		found := false
		for _, et := range types {
			if et.Ref() == *opts.Actor {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("actor %s is not an introspected table: %w", opts.Actor, dbfill.ErrRegistry)
		}
	}
	return registry.NewSnapshot(opts.Actor, types...)
}

type foreignKey struct {
	column int16
	target dbfill.TypeRef
}

type tableInfo struct {
	row     tableRow
	columns []columnRow
	pk      map[int16]bool
	fks     []foreignKey // single-column foreign keys, by column number
}

func (t *tableInfo) ref() dbfill.TypeRef {
	return dbfill.TypeRef{Group: t.row.Schema, Type: t.row.Name}
}

func (t *tableInfo) fkFor(num int16) (foreignKey, bool) {
	for _, fk := range t.fks {
		if fk.column == num {
			return fk, true
		}
	}
	return foreignKey{}, false
}

func (t *tableInfo) column(num int16) columnRow {
	for _, c := range t.columns {
		if c.Num == num {
			return c
		}
	}
	return columnRow{}
}

// joinTable reports whether t is an auto-created many-to-many table.
func (t *tableInfo) joinTable() bool {
	if len(t.fks) != 2 || t.fks[0].column == t.fks[1].column {
		return false
	}
	for _, c := range t.columns {
		if _, ok := t.fkFor(c.Num); ok {
			continue
		}
		if c.Name == "id" && t.pk[c.Num] && len(t.pk) == 1 {
			continue
		}
		return false
	}
	return true
}

func buildTypes(cat *catalog) []*dbfill.EntityType {
	infos := make([]*tableInfo, 0, len(cat.tables))
	byOID := make(map[int64]*tableInfo, len(cat.tables))
	for _, row := range cat.tables {
		ti := &tableInfo{row: row, pk: make(map[int16]bool)}
		infos = append(infos, ti)
		byOID[row.OID] = ti
	}

	for _, c := range cat.columns {
		if ti, ok := byOID[c.TableOID]; ok {
			ti.columns = append(ti.columns, c)
		}
	}

	for _, con := range cat.constraints {
		ti, ok := byOID[con.TableOID]
		if !ok {
			continue
		}
		switch con.Kind {
		case "p":
			for _, num := range con.Columns {
				ti.pk[num] = true
			}
		case "f":
			if len(con.Columns) != 1 {
				continue
			}
			if _, dup := ti.fkFor(con.Columns[0]); dup {
				continue
			}
			ti.fks = append(ti.fks, foreignKey{
				column: con.Columns[0],
				target: dbfill.TypeRef{Group: con.RefSchema, Type: con.RefTable},
			})
		}
	}
	for _, ti := range infos {
		slices.SortFunc(ti.fks, func(a, b foreignKey) int { return cmp.Compare(a.column, b.column) })
	}

	types := make([]*dbfill.EntityType, 0, len(infos))
	byRef := make(map[dbfill.TypeRef]*dbfill.EntityType, len(infos))
	for _, ti := range infos {
		et := &dbfill.EntityType{
			Group:     ti.row.Schema,
			Type:      ti.row.Name,
			ID:        dbfill.StableID(ti.row.OID),
			Name:      modelName(ti.row.Name),
			Synthetic: ti.joinTable(),
		}
		for _, c := range ti.columns {
			f := dbfill.Field{Name: c.Name, Kind: dbfill.FieldSimple, ScalarKind: c.Type, PrimaryKey: ti.pk[c.Num]}
			if fk, ok := ti.fkFor(c.Num); ok {
				f.Name = strings.TrimSuffix(c.Name, "_id")
				f.Kind = dbfill.FieldToOne
				f.Target = fk.target
			}
			et.Fields = append(et.Fields, f)
		}
		types = append(types, et)
		byRef[et.Ref()] = et
	}

	for _, ti := range infos {
		if !ti.joinTable() {
			continue
		}
		first, second := ti.fks[0], ti.fks[1]
		owner, ok := byRef[first.target]
		if !ok {
			continue
		}
		owner.ManyToMany = append(owner.ManyToMany, dbfill.Field{
			Name:             joinFieldName(owner.Type, ti.row.Name, ti.column(second.column).Name),
			Kind:             dbfill.FieldToMany,
			Target:           second.target,
			RelatedQueryName: owner.Type,
		})
	}

	return types
}

// joinFieldName names the many-to-many field of owner carried by the join
// table: the join table name without the owner prefix ("recipe_tags" on
// "recipe" gives "tags"), else the join table's second foreign key column.
func joinFieldName(owner, join, column string) string {
	if suffix, ok := strings.CutPrefix(join, owner+"_"); ok && suffix != "" {
		return suffix
	}
	if name := strings.TrimSuffix(column, "_id"); name != "" {
		return name
	}
	return join
}

// modelName camelizes the singular table name: "shopping_carts" gives "ShoppingCart".
func modelName(table string) string {
	return inflect.Camelize(inflect.Singularize(table))
}
