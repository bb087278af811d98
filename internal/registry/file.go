package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// schemaDocument is the YAML schema file layout.
//
//	actor: auth.user
//	groups:
//	  - name: foodgram
//	    types:
//	      - type: recipe
//	        name: Recipe
//	        id: 7
//	        default_related_name: recipes
//	        fields:
//	          - {name: id, kind: BigAutoField, primary_key: true}
//	          - {name: author, kind: ForeignKey, fk: auth.user}
//	        many_to_many:
//	          - {name: tags, to: foodgram.tag}
type schemaDocument struct {
	Actor  string        `yaml:"actor"`
	Groups []groupSchema `yaml:"groups"`
}

type groupSchema struct {
	Name  string       `yaml:"name"`
	Types []typeSchema `yaml:"types"`
}

type typeSchema struct {
	Type               string        `yaml:"type"`
	Name               string        `yaml:"name"`
	ID                 int64         `yaml:"id"`
	Synthetic          bool          `yaml:"synthetic"`
	DefaultRelatedName *string       `yaml:"default_related_name"`
	Fields             []fieldSchema `yaml:"fields"`
	ManyToMany         []fieldSchema `yaml:"many_to_many"`
}

type fieldSchema struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	PrimaryKey  bool   `yaml:"primary_key"`
	ForeignKey  string `yaml:"fk"`
	To          string `yaml:"to"`
	RelatedName string `yaml:"related_name"`
	Through     string `yaml:"through"`
}

// LoadFile reads a YAML schema file into a Snapshot.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	snap, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", path, err)
	}
	return snap, nil
}

// Parse decodes a YAML schema document. Unknown keys are rejected.
func Parse(data []byte) (*Snapshot, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc schemaDocument
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%v: %w", err, dbfill.ErrRegistry)
	}

	var actor *dbfill.TypeRef
	if doc.Actor != "" {
		ref, err := dbfill.ParseTypeRef(doc.Actor)
		if err != nil {
			return nil, fmt.Errorf("actor: %v: %w", err, dbfill.ErrRegistry)
		}
		actor = &ref
	}

	var types []*dbfill.EntityType
	for _, g := range doc.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("group without name: %w", dbfill.ErrRegistry)
		}
		for _, ts := range g.Types {
			et, err := ts.entityType(g.Name)
			if err != nil {
				return nil, err
			}
			types = append(types, et)
		}
	}

	return NewSnapshot(actor, types...)
}

func (ts typeSchema) entityType(group string) (*dbfill.EntityType, error) {
	et := &dbfill.EntityType{
		Group:              group,
		Type:               ts.Type,
		ID:                 ts.ID,
		Name:               ts.Name,
		Synthetic:          ts.Synthetic,
		DefaultRelatedName: ts.DefaultRelatedName,
	}
	where := group + "." + ts.Type

	for _, fs := range ts.Fields {
		if fs.To != "" {
			return nil, fmt.Errorf("%s.%s: 'to' is only valid in many_to_many, use 'fk': %w", where, fs.Name, dbfill.ErrRegistry)
		}
		f, err := fs.field(where, dbfill.FieldSimple)
		if err != nil {
			return nil, err
		}
		et.Fields = append(et.Fields, f)
	}

	for _, fs := range ts.ManyToMany {
		f, err := fs.field(where, dbfill.FieldToMany)
		if err != nil {
			return nil, err
		}
		if f.RelatedQueryName == "" {
			f.RelatedQueryName = defaultRelatedQueryName(et)
		}
		et.ManyToMany = append(et.ManyToMany, f)
	}

	return et, nil
}

func (fs fieldSchema) field(where string, kind dbfill.FieldKind) (dbfill.Field, error) {
	if fs.Name == "" {
		return dbfill.Field{}, fmt.Errorf("%s: field without name: %w", where, dbfill.ErrRegistry)
	}
	f := dbfill.Field{
		Name:             fs.Name,
		Kind:             kind,
		ScalarKind:       fs.Kind,
		PrimaryKey:       fs.PrimaryKey,
		RelatedQueryName: fs.RelatedName,
		Through:          fs.Through != "",
	}

	target := fs.ForeignKey
	if kind == dbfill.FieldToMany {
		target = fs.To
		if target == "" {
			return dbfill.Field{}, fmt.Errorf("%s.%s: many_to_many field needs 'to': %w", where, fs.Name, dbfill.ErrRegistry)
		}
	}
	if target != "" {
		ref, err := dbfill.ParseTypeRef(target)
		if err != nil {
			return dbfill.Field{}, fmt.Errorf("%s.%s: %v: %w", where, fs.Name, err, dbfill.ErrRegistry)
		}
		f.Target = ref
		if kind == dbfill.FieldSimple {
			f.Kind = dbfill.FieldToOne
		}
	}
	if f.ScalarKind == "" && f.Kind == dbfill.FieldSimple {
		return dbfill.Field{}, fmt.Errorf("%s.%s: simple field needs 'kind': %w", where, fs.Name, dbfill.ErrRegistry)
	}
	return f, nil
}

// defaultRelatedQueryName is the reverse query name used when a many-to-many
// field does not set one: the owner's default related name, else its type id.
func defaultRelatedQueryName(owner *dbfill.EntityType) string {
	if owner.DefaultRelatedName != nil && *owner.DefaultRelatedName != "" {
		return *owner.DefaultRelatedName
	}
	return strings.ToLower(owner.Type)
}
