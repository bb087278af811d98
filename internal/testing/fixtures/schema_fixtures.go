package fixtures

import (
	"fmt"
	"strings"
)

// SchemaFixtureBuilder provides a fluent API for building the DDL of a test
// database: schemas, tables with foreign keys and many-to-many join tables.
//
// Example usage:
//
//	ddl := NewSchemaFixtureBuilder().
//	    AddSchema("blog", func(s *SchemaBuilder) {
//	        s.AddTable("tag", "label text NOT NULL")
//	        s.AddTable("post", "title text NOT NULL")
//	        s.AddJoinTable("post_tags", "blog.post", "blog.tag")
//	    }).
//	    Build()
type SchemaFixtureBuilder struct {
	statements []string
}

// NewSchemaFixtureBuilder creates an empty builder.
func NewSchemaFixtureBuilder() *SchemaFixtureBuilder {
	return &SchemaFixtureBuilder{}
}

// AddSchema creates schema name and lets fn add its tables.
func (b *SchemaFixtureBuilder) AddSchema(name string, fn func(*SchemaBuilder)) *SchemaFixtureBuilder {
	b.statements = append(b.statements, fmt.Sprintf("CREATE SCHEMA %s", name))
	fn(&SchemaBuilder{schema: name, parent: b})
	return b
}

// Build returns the statements in the order they were added.
func (b *SchemaFixtureBuilder) Build() []string {
	return append([]string(nil), b.statements...)
}

// SchemaBuilder adds tables to one schema.
type SchemaBuilder struct {
	schema string
	parent *SchemaFixtureBuilder
}

// AddTable creates a table with a bigserial "id" primary key followed by
// the given column definitions.
func (s *SchemaBuilder) AddTable(name string, columns ...string) *SchemaBuilder {
	defs := append([]string{"id bigserial PRIMARY KEY"}, columns...)
	s.add(fmt.Sprintf("CREATE TABLE %s.%s (%s)", s.schema, name, strings.Join(defs, ", ")))
	return s
}

// AddJoinTable creates a join table with an "id" primary key and one
// foreign key column per qualified target, named after the target table.
func (s *SchemaBuilder) AddJoinTable(name, left, right string) *SchemaBuilder {
	s.add(fmt.Sprintf(
		"CREATE TABLE %s.%s (id bigserial PRIMARY KEY, %s, %s)",
		s.schema, name, joinColumn(left), joinColumn(right),
	))
	return s
}

func (s *SchemaBuilder) add(stmt string) {
	s.parent.statements = append(s.parent.statements, stmt)
}

func joinColumn(target string) string {
	table := target
	if i := strings.LastIndexByte(target, '.'); i >= 0 {
		table = target[i+1:]
	}
	return fmt.Sprintf("%s_id bigint NOT NULL REFERENCES %s (id)", table, target)
}

// ============================================================================
// Pre-built Fixtures
// ============================================================================

// Blog creates two schemas: blog_auth with an author table, and blog with
// tag, post (a foreign key to blog_auth.author) and the post_tags join table.
func Blog() []string {
	return NewSchemaFixtureBuilder().
		AddSchema("blog_auth", func(s *SchemaBuilder) {
			s.AddTable("author", "name text NOT NULL")
		}).
		AddSchema("blog", func(s *SchemaBuilder) {
			s.AddTable("tag", "label text NOT NULL")
			s.AddTable("post",
				"title varchar(200) NOT NULL",
				"published boolean NOT NULL DEFAULT false",
				"author_id bigint NOT NULL REFERENCES blog_auth.author (id)",
			)
			s.AddJoinTable("post_tags", "blog.post", "blog.tag")
		}).
		Build()
}
