package schema

import (
	"regexp"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/joseph-ayodele/expiry-tracker/db/ent/schema/utils"
)

var reDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Product is one label the user keeps track of. Dates and timestamps are
// stored as text so SQLite and PostgreSQL sort them identically.
type Product struct{ ent.Schema }

func (Product) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "products"},
	}
}

func (Product) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			MaxLen(36).
			Immutable().
			SchemaType(map[string]string{dialect.Postgres: "varchar(36)"}),
		field.String("owner").Default(""),
		field.String("name").Optional().Nillable(),
		field.String("expiry_date").
			Optional().Nillable().
			Match(reDate).
			SchemaType(map[string]string{dialect.Postgres: "varchar(10)"}),
		field.String("manufacturer").Optional().Nillable(),
		field.String("batch_number").Optional().Nillable(),
		field.String("confidence").
			Default("none").
			Validate(utils.EnumValidator("high", "medium", "none")),
		field.Text("raw_text").Optional().Nillable(),
		field.String("source_path").Optional().Nillable(),
		field.String("content_hash").Optional().Nillable().MaxLen(64),
		field.Bool("deleted").Default(false),
		field.String("created_at").Immutable(),
		field.String("updated_at"),
	}
}

func (Product) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("owner", "expiry_date"),
		index.Fields("owner", "content_hash"),
	}
}

// StringValidators collects the string validators declared on each field of
// s, keyed by column.
func StringValidators(s interface{ Fields() []ent.Field }) map[string][]func(string) error {
	out := make(map[string][]func(string) error)
	cols := Columns(s)
	for i, f := range s.Fields() {
		for _, v := range f.Descriptor().Validators {
			if fn, ok := v.(func(string) error); ok {
				out[cols[i]] = append(out[cols[i]], fn)
			}
		}
	}
	return out
}

// IndexColumns returns the column list of every index declared on s.
func IndexColumns(s interface{ Indexes() []ent.Index }) [][]string {
	idx := s.Indexes()
	out := make([][]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, i.Descriptor().Fields)
	}
	return out
}

// Columns returns the storage column names of s in declaration order.
func Columns(s interface{ Fields() []ent.Field }) []string {
	fields := s.Fields()
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		d := f.Descriptor()
		if d.StorageKey != "" {
			cols = append(cols, d.StorageKey)
			continue
		}
		cols = append(cols, d.Name)
	}
	return cols
}
