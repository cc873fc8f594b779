package etl

import "rite/internal/model"

// ── Schema ─────────────────────────────────────────────────
// Records do not share a schema. Sinks that need columns (tables, CSV
// headers) derive one from the records they have seen.

// Column describes a single column derived from records.
type Column struct {
	Name string     `json:"name"`
	Kind model.Kind `json:"-"`
	Type string     `json:"type"` // variant name, e.g. "U8", "String"
}

// Schema describes the shape of a set of records.
type Schema struct {
	Columns []Column `json:"columns"`
}

// ColumnNames returns an ordered list of column names.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// SchemaOf collects column names in first-seen order. A column takes the
// kind of the first non-None value seen for it; duplicate names within a
// record collapse to one column.
func SchemaOf(records ...*model.Record) *Schema {
	s := &Schema{}
	index := map[string]int{}
	for _, rec := range records {
		for _, f := range rec.Fields() {
			kind := f.Value().Kind()
			i, seen := index[f.Name()]
			if !seen {
				index[f.Name()] = len(s.Columns)
				s.Columns = append(s.Columns, Column{Name: f.Name(), Kind: kind, Type: kind.String()})
				continue
			}
			if s.Columns[i].Kind == model.KindNone && kind != model.KindNone {
				s.Columns[i].Kind = kind
				s.Columns[i].Type = kind.String()
			}
		}
	}
	return s
}
