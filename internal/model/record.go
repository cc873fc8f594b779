package model

import (
	"encoding/json"
	"strings"
)

// Record is an ordered sequence of fields. Insertion order is kept and
// names are not required to be unique; lookups by name see the first
// match.
type Record struct {
	fields []Field
}

// NewRecord returns a record holding the given fields in order.
func NewRecord(fields ...Field) *Record {
	return &Record{fields: append([]Field{}, fields...)}
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Fields returns the fields in order. The slice must not be modified;
// use Set, Add or AddField instead.
func (r *Record) Fields() []Field {
	if r == nil {
		return nil
	}
	return r.fields
}

// Field returns the field at position i.
func (r *Record) Field(i int) Field {
	return r.fields[i]
}

// Names returns field names in order, duplicates included.
func (r *Record) Names() []string {
	names := make([]string, 0, r.Len())
	for _, f := range r.Fields() {
		names = append(names, f.name)
	}
	return names
}

// Index returns the position of the first field named name, or -1.
func (r *Record) Index(name string) int {
	for i, f := range r.Fields() {
		if f.name == name {
			return i
		}
	}
	return -1
}

// FieldByName returns the first field named name.
func (r *Record) FieldByName(name string) (Field, bool) {
	if i := r.Index(name); i >= 0 {
		return r.fields[i], true
	}
	return Field{}, false
}

// Get returns the value of the first field named name, or None.
func (r *Record) Get(name string) Value {
	f, _ := r.FieldByName(name)
	return f.value
}

// Add appends a field named name holding v.
func (r *Record) Add(name string, v Value) {
	r.fields = append(r.fields, NewFieldValue(name, v))
}

// AddField appends f.
func (r *Record) AddField(f Field) {
	r.fields = append(r.fields, f)
}

// Set replaces the field at position i.
func (r *Record) Set(i int, f Field) {
	r.fields[i] = f
}

// Remove deletes every field named name and reports whether any existed.
func (r *Record) Remove(name string) bool {
	return r.Retain(func(f Field) bool { return f.name != name }) > 0
}

// Retain keeps only the fields for which keep returns true, preserving
// order, and returns how many were removed.
func (r *Record) Retain(keep func(Field) bool) int {
	if r == nil {
		return 0
	}
	kept := r.fields[:0]
	for _, f := range r.fields {
		if keep(f) {
			kept = append(kept, f)
		}
	}
	removed := len(r.fields) - len(kept)
	clear(r.fields[len(kept):])
	r.fields = kept
	return removed
}

// AddField converts v with ValueOf and appends it under name.
func AddField(r *Record, name string, v any) {
	r.Add(name, ValueOf(v))
}

// AddOptionalField appends *v under name, converted with ValueOf. A nil v
// leaves the record untouched.
func AddOptionalField[T any](r *Record, name string, v *T) {
	if v == nil {
		return
	}
	r.Add(name, ValueOf(*v))
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{fields: make([]Field, len(r.fields))}
	for i, f := range r.fields {
		out.fields[i] = f.Clone()
	}
	return out
}

// Equal compares field names and values in order.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for i := range r.Fields() {
		if !r.fields[i].Equal(o.fields[i]) {
			return false
		}
	}
	return true
}

// String renders the record as {name=value, ...}.
func (r *Record) String() string {
	parts := make([]string, 0, r.Len())
	for _, f := range r.Fields() {
		parts = append(parts, f.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(RecordToJSON(r))
}
