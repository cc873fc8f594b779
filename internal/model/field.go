package model

// Field pairs a name with one Value. The name is fixed at construction;
// changing the value means replacing the whole field in its record.
type Field struct {
	name  string
	value Value
}

// NewField returns a field holding None.
func NewField(name string) Field {
	return Field{name: name}
}

// NewFieldValue returns a field holding v.
func NewFieldValue(name string, v Value) Field {
	return Field{name: name, value: v}
}

func (f Field) Name() string { return f.name }

func (f Field) Value() Value { return f.value }

// Equal compares names and values structurally.
func (f Field) Equal(o Field) bool {
	return f.name == o.name && f.value.Equal(o.value)
}

// Clone returns a deep copy of f.
func (f Field) Clone() Field {
	return Field{name: f.name, value: f.value.Clone()}
}

// String renders the field as name=value.
func (f Field) String() string {
	return f.name + "=" + f.value.String()
}
