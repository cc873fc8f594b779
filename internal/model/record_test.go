package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFieldDefaultsToNone(t *testing.T) {
	f := NewField("empty")
	assert.Equal(t, "empty", f.Name())
	assert.True(t, f.Value().IsNone())
	assert.Equal(t, "empty=<None>", f.String())
}

func TestFieldByNameReturnsFirst(t *testing.T) {
	r := NewRecord()
	r.Add("id", U8(1))
	r.Add("other", Str("x"))
	r.Add("id", U8(2))

	f, ok := r.FieldByName("id")
	require.True(t, ok)
	assert.True(t, U8(1).Equal(f.Value()))
	assert.Equal(t, 0, r.Index("id"))

	_, ok = r.FieldByName("missing")
	assert.False(t, ok)
	assert.True(t, r.Get("missing").IsNone())
}

func TestAddFieldConverts(t *testing.T) {
	r := NewRecord()
	AddField(r, "s", "text")
	AddField(r, "n", int32(42))
	AddField(r, "b", []byte{0xff})

	assert.Equal(t, "{s=text, n=42, b=[ff]}", r.String())
	assert.Equal(t, KindI32, r.Get("n").Kind())
}

func TestAddOptionalField(t *testing.T) {
	r := NewRecord()

	var missing *string
	AddOptionalField(r, "missing", missing)
	assert.Equal(t, 0, r.Len())

	n := uint16(7)
	AddOptionalField(r, "present", &n)
	require.Equal(t, 1, r.Len())
	assert.True(t, U16(7).Equal(r.Get("present")))
}

func TestRecordSetReplacesInPlace(t *testing.T) {
	r := NewRecord(NewFieldValue("a", U8(1)), NewFieldValue("b", U8(2)))
	r.Set(1, NewFieldValue("b", Str("two")))

	assert.Equal(t, "{a=1, b=two}", r.String())
	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestRecordCloneIsDeep(t *testing.T) {
	inner := NewRecord(NewFieldValue("leaf", Bool(true)))
	r := NewRecord(NewFieldValue("child", Nested(inner)))

	clone := r.Clone()
	require.True(t, clone.Equal(r))

	child, _ := clone.Get("child").Record()
	child.Add("extra", None())

	assert.False(t, clone.Equal(r))
	assert.Equal(t, "{child={leaf=true}}", r.String())
	assert.Equal(t, "{child={leaf=true, extra=<None>}}", clone.String())
}

func TestRecordEqualIsOrderSensitive(t *testing.T) {
	a := NewRecord(NewFieldValue("x", U8(1)), NewFieldValue("y", U8(2)))
	b := NewRecord(NewFieldValue("y", U8(2)), NewFieldValue("x", U8(1)))
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(a.Clone()))
}

func TestNilRecord(t *testing.T) {
	var r *Record
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Clone())
	assert.Equal(t, "{}", r.String())
	assert.Equal(t, "{}", Nested(nil).String())
}

func TestRecordRemoveAndRetain(t *testing.T) {
	r := NewRecord(
		NewFieldValue("a", U8(1)),
		NewFieldValue("b", U8(2)),
		NewFieldValue("a", U8(3)),
	)
	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("missing"))
	assert.Equal(t, "{b=2}", r.String())

	r.Add("c", Str("x"))
	removed := r.Retain(func(f Field) bool { return f.Name() == "c" })
	assert.Equal(t, 1, removed)
	assert.Equal(t, "{c=x}", r.String())
}
