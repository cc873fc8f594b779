package model

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindChar
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	KindISize
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindUSize
	KindF32
	KindF64
	KindString
	KindBlob
	KindDate
	KindTimestamp
	KindCollection
	KindRecord
)

var kindNames = [...]string{
	KindNone:       "None",
	KindBool:       "Bool",
	KindChar:       "Char",
	KindI8:         "I8",
	KindI16:        "I16",
	KindI32:        "I32",
	KindI64:        "I64",
	KindI128:       "I128",
	KindISize:      "ISize",
	KindU8:         "U8",
	KindU16:        "U16",
	KindU32:        "U32",
	KindU64:        "U64",
	KindU128:       "U128",
	KindUSize:      "USize",
	KindF32:        "F32",
	KindF64:        "F64",
	KindString:     "String",
	KindBlob:       "Blob",
	KindDate:       "Date",
	KindTimestamp:  "Timestamp",
	KindCollection: "Collection",
	KindRecord:     "Record",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsSigned reports whether k is one of the signed integer kinds.
func (k Kind) IsSigned() bool {
	return k >= KindI8 && k <= KindISize
}

// IsUnsigned reports whether k is one of the unsigned integer kinds.
func (k Kind) IsUnsigned() bool {
	return k >= KindU8 && k <= KindUSize
}

// IsFloat reports whether k is F32 or F64.
func (k Kind) IsFloat() bool {
	return k == KindF32 || k == KindF64
}

// IsNumeric reports whether k is any integer or float kind.
func (k Kind) IsNumeric() bool {
	return k.IsSigned() || k.IsUnsigned() || k.IsFloat()
}

// ─────────────────────────────────────────────────────────────
// Value — closed tagged union exchanged between pipeline stages
// ─────────────────────────────────────────────────────────────

// Value holds exactly one datum of one Kind. The zero Value is None.
// Values are immutable; composite payloads (blob, collection, record,
// 128-bit integers) are exclusively owned and deep-copied by Clone.
type Value struct {
	kind Kind
	bits uint64 // bool, char, fixed-width integers, float bits
	big  *big.Int
	str  string
	blob []byte
	t    time.Time
	coll []Value
	rec  *Record
}

var (
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// ── Constructors ───────────────────────────────────────────

func None() Value { return Value{} }

func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

// Char returns a Char value. Invalid Unicode scalars yield None.
func Char(r rune) Value {
	if !utf8.ValidRune(r) {
		return None()
	}
	return Value{kind: KindChar, bits: uint64(r)}
}

func I8(i int8) Value    { return Value{kind: KindI8, bits: uint64(int64(i))} }
func I16(i int16) Value  { return Value{kind: KindI16, bits: uint64(int64(i))} }
func I32(i int32) Value  { return Value{kind: KindI32, bits: uint64(int64(i))} }
func I64(i int64) Value  { return Value{kind: KindI64, bits: uint64(i)} }
func ISize(i int) Value  { return Value{kind: KindISize, bits: uint64(int64(i))} }
func U8(u uint8) Value   { return Value{kind: KindU8, bits: uint64(u)} }
func U16(u uint16) Value { return Value{kind: KindU16, bits: uint64(u)} }
func U32(u uint32) Value { return Value{kind: KindU32, bits: uint64(u)} }
func U64(u uint64) Value { return Value{kind: KindU64, bits: u} }
func USize(u uint) Value { return Value{kind: KindUSize, bits: uint64(u)} }

// I128 returns a signed 128-bit value. A nil or out-of-range i yields None.
func I128(i *big.Int) Value {
	if i == nil || i.Cmp(minI128) < 0 || i.Cmp(maxI128) > 0 {
		return None()
	}
	return Value{kind: KindI128, big: new(big.Int).Set(i)}
}

// U128 returns an unsigned 128-bit value. A nil, negative or out-of-range
// u yields None.
func U128(u *big.Int) Value {
	if u == nil || u.Sign() < 0 || u.Cmp(maxU128) > 0 {
		return None()
	}
	return Value{kind: KindU128, big: new(big.Int).Set(u)}
}

func F32(f float32) Value { return Value{kind: KindF32, bits: uint64(math.Float32bits(f))} }
func F64(f float64) Value { return Value{kind: KindF64, bits: math.Float64bits(f)} }

// Str returns a String value.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Blob returns a Blob value holding a copy of b.
func Blob(b []byte) Value {
	return Value{kind: KindBlob, blob: bytes.Clone(b)}
}

// Date returns a Date value for the calendar day of t; time of day and
// location are discarded.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return DateOf(y, m, d)
}

// DateOf returns a Date value for the given calendar day.
func DateOf(year int, month time.Month, day int) Value {
	return Value{kind: KindDate, t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Timestamp returns a Timestamp value holding the wall clock reading of t.
// The location is dropped: timestamps carry no timezone.
func Timestamp(t time.Time) Value {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return Value{kind: KindTimestamp, t: time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)}
}

// Collection returns a Collection value owning a copy of the item slice.
// Composite items (nested records, collections, blobs) are not copied;
// they belong to the value from here on, so callers must not mutate them.
// Use ValueOf or Clone for an independent copy.
func Collection(items ...Value) Value {
	return Value{kind: KindCollection, coll: append([]Value{}, items...)}
}

// Nested returns a Record value that takes ownership of r: later changes
// to r show through the value. A nil r is treated as an empty record. Use
// ValueOf for an independent copy.
func Nested(r *Record) Value {
	if r == nil {
		r = NewRecord()
	}
	return Value{kind: KindRecord, rec: r}
}

// ── Accessors ──────────────────────────────────────────────

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNone() bool { return v.kind == KindNone }

func (v Value) Bool() (bool, bool) { return v.bits == 1, v.kind == KindBool }
func (v Value) Char() (rune, bool) { return rune(v.bits), v.kind == KindChar }

func (v Value) I8() (int8, bool)   { return int8(v.bits), v.kind == KindI8 }
func (v Value) I16() (int16, bool) { return int16(v.bits), v.kind == KindI16 }
func (v Value) I32() (int32, bool) { return int32(v.bits), v.kind == KindI32 }
func (v Value) I64() (int64, bool) { return int64(v.bits), v.kind == KindI64 }
func (v Value) ISize() (int, bool) { return int(int64(v.bits)), v.kind == KindISize }

func (v Value) U8() (uint8, bool)   { return uint8(v.bits), v.kind == KindU8 }
func (v Value) U16() (uint16, bool) { return uint16(v.bits), v.kind == KindU16 }
func (v Value) U32() (uint32, bool) { return uint32(v.bits), v.kind == KindU32 }
func (v Value) U64() (uint64, bool) { return v.bits, v.kind == KindU64 }
func (v Value) USize() (uint, bool) { return uint(v.bits), v.kind == KindUSize }

// I128 returns a copy of the 128-bit payload.
func (v Value) I128() (*big.Int, bool) {
	if v.kind != KindI128 {
		return nil, false
	}
	return new(big.Int).Set(v.big), true
}

// U128 returns a copy of the 128-bit payload.
func (v Value) U128() (*big.Int, bool) {
	if v.kind != KindU128 {
		return nil, false
	}
	return new(big.Int).Set(v.big), true
}

func (v Value) F32() (float32, bool) { return math.Float32frombits(uint32(v.bits)), v.kind == KindF32 }
func (v Value) F64() (float64, bool) { return math.Float64frombits(v.bits), v.kind == KindF64 }

func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Blob returns a copy of the byte payload.
func (v Value) Blob() ([]byte, bool) {
	if v.kind != KindBlob {
		return nil, false
	}
	return bytes.Clone(v.blob), true
}

func (v Value) Date() (time.Time, bool)      { return v.t, v.kind == KindDate }
func (v Value) Timestamp() (time.Time, bool) { return v.t, v.kind == KindTimestamp }

// Collection returns the elements. The slice must not be modified.
func (v Value) Collection() ([]Value, bool) { return v.coll, v.kind == KindCollection }

// Record returns the nested record owned by v. Mutating it mutates v.
func (v Value) Record() (*Record, bool) { return v.rec, v.kind == KindRecord }

// Interface returns the payload as a native Go value: bool, rune, the
// matching int/uint width, *big.Int, float32/float64, string, []byte,
// time.Time, []Value, *Record, or nil for None.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.bits == 1
	case KindChar:
		return rune(v.bits)
	case KindI8:
		return int8(v.bits)
	case KindI16:
		return int16(v.bits)
	case KindI32:
		return int32(v.bits)
	case KindI64:
		return int64(v.bits)
	case KindISize:
		return int(int64(v.bits))
	case KindU8:
		return uint8(v.bits)
	case KindU16:
		return uint16(v.bits)
	case KindU32:
		return uint32(v.bits)
	case KindU64:
		return v.bits
	case KindUSize:
		return uint(v.bits)
	case KindI128, KindU128:
		return new(big.Int).Set(v.big)
	case KindF32:
		return math.Float32frombits(uint32(v.bits))
	case KindF64:
		return math.Float64frombits(v.bits)
	case KindString:
		return v.str
	case KindBlob:
		return bytes.Clone(v.blob)
	case KindDate, KindTimestamp:
		return v.t
	case KindCollection:
		return v.coll
	case KindRecord:
		return v.rec
	default:
		return nil
	}
}

// ── Equality & cloning ─────────────────────────────────────

// Equal reports structural, variant-sensitive equality: I8(5) is not
// equal to I32(5). Floats compare numerically, so NaN never equals NaN.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindF32:
		return math.Float32frombits(uint32(v.bits)) == math.Float32frombits(uint32(o.bits))
	case KindF64:
		return math.Float64frombits(v.bits) == math.Float64frombits(o.bits)
	case KindI128, KindU128:
		return v.big.Cmp(o.big) == 0
	case KindString:
		return v.str == o.str
	case KindBlob:
		return bytes.Equal(v.blob, o.blob)
	case KindDate, KindTimestamp:
		return v.t.Equal(o.t)
	case KindCollection:
		if len(v.coll) != len(o.coll) {
			return false
		}
		for i := range v.coll {
			if !v.coll[i].Equal(o.coll[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		return v.rec.Equal(o.rec)
	default:
		return v.bits == o.bits
	}
}

// Equal is a convenience for a.Equal(b).
func Equal(a, b Value) bool { return a.Equal(b) }

// Clone returns a deep copy of v sharing no mutable state with it.
func (v Value) Clone() Value {
	switch v.kind {
	case KindI128, KindU128:
		v.big = new(big.Int).Set(v.big)
	case KindBlob:
		v.blob = bytes.Clone(v.blob)
	case KindCollection:
		items := make([]Value, len(v.coll))
		for i, item := range v.coll {
			items[i] = item.Clone()
		}
		v.coll = items
	case KindRecord:
		v.rec = v.rec.Clone()
	}
	return v
}

// ── Display ────────────────────────────────────────────────

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.999999999"
	noneToken       = "<None>"
)

// String renders v in its canonical text form.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.bits == 1)
	case KindChar:
		return string(rune(v.bits))
	case KindI8, KindI16, KindI32, KindI64, KindISize:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindU8, KindU16, KindU32, KindU64, KindUSize:
		return strconv.FormatUint(v.bits, 10)
	case KindI128, KindU128:
		return v.big.String()
	case KindF32:
		return formatFloat(float64(math.Float32frombits(uint32(v.bits))), 32)
	case KindF64:
		return formatFloat(math.Float64frombits(v.bits), 64)
	case KindString:
		return v.str
	case KindBlob:
		return formatBlob(v.blob)
	case KindDate:
		return v.t.Format(dateLayout)
	case KindTimestamp:
		return v.t.Format(timestampLayout)
	case KindCollection:
		parts := make([]string, len(v.coll))
		for i, item := range v.coll {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindRecord:
		return v.rec.String()
	default:
		return noneToken
	}
}

func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

func formatBlob(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range b {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%02x", c)
	}
	sb.WriteByte(']')
	return sb.String()
}

// ─────────────────────────────────────────────────────────────
// Native conversion
// ─────────────────────────────────────────────────────────────

// CalendarDate is a day without time of day, converted to a Date value
// by ValueOf.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// ValueOf maps a native Go value onto exactly one variant without loss.
// int maps to ISize and uint to USize; int32 maps to I32, so runes must go
// through Char. time.Time maps to Timestamp, CalendarDate to Date, and
// *big.Int to I128 (or U128 when only the unsigned range holds it).
// Composites ([]Value, *Record, Record, []byte) are deep-copied, so the
// caller keeps ownership of its arguments. Unsupported types yield None.
func ValueOf(x any) Value {
	switch v := x.(type) {
	case nil:
		return None()
	case Value:
		return v
	case *Value:
		if v == nil {
			return None()
		}
		return *v
	case bool:
		return Bool(v)
	case int8:
		return I8(v)
	case int16:
		return I16(v)
	case int32:
		return I32(v)
	case int64:
		return I64(v)
	case int:
		return ISize(v)
	case uint8:
		return U8(v)
	case uint16:
		return U16(v)
	case uint32:
		return U32(v)
	case uint64:
		return U64(v)
	case uint:
		return USize(v)
	case float32:
		return F32(v)
	case float64:
		return F64(v)
	case string:
		return Str(v)
	case []byte:
		return Blob(v)
	case time.Time:
		return Timestamp(v)
	case CalendarDate:
		return DateOf(v.Year, v.Month, v.Day)
	case *big.Int:
		if v == nil {
			return None()
		}
		if out := I128(v); !out.IsNone() {
			return out
		}
		return U128(v)
	case []Value:
		return Collection(v...).Clone()
	case *Record:
		return Nested(v.Clone())
	case Record:
		return Nested(v.Clone())
	default:
		return None()
	}
}
