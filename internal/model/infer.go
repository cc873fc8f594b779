package model

import (
	"encoding/json"
	"math"
	"math/big"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ─────────────────────────────────────────────────────────────
// Inference — loosely-typed input to the narrowest Value
// ─────────────────────────────────────────────────────────────

const (
	inferDateLayout      = "2006-01-02"
	inferTimestampLayout = "2006-01-02T15:04:05"
)

var numberLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// FromJSON converts a loosely-typed tree into the narrowest matching
// Value. It accepts what encoding/json produces (bool, float64 or
// json.Number, string, nil, []any, map[string]any), the ordered Object
// produced by DecodeTree, and Go integer types. It never fails: anything
// it cannot represent becomes None.
//
// Numbers: non-negative integers narrow through U8, U16, U32, U64, U128;
// negative integers through I8, I16, I32, I64, I128. Literals with a
// fraction or exponent become F64. Strings become Char, Date, Timestamp
// or String, in that order of preference.
func FromJSON(x any) Value {
	switch v := x.(type) {
	case nil:
		return None()
	case Value:
		return v
	case bool:
		return Bool(v)
	case json.Number:
		return InferNumber(string(v))
	case float64:
		return inferFloat(v)
	case float32:
		return inferFloat(float64(v))
	case int:
		return narrowInt(int64(v))
	case int8:
		return narrowInt(int64(v))
	case int16:
		return narrowInt(int64(v))
	case int32:
		return narrowInt(int64(v))
	case int64:
		return narrowInt(v)
	case uint:
		return narrowUint(uint64(v))
	case uint8:
		return narrowUint(uint64(v))
	case uint16:
		return narrowUint(uint64(v))
	case uint32:
		return narrowUint(uint64(v))
	case uint64:
		return narrowUint(v)
	case *big.Int:
		if v == nil {
			return None()
		}
		return narrowBig(v)
	case string:
		return InferText(v)
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = FromJSON(item)
		}
		return Value{kind: KindCollection, coll: items}
	case Object:
		return Nested(v.record())
	case *Object:
		if v == nil {
			return None()
		}
		return Nested(v.record())
	case map[string]any:
		return Nested(recordFromMap(v))
	default:
		return None()
	}
}

// RecordFromJSON converts a JSON object into a record. Any other input
// yields an empty record.
func RecordFromJSON(x any) *Record {
	switch v := x.(type) {
	case Object:
		return v.record()
	case *Object:
		if v != nil {
			return v.record()
		}
	case map[string]any:
		return recordFromMap(v)
	case Value:
		if r, ok := v.Record(); ok {
			return r
		}
	}
	return NewRecord()
}

// recordFromMap sorts keys since Go maps have no order.
func recordFromMap(m map[string]any) *Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r := &Record{fields: make([]Field, 0, len(keys))}
	for _, k := range keys {
		r.fields = append(r.fields, NewFieldValue(k, FromJSON(m[k])))
	}
	return r
}

// InferNumber narrows a JSON number literal. Text that is not a number
// literal yields None.
func InferNumber(lit string) Value {
	if !numberLiteral.MatchString(lit) {
		return None()
	}
	if strings.ContainsAny(lit, ".eE") {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return None()
		}
		return F64(f)
	}
	n, ok := new(big.Int).SetString(lit, 10)
	if !ok {
		return None()
	}
	return narrowBig(n)
}

// InferText picks Char, Date, Timestamp or String for s, in that order.
func InferText(s string) Value {
	if s != "" {
		r, size := utf8.DecodeRuneInString(s)
		if size == len(s) && !(r == utf8.RuneError && size == 1) {
			return Char(r)
		}
	}
	if len(s) == len(inferDateLayout) {
		if t, err := time.Parse(inferDateLayout, s); err == nil {
			return Date(t)
		}
	}
	// time.Parse accepts fractional seconds the layout does not name, so
	// the length pins the exact pattern.
	if len(s) == len(inferTimestampLayout) {
		if t, err := time.Parse(inferTimestampLayout, s); err == nil {
			return Timestamp(t)
		}
	}
	return Str(s)
}

// InferScalar infers a value from a flat text cell as found in CSV files:
// empty text is None, true/false are Bool, number literals are narrowed
// and everything else goes through InferText.
func InferScalar(s string) Value {
	switch s {
	case "":
		return None()
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if numberLiteral.MatchString(s) {
		return InferNumber(s)
	}
	return InferText(s)
}

func inferFloat(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return None()
	}
	if f == math.Trunc(f) {
		n, _ := big.NewFloat(f).Int(nil)
		return narrowBig(n)
	}
	return F64(f)
}

func narrowUint(u uint64) Value {
	switch {
	case u <= math.MaxUint8:
		return U8(uint8(u))
	case u <= math.MaxUint16:
		return U16(uint16(u))
	case u <= math.MaxUint32:
		return U32(uint32(u))
	default:
		return U64(u)
	}
}

func narrowInt(i int64) Value {
	if i >= 0 {
		return narrowUint(uint64(i))
	}
	switch {
	case i >= math.MinInt8:
		return I8(int8(i))
	case i >= math.MinInt16:
		return I16(int16(i))
	case i >= math.MinInt32:
		return I32(int32(i))
	default:
		return I64(i)
	}
}

// narrowBig tries the fixed widths, then 128 bits, then a finite float64.
func narrowBig(n *big.Int) Value {
	if n.Sign() >= 0 {
		if n.IsUint64() {
			return narrowUint(n.Uint64())
		}
		if v := U128(n); !v.IsNone() {
			return v
		}
	} else {
		if n.IsInt64() {
			return narrowInt(n.Int64())
		}
		if v := I128(n); !v.IsNone() {
			return v
		}
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	if math.IsInf(f, 0) {
		return None()
	}
	return F64(f)
}
