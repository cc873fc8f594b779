package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value any
}

// Object is a decoded JSON object that keeps its keys in source order,
// duplicates included.
type Object []Member

// Get returns the value of the first member named key.
func (o Object) Get(key string) (any, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

func (o Object) record() *Record {
	r := &Record{fields: make([]Field, 0, len(o))}
	for _, m := range o {
		r.fields = append(r.fields, NewFieldValue(m.Key, FromJSON(m.Value)))
	}
	return r
}

// MarshalJSON writes the members in order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.Value)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", m.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ── Decoding ───────────────────────────────────────────────

// ErrEmptyInput is returned when there is no JSON value to decode.
var ErrEmptyInput = errors.New("empty JSON input")

// DecodeTree reads the next JSON value from dec as a loosely-typed tree:
// objects become Object, arrays []any, numbers json.Number (dec should
// have UseNumber set), strings, bools and nil as themselves.
func DecodeTree(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := Object{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, truncated(err)
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T, not string", kt)
			}
			val, err := DecodeTree(dec)
			if err != nil {
				return nil, truncated(err)
			}
			obj = append(obj, Member{Key: key, Value: val})
		}
		if _, err := dec.Token(); err != nil {
			return nil, truncated(err)
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := DecodeTree(dec)
			if err != nil {
				return nil, truncated(err)
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, truncated(err)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", rune(delim))
	}
}

// truncated reports end of input inside a composite as unexpected.
func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// NewDecoder returns a json.Decoder configured for DecodeTree.
func NewDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// DecodeJSON reads exactly one JSON value from r and infers its Value.
// Only malformed input is an error; inference itself never fails.
func DecodeJSON(r io.Reader) (Value, error) {
	dec := NewDecoder(r)
	tree, err := DecodeTree(dec)
	if errors.Is(err, io.EOF) {
		return None(), ErrEmptyInput
	}
	if err != nil {
		return None(), fmt.Errorf("decode json: %w", err)
	}
	if dec.More() {
		return None(), fmt.Errorf("decode json: unexpected data after top-level value")
	}
	return FromJSON(tree), nil
}

// ParseJSON is DecodeJSON over a byte slice.
func ParseJSON(data []byte) (Value, error) {
	return DecodeJSON(bytes.NewReader(data))
}

// ── Encoding ───────────────────────────────────────────────

const jsonTimestampLayout = "2006-01-02T15:04:05.999999999"

// ToJSON maps v back onto a tree encoding/json can marshal. Integers
// become json.Number so 64 and 128-bit values stay exact, dates and
// timestamps use the layouts inference recognises, blobs marshal as
// base64 and non-finite floats as null.
func ToJSON(v Value) any {
	switch v.kind {
	case KindNone:
		return nil
	case KindBool:
		return v.bits == 1
	case KindChar, KindString:
		return v.String()
	case KindF32:
		f := math.Float32frombits(uint32(v.bits))
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil
		}
		return json.Number(strconv.FormatFloat(float64(f), 'g', -1, 32))
	case KindF64:
		f := math.Float64frombits(v.bits)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case KindBlob:
		return v.blob
	case KindDate:
		return v.t.Format(inferDateLayout)
	case KindTimestamp:
		return v.t.Format(jsonTimestampLayout)
	case KindCollection:
		items := make([]any, len(v.coll))
		for i, item := range v.coll {
			items[i] = ToJSON(item)
		}
		return items
	case KindRecord:
		return RecordToJSON(v.rec)
	default:
		return json.Number(v.String())
	}
}

// RecordToJSON maps r onto an ordered Object.
func RecordToJSON(r *Record) Object {
	obj := make(Object, 0, r.Len())
	for _, f := range r.Fields() {
		obj = append(obj, Member{Key: f.name, Value: ToJSON(f.value)})
	}
	return obj
}

// MarshalJSON encodes v through ToJSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToJSON(v))
}
