package model

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferNumberNarrowing(t *testing.T) {
	u128, _ := new(big.Int).SetString("18446744073709551616", 10)
	i128, _ := new(big.Int).SetString("-9223372036854775809", 10)

	tests := []struct {
		lit  string
		want Value
	}{
		{"0", U8(0)},
		{"255", U8(255)},
		{"256", U16(256)},
		{"65535", U16(65535)},
		{"65536", U32(65536)},
		{"4294967296", U64(4294967296)},
		{"18446744073709551615", U64(18446744073709551615)},
		{"18446744073709551616", U128(u128)},
		{"-1", I8(-1)},
		{"-128", I8(-128)},
		{"-129", I16(-129)},
		{"-32769", I32(-32769)},
		{"-2147483649", I64(-2147483649)},
		{"-9223372036854775808", I64(-9223372036854775808)},
		{"-9223372036854775809", I128(i128)},
		{"123.45", F64(123.45)},
		{"30.0", F64(30)},
		{"1e3", F64(1000)},
		{"-0.5", F64(-0.5)},
		{"340282366920938463463374607431768211456", F64(340282366920938463463374607431768211456)},
		{"1e400", None()},
		{"abc", None()},
		{"01", None()},
	}
	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			got := InferNumber(tt.lit)
			assert.True(t, tt.want.Equal(got), "want %s(%s), got %s(%s)", tt.want.Kind(), tt.want, got.Kind(), got)
		})
	}
}

func TestInferNumberSmallestUnsigned(t *testing.T) {
	for i := 0; i <= 255; i++ {
		v := FromJSON(json.Number(big.NewInt(int64(i)).String()))
		require.Equal(t, KindU8, v.Kind(), "literal %d", i)
	}
}

func TestInferText(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"a", Char('a')},
		{"7", Char('7')},
		{"é", Char('é')},
		{"2023-10-27", DateOf(2023, time.October, 27)},
		{"2023-10-27T12:34:56", Timestamp(time.Date(2023, 10, 27, 12, 34, 56, 0, time.UTC))},
		{"2023-13-01", Str("2023-13-01")},
		{"2023-10-27 12:34:56", Str("2023-10-27 12:34:56")},
		{"2023-10-27T12:34:56.123", Str("2023-10-27T12:34:56.123")},
		{"2023-10-27T12:34:56,5", Str("2023-10-27T12:34:56,5")},
		{"hello", Str("hello")},
		{"", Str("")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := InferText(tt.in)
			assert.True(t, tt.want.Equal(got), "want %s(%s), got %s(%s)", tt.want.Kind(), tt.want, got.Kind(), got)
		})
	}
}

func TestInferScalar(t *testing.T) {
	assert.True(t, InferScalar("").IsNone())
	assert.True(t, Bool(true).Equal(InferScalar("true")))
	assert.True(t, U16(300).Equal(InferScalar("300")))
	assert.True(t, F64(2.5).Equal(InferScalar("2.5")))
	assert.True(t, Char('x').Equal(InferScalar("x")))
	assert.True(t, Str("True").Equal(InferScalar("True")))
}

func TestFromJSONObjectKeepsSourceOrder(t *testing.T) {
	v, err := ParseJSON([]byte(`{"name":"John Doe","age":30}`))
	require.NoError(t, err)

	rec, ok := v.Record()
	require.True(t, ok)
	require.Equal(t, 2, rec.Len())
	assert.Equal(t, []string{"name", "age"}, rec.Names())
	assert.True(t, Str("John Doe").Equal(rec.Get("name")))
	assert.True(t, U8(30).Equal(rec.Get("age")))
}

func TestFromJSONArray(t *testing.T) {
	v, err := ParseJSON([]byte(`[1,"abc",true]`))
	require.NoError(t, err)
	assert.True(t, Collection(U8(1), Str("abc"), Bool(true)).Equal(v))
}

func TestFromJSONNested(t *testing.T) {
	v, err := ParseJSON([]byte(`{"z":{"when":"2024-01-02","tags":["a","bc"]},"a":null,"n":-70000}`))
	require.NoError(t, err)
	assert.Equal(t, "{z={when=2024-01-02, tags=[a, bc]}, a=<None>, n=-70000}", v.String())

	rec, _ := v.Record()
	assert.Equal(t, KindI32, rec.Get("n").Kind())
}

func TestFromJSONDuplicateKeys(t *testing.T) {
	v, err := ParseJSON([]byte(`{"id":1,"id":2}`))
	require.NoError(t, err)

	rec, _ := v.Record()
	require.Equal(t, 2, rec.Len())
	f, ok := rec.FieldByName("id")
	require.True(t, ok)
	assert.True(t, U8(1).Equal(f.Value()))
}

func TestFromJSONNull(t *testing.T) {
	v, err := ParseJSON([]byte(`null`))
	require.NoError(t, err)
	assert.True(t, v.IsNone())
	assert.Equal(t, "<None>", v.String())
}

func TestFromJSONStandardDecoding(t *testing.T) {
	var tree any
	require.NoError(t, json.Unmarshal([]byte(`{"b":1.5,"a":30,"c":-1,"d":[true]}`), &tree))

	rec := RecordFromJSON(tree)
	assert.Equal(t, []string{"a", "b", "c", "d"}, rec.Names(), "map keys are sorted")
	assert.True(t, U8(30).Equal(rec.Get("a")))
	assert.True(t, F64(1.5).Equal(rec.Get("b")))
	assert.True(t, I8(-1).Equal(rec.Get("c")))
	assert.True(t, Collection(Bool(true)).Equal(rec.Get("d")))
}

func TestFromJSONGoIntegers(t *testing.T) {
	assert.True(t, U8(7).Equal(FromJSON(7)))
	assert.True(t, I16(-300).Equal(FromJSON(int64(-300))))
	assert.True(t, U32(70000).Equal(FromJSON(uint(70000))))
	assert.True(t, FromJSON(struct{}{}).IsNone())
}

func TestRecordFromJSONNonObject(t *testing.T) {
	assert.Equal(t, 0, RecordFromJSON([]any{1}).Len())
	assert.Equal(t, 0, RecordFromJSON("x").Len())
}

func TestParseJSONErrors(t *testing.T) {
	_, err := ParseJSON(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ParseJSON([]byte(`{"a":`))
	assert.Error(t, err)

	_, err = DecodeJSON(strings.NewReader(`{} {}`))
	assert.Error(t, err)
}

func TestDecodeTreeStream(t *testing.T) {
	dec := NewDecoder(strings.NewReader("{\"a\":1}\n{\"a\":2}\n"))
	var got []string
	for dec.More() {
		tree, err := DecodeTree(dec)
		require.NoError(t, err)
		got = append(got, FromJSON(tree).String())
	}
	assert.Equal(t, []string{"{a=1}", "{a=2}"}, got)
}

func TestToJSONRoundTrip(t *testing.T) {
	src := `{"name":"John Doe","age":30,"big":18446744073709551616,"when":"2023-10-27T12:34:56","list":[1,-2,2.5],"none":null}`
	v, err := ParseJSON([]byte(src))
	require.NoError(t, err)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))

	back, err := ParseJSON(out)
	require.NoError(t, err)
	assert.True(t, v.Equal(back))
}

func TestObjectMarshalKeepsOrder(t *testing.T) {
	rec := NewRecord(NewFieldValue("z", U8(1)), NewFieldValue("a", Char('c')))
	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"c"}`, string(out))
}
