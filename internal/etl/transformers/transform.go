package transformers

import (
	"fmt"
	"math"
	"math/big"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
)

// ── Built-in Transformers ──────────────────────────────────
// Each one mutates the record in place and reports whether to keep it.
// Pattern: Benthos processor chain.

func init() {
	etl.RegisterTransformer(etl.ComponentSpec{
		Name:        "uppercase",
		Description: "Upper-cases text fields",
		ConfigKeys: []etl.ConfigKey{
			{Key: "fields", Help: "Comma-separated field names; empty means every text field"},
		},
	}, func() etl.Transformer { return &UppercaseTransform{} })

	etl.RegisterTransformer(etl.ComponentSpec{
		Name:        "filter",
		Description: "Drops records whose field does not match a condition",
		ConfigKeys: []etl.ConfigKey{
			{Key: "field", Required: true},
			{Key: "op", Default: "eq", Help: "eq, neq, gt, gte, lt, lte, contains, exists or missing"},
			{Key: "value"},
		},
	}, func() etl.Transformer { return &FilterTransform{} })

	etl.RegisterTransformer(etl.ComponentSpec{
		Name:        "rename",
		Description: "Renames fields",
		ConfigKeys: []etl.ConfigKey{
			{Key: "mapping", Required: true, Help: "old:new pairs, comma-separated"},
		},
	}, func() etl.Transformer { return &RenameTransform{} })

	etl.RegisterTransformer(etl.ComponentSpec{
		Name:        "select",
		Description: "Keeps only the listed fields, in the listed order",
		ConfigKeys: []etl.ConfigKey{
			{Key: "fields", Required: true},
		},
	}, func() etl.Transformer { return &SelectTransform{} })

	etl.RegisterTransformer(etl.ComponentSpec{
		Name:        "limit",
		Description: "Passes at most count records",
		ConfigKeys: []etl.ConfigKey{
			{Key: "count", Required: true},
		},
	}, func() etl.Transformer { return &LimitTransform{} })

	etl.RegisterTransformer(etl.ComponentSpec{
		Name:        "default",
		Description: "Fills a missing or None field with a value",
		ConfigKeys: []etl.ConfigKey{
			{Key: "field", Required: true},
			{Key: "value", Required: true, Help: "Inferred like a CSV cell"},
		},
	}, func() etl.Transformer { return &DefaultTransform{} })

	etl.RegisterTransformer(etl.ComponentSpec{
		Name:        "cast",
		Description: "Converts a field to another type",
		ConfigKeys: []etl.ConfigKey{
			{Key: "field", Required: true},
			{Key: "to", Required: true, Help: "string, number, bool, i64, u64, f64, date or timestamp"},
		},
	}, func() etl.Transformer { return &CastTransform{} })
}

// ── uppercase ──────────────────────────────────────────────

// UppercaseTransform upper-cases String and Char values.
type UppercaseTransform struct {
	Fields []string
}

func (t *UppercaseTransform) Init(cfg *config.Configuration) error {
	t.Fields = config.List[string](cfg, "fields")
	return nil
}

func (t *UppercaseTransform) Transform(r *model.Record) (bool, error) {
	for i, f := range r.Fields() {
		if len(t.Fields) > 0 && !slices.Contains(t.Fields, f.Name()) {
			continue
		}
		switch v := f.Value(); v.Kind() {
		case model.KindString:
			r.Set(i, model.NewFieldValue(f.Name(), model.Str(strings.ToUpper(v.String()))))
		case model.KindChar:
			c, _ := v.Char()
			r.Set(i, model.NewFieldValue(f.Name(), model.Char(unicode.ToUpper(c))))
		}
	}
	return true, nil
}

// ── filter ─────────────────────────────────────────────────

// FilterTransform drops records where the given field does not match.
type FilterTransform struct {
	Field string
	Op    string
	Value string
}

func (t *FilterTransform) Init(cfg *config.Configuration) error {
	field, err := cfg.GetResult("field")
	if err != nil {
		return err
	}
	t.Field = field
	t.Op = cfg.GetOr("op", "eq")
	t.Value = cfg.GetOr("value", "")
	switch t.Op {
	case "eq", "neq", "gt", "gte", "lt", "lte", "contains", "exists", "missing":
		return nil
	default:
		return fmt.Errorf("unknown filter op %q", t.Op)
	}
}

func (t *FilterTransform) Transform(r *model.Record) (bool, error) {
	f, ok := r.FieldByName(t.Field)
	switch t.Op {
	case "exists":
		return ok && !f.Value().IsNone(), nil
	case "missing":
		return !ok || f.Value().IsNone(), nil
	}
	if !ok {
		return false, nil
	}
	v := f.Value()
	switch t.Op {
	case "eq":
		return compareValues(v, t.Value) == 0, nil
	case "neq":
		return compareValues(v, t.Value) != 0, nil
	case "contains":
		return strings.Contains(v.String(), t.Value), nil
	case "gt":
		return compareValues(v, t.Value) > 0, nil
	case "gte":
		return compareValues(v, t.Value) >= 0, nil
	case "lt":
		return compareValues(v, t.Value) < 0, nil
	case "lte":
		return compareValues(v, t.Value) <= 0, nil
	}
	return true, nil
}

// compareValues compares numerically when both sides are numbers, and
// by display text otherwise.
func compareValues(v model.Value, s string) int {
	a, aOk := toFloatSafe(v)
	b, bOk := toFloatSafe(model.InferScalar(s))
	if aOk && bOk {
		return a.Cmp(b)
	}
	return strings.Compare(v.String(), s)
}

func toFloatSafe(v model.Value) (*big.Float, bool) {
	k := v.Kind()
	switch {
	case k.IsSigned() || k.IsUnsigned():
		f, ok := new(big.Float).SetString(v.String())
		return f, ok
	case k == model.KindF32:
		f, _ := v.F32()
		return floatOf(float64(f))
	case k == model.KindF64:
		f, _ := v.F64()
		return floatOf(f)
	default:
		return nil, false
	}
}

func floatOf(f float64) (*big.Float, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return new(big.Float).SetFloat64(f), true
}

// ── rename ─────────────────────────────────────────────────

// RenameTransform renames fields in a record.
type RenameTransform struct {
	Mapping map[string]string // oldName → newName
}

func (t *RenameTransform) Init(cfg *config.Configuration) error {
	raw, err := cfg.GetResult("mapping")
	if err != nil {
		return err
	}
	t.Mapping = map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		oldName, newName, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || oldName == "" || newName == "" {
			return fmt.Errorf("invalid mapping entry %q, want old:new", pair)
		}
		t.Mapping[strings.TrimSpace(oldName)] = strings.TrimSpace(newName)
	}
	return nil
}

func (t *RenameTransform) Transform(r *model.Record) (bool, error) {
	for i, f := range r.Fields() {
		if to, ok := t.Mapping[f.Name()]; ok {
			r.Set(i, model.NewFieldValue(to, f.Value()))
		}
	}
	return true, nil
}

// ── select ─────────────────────────────────────────────────

// SelectTransform keeps only the specified fields, in that order.
type SelectTransform struct {
	Fields []string
}

func (t *SelectTransform) Init(cfg *config.Configuration) error {
	t.Fields = config.List[string](cfg, "fields")
	if len(t.Fields) == 0 {
		return fmt.Errorf("fields is required")
	}
	return nil
}

func (t *SelectTransform) Transform(r *model.Record) (bool, error) {
	selected := make([]model.Field, 0, len(t.Fields))
	for _, name := range t.Fields {
		if f, ok := r.FieldByName(name); ok {
			selected = append(selected, f)
		}
	}
	r.Retain(func(model.Field) bool { return false })
	for _, f := range selected {
		r.AddField(f)
	}
	return true, nil
}

// ── limit ──────────────────────────────────────────────────

// LimitTransform caps the number of records.
type LimitTransform struct {
	Count int
	seen  int
}

func (t *LimitTransform) Init(cfg *config.Configuration) error {
	n, ok := config.Value[int](cfg, "count")
	if !ok || n < 0 {
		return fmt.Errorf("count must be a non-negative number")
	}
	t.Count = n
	return nil
}

func (t *LimitTransform) Transform(*model.Record) (bool, error) {
	t.seen++
	return t.seen <= t.Count, nil
}

// ── default ────────────────────────────────────────────────

// DefaultTransform sets Field to Value when it is missing or None.
type DefaultTransform struct {
	Field string
	Value model.Value
}

func (t *DefaultTransform) Init(cfg *config.Configuration) error {
	field, err := cfg.GetResult("field")
	if err != nil {
		return err
	}
	raw, err := cfg.GetResult("value")
	if err != nil {
		return err
	}
	t.Field, t.Value = field, model.InferScalar(raw)
	return nil
}

func (t *DefaultTransform) Transform(r *model.Record) (bool, error) {
	i := r.Index(t.Field)
	switch {
	case i < 0:
		r.Add(t.Field, t.Value.Clone())
	case r.Field(i).Value().IsNone():
		r.Set(i, model.NewFieldValue(t.Field, t.Value.Clone()))
	}
	return true, nil
}

// ── cast ───────────────────────────────────────────────────

// CastTransform converts a field's value to a target type. A value that
// cannot be converted becomes None.
type CastTransform struct {
	Field    string
	CastType string
}

func (t *CastTransform) Init(cfg *config.Configuration) error {
	field, err := cfg.GetResult("field")
	if err != nil {
		return err
	}
	to, err := cfg.GetResult("to")
	if err != nil {
		return err
	}
	switch to {
	case "string", "number", "bool", "i64", "u64", "f64", "date", "timestamp":
	default:
		return fmt.Errorf("unknown cast type %q", to)
	}
	t.Field, t.CastType = field, to
	return nil
}

func (t *CastTransform) Transform(r *model.Record) (bool, error) {
	i := r.Index(t.Field)
	if i < 0 {
		return true, nil
	}
	r.Set(i, model.NewFieldValue(t.Field, castValue(r.Field(i).Value(), t.CastType)))
	return true, nil
}

func castValue(v model.Value, to string) model.Value {
	if v.IsNone() {
		return v
	}
	s := v.String()
	switch to {
	case "string":
		return model.Str(s)
	case "number":
		if v.Kind().IsNumeric() {
			return v
		}
		return model.InferNumber(strings.TrimSpace(s))
	case "bool":
		return toBool(v)
	case "i64":
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return model.I64(n)
		}
		if f, ok := toFloatSafe(v); ok {
			if n, acc := f.Int64(); acc == big.Exact {
				return model.I64(n)
			}
		}
	case "u64":
		if n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err == nil {
			return model.U64(n)
		}
	case "f64":
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return model.F64(f)
		}
	case "date":
		if t, ok := toTime(v, "2006-01-02"); ok {
			return model.Date(t)
		}
	case "timestamp":
		if t, ok := toTime(v, "2006-01-02T15:04:05"); ok {
			return model.Timestamp(t)
		}
	}
	return model.None()
}

func toBool(v model.Value) model.Value {
	if b, ok := v.Bool(); ok {
		return model.Bool(b)
	}
	if f, ok := toFloatSafe(v); ok {
		return model.Bool(f.Sign() != 0)
	}
	switch strings.ToLower(strings.TrimSpace(v.String())) {
	case "true", "yes", "1":
		return model.Bool(true)
	case "false", "no", "0":
		return model.Bool(false)
	}
	return model.None()
}

func toTime(v model.Value, layout string) (time.Time, bool) {
	switch v.Kind() {
	case model.KindDate, model.KindTimestamp:
		return v.Interface().(time.Time), true
	}
	s := strings.TrimSpace(v.String())
	for _, l := range []string{layout, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
