package transformers

import (
	"fmt"

	"github.com/iancoleman/strcase"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
)

var caseStyles = map[string]func(string) string{
	"camel":           strcase.ToCamel,
	"lower_camel":     strcase.ToLowerCamel,
	"snake":           strcase.ToSnake,
	"screaming_snake": strcase.ToScreamingSnake,
	"kebab":           strcase.ToKebab,
}

func init() {
	etl.RegisterTransformer(etl.ComponentSpec{
		Name:        "case",
		Description: "Rewrites field names to a naming style",
		ConfigKeys: []etl.ConfigKey{
			{Key: "style", Required: true, Help: "camel, lower_camel, snake, screaming_snake or kebab"},
			{Key: "nested", Default: "false", Help: "Also rename fields of nested records"},
		},
	}, func() etl.Transformer { return &CaseTransform{} })
}

// CaseTransform renames every field with a strcase conversion.
type CaseTransform struct {
	Style  string
	Nested bool
	conv   func(string) string
}

func (t *CaseTransform) Init(cfg *config.Configuration) error {
	style, err := cfg.GetResult("style")
	if err != nil {
		return err
	}
	conv, ok := caseStyles[style]
	if !ok {
		return fmt.Errorf("unknown case style %q", style)
	}
	t.Style, t.conv = style, conv
	t.Nested = cfg.GetBoolOr("nested", false)
	return nil
}

func (t *CaseTransform) Transform(r *model.Record) (bool, error) {
	t.rename(r)
	return true, nil
}

func (t *CaseTransform) rename(r *model.Record) {
	for i, f := range r.Fields() {
		v := f.Value()
		if t.Nested {
			if inner, ok := v.Record(); ok {
				t.rename(inner)
			}
		}
		r.Set(i, model.NewFieldValue(t.conv(f.Name()), v))
	}
}
