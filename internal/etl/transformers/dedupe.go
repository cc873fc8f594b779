package transformers

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
)

const defaultDedupeWindow = 10000

func init() {
	etl.RegisterTransformer(etl.ComponentSpec{
		Name:        "dedupe",
		Description: "Drops records whose key was seen recently",
		ConfigKeys: []etl.ConfigKey{
			{Key: "key", Help: "Comma-separated key fields; empty means the whole record"},
			{Key: "window", Default: fmt.Sprint(defaultDedupeWindow), Help: "How many distinct keys to remember"},
		},
	}, func() etl.Transformer { return &DedupeTransform{} })
}

// DedupeTransform removes duplicate records by key. Only the most recent
// window keys are remembered, so memory stays bounded on long streams.
type DedupeTransform struct {
	Key  []string
	seen *lru.Cache[string, struct{}]
}

func (t *DedupeTransform) Init(cfg *config.Configuration) error {
	t.Key = config.List[string](cfg, "key")
	window, err := config.Optional(cfg, "window", defaultDedupeWindow)
	if err != nil {
		return err
	}
	if window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	t.seen, err = lru.New[string, struct{}](window)
	return err
}

func (t *DedupeTransform) Transform(r *model.Record) (bool, error) {
	found, _ := t.seen.ContainsOrAdd(t.keyOf(r), struct{}{})
	return !found, nil
}

func (t *DedupeTransform) keyOf(r *model.Record) string {
	var b strings.Builder
	if len(t.Key) == 0 {
		writeRecordKey(&b, r)
		return b.String()
	}
	for _, k := range t.Key {
		writeValueKey(&b, r.Get(k))
	}
	return b.String()
}

// writeValueKey encodes v with its kind and length-prefixed text so that
// values of different variants never share a key.
func writeValueKey(b *strings.Builder, v model.Value) {
	b.WriteString(v.Kind().String())
	switch v.Kind() {
	case model.KindCollection:
		items, _ := v.Collection()
		fmt.Fprintf(b, "[%d", len(items))
		for _, item := range items {
			writeValueKey(b, item)
		}
		b.WriteByte(']')
	case model.KindRecord:
		rec, _ := v.Record()
		writeRecordKey(b, rec)
	default:
		text := v.String()
		fmt.Fprintf(b, "%d:%s", len(text), text)
	}
}

func writeRecordKey(b *strings.Builder, r *model.Record) {
	fmt.Fprintf(b, "{%d", r.Len())
	for _, f := range r.Fields() {
		fmt.Fprintf(b, "%d:%s", len(f.Name()), f.Name())
		writeValueKey(b, f.Value())
	}
	b.WriteByte('}')
}
