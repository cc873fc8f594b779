package exporters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
	"rite/internal/objectstore"
)

// ── Object Storage Exporter ────────────────────────────────
// Collects records in memory and uploads them as one object on SignalEnd:
// a JSON array for keys ending in .json, NDJSON otherwise.

// newStore is swapped in tests.
var newStore = func(cfg objectstore.Config) (objectstore.Store, error) {
	return objectstore.NewS3Store(cfg)
}

type objectExporter struct {
	store objectstore.Config
	key   string
	array bool

	buf   bytes.Buffer
	count int
}

func init() {
	etl.RegisterExporter(etl.ComponentSpec{
		Name:        "object",
		Description: "Uploads records as one JSON object to S3-compatible storage",
		ConfigKeys: []etl.ConfigKey{
			{Key: "endpoint", Required: true},
			{Key: "access_key", Required: true},
			{Key: "secret_key", Required: true},
			{Key: "secure", Default: "false"},
			{Key: "region"},
			{Key: "bucket", Required: true},
			{Key: "object", Required: true, Help: "Object key; .json writes an array, anything else NDJSON"},
		},
	}, func() etl.Exporter { return &objectExporter{} })
}

func (e *objectExporter) Init(cfg *config.Configuration) error {
	storeCfg, err := objectstore.ConfigFrom(cfg)
	if err != nil {
		return err
	}
	key, err := cfg.GetResult("object")
	if err != nil {
		return err
	}
	e.store, e.key = storeCfg, key
	e.array = strings.HasSuffix(key, ".json")
	return nil
}

func (e *objectExporter) Event(ctx context.Context, sig etl.Signal) error {
	switch sig {
	case etl.SignalStart:
		e.buf.Reset()
		e.count = 0
	case etl.SignalEnd:
		contentType := "application/x-ndjson"
		if e.array {
			contentType = "application/json"
			if e.count == 0 {
				e.buf.WriteString("[")
			}
			e.buf.WriteString("]\n")
		}
		store, err := newStore(e.store)
		if err != nil {
			return err
		}
		return store.Put(ctx, e.key, e.buf.Bytes(), contentType)
	}
	return nil
}

func (e *objectExporter) Write(_ context.Context, rec *model.Record) error {
	data, err := json.Marshal(model.RecordToJSON(rec))
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	switch {
	case !e.array:
	case e.count == 0:
		e.buf.WriteString("[")
	default:
		e.buf.WriteString(",")
	}
	e.buf.Write(data)
	if !e.array {
		e.buf.WriteString("\n")
	}
	e.count++
	return nil
}
