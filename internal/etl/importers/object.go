package importers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
	"rite/internal/objectstore"
)

// ── Object Storage Importer ────────────────────────────────
// Reads a JSON or NDJSON object from an S3-compatible bucket. Keys ending
// in .ndjson or .jsonl are read line by line unless lines says otherwise.

// newStore is swapped in tests.
var newStore = func(cfg objectstore.Config) (objectstore.Store, error) {
	return objectstore.NewS3Store(cfg)
}

type objectImporter struct {
	etl.NoReset
	store    objectstore.Config
	key      string
	dataPath string
	lines    bool
}

func init() {
	etl.RegisterImporter(etl.ComponentSpec{
		Name:        "object",
		Description: "Reads records from a JSON object in S3-compatible storage",
		ConfigKeys: []etl.ConfigKey{
			{Key: "endpoint", Required: true, Help: "host:port or URL of the S3 endpoint"},
			{Key: "access_key", Required: true},
			{Key: "secret_key", Required: true},
			{Key: "secure", Default: "false", Help: "Use TLS"},
			{Key: "region"},
			{Key: "bucket", Required: true},
			{Key: "object", Required: true, Help: "Object key"},
			{Key: "data_path", Help: "Dot-separated path to the array"},
			{Key: "lines", Help: "One JSON value per line; defaults from the key suffix"},
		},
	}, func() etl.Importer { return &objectImporter{} })
}

func (s *objectImporter) Init(cfg *config.Configuration) error {
	storeCfg, err := objectstore.ConfigFrom(cfg)
	if err != nil {
		return err
	}
	key, err := cfg.GetResult("object")
	if err != nil {
		return err
	}
	s.store, s.key = storeCfg, key
	s.dataPath = cfg.GetOr("data_path", "")
	s.lines = cfg.GetBoolOr("lines", strings.HasSuffix(key, ".ndjson") || strings.HasSuffix(key, ".jsonl"))
	return nil
}

func (s *objectImporter) Read(ctx context.Context, h etl.RecordHandler) error {
	store, err := newStore(s.store)
	if err != nil {
		return err
	}
	body, err := store.Get(ctx, s.key)
	if err != nil {
		return err
	}
	defer body.Close()

	if s.lines {
		return readJSONLines(ctx, body, s.dataPath, h)
	}

	tree, err := model.DecodeTree(model.NewDecoder(body))
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", s.key, err)
	}
	if tree, err = navigatePath(tree, s.dataPath); err != nil {
		return err
	}
	_, err = emitTree(tree, h)
	return err
}
