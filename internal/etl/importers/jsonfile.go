package importers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
)

// ── JSON File Importer ─────────────────────────────────────
// Reads records from a local JSON document, or from newline-delimited
// JSON when lines is set. Objects keep their member order.

type jsonFileImporter struct {
	etl.NoReset
	filePath string
	dataPath string
	lines    bool
}

func init() {
	etl.RegisterImporter(etl.ComponentSpec{
		Name:        "json",
		Description: "Reads records from a JSON or NDJSON file",
		ConfigKeys: []etl.ConfigKey{
			{Key: "file_name", Required: true, Help: "Path to the JSON file"},
			{Key: "data_path", Help: "Dot-separated path to the array (e.g. 'data.items'). Leave empty if root is an array."},
			{Key: "lines", Default: "false", Help: "One JSON value per line"},
		},
	}, func() etl.Importer { return &jsonFileImporter{} })
}

func (s *jsonFileImporter) Init(cfg *config.Configuration) error {
	filePath, err := cfg.GetResult("file_name")
	if err != nil {
		return err
	}
	s.filePath = filePath
	s.dataPath = cfg.GetOr("data_path", "")
	s.lines = cfg.GetBoolOr("lines", false)
	return nil
}

func (s *jsonFileImporter) Read(ctx context.Context, h etl.RecordHandler) error {
	f, err := os.Open(s.filePath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	if s.lines {
		return readJSONLines(ctx, f, s.dataPath, h)
	}

	dec := model.NewDecoder(f)
	tree, err := model.DecodeTree(dec)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("parse json: unexpected data after top-level value")
	}
	tree, err = navigatePath(tree, s.dataPath)
	if err != nil {
		return err
	}
	_, err = emitTree(tree, h)
	return err
}

// readJSONLines emits one record per JSON value in r.
func readJSONLines(ctx context.Context, r io.Reader, dataPath string, h etl.RecordHandler) error {
	dec := model.NewDecoder(r)
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tree, err := model.DecodeTree(dec)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse json value %d: %w", n, err)
		}
		if tree, err = navigatePath(tree, dataPath); err != nil {
			return fmt.Errorf("json value %d: %w", n, err)
		}
		if err := h.HandleRecord(treeRecord(tree)); err != nil {
			return err
		}
	}
}
