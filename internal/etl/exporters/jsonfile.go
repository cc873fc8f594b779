package exporters

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
)

// ── JSON File Exporter ─────────────────────────────────────
// Writes one JSON object per line, or a single indented array with
// pretty=true. The file is created on SignalStart and closed on SignalEnd.

type jsonFileExporter struct {
	filePath string
	pretty   bool

	file  *os.File
	buf   *bufio.Writer
	count int
}

func init() {
	etl.RegisterExporter(etl.ComponentSpec{
		Name:        "json",
		Description: "Writes records to an NDJSON or JSON file",
		ConfigKeys: []etl.ConfigKey{
			{Key: "file_name", Required: true},
			{Key: "pretty", Default: "false", Help: "Write an indented JSON array instead of NDJSON"},
		},
	}, func() etl.Exporter { return &jsonFileExporter{} })
}

func (e *jsonFileExporter) Init(cfg *config.Configuration) error {
	filePath, err := cfg.GetResult("file_name")
	if err != nil {
		return err
	}
	e.filePath = filePath
	e.pretty = cfg.GetBoolOr("pretty", false)
	return nil
}

func (e *jsonFileExporter) Event(_ context.Context, sig etl.Signal) error {
	switch sig {
	case etl.SignalStart:
		f, err := createFile(e.filePath)
		if err != nil {
			return err
		}
		e.file, e.buf, e.count = f, bufio.NewWriter(f), 0
		if e.pretty {
			e.buf.WriteString("[")
		}
	case etl.SignalEnd:
		if e.buf == nil {
			return nil
		}
		if e.pretty {
			if e.count > 0 {
				e.buf.WriteString("\n")
			}
			e.buf.WriteString("]\n")
		}
		if err := e.buf.Flush(); err != nil {
			return fmt.Errorf("flush %s: %w", e.filePath, err)
		}
		return e.Close()
	}
	return nil
}

func (e *jsonFileExporter) Write(_ context.Context, rec *model.Record) error {
	if e.buf == nil {
		return fmt.Errorf("json exporter: write before start")
	}
	var (
		data []byte
		err  error
	)
	if e.pretty {
		data, err = json.MarshalIndent(model.RecordToJSON(rec), "  ", "  ")
	} else {
		data, err = json.Marshal(model.RecordToJSON(rec))
	}
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if e.pretty {
		if e.count > 0 {
			e.buf.WriteString(",")
		}
		e.buf.WriteString("\n  ")
	}
	e.buf.Write(data)
	if !e.pretty {
		e.buf.WriteString("\n")
	}
	e.count++
	return nil
}

func (e *jsonFileExporter) Close() error {
	e.buf = nil
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}

// createFile creates path and any missing parent directories.
func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	return f, nil
}
