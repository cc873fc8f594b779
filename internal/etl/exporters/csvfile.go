package exporters

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"unicode/utf8"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
)

// ── CSV File Exporter ──────────────────────────────────────
// The first record fixes the columns. Later records are written by column
// name: missing fields leave an empty cell and unknown fields are dropped.

type csvFileExporter struct {
	filePath  string
	delimiter rune
	header    bool

	file    *os.File
	w       *csv.Writer
	columns []string
}

func init() {
	etl.RegisterExporter(etl.ComponentSpec{
		Name:        "csv",
		Description: "Writes records to a CSV file",
		ConfigKeys: []etl.ConfigKey{
			{Key: "file_name", Required: true},
			{Key: "delimiter", Default: ","},
			{Key: "header", Default: "true", Help: "Write the column names as the first row"},
		},
	}, func() etl.Exporter { return &csvFileExporter{} })
}

func (e *csvFileExporter) Init(cfg *config.Configuration) error {
	filePath, err := cfg.GetResult("file_name")
	if err != nil {
		return err
	}
	e.filePath = filePath
	e.delimiter = ','
	if d := cfg.GetOr("delimiter", ""); d != "" {
		if d == `\t` {
			d = "\t"
		}
		r, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			return fmt.Errorf("delimiter must be a single character, got %q", d)
		}
		e.delimiter = r
	}
	e.header = cfg.GetBoolOr("header", true)
	return nil
}

func (e *csvFileExporter) Event(_ context.Context, sig etl.Signal) error {
	switch sig {
	case etl.SignalStart:
		f, err := createFile(e.filePath)
		if err != nil {
			return err
		}
		e.file, e.w, e.columns = f, csv.NewWriter(f), nil
		e.w.Comma = e.delimiter
	case etl.SignalEnd:
		if e.w == nil {
			return nil
		}
		e.w.Flush()
		if err := e.w.Error(); err != nil {
			return fmt.Errorf("flush %s: %w", e.filePath, err)
		}
		return e.Close()
	}
	return nil
}

func (e *csvFileExporter) Write(_ context.Context, rec *model.Record) error {
	if e.w == nil {
		return fmt.Errorf("csv exporter: write before start")
	}
	if e.columns == nil {
		e.columns = etl.SchemaOf(rec).ColumnNames()
		if e.header {
			if err := e.w.Write(e.columns); err != nil {
				return err
			}
		}
	}
	row := make([]string, len(e.columns))
	for i, col := range e.columns {
		row[i] = cell(rec.Get(col))
	}
	return e.w.Write(row)
}

func cell(v model.Value) string {
	if v.IsNone() {
		return ""
	}
	return v.String()
}

func (e *csvFileExporter) Close() error {
	e.w = nil
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}
