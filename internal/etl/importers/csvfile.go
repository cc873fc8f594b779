package importers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
)

// ── CSV File Importer ──────────────────────────────────────
// Reads records from a local CSV file. Cells are inferred: empty → None,
// true/false → Bool, number literals narrow, anything else is text.

type csvFileImporter struct {
	etl.NoReset
	filePath  string
	delimiter rune
	hasHeader bool
}

func init() {
	etl.RegisterImporter(etl.ComponentSpec{
		Name:        "csv",
		Description: "Reads records from a CSV file",
		ConfigKeys: []etl.ConfigKey{
			{Key: "file_name", Required: true, Help: "Path to the CSV file"},
			{Key: "delimiter", Default: ",", Help: "Column delimiter"},
			{Key: "has_header", Default: "true", Help: "Whether the first row contains column names"},
		},
	}, func() etl.Importer { return &csvFileImporter{} })
}

func (s *csvFileImporter) Init(cfg *config.Configuration) error {
	filePath, err := cfg.GetResult("file_name")
	if err != nil {
		return err
	}
	s.filePath = filePath
	s.delimiter = ','
	if d := cfg.GetOr("delimiter", ""); d != "" {
		if d == `\t` {
			d = "\t"
		}
		r, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			return fmt.Errorf("delimiter must be a single character, got %q", d)
		}
		s.delimiter = r
	}
	s.hasHeader = cfg.GetBoolOr("has_header", true)
	return nil
}

func (s *csvFileImporter) Read(ctx context.Context, h etl.RecordHandler) error {
	f, err := os.Open(s.filePath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = s.delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var headers []string
	if s.hasHeader {
		headers, err = reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse csv header: %w", err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse csv: %w", err)
		}
		rec := model.NewRecord()
		for j, cell := range row {
			rec.Add(columnName(headers, j), model.InferScalar(cell))
		}
		if err := h.HandleRecord(rec); err != nil {
			return err
		}
	}
}

// columnName uses the header when there is one, col_N otherwise.
func columnName(headers []string, i int) string {
	if i < len(headers) && headers[i] != "" {
		return headers[i]
	}
	return fmt.Sprintf("col_%d", i+1)
}
