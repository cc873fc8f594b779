package importers

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
)

// ── Text File Importer ─────────────────────────────────────
// Emits one record per line: {line_number, line}. The file stays open
// between reads, so a read stopped by the handler resumes at the next
// line; Reset starts over from the top.

type textImporter struct {
	filePath string

	file    *os.File
	scanner *bufio.Scanner
	lineNo  uint64
}

func init() {
	etl.RegisterImporter(etl.ComponentSpec{
		Name:        "text",
		Description: "Reads a text file line by line",
		ConfigKeys: []etl.ConfigKey{
			{Key: "file_name", Required: true, Help: "Path to the text file"},
		},
	}, func() etl.Importer { return &textImporter{} })
}

func (s *textImporter) Init(cfg *config.Configuration) error {
	filePath, err := cfg.GetResult("file_name")
	if err != nil {
		return err
	}
	s.filePath = filePath
	return nil
}

func (s *textImporter) Read(ctx context.Context, h etl.RecordHandler) error {
	if s.scanner == nil {
		f, err := os.Open(s.filePath)
		if err != nil {
			return fmt.Errorf("open file: %w", err)
		}
		s.file = f
		s.scanner = bufio.NewScanner(f)
		s.scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	}

	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.lineNo++
		rec := model.NewRecord(
			model.NewFieldValue("line_number", model.U64(s.lineNo)),
			model.NewFieldValue("line", model.Str(strings.TrimSuffix(s.scanner.Text(), "\r"))),
		)
		if err := h.HandleRecord(rec); err != nil {
			return err
		}
	}
	if err := s.scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", s.filePath, err)
	}
	return nil
}

// Reset closes the file so the next Read starts from the first line.
func (s *textImporter) Reset() error {
	s.lineNo = 0
	return s.Close()
}

func (s *textImporter) Close() error {
	s.scanner = nil
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
