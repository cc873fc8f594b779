package exporters

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
)

// ── Console Exporter ───────────────────────────────────────
// Prints every record to stdout in display form, or as a full structure
// dump with format=debug.

type consoleExporter struct {
	etl.NoEvents
	out   io.Writer
	debug bool
	dump  *spew.ConfigState
}

func init() {
	etl.RegisterExporter(etl.ComponentSpec{
		Name:        "console",
		Description: "Prints records to standard output",
		ConfigKeys: []etl.ConfigKey{
			{Key: "format", Default: "text", Help: "text or debug"},
		},
	}, func() etl.Exporter { return &consoleExporter{out: os.Stdout} })
}

func (e *consoleExporter) Init(cfg *config.Configuration) error {
	switch format := cfg.GetOr("format", "text"); format {
	case "text":
	case "debug":
		e.debug = true
		e.dump = &spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
	default:
		return fmt.Errorf("unknown console format %q", format)
	}
	return nil
}

func (e *consoleExporter) Write(_ context.Context, rec *model.Record) error {
	if e.debug {
		e.dump.Fdump(e.out, model.RecordToJSON(rec))
		return nil
	}
	_, err := fmt.Fprintln(e.out, rec)
	return err
}
