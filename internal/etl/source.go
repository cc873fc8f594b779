package etl

import (
	"context"
	"errors"

	"rite/internal/config"
	"rite/internal/model"
)

// ── Importer ───────────────────────────────────────────────
// An Importer extracts records from an external system and pushes each
// one into a RecordHandler. Implementations live in etl/importers/, one
// file per importer.

// Initializable is implemented by every pluggable component. The
// component keeps cfg for its whole lifetime.
type Initializable interface {
	Init(cfg *config.Configuration) error
}

// RecordHandler receives records from an importer. The record may be
// mutated; it must be cloned if it is kept after the call returns.
type RecordHandler interface {
	HandleRecord(rec *model.Record) error
}

// RecordHandlerFunc adapts a plain function to the RecordHandler interface.
type RecordHandlerFunc func(rec *model.Record) error

func (f RecordHandlerFunc) HandleRecord(rec *model.Record) error { return f(rec) }

// ErrStopImport may be returned by a handler to end a read early. The
// engine treats it as a normal end of input.
var ErrStopImport = errors.New("stop import")

// CollectingHandler keeps a deep copy of every record it receives. With
// Max > 0 it returns ErrStopImport once Max records are held.
type CollectingHandler struct {
	Records []*model.Record
	Max     int
}

func (h *CollectingHandler) HandleRecord(rec *model.Record) error {
	h.Records = append(h.Records, rec.Clone())
	if h.Max > 0 && len(h.Records) >= h.Max {
		return ErrStopImport
	}
	return nil
}

// Importer is the interface every record source must implement.
type Importer interface {
	Initializable

	// Read calls handler once per record, in source order, and stops at
	// the first handler error, returning it.
	Read(ctx context.Context, handler RecordHandler) error

	// Reset rewinds the importer so the next Read starts over.
	Reset() error
}

// NoReset gives an importer the default Reset, which does nothing.
type NoReset struct{}

func (NoReset) Reset() error { return nil }
