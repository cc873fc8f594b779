package etl

import (
	"context"

	"rite/internal/model"
)

// ── Exporter ───────────────────────────────────────────────
// An Exporter writes records to an external system. Implementations live
// in etl/exporters/.

// Signal marks the boundaries of a record stream.
type Signal int

const (
	SignalStart Signal = iota + 1
	SignalEnd
)

func (s Signal) String() string {
	switch s {
	case SignalStart:
		return "start"
	case SignalEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Exporter is the interface every record sink must implement.
type Exporter interface {
	Initializable

	// Write consumes one record. The record must be treated as read-only.
	Write(ctx context.Context, rec *model.Record) error

	// Event is called with SignalStart before the first record and with
	// SignalEnd after the last one, so buffering sinks can flush.
	Event(ctx context.Context, sig Signal) error
}

// NoEvents gives an exporter the default Event, which does nothing.
type NoEvents struct{}

func (NoEvents) Event(context.Context, Signal) error { return nil }
