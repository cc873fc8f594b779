package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"rite/internal/config"
	apperrors "rite/internal/errors"
	"rite/internal/model"
)

// ── Process ────────────────────────────────────────────────
// Orchestrates: importer.Read → transformer chain → exporter.Write.

// ComponentConfig names a registered component and its configuration.
type ComponentConfig struct {
	Plugin string                `json:"plugin,omitempty"`
	Name   string                `json:"name"`
	Config *config.Configuration `json:"config,omitempty"`
}

// ProcessSpec is everything needed to build and run one process.
type ProcessSpec struct {
	ID           string            `json:"id"`
	Importer     ComponentConfig   `json:"importer"`
	Transformers []ComponentConfig `json:"transformers,omitempty"`
	Exporters    []ComponentConfig `json:"exporters"`
}

// Run statuses.
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// RunResult is the outcome of running a process.
type RunResult struct {
	RunID          string        `json:"runId"`
	ProcessID      string        `json:"processId"`
	Status         string        `json:"status"`
	RecordsRead    int           `json:"recordsRead"`
	RecordsDropped int           `json:"recordsDropped"`
	RecordsWritten int           `json:"recordsWritten"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     time.Time     `json:"finishedAt"`
	Duration       time.Duration `json:"duration"`
	Error          string        `json:"error,omitempty"`
}

func (r *RunResult) finish(err error) *RunResult {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	switch {
	case err == nil:
		r.Status = StatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.Status = StatusCancelled
		r.Error = err.Error()
	default:
		r.Status = StatusError
		r.Error = err.Error()
	}
	return r
}

// ── Pipeline ───────────────────────────────────────────────

// Pipeline is a process whose components are created and initialized.
type Pipeline struct {
	Spec         ProcessSpec
	Importer     Importer
	Transformers []Transformer
	Exporters    []Exporter
}

// Build creates every component of spec from the registry and calls Init
// on each with its configuration.
func Build(spec ProcessSpec) (*Pipeline, error) {
	return build(spec, true)
}

func build(spec ProcessSpec, withExporters bool) (*Pipeline, error) {
	p := &Pipeline{Spec: spec}

	imp, err := NewImporter(spec.Importer.Name)
	if err != nil {
		return nil, apperrors.NewComponentError("create importer", err)
	}
	p.Importer = imp
	if err := imp.Init(spec.Importer.Config.Clone()); err != nil {
		p.Close()
		return nil, apperrors.NewComponentError(fmt.Sprintf("init importer %q", spec.Importer.Name), err)
	}

	for _, tc := range spec.Transformers {
		t, err := NewTransformer(tc.Name)
		if err != nil {
			p.Close()
			return nil, apperrors.NewComponentError("create transformer", err)
		}
		p.Transformers = append(p.Transformers, t)
		if err := t.Init(tc.Config.Clone()); err != nil {
			p.Close()
			return nil, apperrors.NewComponentError(fmt.Sprintf("init transformer %q", tc.Name), err)
		}
	}

	if !withExporters {
		return p, nil
	}
	for _, ec := range spec.Exporters {
		x, err := NewExporter(ec.Name)
		if err != nil {
			p.Close()
			return nil, apperrors.NewComponentError("create exporter", err)
		}
		p.Exporters = append(p.Exporters, x)
		if err := x.Init(ec.Config.Clone()); err != nil {
			p.Close()
			return nil, apperrors.NewComponentError(fmt.Sprintf("init exporter %q", ec.Name), err)
		}
	}
	return p, nil
}

// Close closes every component that implements io.Closer.
func (p *Pipeline) Close() error {
	var errs []error
	closeIt := func(c any) {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if p.Importer != nil {
		closeIt(p.Importer)
	}
	for _, t := range p.Transformers {
		closeIt(t)
	}
	for _, x := range p.Exporters {
		closeIt(x)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) exporterName(i int) string {
	if i < len(p.Spec.Exporters) {
		return p.Spec.Exporters[i].Name
	}
	return fmt.Sprintf("#%d", i)
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs processes built from the component registry.
type Engine struct {
	// Logger receives one line per run; nil means log.Default().
	Logger *log.Logger
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Run builds spec and streams every record through it.
func (e *Engine) Run(ctx context.Context, spec ProcessSpec) (*RunResult, error) {
	result := &RunResult{RunID: uuid.New().String(), ProcessID: spec.ID, StartedAt: time.Now()}

	p, err := Build(spec)
	if err != nil {
		result.finish(err)
		e.logf("rite engine: process %s failed to build: %v", spec.ID, err)
		return result, err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			e.logf("rite engine: process %s: close: %v", spec.ID, cerr)
		}
	}()

	err = e.Execute(ctx, p, result)
	result.finish(err)
	e.logf("rite engine: process %s %s: read=%d dropped=%d written=%d in %s",
		spec.ID, result.Status, result.RecordsRead, result.RecordsDropped, result.RecordsWritten, result.Duration)
	return result, err
}

// Execute streams records through an already built pipeline, updating
// the counters of result. Exporters get SignalStart before the first
// record and SignalEnd after a successful read. With several exporters
// each one receives its own deep copy of the record.
func (e *Engine) Execute(ctx context.Context, p *Pipeline, result *RunResult) error {
	for i, x := range p.Exporters {
		if err := x.Event(ctx, SignalStart); err != nil {
			return apperrors.NewRunError(fmt.Sprintf("start exporter %q", p.exporterName(i)), err)
		}
	}

	handler := RecordHandlerFunc(func(rec *model.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.RecordsRead++

		keep, err := ApplyTransformers(rec, p.Transformers)
		if err != nil {
			return fmt.Errorf("transform record %d: %w", result.RecordsRead, err)
		}
		if !keep {
			result.RecordsDropped++
			return nil
		}

		shared := len(p.Exporters) > 1
		for i, x := range p.Exporters {
			out := rec
			if shared {
				out = rec.Clone()
			}
			if err := x.Write(ctx, out); err != nil {
				return fmt.Errorf("exporter %q: write record %d: %w", p.exporterName(i), result.RecordsRead, err)
			}
		}
		result.RecordsWritten++
		return nil
	})

	if err := p.Importer.Read(ctx, handler); err != nil && !errors.Is(err, ErrStopImport) {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		return apperrors.NewRunError(fmt.Sprintf("importer %q", p.Spec.Importer.Name), err)
	}

	for i, x := range p.Exporters {
		if err := x.Event(ctx, SignalEnd); err != nil {
			return apperrors.NewRunError(fmt.Sprintf("end exporter %q", p.exporterName(i)), err)
		}
	}
	return nil
}

// Preview runs the importer and transformers of spec without exporters
// and returns at most maxRecords records plus their derived schema.
func (e *Engine) Preview(ctx context.Context, spec ProcessSpec, maxRecords int) ([]*model.Record, *Schema, error) {
	p, err := build(spec, false)
	if err != nil {
		return nil, nil, err
	}
	defer p.Close()

	collect := &CollectingHandler{Max: maxRecords}
	handler := RecordHandlerFunc(func(rec *model.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		keep, err := ApplyTransformers(rec, p.Transformers)
		if err != nil || !keep {
			return err
		}
		return collect.HandleRecord(rec)
	})
	if err := p.Importer.Read(ctx, handler); err != nil && !errors.Is(err, ErrStopImport) {
		return nil, nil, fmt.Errorf("preview %s: %w", spec.ID, err)
	}
	return collect.Records, SchemaOf(collect.Records...), nil
}
