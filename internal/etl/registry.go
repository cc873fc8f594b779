package etl

import (
	"fmt"
	"sort"
	"sync"

	apperrors "rite/internal/errors"
)

// ── Component Registry ─────────────────────────────────────
// Compile-time registration via init() in each component file. A process
// description refers to components by name.

// ComponentKind is one of importer, transformer or exporter.
type ComponentKind string

const (
	KindImporter    ComponentKind = "importer"
	KindTransformer ComponentKind = "transformer"
	KindExporter    ComponentKind = "exporter"
)

// ConfigKey describes a single configuration key a component reads.
type ConfigKey struct {
	Key      string `json:"key"`
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
	Help     string `json:"help,omitempty"`
}

// ComponentSpec describes a registered component.
type ComponentSpec struct {
	Kind        ComponentKind `json:"kind"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	ConfigKeys  []ConfigKey   `json:"configKeys,omitempty"`
}

type registration[T any] struct {
	spec    ComponentSpec
	factory func() T
}

type registry[T any] struct {
	kind    ComponentKind
	mu      sync.RWMutex
	entries map[string]registration[T]
}

func (r *registry[T]) register(spec ComponentSpec, factory func() T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = map[string]registration[T]{}
	}
	spec.Kind = r.kind
	r.entries[spec.Name] = registration[T]{spec: spec, factory: factory}
}

func (r *registry[T]) create(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", apperrors.ErrUnknownComponent, r.kind, name)
	}
	return reg.factory(), nil
}

func (r *registry[T]) specs() []ComponentSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]ComponentSpec, 0, len(r.entries))
	for _, reg := range r.entries {
		specs = append(specs, reg.spec)
	}
	return specs
}

var (
	importers    = &registry[Importer]{kind: KindImporter}
	transformers = &registry[Transformer]{kind: KindTransformer}
	exporters    = &registry[Exporter]{kind: KindExporter}
)

// RegisterImporter registers an importer factory under spec.Name.
// Called from init() in each importer implementation file.
func RegisterImporter(spec ComponentSpec, factory func() Importer) {
	importers.register(spec, factory)
}

// RegisterTransformer registers a transformer factory under spec.Name.
func RegisterTransformer(spec ComponentSpec, factory func() Transformer) {
	transformers.register(spec, factory)
}

// RegisterExporter registers an exporter factory under spec.Name.
func RegisterExporter(spec ComponentSpec, factory func() Exporter) {
	exporters.register(spec, factory)
}

// NewImporter returns a fresh, uninitialized importer.
func NewImporter(name string) (Importer, error) { return importers.create(name) }

// NewTransformer returns a fresh, uninitialized transformer.
func NewTransformer(name string) (Transformer, error) { return transformers.create(name) }

// NewExporter returns a fresh, uninitialized exporter.
func NewExporter(name string) (Exporter, error) { return exporters.create(name) }

// ListComponents returns the specs of all registered components, sorted
// by kind then name.
func ListComponents() []ComponentSpec {
	var specs []ComponentSpec
	specs = append(specs, importers.specs()...)
	specs = append(specs, transformers.specs()...)
	specs = append(specs, exporters.specs()...)
	sort.Slice(specs, func(i, j int) bool {
		if specs[i].Kind != specs[j].Kind {
			return specs[i].Kind < specs[j].Kind
		}
		return specs[i].Name < specs[j].Name
	})
	return specs
}
