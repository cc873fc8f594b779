package rite

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"rite/internal/config"
	apperrors "rite/internal/errors"
	"rite/internal/etl"
)

// ConfigPathVar names the directory of the loaded description, so other
// files can be addressed relative to it.
const ConfigPathVar = "RITE_CONFIG_PATH"

// Description formats.
const (
	FormatXML  = "xml"
	FormatYAML = "yaml"
)

// ── Description model ──────────────────────────────────────

// Rite is the root of a process description.
type Rite struct {
	XMLName   xml.Name  `xml:"rite" yaml:"-"`
	Plugins   []Plugin  `xml:"plugins>plugin" yaml:"plugins,omitempty"`
	Processes []Process `xml:"processes>process" yaml:"processes"`
}

// Plugin names a component bundle. A component that only sets Plugin uses
// the plugin's Name as its component name.
type Plugin struct {
	ID   string `xml:"id,attr" yaml:"id"`
	Path string `xml:"path,attr,omitempty" yaml:"path,omitempty"`
	Name string `xml:"name,attr" yaml:"name"`
}

// Process is one import → transform → export chain. Schedule is a cron
// expression and Watch a file path; either makes the process start on its
// own when triggers are running.
type Process struct {
	ID           string      `xml:"id,attr" yaml:"id"`
	Schedule     string      `xml:"schedule,attr,omitempty" yaml:"schedule,omitempty"`
	Watch        string      `xml:"watch,attr,omitempty" yaml:"watch,omitempty"`
	Importer     Component   `xml:"importer" yaml:"importer"`
	Transformers []Component `xml:"transformers>transformer" yaml:"transformers,omitempty"`
	Exporters    []Component `xml:"exporters>exporter" yaml:"exporters"`
}

// Component references a registered importer, transformer or exporter.
type Component struct {
	Plugin        string                `xml:"plugin,attr,omitempty" yaml:"plugin,omitempty"`
	Name          string                `xml:"name,attr,omitempty" yaml:"name,omitempty"`
	Configuration *config.Configuration `xml:"configuration" yaml:"configuration,omitempty"`
}

// ── Loading ────────────────────────────────────────────────

// Load reads the description at path. The format follows the extension:
// .yaml and .yml are YAML, anything else XML. ConfigPathVar resolves to
// the description's directory ahead of lookup.
func Load(path string, lookup Lookup) (*Rite, error) {
	full := FullPath(path)
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, apperrors.NewDescriptionError(fmt.Sprintf("cannot open %s", path), err)
	}

	dir := filepath.Dir(full)
	lookup = Chain(MapLookup(map[string]string{ConfigPathVar: dir}), lookup)

	r, err := Parse(data, FormatOf(path), lookup)
	if err != nil {
		return nil, apperrors.NewDescriptionError(fmt.Sprintf("cannot parse %s", path), err)
	}
	if err := r.resolveExternal(dir, lookup); err != nil {
		return nil, apperrors.NewDescriptionError(fmt.Sprintf("cannot load configuration for %s", path), err)
	}
	return r, nil
}

// FormatOf picks the description format from a file name.
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatXML
	}
}

// Parse decodes a description after variable substitution. XML gets
// substitution per text node and attribute, YAML over the whole document.
func Parse(data []byte, format string, lookup Lookup) (*Rite, error) {
	r := &Rite{}
	switch format {
	case FormatXML:
		substituted, err := SubstituteXML(data, lookup)
		if err != nil {
			return nil, err
		}
		if err := xml.Unmarshal(substituted, r); err != nil {
			return nil, err
		}
	case FormatYAML:
		text := SubstituteOrKeep(string(data), lookup)
		if err := yaml.Unmarshal([]byte(text), r); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown description format %q", format)
	}
	return r, nil
}

// externalConfig is the root of a configuration file referenced by a
// component's xml attribute.
type externalConfig struct {
	XMLName xml.Name             `xml:"configuration"`
	Items   []config.ConfigItem `xml:"config"`
}

// resolveExternal merges configuration files named by Configuration.XML.
// File items come first and inline items override them.
func (r *Rite) resolveExternal(dir string, lookup Lookup) error {
	for pi := range r.Processes {
		for _, c := range r.Processes[pi].components() {
			cfg := c.Configuration
			if cfg == nil || cfg.XML == "" {
				continue
			}
			path := cfg.XML
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			substituted, err := SubstituteXML(data, lookup)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			var ext externalConfig
			if err := xml.Unmarshal(substituted, &ext); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			merged := config.New()
			for _, item := range ext.Items {
				merged.Insert(item.Key, item.Value)
			}
			for _, item := range cfg.Items {
				merged.Insert(item.Key, item.Value)
			}
			cfg.Items = merged.Items
		}
	}
	return nil
}

// components returns pointers to every component of p, importer first.
func (p *Process) components() []*Component {
	out := []*Component{&p.Importer}
	for i := range p.Transformers {
		out = append(out, &p.Transformers[i])
	}
	for i := range p.Exporters {
		out = append(out, &p.Exporters[i])
	}
	return out
}

// ── Queries ────────────────────────────────────────────────

// FindProcess returns the process with id.
func (r *Rite) FindProcess(id string) (*Process, error) {
	for i := range r.Processes {
		if r.Processes[i].ID == id {
			return &r.Processes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrProcessNotFound, id)
}

// FindPlugin returns the plugin with id, or nil.
func (r *Rite) FindPlugin(id string) *Plugin {
	for i := range r.Plugins {
		if r.Plugins[i].ID == id {
			return &r.Plugins[i]
		}
	}
	return nil
}

// Validate checks that process ids are unique and non-empty, that every
// referenced plugin exists, and that every component resolves to a name.
func (r *Rite) Validate() error {
	if len(r.Processes) == 0 {
		return apperrors.NewDescriptionError("validate", apperrors.ErrNoProcesses)
	}
	var problems []string
	seen := map[string]bool{}
	for _, p := range r.Processes {
		if p.ID == "" {
			problems = append(problems, "process without id")
		} else if seen[p.ID] {
			problems = append(problems, fmt.Sprintf("duplicate process id %q", p.ID))
		}
		seen[p.ID] = true

		if len(p.Exporters) == 0 {
			problems = append(problems, fmt.Sprintf("process %q has no exporters", p.ID))
		}
		for i, c := range p.components() {
			if c.Plugin != "" && r.FindPlugin(c.Plugin) == nil {
				problems = append(problems, fmt.Sprintf("process %q: unknown plugin %q", p.ID, c.Plugin))
				continue
			}
			if r.componentName(*c) == "" {
				problems = append(problems, fmt.Sprintf("process %q: component %d has no name", p.ID, i))
			}
		}
	}
	if len(problems) > 0 {
		return apperrors.NewDescriptionError(strings.Join(problems, "; "), apperrors.ErrInvalidDescription)
	}
	return nil
}

func (r *Rite) componentName(c Component) string {
	if c.Name != "" {
		return c.Name
	}
	if p := r.FindPlugin(c.Plugin); p != nil {
		return p.Name
	}
	return ""
}

// Spec converts process id into something the engine can build.
func (r *Rite) Spec(id string) (etl.ProcessSpec, error) {
	p, err := r.FindProcess(id)
	if err != nil {
		return etl.ProcessSpec{}, err
	}
	return r.ProcessSpec(p), nil
}

// ProcessSpec converts p, resolving plugin names.
func (r *Rite) ProcessSpec(p *Process) etl.ProcessSpec {
	conv := func(c Component) etl.ComponentConfig {
		cfg := c.Configuration
		if cfg == nil {
			cfg = config.New()
		}
		return etl.ComponentConfig{Plugin: c.Plugin, Name: r.componentName(c), Config: cfg}
	}
	spec := etl.ProcessSpec{ID: p.ID, Importer: conv(p.Importer)}
	for _, t := range p.Transformers {
		spec.Transformers = append(spec.Transformers, conv(t))
	}
	for _, x := range p.Exporters {
		spec.Exporters = append(spec.Exporters, conv(x))
	}
	return spec
}
