package docs

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bindgen/internal/ir"
)

//go:embed apidocs.yml
var bundled []byte

// BundledResource names the embedded documentation resource in errors.
const BundledResource = "apidocs.yml (bundled)"

// APIDetails is the documentation attached to one declaration.
type APIDetails struct {
	HelpLink    string            `yaml:"help_link,omitempty" json:"help_link,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Remarks     string            `yaml:"remarks,omitempty" json:"remarks,omitempty"`
	Parameters  map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Fields      map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
	ReturnValue string            `yaml:"return_value,omitempty" json:"return_value,omitempty"`
}

// IsEmpty reports whether d carries no text at all.
func (d APIDetails) IsEmpty() bool {
	return d.HelpLink == "" && d.Description == "" && d.Remarks == "" &&
		len(d.Parameters) == 0 && len(d.Fields) == 0 && d.ReturnValue == ""
}

// Provider looks up documentation by declaration name.
// Implementations must be safe for concurrent reads.
type Provider interface {
	TryGetDocs(name string) (APIDetails, bool)
}

// Set is an immutable, in-memory Provider.
type Set struct {
	entries map[string]APIDetails
}

// document is the on-disk shape of a docs resource.
type document struct {
	APIs map[string]APIDetails `yaml:"apis"`
}

// StartupError reports a documentation resource that could not be loaded.
// It is fatal: no resolution starts without docs.
type StartupError struct {
	Resource string
	Err      error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("load docs %s: %v", e.Resource, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// LoadBundled parses the embedded documentation resource.
func LoadBundled() (*Set, error) {
	return Parse(bundled, BundledResource)
}

// LoadFile reads and parses a documentation resource from disk.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StartupError{Resource: path, Err: err}
	}
	return Parse(data, path)
}

// Parse decodes a documentation resource. Unknown keys are rejected so
// that typos in hand-maintained docs surface at startup.
func Parse(data []byte, resource string) (*Set, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &StartupError{Resource: resource, Err: err}
	}
	if doc.APIs == nil {
		return nil, &StartupError{Resource: resource, Err: fmt.Errorf("missing top-level \"apis\" map")}
	}
	return New(doc.APIs), nil
}

// New builds a Set from a map of entries. The map is copied.
func New(entries map[string]APIDetails) *Set {
	s := &Set{entries: make(map[string]APIDetails, len(entries))}
	for name, d := range entries {
		s.entries[name] = d
	}
	return s
}

// Empty returns a Set with no entries.
func Empty() *Set {
	return New(nil)
}

// TryGetDocs returns the documentation for name. The fully-qualified name
// is tried first, then its short name.
func (s *Set) TryGetDocs(name string) (APIDetails, bool) {
	if d, ok := s.entries[name]; ok {
		return d, true
	}
	if short := ir.ShortName(name); short != name {
		if d, ok := s.entries[short]; ok {
			return d, true
		}
	}
	return APIDetails{}, false
}

// Len returns the number of entries.
func (s *Set) Len() int {
	return len(s.entries)
}

// Overlay is the documentation for one unit's declarations, keyed by
// fully-qualified name. It is built once per unit and only read afterwards.
type Overlay map[string]APIDetails

// BuildOverlay looks up documentation for each declaration. Declarations
// without docs are simply absent.
func BuildOverlay(p Provider, decls []ir.Declaration) Overlay {
	overlay := make(Overlay)
	if p == nil {
		return overlay
	}
	for _, d := range decls {
		if details, ok := p.TryGetDocs(d.Name); ok && !details.IsEmpty() {
			overlay[d.Name] = details
		}
	}
	return overlay
}
