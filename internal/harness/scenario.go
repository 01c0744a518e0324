package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bindgen/internal/partition"
)

// Scenario defines one end-to-end generation run and its expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Metadata lists CUE metadata directories to load.
	// Paths are relative to the scenario file location.
	Metadata []string `yaml:"metadata"`

	// Requests are exact names or "Prefix.*" wildcards. Empty means the
	// full surface.
	Requests []string `yaml:"requests,omitempty"`

	Options Options `yaml:"options,omitempty"`

	// Assertions validate the resolution and the emitted units.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is the fixed run id of the emission. Empty means DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`
}

// DefaultRunID is used when a scenario does not set run_id.
const DefaultRunID = "00000000-0000-7000-8000-000000000001"

// Options mirror the generate command's settings.
type Options struct {
	WideCharOnly bool             `yaml:"wide_char_only,omitempty"`
	Package      string           `yaml:"package,omitempty"`
	Partition    partition.Config `yaml:"partition,omitempty"`

	// Docs is "bundled" (default), "none", or a path relative to the
	// scenario file.
	Docs string `yaml:"docs,omitempty"`

	// Store is "memory" (default) or "sqlite". With "sqlite" the metadata
	// is imported into a temporary database and resolved from there.
	Store string `yaml:"store,omitempty"`
}

// Docs and store settings.
const (
	DocsBundled = "bundled"
	DocsNone    = "none"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Assertion validates one property of a scenario result.
type Assertion struct {
	Type    string   `yaml:"type"`
	Names   []string `yaml:"names,omitempty"`
	Request string   `yaml:"request,omitempty"`
	Unit    string   `yaml:"unit,omitempty"`
	File    string   `yaml:"file,omitempty"`
	Text    string   `yaml:"text,omitempty"`
	Count   int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertResolvedContains = "resolved_contains"
	AssertResolvedExcludes = "resolved_excludes"
	AssertResolvedOrder    = "resolved_order"
	AssertResolvedCount    = "resolved_count"
	AssertRequestFailed    = "request_failed"
	AssertUnitContains     = "unit_contains"
	AssertUnitCount        = "unit_count"
	AssertFileContains     = "file_contains"
)

// LoadScenario reads and parses a scenario YAML file. Metadata and docs
// paths are resolved relative to the file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, dir := range scenario.Metadata {
		if !filepath.IsAbs(dir) {
			scenario.Metadata[i] = filepath.Join(base, dir)
		}
	}
	switch d := scenario.Options.Docs; d {
	case "", DocsBundled, DocsNone:
	default:
		if !filepath.IsAbs(d) {
			scenario.Options.Docs = filepath.Join(base, d)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Metadata) == 0 {
		return fmt.Errorf("metadata list is required and must be non-empty")
	}
	for _, dir := range s.Metadata {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("metadata directory not found: %s", dir)
		}
	}

	switch s.Options.Store {
	case "", StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("options.store: unknown store %q", s.Options.Store)
	}
	if _, err := s.Options.Partition.Policy(); err != nil {
		return fmt.Errorf("options.partition: %w", err)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertResolvedContains, AssertResolvedExcludes:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for %s", index, a.Type)
		}
	case AssertResolvedOrder:
		if len(a.Names) < 2 {
			return fmt.Errorf("assertions[%d]: resolved_order needs at least two names", index)
		}
	case AssertResolvedCount, AssertUnitCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertRequestFailed:
		if a.Request == "" {
			return fmt.Errorf("assertions[%d]: request is required for request_failed", index)
		}
	case AssertUnitContains:
		if a.Unit == "" || len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: unit and names are required for unit_contains", index)
		}
	case AssertFileContains:
		if a.File == "" || a.Text == "" {
			return fmt.Errorf("assertions[%d]: file and text are required for file_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
