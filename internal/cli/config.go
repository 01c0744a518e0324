package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bindgen/internal/partition"
)

// Config is the optional YAML file named by --config. Flags set explicitly
// on the command line override its values. Relative paths are resolved
// against the file's directory.
type Config struct {
	Metadata     string           `yaml:"metadata,omitempty"`
	Database     string           `yaml:"db,omitempty"`
	Out          string           `yaml:"out,omitempty"`
	Docs         string           `yaml:"docs,omitempty"`
	Package      string           `yaml:"package,omitempty"`
	Workers      int              `yaml:"workers,omitempty"`
	WideCharOnly *bool            `yaml:"wide_char_only,omitempty"`
	Partition    partition.Config `yaml:"partition,omitempty"`
}

// LoadConfig reads a config file. Unknown fields are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("config %s: workers must be non-negative, got %d", path, cfg.Workers)
	}

	base := filepath.Dir(path)
	cfg.Metadata = resolvePath(base, cfg.Metadata)
	cfg.Database = resolvePath(base, cfg.Database)
	cfg.Out = resolvePath(base, cfg.Out)
	if cfg.Docs != DocsBundled && cfg.Docs != DocsNone {
		cfg.Docs = resolvePath(base, cfg.Docs)
	}
	return &cfg, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// flagSetter assigns a config value to the option bound to a flag, unless
// the flag was set on the command line.
type flagSetter struct {
	cmd *cobra.Command
}

func (s flagSetter) changed(name string) bool {
	f := s.cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func (s flagSetter) setString(name string, dst *string, v string) {
	if v != "" && !s.changed(name) {
		*dst = v
	}
}

func (s flagSetter) setInt(name string, dst *int, v int) {
	if v != 0 && !s.changed(name) {
		*dst = v
	}
}

func (s flagSetter) setBool(name string, dst *bool, v *bool) {
	if v != nil && !s.changed(name) {
		*dst = *v
	}
}

// applySource copies the metadata source from cfg unless either source
// flag was given.
func (s flagSetter) applySource(dst *SourceOptions, cfg *Config) {
	if s.changed("metadata") || s.changed("db") {
		return
	}
	if cfg.Metadata != "" || cfg.Database != "" {
		dst.Metadata = cfg.Metadata
		dst.Database = cfg.Database
	}
}

// parseRules parses "pattern=unit" flag values.
func parseRules(values []string) ([]partition.Rule, error) {
	rules := make([]partition.Rule, 0, len(values))
	for _, v := range values {
		pattern, unit, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(pattern) == "" || strings.TrimSpace(unit) == "" {
			return nil, fmt.Errorf("invalid rule %q: want pattern=unit", v)
		}
		rules = append(rules, partition.Rule{Pattern: strings.TrimSpace(pattern), Unit: strings.TrimSpace(unit)})
	}
	return rules, nil
}
