package partition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/roach88/bindgen/internal/ir"
)

// DefaultUnitName names the unit produced by a zero SingleUnit.
const DefaultUnitName = "bindings"

// ErrInvalidRule is returned when a partition rule cannot be compiled.
var ErrInvalidRule = errors.New("invalid partition rule")

// Policy assigns a declaration to a unit by name.
type Policy interface {
	UnitName(d ir.Declaration) string
}

// SingleUnit places every declaration in one unit.
type SingleUnit struct {
	Name string
}

// UnitName implements Policy.
func (p SingleUnit) UnitName(ir.Declaration) string {
	if p.Name == "" {
		return DefaultUnitName
	}
	return p.Name
}

// PerNamespace places each declaration in the unit named after its
// namespace. A positive Depth keeps only the first Depth segments.
type PerNamespace struct {
	Depth int
}

// UnitName implements Policy.
func (p PerNamespace) UnitName(d ir.Declaration) string {
	ns := d.Namespace
	if ns == "" {
		return DefaultUnitName
	}
	if p.Depth > 0 {
		segs := strings.Split(ns, ".")
		if len(segs) > p.Depth {
			ns = strings.Join(segs[:p.Depth], ".")
		}
	}
	return ns
}

// Rule maps names matching Pattern to Unit. Patterns are globs over
// fully-qualified names with "." as the separator: "*" matches one
// segment and "**" any number of segments.
type Rule struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Unit    string `yaml:"unit" json:"unit"`
}

type compiledRule struct {
	Rule
	matcher glob.Glob
}

// RuleSet applies rules in order; the first match wins.
type RuleSet struct {
	rules    []compiledRule
	fallback Policy
}

// NewRuleSet compiles rules. A nil fallback means SingleUnit{}.
func NewRuleSet(rules []Rule, fallback Policy) (*RuleSet, error) {
	if fallback == nil {
		fallback = SingleUnit{}
	}
	rs := &RuleSet{
		rules:    make([]compiledRule, 0, len(rules)),
		fallback: fallback,
	}
	for i, r := range rules {
		if strings.TrimSpace(r.Unit) == "" {
			return nil, fmt.Errorf("%w: rule %d (%q) has no unit", ErrInvalidRule, i, r.Pattern)
		}
		matcher, err := glob.Compile(r.Pattern, '.')
		if err != nil {
			return nil, errors.Join(fmt.Errorf("%w: rule %d (%q)", ErrInvalidRule, i, r.Pattern), err)
		}
		rs.rules = append(rs.rules, compiledRule{Rule: r, matcher: matcher})
	}
	return rs, nil
}

// UnitName implements Policy.
func (rs *RuleSet) UnitName(d ir.Declaration) string {
	for _, r := range rs.rules {
		if r.matcher.Match(d.Name) {
			return r.Unit
		}
	}
	return rs.fallback.UnitName(d)
}

// Partition modes accepted by Config.
const (
	ModeSingle    = "single"
	ModeNamespace = "namespace"
)

// Config is the declarative form of a Policy used by config files and
// scenarios. Rules, when present, are tried before the mode's policy.
type Config struct {
	Mode  string `yaml:"mode,omitempty" json:"mode,omitempty"`
	Unit  string `yaml:"unit,omitempty" json:"unit,omitempty"`   // single mode unit name
	Depth int    `yaml:"depth,omitempty" json:"depth,omitempty"` // namespace mode truncation
	Rules []Rule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Policy builds the Policy described by c.
func (c Config) Policy() (Policy, error) {
	var base Policy
	switch c.Mode {
	case "", ModeSingle:
		base = SingleUnit{Name: c.Unit}
	case ModeNamespace:
		if c.Depth < 0 {
			return nil, fmt.Errorf("partition depth must be non-negative, got %d", c.Depth)
		}
		base = PerNamespace{Depth: c.Depth}
	default:
		return nil, fmt.Errorf("unknown partition mode %q (want %q or %q)", c.Mode, ModeSingle, ModeNamespace)
	}

	if len(c.Rules) == 0 {
		return base, nil
	}
	return NewRuleSet(c.Rules, base)
}
