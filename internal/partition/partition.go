package partition

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/resolver"
)

// Unit is a named group of declarations emitted into one file.
type Unit struct {
	Name         string
	FileName     string
	Declarations []ir.Declaration // Resolution Set order
}

// Names returns the fully-qualified names of the unit's declarations.
func (u Unit) Names() []string {
	out := make([]string, len(u.Declarations))
	for i, d := range u.Declarations {
		out[i] = d.Name
	}
	return out
}

// Partition groups set into units under policy. Units are sorted by name.
func Partition(set *resolver.Set, policy Policy) []Unit {
	if policy == nil {
		policy = SingleUnit{}
	}

	byUnit := make(map[string][]ir.Declaration)
	assigned := make(map[string]string, set.Len())

	for _, d := range set.Declarations() {
		unit := unitFor(d, set, policy, assigned)
		byUnit[unit] = append(byUnit[unit], d)
	}

	units := make([]Unit, 0, len(byUnit))
	for name, decls := range byUnit {
		units = append(units, Unit{Name: name, Declarations: decls})
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })

	assignFileNames(units)
	return units
}

// unitFor returns the unit of d. Nested declarations take the unit of
// their outermost ancestor in the set.
func unitFor(d ir.Declaration, set *resolver.Set, policy Policy, assigned map[string]string) string {
	if u, ok := assigned[d.Name]; ok {
		return u
	}

	owner := d
	for owner.IsNested() {
		parent, ok := set.Get(owner.Parent)
		if !ok {
			break
		}
		owner = parent
	}

	u := policy.UnitName(owner)
	assigned[d.Name] = u
	return u
}

// assignFileNames sets collision-free file names. Names colliding under
// Unicode case folding get a numeric suffix in unit order.
func assignFileNames(units []Unit) {
	fold := cases.Fold()
	taken := make(map[string]bool, len(units))

	for i := range units {
		base := SanitizeFileBase(units[i].Name)
		name := base + ".go"
		for n := 2; taken[fold.String(name)]; n++ {
			name = fmt.Sprintf("%s_%d.go", base, n)
		}
		taken[fold.String(name)] = true
		units[i].FileName = name
	}
}

// SanitizeFileBase turns a unit name into a file base name: characters
// outside [A-Za-z0-9._-] become "_", and names the go tool would ignore or
// treat as tests are adjusted.
func SanitizeFileBase(unit string) string {
	var b strings.Builder
	for _, r := range unit {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	base := b.String()
	if base == "" {
		base = DefaultUnitName
	}
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") {
		base = "x" + base
	}
	if strings.HasSuffix(base, "_test") {
		base += "_"
	}
	return base
}
