package metadata

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/bindgen/internal/ir"
)

// Index is an in-memory Source built from a declaration slice.
// It is immutable after construction and safe for concurrent use.
type Index struct {
	methods map[string]ir.Declaration
	types   map[string]ir.Declaration

	// short name -> fully-qualified names, sorted
	methodsByShort map[string][]string
	typesByShort   map[string][]string

	externNames []string // sorted fully-qualified names of extern methods
}

// NewIndex builds an Index. Duplicate fully-qualified names are rejected.
func NewIndex(decls []ir.Declaration) (*Index, error) {
	idx := &Index{
		methods:        make(map[string]ir.Declaration),
		types:          make(map[string]ir.Declaration),
		methodsByShort: make(map[string][]string),
		typesByShort:   make(map[string][]string),
	}

	for _, d := range decls {
		if _, dup := idx.methods[d.Name]; dup {
			return nil, fmt.Errorf("duplicate declaration %q", d.Name)
		}
		if _, dup := idx.types[d.Name]; dup {
			return nil, fmt.Errorf("duplicate declaration %q", d.Name)
		}
		if d.Refs == nil {
			d.Refs = []string{}
		}

		short := ir.ShortName(d.Name)
		if d.Kind.IsType() {
			idx.types[d.Name] = d
			idx.typesByShort[short] = append(idx.typesByShort[short], d.Name)
		} else {
			idx.methods[d.Name] = d
			idx.methodsByShort[short] = append(idx.methodsByShort[short], d.Name)
			if d.Extern {
				idx.externNames = append(idx.externNames, d.Name)
			}
		}
	}

	for _, names := range idx.methodsByShort {
		sort.Strings(names)
	}
	for _, names := range idx.typesByShort {
		sort.Strings(names)
	}
	sort.Strings(idx.externNames)

	return idx, nil
}

// MustIndex is like NewIndex but panics on error.
// Use only in tests.
func MustIndex(decls ...ir.Declaration) *Index {
	idx, err := NewIndex(decls)
	if err != nil {
		panic(err)
	}
	return idx
}

// FindMethod implements Source.
func (x *Index) FindMethod(ctx context.Context, name string) (ir.Declaration, bool, error) {
	return find(x.methods, x.methodsByShort, name)
}

// FindType implements Source.
func (x *Index) FindType(ctx context.Context, name string) (ir.Declaration, bool, error) {
	return find(x.types, x.typesByShort, name)
}

// EnumerateExternMethods implements Source.
func (x *Index) EnumerateExternMethods(ctx context.Context, prefix string) ([]ir.Declaration, error) {
	out := []ir.Declaration{}
	for _, name := range x.externNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := x.methods[name]
		if ir.NamespaceMatches(d.Namespace, prefix) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Len returns the number of declarations in the index.
func (x *Index) Len() int {
	return len(x.methods) + len(x.types)
}

func find(byName map[string]ir.Declaration, byShort map[string][]string, name string) (ir.Declaration, bool, error) {
	if ir.IsQualified(name) {
		d, ok := byName[name]
		return d, ok, nil
	}
	names := byShort[name]
	if len(names) == 0 {
		return ir.Declaration{}, false, nil
	}
	return byName[names[0]], true, nil
}
