package resolver

import "github.com/roach88/bindgen/internal/ir"

// Set is the Resolution Set: fully-qualified name to declaration, in
// discovery order. It only grows; adding a name twice is a no-op.
//
// A Set is built by one goroutine and is read-only once Resolve returns,
// so emission workers may share it without locking.
type Set struct {
	order []string
	decls map[string]ir.Declaration
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{
		decls: make(map[string]ir.Declaration),
	}
}

// Add inserts d and reports whether it was new.
func (s *Set) Add(d ir.Declaration) bool {
	if _, ok := s.decls[d.Name]; ok {
		return false
	}
	s.order = append(s.order, d.Name)
	s.decls[d.Name] = d
	return true
}

// Contains reports whether name is in the set.
func (s *Set) Contains(name string) bool {
	_, ok := s.decls[name]
	return ok
}

// Get returns the declaration for name.
func (s *Set) Get(name string) (ir.Declaration, bool) {
	d, ok := s.decls[name]
	return d, ok
}

// Len returns the number of declarations.
func (s *Set) Len() int {
	return len(s.order)
}

// Names returns the names in discovery order.
func (s *Set) Names() []string {
	return append([]string(nil), s.order...)
}

// Declarations returns the declarations in discovery order.
func (s *Set) Declarations() []ir.Declaration {
	out := make([]ir.Declaration, len(s.order))
	for i, name := range s.order {
		out[i] = s.decls[name]
	}
	return out
}
