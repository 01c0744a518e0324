package emitter

import "github.com/roach88/bindgen/internal/ir"

// ptrSize is the pointer width of the generated code's target (amd64, arm64).
const ptrSize = 8

var primitiveLayout = map[string][2]int{ // name -> {size, align}
	"bool":    {1, 1},
	"byte":    {1, 1},
	"int8":    {1, 1},
	"uint8":   {1, 1},
	"int16":   {2, 2},
	"uint16":  {2, 2},
	"int32":   {4, 4},
	"uint32":  {4, 4},
	"int64":   {8, 8},
	"uint64":  {8, 8},
	"uintptr": {ptrSize, ptrSize},
	"float32": {4, 4},
	"float64": {8, 8},
}

// alignWord names the zero-length array element that forces an alignment.
var alignWord = map[int]string{2: "uint16", 4: "uint32", 8: "uint64"}

type layout struct {
	size, align int
}

// layouts holds the in-memory size and alignment of declarations as the
// generated Go types lay them out, on a 64-bit target. Types with a
// component outside the scope have no layout. Read-only once built.
type layouts struct {
	decls map[string]ir.Declaration
	known map[string]layout
}

func newLayouts(decls []ir.Declaration) *layouts {
	l := &layouts{
		decls: make(map[string]ir.Declaration, len(decls)),
		known: make(map[string]layout),
	}
	for _, d := range decls {
		l.decls[d.Name] = d
	}
	visiting := make(map[string]bool)
	for _, d := range decls {
		l.declLayout(d.Name, visiting)
	}
	return l
}

func (l *layouts) typeLayout(t ir.TypeRef, visiting map[string]bool) (layout, bool) {
	var lo layout
	switch {
	case t.Pointer > 0:
		lo = layout{ptrSize, ptrSize}
	case ir.IsPrimitive(t.Name):
		pl, ok := primitiveLayout[t.Name]
		if !ok {
			return layout{}, false
		}
		lo = layout{pl[0], pl[1]}
	default:
		var ok bool
		if visiting == nil {
			lo, ok = l.known[t.Name]
		} else {
			lo, ok = l.declLayout(t.Name, visiting)
		}
		if !ok {
			return layout{}, false
		}
	}
	if t.Array > 0 {
		lo.size *= t.Array
	}
	return lo, true
}

func (l *layouts) declLayout(name string, visiting map[string]bool) (layout, bool) {
	if lo, ok := l.known[name]; ok {
		return lo, true
	}
	d, ok := l.decls[name]
	if !ok || visiting[name] {
		return layout{}, false
	}
	visiting[name] = true
	defer delete(visiting, name)

	var lo layout
	switch d.Kind {
	case ir.KindEnum, ir.KindHandle:
		lo, ok = l.typeLayout(ir.TypeRef{Name: d.Underlying}, visiting)
	case ir.KindDelegate:
		lo, ok = layout{ptrSize, ptrSize}, true
	case ir.KindStruct:
		lo, ok = l.structLayout(d.Fields, visiting)
	case ir.KindUnion:
		var u unionLayout
		u, ok = l.unionLayout(d.Fields, visiting)
		lo = u.layout
	default:
		ok = false
	}
	if ok {
		l.known[name] = lo
	}
	return lo, ok
}

func (l *layouts) structLayout(fields []ir.Field, visiting map[string]bool) (layout, bool) {
	lo := layout{align: 1}
	for _, f := range fields {
		fl, ok := l.typeLayout(f.Type, visiting)
		if !ok {
			return layout{}, false
		}
		lo.size = roundUp(lo.size, fl.align) + fl.size
		lo.align = max(lo.align, fl.align)
	}
	lo.size = roundUp(lo.size, lo.align)
	return lo, true
}

// unionLayout is the storage plan of a union: the member that backs it and
// the padding that brings it to the size of the largest member.
type unionLayout struct {
	layout
	storage int    // index of the member rendered as the storage field
	pad     int    // trailing padding bytes
	alignTo string // element type of a leading zero-length alignment field
}

func (l *layouts) unionLayout(fields []ir.Field, visiting map[string]bool) (unionLayout, bool) {
	u := unionLayout{layout: layout{align: 1}}
	if len(fields) == 0 {
		return u, true
	}
	var best layout
	for i, f := range fields {
		fl, ok := l.typeLayout(f.Type, visiting)
		if !ok {
			return unionLayout{}, false
		}
		if i == 0 || fl.size > best.size || (fl.size == best.size && fl.align > best.align) {
			u.storage, best = i, fl
		}
		u.size = max(u.size, fl.size)
		u.align = max(u.align, fl.align)
	}
	u.size = roundUp(u.size, u.align)
	u.pad = u.size - best.size
	if u.align > best.align {
		u.alignTo = alignWord[u.align]
	}
	return u, true
}

// union plans the storage of a union declaration. Unions whose members are
// not all sized keep their first member as storage and get no padding.
func (l *layouts) union(d ir.Declaration) unionLayout {
	u, ok := l.unionLayout(d.Fields, nil)
	if !ok {
		return unionLayout{}
	}
	return u
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
