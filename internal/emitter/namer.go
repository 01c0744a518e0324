package emitter

import (
	"go/token"
	"strings"

	"github.com/roach88/bindgen/internal/ir"
)

// Namer maps fully-qualified declaration names to Go identifiers.
//
// Top-level declarations use their short name when it is unique across the
// naming scope. Colliding names are prefixed with the last namespace
// segment ("Console_COORD") and, if that still collides with any other
// identifier, with the whole namespace ("Win32_System_Console_COORD").
// Nested declarations are named after their parent: "INPUT__Anonymous".
//
// Enum members are package-level constants and share the identifier space.
// A member keeps its name unless another member or declaration claims it,
// then it is prefixed with its enum: "SHAPE_None".
//
// A Namer is immutable and safe for concurrent use.
type Namer struct {
	idents  map[string]string
	members map[string]string // memberKey(enum, member) -> identifier
}

// NewNamer computes identifiers for decls. Every unit of one run must use a
// Namer built from the same Resolution Set so cross-unit references agree.
func NewNamer(decls []ir.Declaration) *Namer {
	n := &Namer{
		idents:  make(map[string]string, len(decls)),
		members: make(map[string]string),
	}

	parents := make(map[string]string, len(decls))
	namespaces := make(map[string]string, len(decls))
	var topLevel []string
	for _, d := range decls {
		if d.IsNested() {
			parents[d.Name] = d.Parent
			continue
		}
		namespaces[d.Name] = d.Namespace
		topLevel = append(topLevel, d.Name)
	}

	byShort := make(map[string][]string)
	for _, name := range topLevel {
		short := ir.ShortName(name)
		byShort[short] = append(byShort[short], name)
	}

	// Unique short names are final and win over any widened form.
	taken := make(map[string]bool, len(topLevel))
	var colliding []string
	for short, names := range byShort {
		if len(names) == 1 {
			n.idents[names[0]] = short
			taken[short] = true
			continue
		}
		colliding = append(colliding, names...)
	}

	widened := make(map[string]int, len(colliding))
	for _, name := range colliding {
		widened[lastSegment(namespaces[name])+"_"+ir.ShortName(name)]++
	}
	for _, name := range colliding {
		id := lastSegment(namespaces[name]) + "_" + ir.ShortName(name)
		if widened[id] > 1 || taken[id] {
			id = joinNamespace(namespaces[name]) + "_" + ir.ShortName(name)
		}
		n.idents[name] = id
	}

	for name := range parents {
		n.idents[name] = n.nestedIdent(name, parents)
	}

	n.nameMembers(decls)
	return n
}

// nameMembers assigns enum member identifiers once every declaration
// identifier is known.
func (n *Namer) nameMembers(decls []ir.Declaration) {
	used := make(map[string]bool, len(n.idents))
	for _, id := range n.idents {
		used[id] = true
	}

	count := make(map[string]int)
	for _, d := range decls {
		if d.Kind != ir.KindEnum {
			continue
		}
		for _, m := range d.Members {
			count[m.Name]++
		}
	}

	for _, d := range decls {
		if d.Kind != ir.KindEnum {
			continue
		}
		for _, m := range d.Members {
			id := m.Name
			if count[id] > 1 || used[id] {
				id = n.Ident(d.Name) + "_" + m.Name
			}
			n.members[memberKey(d.Name, m.Name)] = id
		}
	}
}

func (n *Namer) nestedIdent(name string, parents map[string]string) string {
	parent, ok := parents[name]
	if !ok {
		return n.Ident(name)
	}
	return n.nestedIdent(parent, parents) + "_" + ir.ShortName(name)
}

// Ident returns the identifier for a fully-qualified name. Names outside
// the naming scope fall back to their short name.
func (n *Namer) Ident(name string) string {
	if id, ok := n.idents[name]; ok {
		return id
	}
	return ir.ShortName(name)
}

// Member returns the constant identifier of an enum member.
func (n *Namer) Member(enum, member string) string {
	if id, ok := n.members[memberKey(enum, member)]; ok {
		return id
	}
	return member
}

func memberKey(enum, member string) string {
	return enum + "\x00" + member
}

// fieldName escapes Go keywords used as field names.
func fieldName(name string) string {
	if token.IsKeyword(name) {
		return name + "_"
	}
	return name
}

// paramName escapes keywords and the locals reserved by //sys expansion.
func paramName(name string) string {
	switch name {
	case "r", "err", "r0", "r1", "e1":
		return name + "_"
	}
	return fieldName(name)
}

func lastSegment(ns string) string {
	if i := strings.LastIndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func joinNamespace(ns string) string {
	return strings.ReplaceAll(ns, ".", "_")
}
