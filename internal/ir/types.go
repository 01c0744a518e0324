package ir

import "strings"

// Kind identifies the category of a declaration.
type Kind string

const (
	KindMethod    Kind = "method"
	KindStruct    Kind = "struct"
	KindUnion     Kind = "union"
	KindEnum      Kind = "enum"
	KindInterface Kind = "interface"
	KindConstant  Kind = "constant"
	KindDelegate  Kind = "delegate"
	KindHandle    Kind = "handle"
)

// ValidKinds defines the allowed declaration kinds.
var ValidKinds = map[Kind]bool{
	KindMethod:    true,
	KindStruct:    true,
	KindUnion:     true,
	KindEnum:      true,
	KindInterface: true,
	KindConstant:  true,
	KindDelegate:  true,
	KindHandle:    true,
}

// IsType reports whether declarations of this kind live in the type index.
// Methods are the only kind indexed separately.
func (k Kind) IsType() bool {
	return k != KindMethod
}

// Declaration is one named entity in the metadata graph.
//
// Name is the fully-qualified name: Namespace + "." + short name, or
// Parent + "." + short name for nested declarations. Refs lists the names
// of the declarations this one needs in order to compile, without
// duplicates, in first-appearance order.
type Declaration struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Kind      Kind   `json:"kind"`
	Parent    string `json:"parent,omitempty"` // enclosing declaration for nested types

	Refs []string `json:"refs"`

	// method, delegate
	DLL          string   `json:"dll,omitempty"`
	Extern       bool     `json:"extern,omitempty"`
	SetLastError bool     `json:"set_last_error,omitempty"`
	Params       []Param  `json:"params,omitempty"`
	Return       *TypeRef `json:"return,omitempty"`

	// struct, union
	Fields []Field `json:"fields,omitempty"`

	// enum, handle
	Underlying string       `json:"underlying,omitempty"` // primitive type name
	Members    []EnumMember `json:"members,omitempty"`
	Flags      bool         `json:"flags,omitempty"`
	Release    string       `json:"release,omitempty"` // method that frees a handle

	// interface
	GUID    string            `json:"guid,omitempty"`
	Base    string            `json:"base,omitempty"`
	Methods []InterfaceMethod `json:"methods,omitempty"`

	// constant
	Type  *TypeRef `json:"type,omitempty"`
	Value string   `json:"value,omitempty"` // Go literal text
}

// ShortName returns the last segment of the fully-qualified name.
func (d *Declaration) ShortName() string {
	return ShortName(d.Name)
}

// IsNested reports whether the declaration is nested inside another one.
func (d *Declaration) IsNested() bool {
	return d.Parent != ""
}

// TypeRef references a primitive type or a declaration by name.
type TypeRef struct {
	Name    string `json:"name"`
	Pointer int    `json:"pointer,omitempty"` // pointer depth
	Array   int    `json:"array,omitempty"`   // fixed array length, 0 when not an array
}

// IsPrimitive reports whether the reference names a primitive type.
func (t TypeRef) IsPrimitive() bool {
	return IsPrimitive(t.Name)
}

// Param is a named method, delegate or interface-method parameter.
type Param struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
}

// Field is a named struct or union field.
type Field struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
}

// EnumMember is one named value of an enum.
type EnumMember struct {
	Name  string `json:"name"`
	Value string `json:"value"` // Go literal text
}

// InterfaceMethod is one slot of an interface vtable.
type InterfaceMethod struct {
	Name   string   `json:"name"`
	Params []Param  `json:"params,omitempty"`
	Return *TypeRef `json:"return,omitempty"`
}

// Primitives lists the type names that are never declarations.
var Primitives = map[string]bool{
	"void":    true,
	"bool":    true,
	"byte":    true,
	"int8":    true,
	"uint8":   true,
	"int16":   true,
	"uint16":  true,
	"int32":   true,
	"uint32":  true,
	"int64":   true,
	"uint64":  true,
	"uintptr": true,
	"float32": true,
	"float64": true,
}

// IsPrimitive reports whether name is a primitive type name.
func IsPrimitive(name string) bool {
	return Primitives[name]
}

// ShortName returns the last dot-separated segment of a qualified name.
func ShortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// IsQualified reports whether name is fully qualified (contains a dot).
func IsQualified(name string) bool {
	return strings.IndexByte(name, '.') >= 0
}

// Qualify joins a namespace and a short name.
func Qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// NamespaceMatches reports whether namespace lies under prefix.
// Matching is segment aware: "Ns" matches "Ns" and "Ns.Sub" but not "Nsx".
// The empty prefix matches every namespace.
func NamespaceMatches(namespace, prefix string) bool {
	if prefix == "" || namespace == prefix {
		return true
	}
	return strings.HasPrefix(namespace, prefix+".")
}
