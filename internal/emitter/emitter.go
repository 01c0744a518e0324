package emitter

import (
	"bytes"
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"text/template"

	"github.com/roach88/bindgen/internal/docs"
	"github.com/roach88/bindgen/internal/ir"
)

// DefaultPackage is the package clause of generated files.
const DefaultPackage = "win32"

// Emitter prints declaration groups as Go source. It is pure: the same
// declarations and overlay always produce the same bytes. An Emitter is
// safe for concurrent use.
type Emitter struct {
	pkg    string
	namer  *Namer
	layout *layouts
}

// New creates an Emitter for one run. scope must be the whole Resolution
// Set so names and union layouts agree across units.
func New(pkg string, scope []ir.Declaration) *Emitter {
	if pkg == "" {
		pkg = DefaultPackage
	}
	return &Emitter{pkg: pkg, namer: NewNamer(scope), layout: newLayouts(scope)}
}

// Print renders decls in order. The unit name only appears in errors.
func (e *Emitter) Print(unit string, decls []ir.Declaration, overlay docs.Overlay) ([]byte, error) {
	view := fileView{Package: e.pkg}
	needsUnsafe := false

	for _, d := range decls {
		dv, err := e.declView(d, overlay[d.Name])
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", unit, err)
		}
		if dv.usesUnsafe {
			needsUnsafe = true
		}
		view.Decls = append(view.Decls, dv)
	}
	if needsUnsafe {
		view.Imports = []string{"unsafe"}
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("unit %s: execute template: %w", unit, err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("unit %s: format generated code: %w", unit, err)
	}
	return formatted, nil
}

type fileView struct {
	Package string
	Imports []string
	Decls   []declView
}

type declView struct {
	Kind  ir.Kind
	Ident string
	Doc   []string

	// method
	Sys       string // full //sys directive for extern methods
	Signature string // func signature for delegates and non-extern methods

	// struct, union
	Fields   []fieldView
	Overlaps []string // union members sharing the storage field

	// enum, handle
	Underlying string
	Members    []memberView

	// interface
	GUID     string
	BaseVtbl string
	Slots    []string

	// constant
	Type  string
	Value string

	usesUnsafe bool
}

type fieldView struct {
	Doc  []string
	Name string
	Type string
}

type memberView struct {
	Name  string
	Value string
}

func (e *Emitter) declView(d ir.Declaration, details docs.APIDetails) (declView, error) {
	dv := declView{Kind: d.Kind, Ident: e.namer.Ident(d.Name)}
	r := typeRenderer{namer: e.namer}

	switch d.Kind {
	case ir.KindMethod:
		dv.Doc = callableDoc(details, d.Params)
		if d.Extern {
			dv.Sys = sysDirective(d, dv.Ident, &r)
		} else {
			dv.Signature = r.signature(d.Params, d.Return)
		}

	case ir.KindDelegate:
		dv.Doc = callableDoc(details, d.Params)
		dv.Signature = r.signature(d.Params, d.Return)

	case ir.KindStruct:
		dv.Doc = typeDoc(details)
		for _, f := range d.Fields {
			dv.Fields = append(dv.Fields, fieldOf(f, details, &r))
		}

	case ir.KindUnion:
		dv.Doc = typeDoc(details)
		u := e.layout.union(d)
		if u.alignTo != "" {
			dv.Fields = append(dv.Fields, fieldView{Name: "_", Type: "[0]" + u.alignTo})
		}
		for i, f := range d.Fields {
			fv := fieldOf(f, details, &r)
			if i != u.storage {
				dv.Overlaps = append(dv.Overlaps, fmt.Sprintf("%s %s", fv.Name, fv.Type))
				continue
			}
			dv.Fields = append(dv.Fields, fv)
		}
		if u.pad > 0 {
			dv.Fields = append(dv.Fields, fieldView{Name: "_", Type: fmt.Sprintf("[%d]byte", u.pad)})
		}

	case ir.KindEnum:
		dv.Doc = typeDoc(details)
		dv.Underlying = d.Underlying
		for _, m := range d.Members {
			dv.Members = append(dv.Members, memberView{Name: e.namer.Member(d.Name, m.Name), Value: m.Value})
		}

	case ir.KindHandle:
		dv.Doc = typeDoc(details)
		dv.Underlying = d.Underlying
		if d.Release != "" {
			if len(dv.Doc) > 0 {
				dv.Doc = append(dv.Doc, "//")
			}
			dv.Doc = append(dv.Doc, fmt.Sprintf("// Release with %s.", e.namer.Ident(d.Release)))
		}

	case ir.KindInterface:
		dv.Doc = typeDoc(details)
		if d.GUID != "" {
			dv.GUID = strconv.Quote(d.GUID)
		}
		if d.Base != "" {
			dv.BaseVtbl = e.namer.Ident(d.Base) + "Vtbl"
		}
		for _, m := range d.Methods {
			dv.Slots = append(dv.Slots, m.Name)
		}

	case ir.KindConstant:
		dv.Doc = typeDoc(details)
		if d.Type != nil {
			dv.Type = r.render(*d.Type)
		}
		dv.Value = d.Value

	default:
		return dv, fmt.Errorf("declaration %s: unsupported kind %q", d.Name, d.Kind)
	}

	dv.usesUnsafe = r.usesUnsafe
	return dv, nil
}

func fieldOf(f ir.Field, details docs.APIDetails, r *typeRenderer) fieldView {
	fv := fieldView{Name: fieldName(f.Name), Type: r.render(f.Type)}
	if text, ok := details.Fields[f.Name]; ok {
		fv.Doc = commentLines(text)
	}
	return fv
}

// sysDirective renders an extern method in the mkwinsyscall convention:
//
//	//sys	Name(a T, b U) (r R, err error) = dll.Name
func sysDirective(d ir.Declaration, ident string, r *typeRenderer) string {
	var b strings.Builder
	b.WriteString("//sys\t")
	b.WriteString(ident)
	b.WriteString(r.params(d.Params))

	var results []string
	if d.Return != nil && !isVoid(*d.Return) {
		results = append(results, "r "+r.render(*d.Return))
	}
	if d.SetLastError {
		results = append(results, "err error")
	}
	if len(results) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(results, ", "))
		b.WriteString(")")
	}

	b.WriteString(" = ")
	b.WriteString(strings.TrimSuffix(strings.ToLower(d.DLL), ".dll"))
	b.WriteString(".")
	b.WriteString(d.ShortName())
	return b.String()
}

// typeRenderer renders type references and records whether unsafe is used.
type typeRenderer struct {
	namer      *Namer
	usesUnsafe bool
}

func (r *typeRenderer) render(t ir.TypeRef) string {
	var b strings.Builder
	if t.Array > 0 {
		b.WriteString("[")
		b.WriteString(strconv.Itoa(t.Array))
		b.WriteString("]")
	}

	ptr := t.Pointer
	name := t.Name
	switch {
	case name == "void" && ptr > 0:
		ptr--
		name = "unsafe.Pointer"
		r.usesUnsafe = true
	case ir.IsPrimitive(name):
	default:
		name = r.namer.Ident(name)
	}

	b.WriteString(strings.Repeat("*", ptr))
	b.WriteString(name)
	return b.String()
}

func (r *typeRenderer) params(params []ir.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = paramName(p.Name) + " " + r.render(p.Type)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// signature renders "(a T) R" without the func keyword.
func (r *typeRenderer) signature(params []ir.Param, ret *ir.TypeRef) string {
	s := r.params(params)
	if ret != nil && !isVoid(*ret) {
		s += " " + r.render(*ret)
	}
	return s
}

func isVoid(t ir.TypeRef) bool {
	return t.Name == "void" && t.Pointer == 0 && t.Array == 0
}

var fileTemplate = template.Must(template.New("file").Parse(`// Code generated by bindgen. DO NOT EDIT.

package {{.Package}}
{{if .Imports}}
import (
{{- range .Imports}}
	"{{.}}"
{{- end}}
)
{{end}}
{{- range $d := .Decls}}
{{if eq .Kind "method"}}
{{- range .Doc}}
{{.}}
{{- end}}
{{- if .Sys}}
{{.Sys}}
{{- else}}
var {{.Ident}} func{{.Signature}}
{{- end}}
{{else if eq .Kind "delegate"}}
{{- range .Doc}}
{{.}}
{{- end}}
type {{.Ident}} func{{.Signature}}
{{else if or (eq .Kind "struct") (eq .Kind "union")}}
{{- range .Doc}}
{{.}}
{{- end}}
type {{.Ident}} struct {
{{- range .Fields}}
{{- range .Doc}}
	{{.}}
{{- end}}
	{{.Name}} {{.Type}}
{{- end}}
{{- range .Overlaps}}
	// overlaps: {{.}}
{{- end}}
}
{{else if eq .Kind "enum"}}
{{- range .Doc}}
{{.}}
{{- end}}
type {{.Ident}} {{.Underlying}}
{{if .Members}}
const (
{{- range .Members}}
	{{.Name}} {{$d.Ident}} = {{.Value}}
{{- end}}
)
{{end}}
{{- else if eq .Kind "handle"}}
{{- range .Doc}}
{{.}}
{{- end}}
type {{.Ident}} {{.Underlying}}
{{else if eq .Kind "interface"}}
{{- if .GUID}}
// IID_{{.Ident}} is the interface identifier of {{.Ident}}.
const IID_{{.Ident}} = {{.GUID}}
{{end}}
type {{.Ident}}Vtbl struct {
{{- if .BaseVtbl}}
	{{.BaseVtbl}}
{{- end}}
{{- range .Slots}}
	{{.}} uintptr
{{- end}}
}
{{range .Doc}}
{{.}}
{{- end}}
type {{.Ident}} struct {
	Vtbl *{{.Ident}}Vtbl
}
{{else if eq .Kind "constant"}}
{{- range .Doc}}
{{.}}
{{- end}}
const {{.Ident}} {{.Type}} = {{.Value}}
{{end}}
{{- end}}
`))
