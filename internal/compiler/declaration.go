package compiler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/bindgen/internal/ir"
)

// kindSections lists the per-kind sections of a namespace block, in the
// order they are compiled.
var kindSections = []ir.Kind{
	ir.KindConstant,
	ir.KindEnum,
	ir.KindHandle,
	ir.KindStruct,
	ir.KindUnion,
	ir.KindDelegate,
	ir.KindInterface,
	ir.KindMethod,
}

// CompileMetadata compiles every namespace block of a CUE value into
// declarations.
//
// The value is expected to carry a top-level "namespace" struct:
//
//	namespace: "Win32.System.Console": {
//		method: Beep: {dll: "kernel32", extern: true, params: [{name: "freq", type: "uint32"}], return: "bool"}
//		struct: COORD: {fields: [{name: "X", type: "int16"}, {name: "Y", type: "int16"}]}
//	}
func CompileMetadata(v cue.Value) ([]ir.Declaration, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	nsVal := v.LookupPath(cue.MakePath(cue.Str("namespace")))
	if !nsVal.Exists() {
		return nil, &CompileError{
			Field:   "namespace",
			Message: "no namespace blocks found",
			Pos:     v.Pos(),
		}
	}

	iter, err := nsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var decls []ir.Declaration
	for iter.Next() {
		nsDecls, err := CompileNamespace(label(iter), iter.Value())
		if err != nil {
			return nil, err
		}
		decls = append(decls, nsDecls...)
	}
	return decls, nil
}

// CompileNamespace compiles one namespace block into declarations.
// Unqualified non-primitive type names inside the block are qualified with
// the namespace.
func CompileNamespace(namespace string, v cue.Value) ([]ir.Declaration, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if strings.TrimSpace(namespace) == "" {
		return nil, &CompileError{
			Field:   "namespace",
			Message: "namespace name must be non-empty",
			Pos:     v.Pos(),
		}
	}

	c := &declCompiler{namespace: namespace}
	if err := c.compileSections(v, nil); err != nil {
		return nil, err
	}
	return c.decls, nil
}

// declCompiler accumulates declarations for one namespace block.
type declCompiler struct {
	namespace string
	decls     []ir.Declaration
}

// scope tracks the enclosing declaration while compiling nested blocks.
type scope struct {
	parent string          // fully-qualified name of the enclosing declaration
	nested map[string]bool // short names declared inside parent
}

// compileSections compiles each kind section of v, appending to c.decls in
// section order. When sc is non-nil the declarations are nested inside
// sc.parent.
func (c *declCompiler) compileSections(v cue.Value, sc *scope) error {
	for _, kind := range kindSections {
		section := v.LookupPath(cue.MakePath(cue.Str(string(kind))))
		if !section.Exists() {
			continue
		}
		iter, err := section.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			if _, err := c.compileDeclaration(kind, label(iter), iter.Value(), sc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *declCompiler) compileDeclaration(kind ir.Kind, name string, v cue.Value, sc *scope) (string, error) {
	if !isIdentifier(name) {
		return "", &CompileError{
			Field:   string(kind),
			Message: fmt.Sprintf("invalid declaration name %q", name),
			Pos:     v.Pos(),
		}
	}

	d := ir.Declaration{
		Name:      ir.Qualify(c.namespace, name),
		Namespace: c.namespace,
		Kind:      kind,
	}
	if sc != nil {
		d.Name = sc.parent + "." + name
		d.Parent = sc.parent
	}

	// Nested names are collected first so fields can refer to them unqualified.
	nestedVal := v.LookupPath(cue.MakePath(cue.Str("nested")))
	var inner *scope
	if nestedVal.Exists() {
		if kind != ir.KindStruct && kind != ir.KindUnion {
			return "", &CompileError{
				Field:   fieldPath(kind, name, "nested"),
				Message: "only structs and unions may declare nested types",
				Pos:     nestedVal.Pos(),
			}
		}
		names, err := nestedNames(nestedVal)
		if err != nil {
			return "", err
		}
		inner = &scope{parent: d.Name, nested: names}
	}
	resolveScope := sc
	if inner != nil {
		resolveScope = inner
	}

	var err error
	switch kind {
	case ir.KindMethod, ir.KindDelegate:
		err = c.parseCallable(&d, v, resolveScope)
	case ir.KindStruct, ir.KindUnion:
		d.Fields, err = c.parseFields(v, resolveScope, fieldPath(kind, name, "fields"))
	case ir.KindEnum:
		err = c.parseEnum(&d, v)
	case ir.KindHandle:
		err = c.parseHandle(&d, v, resolveScope)
	case ir.KindInterface:
		err = c.parseInterface(&d, v, resolveScope)
	case ir.KindConstant:
		err = c.parseConstant(&d, v, resolveScope)
	}
	if err != nil {
		return "", err
	}

	d.Refs = ir.CollectRefs(&d)

	// The parent is appended before its nested declarations so that
	// declaration order follows source nesting.
	idx := len(c.decls)
	c.decls = append(c.decls, d)

	if inner != nil {
		before := len(c.decls)
		if err := c.compileSections(nestedVal, inner); err != nil {
			return "", err
		}
		for _, nd := range c.decls[before:] {
			if nd.Parent == d.Name && !slices.Contains(c.decls[idx].Refs, nd.Name) {
				c.decls[idx].Refs = append(c.decls[idx].Refs, nd.Name)
			}
		}
	}

	return d.Name, nil
}

// nestedNames returns the short names declared in a nested block.
func nestedNames(v cue.Value) (map[string]bool, error) {
	names := make(map[string]bool)
	for _, kind := range kindSections {
		section := v.LookupPath(cue.MakePath(cue.Str(string(kind))))
		if !section.Exists() {
			continue
		}
		iter, err := section.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			names[label(iter)] = true
		}
	}
	return names, nil
}

// parseCallable parses the signature of a method or delegate.
func (c *declCompiler) parseCallable(d *ir.Declaration, v cue.Value, sc *scope) error {
	var err error
	if d.Kind == ir.KindMethod {
		if d.DLL, err = optionalString(v, "dll"); err != nil {
			return err
		}
		if d.Extern, err = optionalBool(v, "extern"); err != nil {
			return err
		}
		if d.Extern && d.DLL == "" {
			return &CompileError{
				Field:   fieldPath(d.Kind, d.ShortName(), "dll"),
				Message: "extern methods require a dll",
				Pos:     v.Pos(),
			}
		}
	}
	if d.SetLastError, err = optionalBool(v, "set_last_error"); err != nil {
		return err
	}
	if d.Params, err = c.parseParams(v, sc, fieldPath(d.Kind, d.ShortName(), "params")); err != nil {
		return err
	}
	d.Return, err = c.parseOptionalType(v, "return", sc)
	return err
}

// parseParams parses an ordered list of {name, type} entries under "params".
func (c *declCompiler) parseParams(v cue.Value, sc *scope, path string) ([]ir.Param, error) {
	fields, err := c.parseNamedTypes(v, "params", sc, path)
	if err != nil {
		return nil, err
	}
	params := make([]ir.Param, 0, len(fields))
	for _, f := range fields {
		params = append(params, ir.Param(f))
	}
	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}

// parseFields parses an ordered list of {name, type} entries under "fields".
func (c *declCompiler) parseFields(v cue.Value, sc *scope, path string) ([]ir.Field, error) {
	fields, err := c.parseNamedTypes(v, "fields", sc, path)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func (c *declCompiler) parseNamedTypes(v cue.Value, key string, sc *scope, path string) ([]ir.Field, error) {
	listVal := v.LookupPath(cue.MakePath(cue.Str(key)))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.Field
	seen := make(map[string]bool)
	for i := 0; iter.Next(); i++ {
		item := iter.Value()
		name, err := requiredString(item, "name", fmt.Sprintf("%s[%d].name", path, i))
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s[%d].name", path, i),
				Message: fmt.Sprintf("duplicate name %q", name),
				Pos:     item.Pos(),
			}
		}
		seen[name] = true

		typeStr, err := requiredString(item, "type", fmt.Sprintf("%s[%d].type", path, i))
		if err != nil {
			return nil, err
		}
		ref, err := c.parseType(typeStr, sc)
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s[%d].type", path, i),
				Message: err.Error(),
				Pos:     item.Pos(),
			}
		}
		out = append(out, ir.Field{Name: name, Type: ref})
	}
	return out, nil
}

func (c *declCompiler) parseOptionalType(v cue.Value, key string, sc *scope) (*ir.TypeRef, error) {
	s, err := optionalString(v, key)
	if err != nil || s == "" {
		return nil, err
	}
	ref, err := c.parseType(s, sc)
	if err != nil {
		return nil, &CompileError{Field: key, Message: err.Error(), Pos: v.Pos()}
	}
	return &ref, nil
}

// parseEnum parses the underlying type and members of an enum.
func (c *declCompiler) parseEnum(d *ir.Declaration, v cue.Value) error {
	var err error
	if d.Underlying, err = underlyingType(v, d, "int32"); err != nil {
		return err
	}
	if d.Flags, err = optionalBool(v, "flags"); err != nil {
		return err
	}

	membersVal := v.LookupPath(cue.MakePath(cue.Str("members")))
	if !membersVal.Exists() {
		return &CompileError{
			Field:   fieldPath(d.Kind, d.ShortName(), "members"),
			Message: "enums require at least one member",
			Pos:     v.Pos(),
		}
	}
	iter, err := membersVal.List()
	if err != nil {
		return formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		item := iter.Value()
		path := fmt.Sprintf("%s[%d]", fieldPath(d.Kind, d.ShortName(), "members"), i)
		name, err := requiredString(item, "name", path+".name")
		if err != nil {
			return err
		}
		value, err := literal(item, "value", path+".value")
		if err != nil {
			return err
		}
		d.Members = append(d.Members, ir.EnumMember{Name: name, Value: value})
	}
	if len(d.Members) == 0 {
		return &CompileError{
			Field:   fieldPath(d.Kind, d.ShortName(), "members"),
			Message: "enums require at least one member",
			Pos:     membersVal.Pos(),
		}
	}
	return nil
}

// parseHandle parses the underlying type and release function of a handle.
func (c *declCompiler) parseHandle(d *ir.Declaration, v cue.Value, sc *scope) error {
	var err error
	if d.Underlying, err = underlyingType(v, d, "uintptr"); err != nil {
		return err
	}
	release, err := optionalString(v, "release")
	if err != nil {
		return err
	}
	if release != "" {
		d.Release = c.qualify(release, sc)
	}
	return nil
}

// parseInterface parses the GUID, base and vtable methods of an interface.
func (c *declCompiler) parseInterface(d *ir.Declaration, v cue.Value, sc *scope) error {
	var err error
	if d.GUID, err = optionalString(v, "guid"); err != nil {
		return err
	}
	base, err := optionalString(v, "base")
	if err != nil {
		return err
	}
	if base != "" {
		d.Base = c.qualify(base, sc)
	}

	methodsVal := v.LookupPath(cue.MakePath(cue.Str("methods")))
	if !methodsVal.Exists() {
		return nil
	}
	iter, err := methodsVal.List()
	if err != nil {
		return formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		item := iter.Value()
		path := fmt.Sprintf("%s[%d]", fieldPath(d.Kind, d.ShortName(), "methods"), i)
		name, err := requiredString(item, "name", path+".name")
		if err != nil {
			return err
		}
		m := ir.InterfaceMethod{Name: name}
		if m.Params, err = c.parseParams(item, sc, path+".params"); err != nil {
			return err
		}
		if m.Return, err = c.parseOptionalType(item, "return", sc); err != nil {
			return err
		}
		d.Methods = append(d.Methods, m)
	}
	return nil
}

// parseConstant parses the type and literal value of a constant.
func (c *declCompiler) parseConstant(d *ir.Declaration, v cue.Value, sc *scope) error {
	typeStr, err := requiredString(v, "type", fieldPath(d.Kind, d.ShortName(), "type"))
	if err != nil {
		return err
	}
	ref, err := c.parseType(typeStr, sc)
	if err != nil {
		return &CompileError{Field: fieldPath(d.Kind, d.ShortName(), "type"), Message: err.Error(), Pos: v.Pos()}
	}
	d.Type = &ref
	d.Value, err = literal(v, "value", fieldPath(d.Kind, d.ShortName(), "value"))
	return err
}

// parseType parses a type string of the form "[N]**Name".
func (c *declCompiler) parseType(s string, sc *scope) (ir.TypeRef, error) {
	var ref ir.TypeRef
	rest := strings.TrimSpace(s)

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return ref, fmt.Errorf("invalid array type %q", s)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil || n <= 0 {
			return ref, fmt.Errorf("invalid array length in %q", s)
		}
		ref.Array = n
		rest = rest[end+1:]
	}
	for strings.HasPrefix(rest, "*") {
		ref.Pointer++
		rest = rest[1:]
	}
	if rest == "" {
		return ref, fmt.Errorf("missing type name in %q", s)
	}
	for _, seg := range strings.Split(rest, ".") {
		if !isIdentifier(seg) {
			return ref, fmt.Errorf("invalid type name %q", rest)
		}
	}
	if rest == "void" && ref.Pointer == 0 && ref.Array > 0 {
		return ref, fmt.Errorf("array of void in %q", s)
	}

	ref.Name = c.qualify(rest, sc)
	return ref, nil
}

// qualify turns an unqualified declaration name into a fully-qualified one.
// Names declared in the enclosing nested scope win over the namespace.
func (c *declCompiler) qualify(name string, sc *scope) string {
	if ir.IsPrimitive(name) || ir.IsQualified(name) {
		return name
	}
	if sc != nil && sc.nested[name] {
		return sc.parent + "." + name
	}
	return ir.Qualify(c.namespace, name)
}

func underlyingType(v cue.Value, d *ir.Declaration, def string) (string, error) {
	u, err := optionalString(v, "underlying")
	if err != nil {
		return "", err
	}
	if u == "" {
		return def, nil
	}
	if !ir.IsPrimitive(u) || u == "void" || u == "bool" || u == "float32" || u == "float64" {
		return "", &CompileError{
			Field:   fieldPath(d.Kind, d.ShortName(), "underlying"),
			Message: fmt.Sprintf("underlying type must be an integer primitive, got %q", u),
			Pos:     v.Pos(),
		}
	}
	return u, nil
}

// literal reads a Go literal from a string or integer field.
func literal(v cue.Value, key, path string) (string, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(key)))
	if !f.Exists() {
		return "", &CompileError{Field: path, Message: "value is required", Pos: v.Pos()}
	}
	switch f.IncompleteKind() {
	case cue.StringKind:
		s, err := f.String()
		if err != nil {
			return "", formatCUEError(err)
		}
		return s, nil
	case cue.IntKind:
		n, err := f.Int64()
		if err != nil {
			return "", formatCUEError(err)
		}
		return strconv.FormatInt(n, 10), nil
	default:
		return "", &CompileError{
			Field:   path,
			Message: fmt.Sprintf("value must be a string or int, got %v", f.IncompleteKind()),
			Pos:     f.Pos(),
		}
	}
}

func requiredString(v cue.Value, key, path string) (string, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(key)))
	if !f.Exists() {
		return "", &CompileError{Field: path, Message: key + " is required", Pos: v.Pos()}
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if strings.TrimSpace(s) == "" {
		return "", &CompileError{Field: path, Message: key + " must be non-empty", Pos: f.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, key string) (string, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(key)))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, key string) (bool, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(key)))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// label returns the unquoted field name at the iterator position.
func label(iter *cue.Iterator) string {
	sel := iter.Selector()
	if sel.IsString() {
		return sel.Unquoted()
	}
	return sel.String()
}

func fieldPath(kind ir.Kind, name, field string) string {
	return fmt.Sprintf("%s.%s.%s", kind, name, field)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
