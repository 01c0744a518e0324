package compiler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/bindgen/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrInvalidKind       = "E101" // unknown declaration kind
	ErrInvalidName       = "E102" // name does not match namespace/parent
	ErrDuplicateName     = "E103" // duplicate fully-qualified name
	ErrBrokenReference   = "E104" // reference to an undeclared name
	ErrMissingDLL        = "E105" // extern method without a dll
	ErrInvalidUnderlying = "E106" // enum/handle underlying is not an integer primitive
	ErrInvalidRelease    = "E107" // handle release does not name a method
	ErrInvalidGUID       = "E108" // malformed interface GUID
	ErrInvalidBase       = "E109" // interface base is not an interface
	ErrStaleRefs         = "E110" // refs do not match the payload
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Name    string `json:"name"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Name, e.Field, e.Message)
}

// Validate checks a compiled declaration set for internal consistency.
// Returns all errors found (does not fail-fast), ordered by declaration name.
func Validate(decls []ir.Declaration) []ValidationError {
	errs := []ValidationError{}

	byName := make(map[string]*ir.Declaration, len(decls))
	for i := range decls {
		d := &decls[i]
		if _, dup := byName[d.Name]; dup {
			errs = append(errs, ValidationError{
				Name:    d.Name,
				Field:   "name",
				Message: "duplicate declaration name",
				Code:    ErrDuplicateName,
			})
			continue
		}
		byName[d.Name] = d
	}

	for i := range decls {
		errs = append(errs, validateDeclaration(&decls[i], byName)...)
	}

	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Name < errs[j].Name
	})
	return errs
}

func validateDeclaration(d *ir.Declaration, byName map[string]*ir.Declaration) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Name:    d.Name,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	// E101: kind
	if !ir.ValidKinds[d.Kind] {
		add("kind", ErrInvalidKind, "unknown kind %q", d.Kind)
	}

	// E102: name must sit under its namespace or parent
	owner := d.Namespace
	if d.IsNested() {
		owner = d.Parent
		if p, ok := byName[d.Parent]; ok && p.Namespace != d.Namespace {
			add("namespace", ErrInvalidName, "nested declaration namespace %q differs from parent namespace %q", d.Namespace, p.Namespace)
		}
	}
	if owner == "" || d.Name != owner+"."+d.ShortName() || d.ShortName() == "" {
		add("name", ErrInvalidName, "name must be %q followed by a short name", owner+".")
	}

	// E104: every reference must resolve
	for _, ref := range d.Refs {
		if _, ok := byName[ref]; !ok {
			add("refs", ErrBrokenReference, "reference to undeclared name %q", ref)
		}
	}

	// E110: refs must cover the payload
	for _, ref := range ir.CollectRefs(d) {
		if !containsString(d.Refs, ref) {
			add("refs", ErrStaleRefs, "payload references %q but refs do not", ref)
		}
	}

	switch d.Kind {
	case ir.KindMethod:
		// E105
		if d.Extern && strings.TrimSpace(d.DLL) == "" {
			add("dll", ErrMissingDLL, "extern method requires a dll")
		}
	case ir.KindEnum:
		// E106
		if !isIntegerPrimitive(d.Underlying) {
			add("underlying", ErrInvalidUnderlying, "underlying type %q is not an integer primitive", d.Underlying)
		}
	case ir.KindHandle:
		// E106
		if !isIntegerPrimitive(d.Underlying) {
			add("underlying", ErrInvalidUnderlying, "underlying type %q is not an integer primitive", d.Underlying)
		}
		// E107
		if d.Release != "" {
			if r, ok := byName[d.Release]; ok && r.Kind != ir.KindMethod {
				add("release", ErrInvalidRelease, "release %q is a %s, not a method", d.Release, r.Kind)
			}
		}
	case ir.KindInterface:
		// E108
		if d.GUID != "" && !guidPattern.MatchString(d.GUID) {
			add("guid", ErrInvalidGUID, "malformed GUID %q", d.GUID)
		}
		// E109
		if d.Base != "" {
			if b, ok := byName[d.Base]; ok && b.Kind != ir.KindInterface {
				add("base", ErrInvalidBase, "base %q is a %s, not an interface", d.Base, b.Kind)
			}
		}
	}

	return errs
}

// guidPattern matches the registry form without braces.
var guidPattern = regexp.MustCompile(`^[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}$`)

func isIntegerPrimitive(t string) bool {
	switch t {
	case "int8", "uint8", "byte", "int16", "uint16", "int32", "uint32", "int64", "uint64", "uintptr":
		return true
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
