package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON form of a declaration.
// This is the ONLY serialization used for content hashing and for the
// payload column of the SQLite store.
//
// Differences from a plain json.Marshal:
//  1. All strings are NFC normalized
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Nil slices are emitted as empty arrays for refs
//  4. No trailing newline
func MarshalCanonical(d *Declaration) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	}
	n := normalizeDeclaration(d)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("marshal declaration %s: %w", d.Name, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// UnmarshalCanonical parses a payload written by MarshalCanonical.
func UnmarshalCanonical(data []byte) (Declaration, error) {
	var d Declaration
	if err := json.Unmarshal(data, &d); err != nil {
		return Declaration{}, fmt.Errorf("unmarshal declaration: %w", err)
	}
	if d.Refs == nil {
		d.Refs = []string{}
	}
	return d, nil
}

// normalizeDeclaration returns a deep copy of d with NFC-normalized strings.
func normalizeDeclaration(d *Declaration) *Declaration {
	s := norm.NFC.String
	n := &Declaration{
		Name:         s(d.Name),
		Namespace:    s(d.Namespace),
		Kind:         Kind(s(string(d.Kind))),
		Parent:       s(d.Parent),
		DLL:          s(d.DLL),
		Extern:       d.Extern,
		SetLastError: d.SetLastError,
		Return:       normalizeTypeRef(d.Return),
		Underlying:   s(d.Underlying),
		Flags:        d.Flags,
		Release:      s(d.Release),
		GUID:         s(d.GUID),
		Base:         s(d.Base),
		Type:         normalizeTypeRef(d.Type),
		Value:        s(d.Value),
	}

	n.Refs = make([]string, len(d.Refs))
	for i, r := range d.Refs {
		n.Refs[i] = s(r)
	}
	n.Params = normalizeParams(d.Params)
	for _, f := range d.Fields {
		n.Fields = append(n.Fields, Field{Name: s(f.Name), Type: *normalizeTypeRef(&f.Type)})
	}
	for _, m := range d.Members {
		n.Members = append(n.Members, EnumMember{Name: s(m.Name), Value: s(m.Value)})
	}
	for _, m := range d.Methods {
		n.Methods = append(n.Methods, InterfaceMethod{
			Name:   s(m.Name),
			Params: normalizeParams(m.Params),
			Return: normalizeTypeRef(m.Return),
		})
	}
	return n
}

func normalizeParams(params []Param) []Param {
	var out []Param
	for _, p := range params {
		out = append(out, Param{Name: norm.NFC.String(p.Name), Type: *normalizeTypeRef(&p.Type)})
	}
	return out
}

func normalizeTypeRef(t *TypeRef) *TypeRef {
	if t == nil {
		return nil
	}
	return &TypeRef{Name: norm.NFC.String(t.Name), Pointer: t.Pointer, Array: t.Array}
}
