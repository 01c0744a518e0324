package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/bindgen/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestMethod creates a method declaration with computed refs.
func createTestMethod(ns, name string, extern bool, params ...ir.Param) ir.Declaration {
	d := ir.Declaration{
		Name:      ir.Qualify(ns, name),
		Namespace: ns,
		Kind:      ir.KindMethod,
		DLL:       "kernel32",
		Extern:    extern,
		Params:    params,
	}
	d.Refs = ir.CollectRefs(&d)
	return d
}

// createTestStruct creates a struct declaration with computed refs.
func createTestStruct(ns, name string, fields ...ir.Field) ir.Declaration {
	d := ir.Declaration{
		Name:      ir.Qualify(ns, name),
		Namespace: ns,
		Kind:      ir.KindStruct,
		Fields:    fields,
	}
	d.Refs = ir.CollectRefs(&d)
	return d
}
