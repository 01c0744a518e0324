// Package metadata defines the read-only contract every metadata store
// satisfies, plus an in-memory index and a caching front.
//
// A Source is queried by exact name and by namespace-prefix enumeration.
// Names containing a dot are fully qualified and matched exactly; names
// without a dot are short names matched against the last segment of the
// fully-qualified name, and the lexicographically smallest match wins.
//
// Sources are read-only for the duration of a generation run, which is
// what makes concurrent lookups safe without locking.
package metadata

import (
	"context"

	"github.com/roach88/bindgen/internal/ir"
)

// Source is the metadata store contract.
//
// Lookups return ok=false (and a nil error) when nothing matches; errors
// are reserved for store failures.
type Source interface {
	// FindMethod looks up a method declaration.
	FindMethod(ctx context.Context, name string) (ir.Declaration, bool, error)

	// FindType looks up any non-method declaration.
	FindType(ctx context.Context, name string) (ir.Declaration, bool, error)

	// EnumerateExternMethods returns every extern method whose namespace
	// lies under prefix, ordered by fully-qualified name.
	EnumerateExternMethods(ctx context.Context, prefix string) ([]ir.Declaration, error)
}
