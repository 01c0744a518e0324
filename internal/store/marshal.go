package store

import (
	"fmt"

	"github.com/roach88/bindgen/internal/ir"
)

// marshalDeclaration converts a declaration to its canonical JSON TEXT and
// content hash for storage.
func marshalDeclaration(d *ir.Declaration) (payload string, hash string, err error) {
	data, err := ir.MarshalCanonical(d)
	if err != nil {
		return "", "", fmt.Errorf("marshal declaration: %w", err)
	}
	hash, err = ir.DeclarationHash(d)
	if err != nil {
		return "", "", fmt.Errorf("marshal declaration: %w", err)
	}
	return string(data), hash, nil
}

// unmarshalDeclaration parses canonical JSON TEXT back into a declaration.
func unmarshalDeclaration(payload string) (ir.Declaration, error) {
	d, err := ir.UnmarshalCanonical([]byte(payload))
	if err != nil {
		return ir.Declaration{}, fmt.Errorf("unmarshal declaration: %w", err)
	}
	return d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
