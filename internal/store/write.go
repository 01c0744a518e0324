package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bindgen/internal/ir"
)

// ErrReadOnly is returned by write methods on a store opened with OpenReadOnly.
var ErrReadOnly = errors.New("store is read-only")

// ConflictError reports an attempt to redefine an existing declaration with
// a different payload.
type ConflictError struct {
	Name         string
	ExistingHash string
	NewHash      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("declaration %s already exists with different content (hash %s, new %s)",
		e.Name, shortHash(e.ExistingHash), shortHash(e.NewHash))
}

// WriteStats summarizes a batch write.
type WriteStats struct {
	Inserted  int `json:"inserted"`
	Unchanged int `json:"unchanged"`
}

// WriteDeclaration inserts a single declaration and its references.
// Returns inserted=false when an identical declaration already exists.
func (s *Store) WriteDeclaration(ctx context.Context, d ir.Declaration) (inserted bool, err error) {
	stats, err := s.WriteDeclarations(ctx, []ir.Declaration{d})
	if err != nil {
		return false, err
	}
	return stats.Inserted == 1, nil
}

// WriteDeclarations inserts a batch of declarations in one transaction.
// Either every declaration is written or none is.
//
// Identical re-imports are silently skipped (idempotent); a changed payload
// under an existing name aborts the batch with a ConflictError.
func (s *Store) WriteDeclarations(ctx context.Context, decls []ir.Declaration) (WriteStats, error) {
	var stats WriteStats
	if s.readOnly {
		return stats, ErrReadOnly
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("write declarations: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for i := range decls {
		inserted, err := writeDeclarationTx(ctx, tx, &decls[i])
		if err != nil {
			return WriteStats{}, err
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Unchanged++
		}
	}

	if err := tx.Commit(); err != nil {
		return WriteStats{}, fmt.Errorf("write declarations: commit: %w", err)
	}
	return stats, nil
}

func writeDeclarationTx(ctx context.Context, tx *sql.Tx, d *ir.Declaration) (bool, error) {
	payload, hash, err := marshalDeclaration(d)
	if err != nil {
		return false, fmt.Errorf("write declaration %s: %w", d.Name, err)
	}

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT hash FROM declarations WHERE name = ?`, d.Name).Scan(&existing)
	switch {
	case err == nil:
		if existing == hash {
			return false, nil
		}
		return false, &ConflictError{Name: d.Name, ExistingHash: existing, NewHash: hash}
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("write declaration %s: select existing: %w", d.Name, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO declarations
		(name, short_name, namespace, kind, is_method, extern, hash, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.Name,
		ir.ShortName(d.Name),
		d.Namespace,
		string(d.Kind),
		boolToInt(!d.Kind.IsType()),
		boolToInt(d.Extern),
		hash,
		payload,
	)
	if err != nil {
		return false, fmt.Errorf("write declaration %s: insert: %w", d.Name, err)
	}

	for i, ref := range d.Refs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO refs (from_name, to_name, ordinal)
			VALUES (?, ?, ?)
		`, d.Name, ref, i); err != nil {
			return false, fmt.Errorf("write declaration %s: insert ref %s: %w", d.Name, ref, err)
		}
	}

	return true, nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
