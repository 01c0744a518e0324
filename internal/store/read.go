package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bindgen/internal/ir"
)

// FindMethod implements metadata.Source.
//
// Qualified names match exactly; short names match the last segment and
// resolve to the lexicographically smallest fully-qualified name.
func (s *Store) FindMethod(ctx context.Context, name string) (ir.Declaration, bool, error) {
	return s.find(ctx, true, name)
}

// FindType implements metadata.Source.
func (s *Store) FindType(ctx context.Context, name string) (ir.Declaration, bool, error) {
	return s.find(ctx, false, name)
}

func (s *Store) find(ctx context.Context, isMethod bool, name string) (ir.Declaration, bool, error) {
	var row *sql.Row
	if ir.IsQualified(name) {
		row = s.db.QueryRowContext(ctx, `
			SELECT payload FROM declarations
			WHERE is_method = ? AND name = ?
		`, boolToInt(isMethod), name)
	} else {
		row = s.db.QueryRowContext(ctx, `
			SELECT payload FROM declarations
			WHERE is_method = ? AND short_name = ?
			ORDER BY name COLLATE BINARY ASC
			LIMIT 1
		`, boolToInt(isMethod), name)
	}

	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Declaration{}, false, nil
		}
		return ir.Declaration{}, false, fmt.Errorf("find %q: %w", name, err)
	}

	d, err := unmarshalDeclaration(payload)
	if err != nil {
		return ir.Declaration{}, false, fmt.Errorf("find %q: %w", name, err)
	}
	return d, true, nil
}

// EnumerateExternMethods implements metadata.Source.
// Matching is segment aware; substr is used instead of LIKE because LIKE is
// case-insensitive for ASCII in SQLite.
func (s *Store) EnumerateExternMethods(ctx context.Context, prefix string) ([]ir.Declaration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM declarations
		WHERE is_method = 1 AND extern = 1
		  AND (?1 = '' OR namespace = ?1 OR substr(namespace, 1, length(?2)) = ?2)
		ORDER BY name COLLATE BINARY ASC
	`, prefix, prefix+".")
	if err != nil {
		return nil, fmt.Errorf("query extern methods: %w", err)
	}
	defer rows.Close()

	return scanDeclarations(rows)
}

// ReadAll returns every stored declaration ordered by name.
func (s *Store) ReadAll(ctx context.Context) ([]ir.Declaration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM declarations
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query declarations: %w", err)
	}
	defer rows.Close()

	return scanDeclarations(rows)
}

// Count returns the number of stored declarations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM declarations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count declarations: %w", err)
	}
	return n, nil
}

// Dependents returns the names of declarations that reference name.
func (s *Store) Dependents(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT from_name FROM refs
		WHERE to_name = ?
		ORDER BY from_name COLLATE BINARY ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query dependents: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan dependent: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependents: %w", err)
	}
	return names, nil
}

// BrokenRef is a reference to a name that has no declaration.
type BrokenRef struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// BrokenRefs returns every reference whose target is missing.
func (s *Store) BrokenRefs(ctx context.Context) ([]BrokenRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.from_name, r.to_name
		FROM refs r
		LEFT JOIN declarations d ON d.name = r.to_name
		WHERE d.name IS NULL
		ORDER BY r.from_name COLLATE BINARY ASC, r.ordinal ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query broken refs: %w", err)
	}
	defer rows.Close()

	broken := []BrokenRef{}
	for rows.Next() {
		var b BrokenRef
		if err := rows.Scan(&b.From, &b.To); err != nil {
			return nil, fmt.Errorf("scan broken ref: %w", err)
		}
		broken = append(broken, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate broken refs: %w", err)
	}
	return broken, nil
}

// scanDeclarations reads payload rows. Returns an empty slice (not nil)
// when there are no rows.
func scanDeclarations(rows *sql.Rows) ([]ir.Declaration, error) {
	decls := []ir.Declaration{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		d, err := unmarshalDeclaration(payload)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate declarations: %w", err)
	}
	return decls, nil
}
