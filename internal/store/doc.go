// Package store provides a SQLite-backed metadata index for bindgen.
//
// The store persists compiled declarations so that generation runs do not
// need to recompile the CUE metadata sources:
//   - declarations: one row per fully-qualified name, with the canonical
//     JSON payload and its content hash
//   - refs: the referenced-names list of every declaration, in order
//
// # Critical Patterns
//
// Idempotent imports
//   - Writing a declaration whose name and hash already exist is a no-op
//   - Writing a different payload under an existing name is a ConflictError
//
// Deterministic query results
//   - All multi-row queries MUST include: ORDER BY name COLLATE BINARY
//   - Ensures identical enumeration order across runs
//
// Read-only generation
//   - OpenReadOnly opens the file with mode=ro and query_only=ON
//   - A generation run never mutates the metadata it reads
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Store satisfies metadata.Source.
package store
