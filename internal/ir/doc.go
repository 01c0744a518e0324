// Package ir provides the declaration model shared by every bindgen stage.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Declarations are immutable once loaded from a metadata store
//   - Every declaration has a globally unique fully-qualified name
//   - References only name declarations, never primitive types
//   - All JSON tags use snake_case
package ir
