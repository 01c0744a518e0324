// Package partition groups a Resolution Set into output units.
//
// Partitioning is pure and total: every declaration lands in exactly one
// unit, declarations keep their discovery order within a unit, and units
// are returned sorted by name with collision-free file names.
//
// Policies:
//   - SingleUnit puts everything in one unit.
//   - PerNamespace makes one unit per declared namespace, optionally
//     truncated to its first Depth segments.
//   - RuleSet maps fully-qualified names to units with ordered glob rules
//     and delegates unmatched names to a fallback policy.
//
// Nested declarations always follow their enclosing declaration when it is
// part of the same set.
package partition
