// Package emitter prints groups of declarations as Go source files.
//
// Output follows the golang.org/x/sys/windows conventions: extern methods
// become //sys directives for mkwinsyscall, structs and unions become
// struct types, enums and handles become named integer types, and COM
// interfaces become a vtable struct plus an IID constant.
//
// Identifiers are assigned once per run by a Namer so that every unit
// spells a cross-unit reference the same way. Documentation from a
// docs.Overlay only ever adds comment lines.
package emitter
