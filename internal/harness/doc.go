// Package harness runs end-to-end generation scenarios.
//
// A scenario names metadata directories, requests and options, runs the
// whole pipeline (resolve, partition, emit) into memory and evaluates
// assertions against the result. Golden snapshots cover the emitted files.
//
// # Scenario Format
//
//	name: console_wildcard
//	description: "Wildcard over a namespace pulls in its dependencies"
//	metadata:
//	  - ../../../../testdata/metadata
//	requests:
//	  - Win32.System.Console.*
//	options:
//	  wide_char_only: true
//	  docs: bundled
//	  store: sqlite
//	  partition:
//	    mode: namespace
//	assertions:
//	  - type: resolved_contains
//	    names: [Win32.Foundation.CloseHandle]
//	  - type: request_failed
//	    request: Nope
//
// Metadata paths are relative to the scenario file.
//
// # Assertion Types
//
//   - resolved_contains: every name is in the closure
//   - resolved_excludes: no name is in the closure
//   - resolved_order: names appear in the closure in this relative order
//   - resolved_count: the closure has exactly count declarations
//   - request_failed: the request matched nothing
//   - unit_contains: the unit holds every name
//   - unit_count: exactly count units were produced
//   - file_contains: the emitted file contains text
//
// # Deterministic Testing
//
// Runs use a fixed run id and an in-memory sink, so two runs of the same
// scenario produce identical results and golden snapshots.
package harness
