// Package generator emits partitioned output units in parallel.
//
// EmitAll runs one task per unit on a bounded errgroup. Each task builds
// the unit's docs overlay, prints it through a Printer and streams the
// bytes into a Sink. Tasks share only read-only inputs, so no locking is
// needed beyond the report slots each task owns.
//
// Failures stay local to their unit: an I/O error on one unit never
// cancels its siblings. Cancellation is observed before each dispatch and
// at three checkpoints inside a unit (before printing, before writing,
// before commit). Units already committed are never rolled back.
package generator
