// Package resolver computes the dependency closure of a set of requests.
//
// Resolution is a single-threaded breadth-first traversal over the
// declaration graph held by a metadata.Source:
//
//  1. Requests are seeded into a FIFO work queue in request order. Exact
//     names try the method index first, then the type index. Wildcards
//     enumerate extern methods under a namespace prefix in name order.
//  2. Each dequeued declaration not already in the Set is inserted, then
//     its referenced names that are neither in the Set nor queued are
//     sorted and enqueued.
//  3. A referenced name the source does not know is BrokenMetadata and
//     aborts the whole resolution.
//
// The resulting discovery order (first discovery, lexicographic among names
// found in the same step) is what keeps emitted units byte-reproducible.
//
// Cancellation is checked once per request while seeding and once per
// dequeued item. A cancelled resolution returns no Set.
package resolver
