// Package router implements the table handler: a per-table cache of the
// partition-to-replica map, routing of operations against it, and the
// refresh/retry state machine that keeps a table usable across replica
// moves and meta elections. It is grounded on the teacher's
// rpc/transport/base client pool for the "route to a target, retry
// against a fresh one on failure" shape, generalized here from a flat
// round-robin pool to partition-aware routing backed by meta-sourced
// configuration.
package router
