// Package session manages one long-lived TCP connection to one endpoint:
// the pending-request table, the reconnect state machine, and the deadline
// heap that drives request timeouts. It generalizes the teacher's
// transport/base clientConnection (reconnect, serialized writes, a
// response reader goroutine correlating by request id) from a
// round-robin pool of interchangeable connections into exactly one
// connection per endpoint, addressed by sequence id instead of by
// shardID, and timed out by a heap instead of a per-request timer.
package session
