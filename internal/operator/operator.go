// Package operator defines the small value object carried between the
// table handler, the session layer, and the retry path for a single user
// call: everything needed to route, send, retry, and eventually complete
// one request, re-used across attempts rather than rebuilt each time.
package operator

import (
	"time"

	"github.com/distkv-io/partikv/internal/wire"
)

// DefaultTimeout is used when a caller supplies a non-positive timeout.
const DefaultTimeout = 3 * time.Second

// Completion is invoked exactly once with either a successful response
// body or a terminal error.
type Completion func(body []byte, err error)

// Operator carries one user request across however many attempts it
// takes to complete. A single instance is re-routed on every retry; its
// sequence id in the Session is reassigned per attempt, not held here.
type Operator struct {
	OpCode  wire.OpCode
	HashKey []byte
	SortKey []byte
	Body    []byte

	Gpid wire.GpidWire

	Deadline         time.Time
	OperationTimeout time.Duration
	Attempt          int
	Started          time.Time

	// NoRetry marks operations the caller wants failed immediately instead
	// of retried, e.g. a caller doing its own retry bookkeeping.
	NoRetry bool

	Complete Completion
}

// New builds an Operator with its deadline derived from timeout (or
// DefaultTimeout when timeout is non-positive).
func New(opCode wire.OpCode, hashKey, sortKey, body []byte, timeout time.Duration, complete Completion) *Operator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	now := time.Now()
	return &Operator{
		OpCode:           opCode,
		HashKey:          hashKey,
		SortKey:          sortKey,
		Body:             body,
		OperationTimeout: timeout,
		Deadline:         now.Add(timeout),
		Started:          now,
		Complete:         complete,
	}
}

// RetryDelay is the backoff used between attempts, per the table
// handler's retry/backoff/refresh loop.
func (o *Operator) RetryDelay() time.Duration {
	d := o.OperationTimeout / 3
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
