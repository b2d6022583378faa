package router

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/distkv-io/partikv/internal/address"
	"github.com/distkv-io/partikv/internal/errkind"
	"github.com/distkv-io/partikv/internal/logging"
	"github.com/distkv-io/partikv/internal/meta"
	"github.com/distkv-io/partikv/internal/operator"
	"github.com/distkv-io/partikv/internal/pool"
	"github.com/distkv-io/partikv/internal/wire"
	"github.com/distkv-io/partikv/metrics"
)

const defaultMinRefreshInterval = 5 * time.Second

type leveledLogger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Handler is the table handler for one table: it owns the table's
// routing snapshot, coalesces refreshes against the meta cluster, and
// drives an Operator through route/send/retry/refresh until it
// completes or times out.
type Handler struct {
	name string
	log  leveledLogger

	metaSess *meta.Session
	pool     *pool.Pool
	reporter *metrics.Reporter

	routing atomic.Pointer[TableRouting]

	refreshMu          sync.Mutex
	refreshing         bool
	lastRefresh        time.Time
	minRefreshInterval time.Duration
}

// Option configures a Handler at construction.
type Option func(*Handler)

// WithMinRefreshInterval overrides the default 5s floor between
// consecutive meta refreshes for this table.
func WithMinRefreshInterval(d time.Duration) Option {
	return func(h *Handler) { h.minRefreshInterval = d }
}

// WithReporter attaches a metrics.Reporter so every Execute call is
// counted and timed. A Handler with no reporter attached records nothing.
func WithReporter(r *metrics.Reporter) Option {
	return func(h *Handler) { h.reporter = r }
}

// New creates a Handler for tableName. Open must be called before Route
// or Execute will find any partitions.
func New(tableName string, metaSess *meta.Session, p *pool.Pool, opts ...Option) *Handler {
	h := &Handler{
		name:               tableName,
		log:                logging.Get("partikv/table"),
		metaSess:           metaSess,
		pool:               p,
		minRefreshInterval: defaultMinRefreshInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns the table name this handler was opened against.
func (h *Handler) Name() string { return h.name }

// Open synchronously resolves the table's current partition map and
// caches it. It fails with Kind::TableNotFound, Kind::MetaUnreachable, or
// whatever QueryConfig's deadline produced.
func (h *Handler) Open(deadline time.Time) error {
	cfg, err := h.metaSess.QueryConfig(h.name, deadline)
	if err != nil {
		return err
	}
	h.routing.Store(newTableRouting(cfg))
	h.refreshMu.Lock()
	h.lastRefresh = time.Now()
	h.refreshMu.Unlock()
	return nil
}

// Route computes the partition a (hashKey, sortKey) pair belongs to and
// returns its gpid and current primary endpoint. ok is false when the
// routing table has no usable primary yet, in which case the caller
// should trigger a refresh and retry after a delay.
func (h *Handler) Route(hashKey, sortKey []byte) (gpid wire.GpidWire, ep address.Endpoint, ok bool, err error) {
	snapshot := h.routing.Load()
	routingKey := address.RoutingKey(hashKey, sortKey)
	pc, found, err := snapshot.partitionFor(routingKey)
	if err != nil {
		return wire.GpidWire{}, address.Endpoint{}, false, err
	}
	if !found || !pc.Primary.IsValid() {
		return wire.GpidWire{}, address.Endpoint{}, false, nil
	}
	return toGpidWire(pc.Gpid), pc.Primary, true, nil
}

// TriggerRefresh requests a fresh partition map from the meta cluster.
// At most one refresh is ever in flight for a table; concurrent callers
// coalesce onto it, and a refresh that completed within the last
// minRefreshInterval is skipped entirely.
func (h *Handler) TriggerRefresh() {
	h.refreshMu.Lock()
	if h.refreshing || time.Since(h.lastRefresh) < h.minRefreshInterval {
		h.refreshMu.Unlock()
		return
	}
	h.refreshing = true
	h.refreshMu.Unlock()

	go h.doRefresh()
}

func (h *Handler) doRefresh() {
	defer func() {
		h.refreshMu.Lock()
		h.refreshing = false
		h.lastRefresh = time.Now()
		h.refreshMu.Unlock()
	}()

	cfg, err := h.metaSess.QueryConfig(h.name, time.Now().Add(operator.DefaultTimeout))
	if err != nil {
		h.log.Warningf("refresh of table %s failed: %v", h.name, err)
		return
	}
	h.routing.Store(newTableRouting(cfg))
	h.log.Debugf("table %s routing refreshed", h.name)
}

// Execute drives op through route → send → classify → retry/refresh
// until it completes, times out, or hits a terminal server error.
func (h *Handler) Execute(op *operator.Operator) {
	if h.reporter != nil {
		h.reporter.IncrRequests(op.OpCode.String())
	}
	h.attempt(op)
}

// complete records the operation's outcome, if a reporter is attached,
// and delivers it to the caller. Every path that finishes an Operator
// funnels through here so latency and error counts cover every op, not
// just the happy path.
func (h *Handler) complete(op *operator.Operator, body []byte, err error) {
	if h.reporter != nil {
		h.reporter.ObserveLatency(op.OpCode.String(), time.Since(op.Started))
		if err != nil {
			h.reporter.IncrErrors(op.OpCode.String(), errKindString(err))
		}
	}
	op.Complete(body, err)
}

func errKindString(err error) string {
	if e, ok := err.(*errkind.Error); ok {
		return e.Kind.String()
	}
	return "unknown"
}

func (h *Handler) attempt(op *operator.Operator) {
	if len(op.HashKey) == 0 {
		h.complete(op, nil, errkind.New(errkind.InvalidArgument))
		return
	}
	if time.Now().After(op.Deadline) {
		h.complete(op, nil, errkind.New(errkind.Timeout))
		return
	}

	gpid, ep, ok, err := h.Route(op.HashKey, op.SortKey)
	if err != nil {
		h.complete(op, nil, err)
		return
	}
	if !ok {
		h.TriggerRefresh()
		h.retryAfter(op, op.RetryDelay())
		return
	}
	op.Gpid = gpid

	remaining := time.Until(op.Deadline)
	if remaining <= 0 {
		h.complete(op, nil, errkind.New(errkind.Timeout))
		return
	}
	sendDeadline := op.Deadline
	if op.OperationTimeout < remaining {
		sendDeadline = time.Now().Add(op.OperationTimeout)
	}

	sess := h.pool.Get(ep)
	sess.Send(op.OpCode, gpid, op.Body, sendDeadline, func(frame wire.Frame, err error) {
		h.onResponse(op, frame, err)
	})
}

func (h *Handler) onResponse(op *operator.Operator, frame wire.Frame, err error) {
	if err != nil {
		// A request that reached its deadline without a response is a
		// timeout, not a transport failure.
		if errkind.Matches(err, errkind.Timeout) {
			h.backoffAndRetry(op, errkind.Timeout)
			return
		}
		h.TriggerRefresh()
		h.backoffAndRetry(op, errkind.ReplicaUnreachable)
		return
	}

	code := frame.Meta.Error
	switch {
	case code == wire.ErrOK:
		h.complete(op, frame.Body, nil)
	case code.TriggersRefresh():
		h.TriggerRefresh()
		h.backoffAndRetry(op, errkind.Timeout)
	case code.IsRetryable():
		h.backoffAndRetry(op, errkind.Timeout)
	default:
		h.complete(op, nil, errkind.ServerCode(int32(code)))
	}
}

// backoffAndRetry schedules another attempt, or gives up with giveUpKind
// if the deadline won't allow one: ReplicaUnreachable when the transport
// itself kept failing, Timeout when the server kept asking for a retry or
// a request got no response before its deadline.
func (h *Handler) backoffAndRetry(op *operator.Operator, giveUpKind errkind.Kind) {
	if op.NoRetry {
		h.complete(op, nil, errkind.New(errkind.ServerError))
		return
	}
	delay := op.RetryDelay()
	if time.Now().Add(delay).After(op.Deadline) {
		h.complete(op, nil, errkind.New(giveUpKind))
		return
	}
	h.retryAfter(op, delay)
}

func (h *Handler) retryAfter(op *operator.Operator, delay time.Duration) {
	op.Attempt++
	time.AfterFunc(delay, func() {
		h.attempt(op)
	})
}
