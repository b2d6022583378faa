package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/distkv-io/partikv/internal/address"
	"github.com/distkv-io/partikv/internal/errkind"
	"github.com/distkv-io/partikv/internal/logging"
	"github.com/distkv-io/partikv/internal/wire"
)

// Completion is invoked exactly once per Send call, either with a decoded
// response frame or with a terminal error.
type Completion func(frame wire.Frame, err error)

const (
	defaultConnectTimeout    = 500 * time.Millisecond
	defaultBaseReconnectWait = 1 * time.Second
	defaultMaxReconnectWait  = 10 * time.Second
	pendingSendBufferSize    = 100
)

// pendingRequest is held by the session between enqueue and completion.
type pendingRequest struct {
	seqID      uint64
	opCode     wire.OpCode
	gpid       wire.GpidWire
	body       []byte
	deadline   time.Time
	traceID    uint64
	completion Completion
}

// Session owns one TCP connection to one remote endpoint.
type Session struct {
	endpoint  address.Endpoint
	log       leveledLogger
	keepAlive bool // meta sessions reconnect proactively; replica sessions reconnect lazily

	connectTimeout time.Duration
	baseDelay      time.Duration
	maxDelay       time.Duration

	state int32 // atomic State

	mu         sync.Mutex
	conn       net.Conn
	generation uint64
	closed     bool
	reconnectDelay time.Duration

	nextSeq uint64 // atomic

	pending *xsync.MapOf[uint64, *pendingRequest]

	hMu   sync.Mutex
	dq    *deadlineHeap
	timer *time.Timer

	sendBuf chan *pendingRequest

	closeOnce sync.Once
	closeCh   chan struct{}
}

// leveledLogger is the subset of dragonboat's logger.ILogger this package
// actually calls; declared locally so the field type doesn't force every
// caller to depend on the concrete logger package.
type leveledLogger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Option configures a Session at construction.
type Option func(*Session)

// KeepAlive marks the session as one that should reconnect proactively
// after any disconnect, not only when a new request arrives. Meta sessions
// set this; replica sessions leave it unset.
func KeepAlive() Option {
	return func(s *Session) { s.keepAlive = true }
}

// WithConnectTimeout overrides the default 500ms connect timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Session) { s.connectTimeout = d }
}

// New creates a Session for endpoint. The connection is not established
// until the first Send call.
func New(endpoint address.Endpoint, opts ...Option) *Session {
	s := &Session{
		endpoint:       endpoint,
		log:            logging.Get("partikv/session"),
		connectTimeout: defaultConnectTimeout,
		baseDelay:      defaultBaseReconnectWait,
		maxDelay:       defaultMaxReconnectWait,
		reconnectDelay: defaultBaseReconnectWait,
		pending:        xsync.NewMapOf[uint64, *pendingRequest](),
		dq:             newDeadlineHeap(),
		sendBuf:        make(chan *pendingRequest, pendingSendBufferSize),
		closeCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Endpoint returns the remote endpoint this session is pinned to.
func (s *Session) Endpoint() address.Endpoint { return s.endpoint }

// State returns the current connection lifecycle state.
func (s *Session) State() State {
	return State(atomic.LoadInt32(&s.state))
}

func (s *Session) setState(v State) {
	atomic.StoreInt32(&s.state, int32(v))
}

// Send enqueues a request. It never blocks: if the session isn't
// Connected, the request goes into a bounded pending-send buffer and is
// flushed in order once a connection is established; if that buffer is
// full, completion is invoked synchronously with an Overflow error.
func (s *Session) Send(opCode wire.OpCode, gpid wire.GpidWire, body []byte, deadline time.Time, completion Completion) {
	if completion == nil {
		completion = func(wire.Frame, error) {}
	}
	seq := atomic.AddUint64(&s.nextSeq, 1)
	pr := &pendingRequest{
		seqID:      seq,
		opCode:     opCode,
		gpid:       gpid,
		body:       body,
		deadline:   deadline,
		traceID:    wire.NewTraceID(),
		completion: completion,
	}

	if s.State() == Connected {
		s.registerPending(pr)
		if err := s.writeRequest(pr); err != nil {
			s.log.Warningf("write to %s failed: %v", s.endpoint, err)
			s.disconnectAll(errkind.Closed)
		}
		return
	}

	select {
	case s.sendBuf <- pr:
		s.registerPending(pr)
		s.triggerConnect()
	default:
		completion(wire.Frame{}, errkind.New(errkind.Overflow))
	}
}

// Close drains every pending request with a Closed error, tears down the
// socket, and makes the session permanently inert.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.setState(Closing)
		close(s.closeCh)

		s.mu.Lock()
		s.closed = true
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()

		s.hMu.Lock()
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.hMu.Unlock()

		s.drainAll(errkind.Closed)
		s.setState(Closed)
	})
}

// registerPending inserts pr into the pending table and arms its deadline.
func (s *Session) registerPending(pr *pendingRequest) {
	s.pending.Store(pr.seqID, pr)
	s.addDeadline(pr.seqID, pr.deadline)
}

// completeAndForget removes pr's bookkeeping and invokes its completion.
// Safe to call from any goroutine; guarantees exactly-once delivery by
// relying on the caller having already taken pr out of the pending map via
// LoadAndDelete.
func (s *Session) completeAndForget(pr *pendingRequest, frame wire.Frame, err error) {
	s.removeDeadline(pr.seqID)
	pr.completion(frame, err)
}

func (s *Session) writeRequest(pr *pendingRequest) error {
	timeoutMs := uint32(0)
	if d := time.Until(pr.deadline); d > 0 {
		timeoutMs = uint32(d.Milliseconds())
	}
	frame := wire.Frame{
		Meta: wire.Meta{
			OpCode:          pr.opCode,
			SeqID:           pr.seqID,
			Direction:       wire.Request,
			TraceID:         pr.traceID,
			ClientTimeoutMs: timeoutMs,
			Gpid:            pr.gpid,
		},
		Body: pr.body,
	}

	s.mu.Lock()
	conn := s.conn
	defer s.mu.Unlock()
	if conn == nil {
		return errClosedConn
	}
	return wire.WriteTo(conn, frame)
}

// triggerConnect starts a connect attempt if the session is currently
// Disconnected; a no-op otherwise (already connecting/connected/closing).
func (s *Session) triggerConnect() {
	if atomic.CompareAndSwapInt32(&s.state, int32(Disconnected), int32(Connecting)) {
		go s.connectLoop()
	}
}

func (s *Session) connectLoop() {
	for {
		conn, err := net.DialTimeout("tcp", s.endpoint.DialAddr(), s.connectTimeout)
		if err == nil {
			if s.onConnected(conn) {
				return
			}
			// onConnected returns false only if the session was closed
			// concurrently with the dial succeeding; fall through to exit.
			return
		}

		s.log.Warningf("connect to %s failed: %v", s.endpoint, err)
		// Keep-alive (meta) sessions fail their queued requests fast on a
		// refused connection rather than waiting out the full deadline, so
		// callers doing endpoint failover (meta.Session) can rotate quickly.
		// Replica sessions leave requests queued for the deadline timer,
		// since a slow server is the common case there, not a dead one.
		if s.keepAlive {
			s.drainAll(errkind.MetaUnreachable)
		}

		s.mu.Lock()
		delay := s.reconnectDelay
		next := delay * 2
		if next > s.maxDelay {
			next = s.maxDelay
		}
		s.reconnectDelay = next
		s.mu.Unlock()

		select {
		case <-time.After(delay):
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) onConnected(conn net.Conn) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return false
	}
	s.conn = conn
	s.generation++
	gen := s.generation
	s.reconnectDelay = s.baseDelay
	s.mu.Unlock()

	s.setState(Connected)
	s.log.Infof("connected to %s", s.endpoint)

	go s.receiveLoop(conn, gen)
	s.flushSendBuffer()
	return true
}

// flushSendBuffer writes every request queued while disconnected, in
// order. A request whose deadline has already elapsed was already failed
// by the deadline timer and removed from the pending table, so it's
// silently skipped here.
func (s *Session) flushSendBuffer() {
	for {
		select {
		case pr := <-s.sendBuf:
			if _, ok := s.pending.Load(pr.seqID); !ok {
				continue // already timed out while queued
			}
			if err := s.writeRequest(pr); err != nil {
				s.log.Warningf("flush write to %s failed: %v", s.endpoint, err)
				s.disconnectAll(errkind.Closed)
				return
			}
		default:
			return
		}
	}
}

func (s *Session) receiveLoop(conn net.Conn, generation uint64) {
	for {
		frame, err := wire.ReadFrom(conn)
		if err != nil {
			s.mu.Lock()
			stale := generation != s.generation
			s.mu.Unlock()
			if !stale {
				s.log.Infof("connection to %s closed: %v", s.endpoint, err)
				s.disconnectAll(errkind.Closed)
			}
			return
		}

		pr, ok := s.pending.LoadAndDelete(frame.Meta.SeqID)
		if !ok {
			s.log.Warningf("response for unknown sequence id %d from %s", frame.Meta.SeqID, s.endpoint)
			continue
		}
		s.completeAndForget(pr, frame, nil)
	}
}

// disconnectAll tears down the current connection (if this call is still
// current) and fails every pending request with kind. Replica sessions
// only resume connecting on the next Send; keep-alive (meta) sessions
// reconnect immediately.
func (s *Session) disconnectAll(kind errkind.Kind) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()

	if !atomic.CompareAndSwapInt32(&s.state, int32(Connected), int32(Disconnected)) {
		atomic.StoreInt32(&s.state, int32(Disconnected))
	}

	s.drainAll(kind)

	if s.keepAlive {
		s.triggerConnect()
	}
}

func (s *Session) drainAll(kind errkind.Kind) {
	var seqIDs []uint64
	s.pending.Range(func(seq uint64, pr *pendingRequest) bool {
		seqIDs = append(seqIDs, seq)
		return true
	})
	for _, seq := range seqIDs {
		if pr, ok := s.pending.LoadAndDelete(seq); ok {
			s.completeAndForget(pr, wire.Frame{}, errkind.New(kind))
		}
	}
}

// --- deadline heap / timer management ---

func (s *Session) addDeadline(seqID uint64, deadline time.Time) {
	s.hMu.Lock()
	s.dq.Add(seqID, deadline.UnixNano())
	s.rearmTimerLocked()
	s.hMu.Unlock()
}

func (s *Session) removeDeadline(seqID uint64) {
	s.hMu.Lock()
	s.dq.Remove(seqID)
	s.rearmTimerLocked()
	s.hMu.Unlock()
}

func (s *Session) rearmTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	deadlineNs, ok := s.dq.PeekDeadline()
	if !ok {
		return
	}
	d := time.Until(time.Unix(0, deadlineNs))
	if d < 0 {
		d = 0
	}
	s.timer = time.AfterFunc(d, s.onTimerFire)
}

func (s *Session) onTimerFire() {
	now := time.Now().UnixNano()

	s.hMu.Lock()
	expired := s.dq.PopExpired(now)
	s.rearmTimerLocked()
	s.hMu.Unlock()

	for _, seq := range expired {
		if pr, ok := s.pending.LoadAndDelete(seq); ok {
			pr.completion(wire.Frame{}, errkind.New(errkind.Timeout))
		}
	}
}
