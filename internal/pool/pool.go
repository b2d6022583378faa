// Package pool implements the replica session pool: a lazily populated,
// concurrently readable map from replica endpoint to the one Session that
// serves it, shared by every table in the client. It mirrors the teacher's
// use of xsync.MapOf for the connection map in transport/base, but unlike
// the teacher's per-transport round-robin pool, entries here are never
// interchangeable — each endpoint maps to exactly one long-lived Session
// for the lifetime of the pool.
package pool

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/distkv-io/partikv/internal/address"
	"github.com/distkv-io/partikv/internal/session"
)

// Pool is the replica session pool. The zero value is not usable; use New.
type Pool struct {
	sessions  *xsync.MapOf[address.Endpoint, *session.Session]
	insertMu  sync.Mutex // serializes the lazy-create path only
	closed    bool
	closeMu   sync.Mutex
	opts      []session.Option
}

// New creates an empty pool. opts are applied to every Session the pool
// creates (e.g. a custom connect timeout).
func New(opts ...session.Option) *Pool {
	return &Pool{
		sessions: xsync.NewMapOf[address.Endpoint, *session.Session](),
		opts:     opts,
	}
}

// Get returns the existing session for endpoint or creates one. The hot
// path (session already exists) never takes a lock; only first-time
// insertion is serialized.
func (p *Pool) Get(endpoint address.Endpoint) *session.Session {
	if s, ok := p.sessions.Load(endpoint); ok {
		return s
	}

	p.insertMu.Lock()
	defer p.insertMu.Unlock()

	// Re-check under the lock: another goroutine may have created it
	// between our lock-free Load and acquiring insertMu.
	if s, ok := p.sessions.Load(endpoint); ok {
		return s
	}

	s := session.New(endpoint, p.opts...)
	p.sessions.Store(endpoint, s)
	return s
}

// CloseAll shuts down every session in the pool and clears it. The pool is
// unusable afterwards; construct a new one to resume operation.
func (p *Pool) CloseAll() {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return
	}
	p.closed = true

	p.sessions.Range(func(ep address.Endpoint, s *session.Session) bool {
		s.Close()
		p.sessions.Delete(ep)
		return true
	})
}

// Len reports how many distinct endpoints the pool currently holds a
// session for. Exposed for tests and diagnostics.
func (p *Pool) Len() int {
	n := 0
	p.sessions.Range(func(address.Endpoint, *session.Session) bool {
		n++
		return true
	})
	return n
}
