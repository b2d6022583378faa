package meta

import (
	"sync"
	"time"

	"github.com/distkv-io/partikv/internal/address"
	"github.com/distkv-io/partikv/internal/errkind"
	"github.com/distkv-io/partikv/internal/logging"
	"github.com/distkv-io/partikv/internal/session"
	"github.com/distkv-io/partikv/internal/wire"
)

const defaultMaxRetry = 10

// PartitionConfig is the decoded per-partition configuration returned by a
// meta query.
type PartitionConfig struct {
	Gpid             address.Gpid
	Ballot           int64
	Primary          address.Endpoint
	Secondaries      []address.Endpoint
	MaxReplicaCount  int32
}

// TableConfig is the full response to a query_config call: every
// partition's configuration for one table.
type TableConfig struct {
	AppID          int32
	PartitionCount int32
	Configs        []PartitionConfig
}

// Decoder decodes a meta response body into a TableConfig, and separately
// exposes whether the response carried a forward hint. The core treats
// wire bodies for individual operation kinds as opaque, decoded by a
// codec layer injected here — see codec.go in the table package for the
// concrete implementation used by the bundled table API.
type Decoder interface {
	DecodeQueryConfigResponse(body []byte) (TableConfig, error)
	DecodeForwardHint(body []byte) (address.Endpoint, bool)
}

// Session fronts a list of meta endpoints and answers QueryConfig calls.
type Session struct {
	log     leveledLogger
	decoder Decoder

	mu          sync.Mutex
	endpoints   []address.Endpoint
	leaderGuess int // index into endpoints

	sessions map[address.Endpoint]*session.Session
	maxRetry int
}

type leveledLogger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// New creates a meta session across the given endpoints, queried in the
// order given, starting at endpoints[0].
func New(endpoints []address.Endpoint, decoder Decoder) *Session {
	s := &Session{
		log:       logging.Get("partikv/meta"),
		decoder:   decoder,
		endpoints: append([]address.Endpoint{}, endpoints...),
		sessions:  make(map[address.Endpoint]*session.Session),
		maxRetry:  defaultMaxRetry,
	}
	return s
}

func (s *Session) sessionFor(ep address.Endpoint) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[ep]; ok {
		return sess
	}
	sess := session.New(ep, session.KeepAlive())
	s.sessions[ep] = sess
	return sess
}

func (s *Session) currentLeaderGuess() address.Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoints[s.leaderGuess]
}

func (s *Session) advanceRoundRobin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderGuess = (s.leaderGuess + 1) % len(s.endpoints)
}

func (s *Session) setLeaderGuess(ep address.Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.endpoints {
		if e == ep {
			s.leaderGuess = i
			return
		}
	}
	// Hint points somewhere not in our configured list (a forward to a
	// meta node we didn't know about); append it so future queries can
	// reach it directly too.
	s.endpoints = append(s.endpoints, ep)
	s.leaderGuess = len(s.endpoints) - 1
}

// QueryConfig resolves the partition configuration for tableName, following
// ERR_FORWARD_TO_OTHERS hints and rotating through meta endpoints on
// transport failure, bounded by maxRetry attempts and by deadline.
func (s *Session) QueryConfig(tableName string, deadline time.Time) (TableConfig, error) {
	var lastErr error

	for attempt := 0; attempt < s.maxRetry; attempt++ {
		if time.Now().After(deadline) {
			break
		}
		ep := s.currentLeaderGuess()
		sess := s.sessionFor(ep)

		cfg, forwardHint, forwarded, err := s.queryOnce(sess, tableName, deadline)
		if err != nil {
			if errkind.Matches(err, errkind.TableNotFound) {
				return TableConfig{}, err
			}
			s.log.Warningf("meta query to %s failed: %v", ep, err)
			lastErr = err
			s.advanceRoundRobin()
			continue
		}
		if forwarded {
			s.log.Infof("meta %s forwarded us to %s", ep, forwardHint)
			s.setLeaderGuess(forwardHint)
			continue
		}
		return cfg, nil
	}

	if lastErr != nil {
		return TableConfig{}, errkind.Wrap(errkind.MetaUnreachable, lastErr)
	}
	return TableConfig{}, errkind.New(errkind.MetaUnreachable)
}

// queryOnce sends exactly one CM_QUERY_CONFIG and classifies the result.
func (s *Session) queryOnce(sess *session.Session, tableName string, deadline time.Time) (cfg TableConfig, forwardHint address.Endpoint, forwarded bool, err error) {
	type result struct {
		frame wire.Frame
		err   error
	}
	ch := make(chan result, 1)

	sess.Send(wire.OpMetaQueryConfig, wire.GpidWire{}, []byte(tableName), deadline, func(f wire.Frame, sendErr error) {
		ch <- result{f, sendErr}
	})

	r := <-ch
	if r.err != nil {
		return TableConfig{}, address.Endpoint{}, false, r.err
	}

	if r.frame.Meta.Error == wire.ErrForwardToOthers {
		if hint, ok := s.decoder.DecodeForwardHint(r.frame.Body); ok {
			return TableConfig{}, hint, true, nil
		}
		return TableConfig{}, address.Endpoint{}, false, errkind.New(errkind.MetaUnreachable)
	}

	if r.frame.Meta.Error == wire.ErrObjectNotFound {
		return TableConfig{}, address.Endpoint{}, false, errkind.New(errkind.TableNotFound)
	}

	if r.frame.Meta.Error != wire.ErrOK {
		return TableConfig{}, address.Endpoint{}, false, errkind.ServerCode(int32(r.frame.Meta.Error))
	}

	decoded, decErr := s.decoder.DecodeQueryConfigResponse(r.frame.Body)
	if decErr != nil {
		return TableConfig{}, address.Endpoint{}, false, decErr
	}
	return decoded, address.Endpoint{}, false, nil
}

// Close shuts down every session this meta client opened.
func (s *Session) Close() {
	s.mu.Lock()
	sessions := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
