package session

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/distkv-io/partikv/internal/address"
	"github.com/distkv-io/partikv/internal/errkind"
	"github.com/distkv-io/partikv/internal/wire"
)

// echoServer accepts one connection and echoes every request frame back
// as a response with ErrOK, after running it through a caller-supplied
// transform (used to simulate delays, drops, and out-of-order replies).
type echoServer struct {
	ln net.Listener
}

func newEchoServer(t *testing.T, handle func(net.Conn, wire.Frame)) *echoServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &echoServer{ln: ln}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		for {
			frame, err := wire.ReadFrom(conn)
			if err != nil {
				return
			}
			handle(conn, frame)
		}
	}()
	return s
}

func (s *echoServer) endpoint(t *testing.T) address.Endpoint {
	ep, err := address.ParseHostPort(s.ln.Addr().String())
	if err != nil {
		t.Fatalf("ParseHostPort: %v", err)
	}
	return ep
}

func (s *echoServer) Close() { s.ln.Close() }

func defaultHandler(conn net.Conn, req wire.Frame) {
	resp := wire.Frame{
		Meta: wire.Meta{OpCode: req.Meta.OpCode, SeqID: req.Meta.SeqID, Direction: wire.Response, Error: wire.ErrOK},
		Body: req.Body,
	}
	wire.WriteTo(conn, resp)
}

func TestSessionSendReceivesResponse(t *testing.T) {
	srv := newEchoServer(t, defaultHandler)
	defer srv.Close()

	s := New(srv.endpoint(t))
	defer s.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var gotErr error
	var gotFrame wire.Frame
	s.Send(wire.OpRRDBGet, wire.GpidWire{AppID: 1, PartitionIndex: 0}, []byte("payload"), time.Now().Add(2*time.Second), func(f wire.Frame, err error) {
		gotFrame, gotErr = f, err
		wg.Done()
	})

	wg.Wait()
	if gotErr != nil {
		t.Fatalf("unexpected error: %v", gotErr)
	}
	if string(gotFrame.Body) != "payload" {
		t.Fatalf("got body %q", gotFrame.Body)
	}
}

func TestSessionTimeoutWhenServerSilent(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Accept but never respond.
		buf := make([]byte, 4096)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	ep, err := address.ParseHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("ParseHostPort: %v", err)
	}

	s := New(ep)
	defer s.Close()

	done := make(chan error, 1)
	start := time.Now()
	s.Send(wire.OpRRDBGet, wire.GpidWire{}, nil, time.Now().Add(100*time.Millisecond), func(f wire.Frame, err error) {
		done <- err
	})

	select {
	case err := <-done:
		elapsed := time.Since(start)
		if !errkind.Matches(err, errkind.Timeout) {
			t.Fatalf("expected Timeout, got %v", err)
		}
		if elapsed > 250*time.Millisecond {
			t.Fatalf("timeout fired too late: %v", elapsed)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("completion never fired")
	}
}

func TestSessionOverflowWhenBufferFull(t *testing.T) {
	// Point at a host that will never accept, so the session stays
	// Disconnected/Connecting and every Send goes into the buffer.
	s := New(address.Endpoint{IPv4: 0x7F000001, Port: 1}) // 127.0.0.1:1, nothing listening

	var overflowCount int
	var mu sync.Mutex
	for i := 0; i < pendingSendBufferSize+1; i++ {
		s.Send(wire.OpRRDBGet, wire.GpidWire{}, nil, time.Now().Add(5*time.Second), func(f wire.Frame, err error) {
			if errkind.Matches(err, errkind.Overflow) {
				mu.Lock()
				overflowCount++
				mu.Unlock()
			}
		})
	}
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	if overflowCount != 1 {
		t.Fatalf("expected exactly 1 overflow completion, got %d", overflowCount)
	}
}

func TestSessionCloseDrainsPending(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			return
		}
		// Never respond; just hold the connection open.
		buf := make([]byte, 4096)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	ep, err := address.ParseHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("ParseHostPort: %v", err)
	}
	s := New(ep)

	done := make(chan error, 1)
	s.Send(wire.OpRRDBGet, wire.GpidWire{}, nil, time.Now().Add(5*time.Second), func(f wire.Frame, err error) {
		done <- err
	})

	// Give the connect loop a moment to actually connect before closing.
	time.Sleep(50 * time.Millisecond)
	s.Close()

	select {
	case err := <-done:
		if !errkind.Matches(err, errkind.Closed) {
			t.Fatalf("expected Closed, got %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("completion never fired after Close")
	}
}

func TestSessionOutOfOrderResponsesCorrelateBySeqID(t *testing.T) {
	var mu sync.Mutex
	pending := map[uint64]net.Conn{}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			return
		}
		for {
			frame, err := wire.ReadFrom(conn)
			if err != nil {
				return
			}
			mu.Lock()
			pending[frame.Meta.SeqID] = conn
			mu.Unlock()
			seq := frame.Meta.SeqID
			body := append([]byte{}, frame.Body...)
			go func() {
				// Reverse delivery order: higher seq ids respond first.
				time.Sleep(time.Duration(10-int(seq)) * time.Millisecond)
				wire.WriteTo(conn, wire.Frame{
					Meta: wire.Meta{OpCode: wire.OpRRDBGet, SeqID: seq, Direction: wire.Response, Error: wire.ErrOK},
					Body: body,
				})
			}()
		}
	}()

	ep, err := address.ParseHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("ParseHostPort: %v", err)
	}
	s := New(ep)
	defer s.Close()

	const n = 5
	results := make(chan [2]string, n)
	for i := 0; i < n; i++ {
		body := []byte{byte('a' + i)}
		s.Send(wire.OpRRDBGet, wire.GpidWire{}, body, time.Now().Add(3*time.Second), func(f wire.Frame, err error) {
			results <- [2]string{string(body), string(f.Body)}
		})
	}

	for i := 0; i < n; i++ {
		select {
		case r := <-results:
			if r[0] != r[1] {
				t.Fatalf("got mismatched body: sent %q, got %q", r[0], r[1])
			}
		case <-time.After(2 * time.Second):
			t.Fatal("missing completion")
		}
	}
}
