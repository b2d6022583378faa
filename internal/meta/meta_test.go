package meta_test

import (
	"net"
	"testing"
	"time"

	"github.com/distkv-io/partikv/internal/address"
	"github.com/distkv-io/partikv/internal/errkind"
	"github.com/distkv-io/partikv/internal/meta"
	"github.com/distkv-io/partikv/internal/wire"
	"github.com/distkv-io/partikv/table"
)

// fakeMeta is a single meta-node stand-in: it either refuses connections
// outright, forwards every query to another endpoint, or answers with a
// fixed TableConfig.
type fakeMeta struct {
	ln       net.Listener
	endpoint address.Endpoint
}

func listenMeta(t *testing.T) *fakeMeta {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ep, err := address.ParseHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("ParseHostPort: %v", err)
	}
	return &fakeMeta{ln: ln, endpoint: ep}
}

func (f *fakeMeta) serveForward(t *testing.T, hint address.Endpoint) {
	go func() {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		req, err := wire.ReadFrom(conn)
		if err != nil {
			return
		}
		resp := wire.Frame{
			Meta: wire.Meta{OpCode: req.Meta.OpCode, SeqID: req.Meta.SeqID, Direction: wire.Response, Error: wire.ErrForwardToOthers},
			Body: table.EncodeForwardHint(hint),
		}
		wire.WriteTo(conn, resp)
	}()
}

func (f *fakeMeta) serveNotFound(t *testing.T) {
	go func() {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		req, err := wire.ReadFrom(conn)
		if err != nil {
			return
		}
		resp := wire.Frame{
			Meta: wire.Meta{OpCode: req.Meta.OpCode, SeqID: req.Meta.SeqID, Direction: wire.Response, Error: wire.ErrObjectNotFound},
		}
		wire.WriteTo(conn, resp)
	}()
}

func (f *fakeMeta) serveOK(t *testing.T, cfg meta.TableConfig) {
	go func() {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		for {
			req, err := wire.ReadFrom(conn)
			if err != nil {
				return
			}
			resp := wire.Frame{
				Meta: wire.Meta{OpCode: req.Meta.OpCode, SeqID: req.Meta.SeqID, Direction: wire.Response, Error: wire.ErrOK},
				Body: table.EncodeQueryConfigResponse(cfg),
			}
			wire.WriteTo(conn, resp)
		}
	}()
}

func (f *fakeMeta) Close() { f.ln.Close() }

func TestQueryConfigFollowsForwardHintThenSucceeds(t *testing.T) {
	// m1 refuses: close it immediately so dialing fails.
	m1 := listenMeta(t)
	m1.Close()

	m2 := listenMeta(t)
	defer m2.Close()

	m3 := listenMeta(t)
	defer m3.Close()

	want := meta.TableConfig{
		AppID:          7,
		PartitionCount: 4,
		Configs: []meta.PartitionConfig{
			{Gpid: address.Gpid{AppID: 7, PartitionIndex: 0}, Ballot: 1, Primary: m3.endpoint, MaxReplicaCount: 3},
		},
	}

	m2.serveForward(t, m3.endpoint)
	m3.serveOK(t, want)

	sess := meta.New([]address.Endpoint{m1.endpoint, m2.endpoint, m3.endpoint}, table.NewMetaDecoder())
	defer sess.Close()

	got, err := sess.QueryConfig("mytable", time.Now().Add(3*time.Second))
	if err != nil {
		t.Fatalf("QueryConfig: %v", err)
	}
	if got.AppID != want.AppID || got.PartitionCount != want.PartitionCount {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	// Subsequent query should start at m3 directly and still succeed.
	got2, err := sess.QueryConfig("mytable", time.Now().Add(3*time.Second))
	if err != nil {
		t.Fatalf("second QueryConfig: %v", err)
	}
	if got2.AppID != want.AppID {
		t.Fatalf("second query: got %+v", got2)
	}
}

func TestQueryConfigReturnsTableNotFound(t *testing.T) {
	m1 := listenMeta(t)
	defer m1.Close()
	m1.serveNotFound(t)

	sess := meta.New([]address.Endpoint{m1.endpoint}, table.NewMetaDecoder())
	defer sess.Close()

	_, err := sess.QueryConfig("ghost", time.Now().Add(3*time.Second))
	if !errkind.Matches(err, errkind.TableNotFound) {
		t.Fatalf("expected TableNotFound, got %v", err)
	}
}

func TestQueryConfigReturnsMetaUnreachableWhenAllRefuse(t *testing.T) {
	m1 := listenMeta(t)
	m1.Close()
	m2 := listenMeta(t)
	m2.Close()

	sess := meta.New([]address.Endpoint{m1.endpoint, m2.endpoint}, table.NewMetaDecoder())
	defer sess.Close()

	_, err := sess.QueryConfig("anytable", time.Now().Add(500*time.Millisecond))
	if !errkind.Matches(err, errkind.MetaUnreachable) {
		t.Fatalf("expected MetaUnreachable, got %v", err)
	}
}
