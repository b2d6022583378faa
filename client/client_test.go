package client_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/distkv-io/partikv/client"
	"github.com/distkv-io/partikv/internal/address"
	"github.com/distkv-io/partikv/internal/meta"
	"github.com/distkv-io/partikv/internal/wire"
	"github.com/distkv-io/partikv/table"
)

func listen(t *testing.T) (net.Listener, address.Endpoint) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ep, err := address.ParseHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("ParseHostPort: %v", err)
	}
	return ln, ep
}

func TestClientOpenGetSetRoundTrip(t *testing.T) {
	replicaLn, replicaEp := listen(t)
	defer replicaLn.Close()

	store := map[string][]byte{}
	go func() {
		conn, err := replicaLn.Accept()
		if err != nil {
			return
		}
		for {
			req, err := wire.ReadFrom(conn)
			if err != nil {
				return
			}
			var resp wire.Frame
			switch req.Meta.OpCode {
			case wire.OpRRDBPut:
				sk, pos, _ := getBytesForTest(req.Body, 0)
				val, _, _ := getBytesForTest(req.Body, pos)
				store[string(sk)] = val
				resp = statusResponse(req)
			case wire.OpRRDBGet:
				sk, _, _ := getBytesForTest(req.Body, 0)
				val, ok := store[string(sk)]
				resp = valueResponse(req, val, ok)
			default:
				resp = statusResponse(req)
			}
			wire.WriteTo(conn, resp)
		}
	}()

	metaLn, metaEp := listen(t)
	defer metaLn.Close()
	go func() {
		conn, err := metaLn.Accept()
		if err != nil {
			return
		}
		cfg := meta.TableConfig{
			AppID:          9,
			PartitionCount: 1,
			Configs: []meta.PartitionConfig{
				{Gpid: address.Gpid{AppID: 9, PartitionIndex: 0}, Ballot: 1, Primary: replicaEp, MaxReplicaCount: 1},
			},
		}
		for {
			req, err := wire.ReadFrom(conn)
			if err != nil {
				return
			}
			wire.WriteTo(conn, wire.Frame{
				Meta: wire.Meta{OpCode: req.Meta.OpCode, SeqID: req.Meta.SeqID, Direction: wire.Response, Error: wire.ErrOK},
				Body: table.EncodeQueryConfigResponse(cfg),
			})
		}
	}()

	cfg := client.DefaultConfig()
	cfg.MetaServers = []string{metaEp.String()}
	cfg.OperationTimeout = 2 * time.Second

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	tbl, err := c.Open("widgets")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := tbl.Set(ctx, []byte("user:1"), []byte("sk"), []byte("hello"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := tbl.Get(ctx, []byte("user:1"), []byte("sk"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want hello", got)
	}

	if _, err := c.Open("widgets"); err != nil {
		t.Fatalf("second Open should hit cache: %v", err)
	}
}

// --- tiny local re-implementation of the length-prefixed primitives,
// kept separate from table's internal codec so this test doesn't need
// to reach into an unexported API. ---

func getBytesForTest(buf []byte, pos int) ([]byte, int, error) {
	if pos+4 > len(buf) {
		return nil, pos, errShortBuffer
	}
	l := int(buf[pos])<<24 | int(buf[pos+1])<<16 | int(buf[pos+2])<<8 | int(buf[pos+3])
	pos += 4
	if pos+l > len(buf) {
		return nil, pos, errShortBuffer
	}
	return buf[pos : pos+l], pos + l, nil
}

func putBytesForTest(buf []byte, b []byte) []byte {
	l := len(b)
	buf = append(buf, byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
	return append(buf, b...)
}

func putInt32ForTest(buf []byte, v int32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

var errShortBuffer = errShort{}

type errShort struct{}

func (errShort) Error() string { return "short buffer" }

func statusResponse(req wire.Frame) wire.Frame {
	return wire.Frame{
		Meta: wire.Meta{OpCode: req.Meta.OpCode, SeqID: req.Meta.SeqID, Direction: wire.Response, Error: wire.ErrOK},
		Body: putInt32ForTest(nil, 0),
	}
}

func valueResponse(req wire.Frame, val []byte, found bool) wire.Frame {
	status := int32(0)
	if !found {
		status = 1
	}
	body := putInt32ForTest(nil, status)
	body = putBytesForTest(body, val)
	return wire.Frame{
		Meta: wire.Meta{OpCode: req.Meta.OpCode, SeqID: req.Meta.SeqID, Direction: wire.Response, Error: wire.ErrOK},
		Body: body,
	}
}
