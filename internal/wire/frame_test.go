package wire

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Frame{
		{
			Meta: Meta{OpCode: OpRRDBGet, SeqID: 1, Direction: Request, TraceID: 42, ClientTimeoutMs: 1000, Gpid: GpidWire{AppID: 7, PartitionIndex: 3}},
			Body: []byte("hello"),
		},
		{
			Meta: Meta{OpCode: OpRRDBGet, SeqID: 1, Direction: Response, Error: ErrOK},
			Body: []byte("world"),
		},
		{
			Meta: Meta{OpCode: OpMetaQueryConfig, SeqID: 99, Direction: Request},
			Body: nil,
		},
	}

	for _, want := range cases {
		encoded := Encode(want)
		got, err := ReadFrom(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("ReadFrom: %v", err)
		}
		if got.Meta != want.Meta {
			t.Fatalf("meta mismatch: got %+v, want %+v", got.Meta, want.Meta)
		}
		if !bytes.Equal(got.Body, want.Body) {
			t.Fatalf("body mismatch: got %q, want %q", got.Body, want.Body)
		}
	}
}

func TestReadFromRejectsBadMagic(t *testing.T) {
	encoded := Encode(Frame{Meta: Meta{OpCode: OpRRDBGet, SeqID: 1}})
	encoded[0] ^= 0xFF

	_, err := ReadFrom(bytes.NewReader(encoded))
	fe, ok := err.(*FramingError)
	if !ok || fe.Kind != BadMagic {
		t.Fatalf("expected BadMagic, got %v", err)
	}
}

func TestReadFromRejectsBadCrc(t *testing.T) {
	encoded := Encode(Frame{Meta: Meta{OpCode: OpRRDBGet, SeqID: 1}, Body: []byte("payload")})
	// Corrupt a body byte without touching the checksum.
	encoded[len(encoded)-1] ^= 0xFF

	_, err := ReadFrom(bytes.NewReader(encoded))
	fe, ok := err.(*FramingError)
	if !ok || fe.Kind != BadCrc {
		t.Fatalf("expected BadCrc, got %v", err)
	}
}

func TestReadFromRejectsShortBuffer(t *testing.T) {
	_, err := ReadFrom(bytes.NewReader([]byte{1, 2, 3}))
	if err == nil {
		t.Fatal("expected error for short buffer")
	}
}
