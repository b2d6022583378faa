// Package wire implements the length-prefixed frame codec described in the
// protocol design: a fixed header (magic, lengths, two CRC32 checksums,
// header version) followed by a meta section and an opaque body. It mirrors
// the teacher's transport/base frame helpers (shardID|requestID|length
// header, net.Buffers writes, io.ReadFull reads) generalized to the richer
// header the service's wire protocol requires.
package wire

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"net"
)

// Magic identifies a well-formed frame; the first four bytes on the wire.
const Magic uint32 = 0x54484654 // "THFT"

// HeaderVersion is bumped whenever the meta section layout changes.
const HeaderVersion uint32 = 1

// MaxFrameSize bounds total_length to guard against a corrupt or hostile
// length prefix causing an unbounded allocation.
const MaxFrameSize = 64 << 20 // 64 MiB

const fixedHeaderSize = 4 + 4 + 4 + 4 + 4 + 4 // magic..header_version

// Direction distinguishes request meta layout from response meta layout;
// several meta fields are direction-specific per the protocol design.
type Direction uint8

const (
	Request Direction = iota
	Response
)

// Meta carries the per-frame envelope fields beyond the raw body.
type Meta struct {
	OpCode      OpCode
	SeqID       uint64
	Direction   Direction
	TraceID     uint64
	ClientTimeoutMs uint32 // request only
	Error       ErrCode    // response only
	Gpid        GpidWire   // request only
}

// GpidWire is the wire-level mirror of address.Gpid; kept separate so this
// package has no dependency on internal/address and stays a pure codec.
type GpidWire struct {
	AppID          int32
	PartitionIndex int32
}

// Frame is the decoded representation of one wire message.
type Frame struct {
	Meta Meta
	Body []byte
}

// FramingError enumerates the ways a frame can fail to decode.
type FramingError struct {
	Kind  FramingErrorKind
	Limit int
}

type FramingErrorKind int

const (
	BadMagic FramingErrorKind = iota
	ShortRead
	BadCrc
	OversizedFrame
)

func (e *FramingError) Error() string {
	switch e.Kind {
	case BadMagic:
		return "wire: bad magic"
	case ShortRead:
		return "wire: short read"
	case BadCrc:
		return "wire: crc mismatch"
	case OversizedFrame:
		return fmt.Sprintf("wire: frame exceeds limit of %d bytes", e.Limit)
	default:
		return "wire: framing error"
	}
}

const metaFixedSize = 2 /*opcode*/ + 8 /*seq*/ + 1 /*direction*/ + 8 /*trace*/ + 4 /*timeout*/ + 4 /*error*/ + 4 + 4 /*gpid*/

// encodeMeta serializes the meta section to a fixed-size buffer.
func encodeMeta(m Meta) []byte {
	buf := make([]byte, metaFixedSize)
	pos := 0
	binary.BigEndian.PutUint16(buf[pos:], uint16(m.OpCode))
	pos += 2
	binary.BigEndian.PutUint64(buf[pos:], m.SeqID)
	pos += 8
	buf[pos] = byte(m.Direction)
	pos++
	binary.BigEndian.PutUint64(buf[pos:], m.TraceID)
	pos += 8
	binary.BigEndian.PutUint32(buf[pos:], m.ClientTimeoutMs)
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], uint32(m.Error))
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], uint32(m.Gpid.AppID))
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], uint32(m.Gpid.PartitionIndex))
	pos += 4
	return buf
}

func decodeMeta(buf []byte) (Meta, error) {
	if len(buf) < metaFixedSize {
		return Meta{}, &FramingError{Kind: ShortRead}
	}
	var m Meta
	pos := 0
	m.OpCode = OpCode(binary.BigEndian.Uint16(buf[pos:]))
	pos += 2
	m.SeqID = binary.BigEndian.Uint64(buf[pos:])
	pos += 8
	m.Direction = Direction(buf[pos])
	pos++
	m.TraceID = binary.BigEndian.Uint64(buf[pos:])
	pos += 8
	m.ClientTimeoutMs = binary.BigEndian.Uint32(buf[pos:])
	pos += 4
	m.Error = ErrCode(int32(binary.BigEndian.Uint32(buf[pos:])))
	pos += 4
	m.Gpid.AppID = int32(binary.BigEndian.Uint32(buf[pos:]))
	pos += 4
	m.Gpid.PartitionIndex = int32(binary.BigEndian.Uint32(buf[pos:]))
	pos += 4
	return m, nil
}

// Encode serializes f into a wire frame: fixed header + meta + body,
// computing both CRC32 checksums.
func Encode(f Frame) []byte {
	metaBuf := encodeMeta(f.Meta)
	headerLen := uint32(len(metaBuf))
	totalLen := uint32(fixedHeaderSize) + headerLen + uint32(len(f.Body))

	out := make([]byte, fixedHeaderSize+len(metaBuf)+len(f.Body))
	binary.BigEndian.PutUint32(out[0:4], Magic)
	binary.BigEndian.PutUint32(out[4:8], totalLen)
	binary.BigEndian.PutUint32(out[8:12], headerLen)
	// header_crc32 and body_crc32 filled below, header_version at [20:24)
	binary.BigEndian.PutUint32(out[20:24], HeaderVersion)

	copy(out[24:24+len(metaBuf)], metaBuf)
	copy(out[24+len(metaBuf):], f.Body)

	headerCrc := crc32.ChecksumIEEE(metaBuf)
	bodyCrc := crc32.ChecksumIEEE(f.Body)
	binary.BigEndian.PutUint32(out[12:16], headerCrc)
	binary.BigEndian.PutUint32(out[16:20], bodyCrc)

	return out
}

// WriteTo encodes f into one contiguous buffer and writes it to conn with a
// single Write call.
func WriteTo(conn net.Conn, f Frame) error {
	encoded := Encode(f)
	_, err := conn.Write(encoded)
	return err
}

// ReadFrom reads exactly one frame from r, validating both checksums.
func ReadFrom(r io.Reader) (Frame, error) {
	header := make([]byte, fixedHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Frame{}, err
		}
		return Frame{}, &FramingError{Kind: ShortRead}
	}

	magic := binary.BigEndian.Uint32(header[0:4])
	if magic != Magic {
		return Frame{}, &FramingError{Kind: BadMagic}
	}
	totalLen := binary.BigEndian.Uint32(header[4:8])
	headerLen := binary.BigEndian.Uint32(header[8:12])
	headerCrc := binary.BigEndian.Uint32(header[12:16])
	bodyCrc := binary.BigEndian.Uint32(header[16:20])

	if totalLen > MaxFrameSize {
		return Frame{}, &FramingError{Kind: OversizedFrame, Limit: MaxFrameSize}
	}
	if totalLen < uint32(fixedHeaderSize)+headerLen {
		return Frame{}, &FramingError{Kind: ShortRead}
	}

	metaBuf := make([]byte, headerLen)
	if _, err := io.ReadFull(r, metaBuf); err != nil {
		return Frame{}, &FramingError{Kind: ShortRead}
	}
	if crc32.ChecksumIEEE(metaBuf) != headerCrc {
		return Frame{}, &FramingError{Kind: BadCrc}
	}

	bodyLen := totalLen - uint32(fixedHeaderSize) - headerLen
	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return Frame{}, &FramingError{Kind: ShortRead}
		}
	}
	if crc32.ChecksumIEEE(body) != bodyCrc {
		return Frame{}, &FramingError{Kind: BadCrc}
	}

	meta, err := decodeMeta(metaBuf)
	if err != nil {
		return Frame{}, err
	}

	return Frame{Meta: meta, Body: body}, nil
}
