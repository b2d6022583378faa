// Package table is the user-facing, per-operation-kind API the core spec
// treats as an external collaborator: thin adapters that build a request
// body, hand it to the core, and decode the response. It is grounded on
// the teacher's rpc/client adapters (client_istore.go, client_ilockmgr.go)
// and rpc/serializer (binaryImpl.go) — a struct of operation constructors
// plus a length-prefixed binary codec, generalized from the teacher's
// single untyped common.Message into one request/response pair per
// RocksDB-style operation kind this store supports.
package table

import (
	"encoding/binary"
	"fmt"

	"github.com/distkv-io/partikv/internal/address"
	"github.com/distkv-io/partikv/internal/meta"
)

// --------------------------------------------------------------------------
// Meta query_config codec
// --------------------------------------------------------------------------

// metaCodec implements meta.Decoder using the same length-prefixed binary
// layout the table operation bodies use, so there's exactly one wire
// format to reason about in this repo.
type metaCodec struct{}

// NewMetaDecoder returns the meta.Decoder used by every client.
func NewMetaDecoder() meta.Decoder {
	return metaCodec{}
}

// EncodeQueryConfigRequest builds the body for a CM_QUERY_CONFIG request:
// just the table name, length-prefixed.
func EncodeQueryConfigRequest(tableName string) []byte {
	return putString(nil, tableName)
}

func (metaCodec) DecodeQueryConfigResponse(body []byte) (meta.TableConfig, error) {
	pos := 0
	appID, pos, err := getInt32(body, pos)
	if err != nil {
		return meta.TableConfig{}, err
	}
	partitionCount, pos, err := getInt32(body, pos)
	if err != nil {
		return meta.TableConfig{}, err
	}
	configCount, pos, err := getInt32(body, pos)
	if err != nil {
		return meta.TableConfig{}, err
	}

	configs := make([]meta.PartitionConfig, 0, configCount)
	for i := int32(0); i < configCount; i++ {
		var pc meta.PartitionConfig
		pc.Gpid.AppID = appID

		idx, p, err := getInt32(body, pos)
		if err != nil {
			return meta.TableConfig{}, err
		}
		pos = p
		pc.Gpid.PartitionIndex = idx

		ballot, p, err := getInt64(body, pos)
		if err != nil {
			return meta.TableConfig{}, err
		}
		pos = p
		pc.Ballot = ballot

		primary, p, err := getEndpoint(body, pos)
		if err != nil {
			return meta.TableConfig{}, err
		}
		pos = p
		pc.Primary = primary

		secCount, p, err := getInt32(body, pos)
		if err != nil {
			return meta.TableConfig{}, err
		}
		pos = p
		pc.Secondaries = make([]address.Endpoint, 0, secCount)
		for s := int32(0); s < secCount; s++ {
			sec, p2, err := getEndpoint(body, pos)
			if err != nil {
				return meta.TableConfig{}, err
			}
			pos = p2
			pc.Secondaries = append(pc.Secondaries, sec)
		}

		maxReplica, p, err := getInt32(body, pos)
		if err != nil {
			return meta.TableConfig{}, err
		}
		pos = p
		pc.MaxReplicaCount = maxReplica

		configs = append(configs, pc)
	}

	return meta.TableConfig{AppID: appID, PartitionCount: partitionCount, Configs: configs}, nil
}

func (metaCodec) DecodeForwardHint(body []byte) (address.Endpoint, bool) {
	ep, _, err := getEndpoint(body, 0)
	if err != nil {
		return address.Endpoint{}, false
	}
	return ep, true
}

// EncodeQueryConfigResponse is the server-side-shaped encoder used by
// tests (and by any in-process fake meta server) to build a well-formed
// response body without duplicating the wire layout.
func EncodeQueryConfigResponse(cfg meta.TableConfig) []byte {
	buf := putInt32(nil, cfg.AppID)
	buf = putInt32(buf, cfg.PartitionCount)
	buf = putInt32(buf, int32(len(cfg.Configs)))
	for _, pc := range cfg.Configs {
		buf = putInt32(buf, pc.Gpid.PartitionIndex)
		buf = putInt64(buf, pc.Ballot)
		buf = putEndpoint(buf, pc.Primary)
		buf = putInt32(buf, int32(len(pc.Secondaries)))
		for _, sec := range pc.Secondaries {
			buf = putEndpoint(buf, sec)
		}
		buf = putInt32(buf, pc.MaxReplicaCount)
	}
	return buf
}

// EncodeForwardHint builds the body of an ERR_FORWARD_TO_OTHERS response.
func EncodeForwardHint(ep address.Endpoint) []byte {
	return putEndpoint(nil, ep)
}

// --------------------------------------------------------------------------
// Shared primitive encoders/decoders
// --------------------------------------------------------------------------

func putInt32(buf []byte, v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return append(buf, b...)
}

func putInt64(buf []byte, v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return append(buf, b...)
}

func putString(buf []byte, s string) []byte {
	buf = putInt32(buf, int32(len(s)))
	return append(buf, []byte(s)...)
}

func putBytes(buf []byte, b []byte) []byte {
	buf = putInt32(buf, int32(len(b)))
	return append(buf, b...)
}

func putEndpoint(buf []byte, ep address.Endpoint) []byte {
	b := make([]byte, 6)
	binary.BigEndian.PutUint32(b[0:4], ep.IPv4)
	binary.BigEndian.PutUint16(b[4:6], ep.Port)
	return append(buf, b...)
}

func getInt32(buf []byte, pos int) (int32, int, error) {
	if pos+4 > len(buf) {
		return 0, pos, fmt.Errorf("table: codec: short buffer reading int32 at %d", pos)
	}
	return int32(binary.BigEndian.Uint32(buf[pos : pos+4])), pos + 4, nil
}

func getInt64(buf []byte, pos int) (int64, int, error) {
	if pos+8 > len(buf) {
		return 0, pos, fmt.Errorf("table: codec: short buffer reading int64 at %d", pos)
	}
	return int64(binary.BigEndian.Uint64(buf[pos : pos+8])), pos + 8, nil
}

func getBytes(buf []byte, pos int) ([]byte, int, error) {
	l, pos, err := getInt32(buf, pos)
	if err != nil {
		return nil, pos, err
	}
	if pos+int(l) > len(buf) {
		return nil, pos, fmt.Errorf("table: codec: short buffer reading bytes at %d", pos)
	}
	return buf[pos : pos+int(l)], pos + int(l), nil
}

func getEndpoint(buf []byte, pos int) (address.Endpoint, int, error) {
	if pos+6 > len(buf) {
		return address.Endpoint{}, pos, fmt.Errorf("table: codec: short buffer reading endpoint at %d", pos)
	}
	ep := address.Endpoint{
		IPv4: binary.BigEndian.Uint32(buf[pos : pos+4]),
		Port: binary.BigEndian.Uint16(buf[pos+4 : pos+6]),
	}
	return ep, pos + 6, nil
}
