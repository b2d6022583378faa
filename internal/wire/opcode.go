package wire

// OpCode identifies the kind of request or response carried in a frame.
// Values mirror the RocksDB-style codes the service uses on the wire.
type OpCode uint16

const (
	OpUnknown OpCode = iota

	// Meta cluster operations.
	OpMetaQueryConfig

	// Replica (table) operations.
	OpRRDBGet
	OpRRDBPut
	OpRRDBMultiGet
	OpRRDBMultiPut
	OpRRDBRemove
	OpRRDBMultiRemove
	OpRRDBIncr
	OpRRDBTTL
	OpRRDBSortkeyCount
	OpRRDBGetScanner
	OpRRDBScan
	OpRRDBClearScanner
	OpRRDBCheckAndSet
)

var opCodeNames = map[OpCode]string{
	OpUnknown:          "RPC_UNKNOWN",
	OpMetaQueryConfig:  "RPC_CM_QUERY_PARTITION_CONFIG_BY_INDEX",
	OpRRDBGet:          "RPC_RRDB_RRDB_GET",
	OpRRDBPut:          "RPC_RRDB_RRDB_PUT",
	OpRRDBMultiGet:     "RPC_RRDB_RRDB_MULTI_GET",
	OpRRDBMultiPut:     "RPC_RRDB_RRDB_MULTI_PUT",
	OpRRDBRemove:       "RPC_RRDB_RRDB_REMOVE",
	OpRRDBMultiRemove:  "RPC_RRDB_RRDB_MULTI_REMOVE",
	OpRRDBIncr:         "RPC_RRDB_RRDB_INCR",
	OpRRDBTTL:          "RPC_RRDB_RRDB_TTL",
	OpRRDBSortkeyCount: "RPC_RRDB_RRDB_SORTKEY_COUNT",
	OpRRDBGetScanner:   "RPC_RRDB_RRDB_GET_SCANNER",
	OpRRDBScan:         "RPC_RRDB_RRDB_SCAN",
	OpRRDBClearScanner: "RPC_RRDB_RRDB_CLEAR_SCANNER",
	OpRRDBCheckAndSet:  "RPC_RRDB_RRDB_CHECK_AND_SET",
}

// String renders the wire name used for tracing and log lines.
func (c OpCode) String() string {
	if name, ok := opCodeNames[c]; ok {
		return name
	}
	return "RPC_UNKNOWN"
}

// IsMeta reports whether this code targets the meta cluster rather than a
// replica.
func (c OpCode) IsMeta() bool {
	return c == OpMetaQueryConfig
}
