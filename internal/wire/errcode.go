package wire

// ErrCode is the server-side error code carried in a response frame's
// meta section. The values below are the subset named in the spec; any
// other code survives as an opaque ServerError to the caller.
type ErrCode int32

const (
	ErrOK ErrCode = 0

	// Table-open / routing errors.
	ErrObjectNotFound       ErrCode = 301
	ErrInvalidState         ErrCode = 302
	ErrNotEnoughMember      ErrCode = 303
	ErrParentPartitionMisused ErrCode = 304
	ErrForwardToOthers      ErrCode = 305

	// Transient, retry-without-refresh errors.
	ErrBusy             ErrCode = 306
	ErrCapacityExceeded ErrCode = 307
)

var errCodeNames = map[ErrCode]string{
	ErrOK:                     "ERR_OK",
	ErrObjectNotFound:         "ERR_OBJECT_NOT_FOUND",
	ErrInvalidState:           "ERR_INVALID_STATE",
	ErrNotEnoughMember:        "ERR_NOT_ENOUGH_MEMBER",
	ErrParentPartitionMisused: "ERR_PARENT_PARTITION_MISUSED",
	ErrForwardToOthers:        "ERR_FORWARD_TO_OTHERS",
	ErrBusy:                   "ERR_BUSY",
	ErrCapacityExceeded:       "ERR_CAPACITY_EXCEEDED",
}

func (c ErrCode) String() string {
	if name, ok := errCodeNames[c]; ok {
		return name
	}
	return "ERR_UNKNOWN"
}

// retryRefreshSet is the set of errors that both trigger a table routing
// refresh and are retried, per spec.md 4.F.
var retryRefreshSet = map[ErrCode]bool{
	ErrObjectNotFound:         true,
	ErrInvalidState:           true,
	ErrNotEnoughMember:        true,
	ErrParentPartitionMisused: true,
}

// retrySet is the set of errors that are retried without triggering a
// refresh.
var retrySet = map[ErrCode]bool{
	ErrBusy:             true,
	ErrCapacityExceeded: true,
}

// TriggersRefresh reports whether this error code should trigger a table
// routing refresh before the next retry.
func (c ErrCode) TriggersRefresh() bool {
	return retryRefreshSet[c]
}

// IsRetryable reports whether this error code alone (without a refresh)
// warrants another attempt.
func (c ErrCode) IsRetryable() bool {
	return retrySet[c]
}
