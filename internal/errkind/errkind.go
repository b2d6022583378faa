// Package errkind defines the closed set of error kinds surfaced to
// callers of the core, per the error handling design: transport failures
// and routing staleness are recovered locally via refresh-and-retry, and
// everything else surfaces verbatim.
package errkind

import "fmt"

// Kind enumerates the terminal outcomes a caller can observe.
type Kind int

const (
	// Unknown is the zero value and never returned by the core.
	Unknown Kind = iota
	// Timeout means the operation's deadline elapsed before completion.
	Timeout
	// TableNotFound means meta returned ERR_OBJECT_NOT_FOUND while opening a table.
	TableNotFound
	// MetaUnreachable means every configured meta endpoint failed.
	MetaUnreachable
	// ReplicaUnreachable means transport kept failing after refresh and retry,
	// and the deadline does not allow another attempt.
	ReplicaUnreachable
	// InvalidArgument means the routing inputs violated a constraint.
	InvalidArgument
	// Overflow means a session's pending-send buffer was full.
	Overflow
	// ServerError carries a non-retryable server error code verbatim.
	ServerError
	// Closed means the client (or the session serving the request) was
	// closed while the operation was in flight.
	Closed
)

func (k Kind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case TableNotFound:
		return "table_not_found"
	case MetaUnreachable:
		return "meta_unreachable"
	case ReplicaUnreachable:
		return "replica_unreachable"
	case InvalidArgument:
		return "invalid_argument"
	case Overflow:
		return "overflow"
	case ServerError:
		return "server_error"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every core operation.
type Error struct {
	Kind  Kind
	Code  int32 // raw server error code, set only when Kind == ServerError
	Cause error
}

func (e *Error) Error() string {
	if e.Kind == ServerError {
		if e.Cause != nil {
			return fmt.Sprintf("partikv: server error %d: %v", e.Code, e.Cause)
		}
		return fmt.Sprintf("partikv: server error %d", e.Code)
	}
	if e.Cause != nil {
		return fmt.Sprintf("partikv: %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("partikv: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no wrapped cause.
func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Wrap builds an *Error with kind and an underlying cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// ServerCode builds an *Error carrying a raw, unmapped server error code.
func ServerCode(code int32) *Error {
	return &Error{Kind: ServerError, Code: code}
}

// Matches reports whether err is an *Error of the given Kind. Kind has no
// Error() method of its own, so this stands in for errors.Is.
func Matches(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
