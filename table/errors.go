package table

import (
	"errors"
	"fmt"
)

// notFoundError reports that a (hashKey, sortKey) pair has no value. It
// is a value-level condition decoded out of a successful response body,
// never a wire-level error.
type notFoundError struct {
	hashKey []byte
	sortKey []byte
}

func newNotFound(hashKey, sortKey []byte) error {
	return &notFoundError{hashKey: append([]byte{}, hashKey...), sortKey: append([]byte{}, sortKey...)}
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("table: no value for hash key %q sort key %q", e.hashKey, e.sortKey)
}

// IsNotFound reports whether err was produced by a Get call that found no
// value for the requested key. Exists reports that case as (false, nil).
func IsNotFound(err error) bool {
	var nf *notFoundError
	return errors.As(err, &nf)
}
