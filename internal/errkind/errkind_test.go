package errkind_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distkv-io/partikv/internal/errkind"
)

func TestMatchesOnlyTheConstructedKind(t *testing.T) {
	err := errkind.New(errkind.Timeout)
	assert.True(t, errkind.Matches(err, errkind.Timeout))
	assert.False(t, errkind.Matches(err, errkind.Closed))
	assert.False(t, errkind.Matches(errors.New("plain error"), errkind.Timeout))
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := errkind.Wrap(errkind.ReplicaUnreachable, cause)

	require.True(t, errkind.Matches(err, errkind.ReplicaUnreachable))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "replica_unreachable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestServerCodeReportsRawCode(t *testing.T) {
	err := errkind.ServerCode(305)
	require.True(t, errkind.Matches(err, errkind.ServerError))
	assert.Equal(t, int32(305), err.Code)
	assert.Contains(t, err.Error(), "305")
}
