package wire

import "github.com/google/uuid"

// NewTraceID mints a fresh client-side trace id for a frame that doesn't
// already have one to correlate against (e.g. the first attempt of an
// operation). uuid.New() is overkill entropy for a 64-bit id, but it's the
// randomness source the pack already depends on, so we fold it down
// instead of reaching for math/rand.
func NewTraceID() uint64 {
	id := uuid.New()
	b := id[:8]
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
