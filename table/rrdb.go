package table

import (
	"context"
	"sync"
	"time"

	"github.com/distkv-io/partikv/internal/errkind"
	"github.com/distkv-io/partikv/internal/operator"
	"github.com/distkv-io/partikv/internal/router"
	"github.com/distkv-io/partikv/internal/wire"
)

// statusOK/statusNotFound are the codec's own value-level status codes,
// distinct from wire.ErrCode: the wire layer already reports ERR_OK once
// the replica has processed the request, but "no such sort key" is a
// property of the value, not the RPC, and is carried inside the body the
// same way Pegasus embeds a rocksdb::Status in an rrdb response.
const (
	statusOK       int32 = 0
	statusNotFound int32 = 1
)

// Table is a thin, per-op-kind adapter over a table handler: it builds a
// request body, executes it through the handler's routing/retry state
// machine, and decodes the response, the way the teacher's client_istore
// adapters wrap a single common.Message round trip per method call.
type Table struct {
	handler *router.Handler
	timeout time.Duration
}

// New wraps handler with the bundled RocksDB-style operation set.
func New(handler *router.Handler, timeout time.Duration) *Table {
	return &Table{handler: handler, timeout: timeout}
}

func (t *Table) execute(ctx context.Context, opCode wire.OpCode, hashKey, sortKey, body []byte) ([]byte, error) {
	type result struct {
		body []byte
		err  error
	}
	ch := make(chan result, 1)
	op := operator.New(opCode, hashKey, sortKey, body, t.timeout, func(b []byte, err error) {
		ch <- result{b, err}
	})
	t.handler.Execute(op)

	select {
	case r := <-ch:
		return r.body, r.err
	case <-ctx.Done():
		return nil, errkind.New(errkind.Timeout)
	}
}

// Exists reports whether (hashKey, sortKey) has a value.
func (t *Table) Exists(ctx context.Context, hashKey, sortKey []byte) (bool, error) {
	_, err := t.Get(ctx, hashKey, sortKey)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Get fetches the value for (hashKey, sortKey).
func (t *Table) Get(ctx context.Context, hashKey, sortKey []byte) ([]byte, error) {
	body, err := t.execute(ctx, wire.OpRRDBGet, hashKey, sortKey, encodeGetRequest(sortKey))
	if err != nil {
		return nil, err
	}
	status, value, err := decodeValueResponse(body)
	if err != nil {
		return nil, err
	}
	if status == statusNotFound {
		return nil, newNotFound(hashKey, sortKey)
	}
	return value, nil
}

// Set writes value at (hashKey, sortKey) with a TTL (0 means no expiry).
func (t *Table) Set(ctx context.Context, hashKey, sortKey, value []byte, ttl time.Duration) error {
	body := encodeSetRequest(sortKey, value, ttl)
	respBody, err := t.execute(ctx, wire.OpRRDBPut, hashKey, sortKey, body)
	if err != nil {
		return err
	}
	return decodeStatusOnly(respBody)
}

// Remove deletes (hashKey, sortKey).
func (t *Table) Remove(ctx context.Context, hashKey, sortKey []byte) error {
	respBody, err := t.execute(ctx, wire.OpRRDBRemove, hashKey, sortKey, encodeGetRequest(sortKey))
	if err != nil {
		return err
	}
	return decodeStatusOnly(respBody)
}

// Incr atomically adds delta to the integer value at (hashKey, sortKey)
// and returns the value after the increment.
func (t *Table) Incr(ctx context.Context, hashKey, sortKey []byte, delta int64) (int64, error) {
	body, err := t.execute(ctx, wire.OpRRDBIncr, hashKey, sortKey, encodeIncrRequest(sortKey, delta))
	if err != nil {
		return 0, err
	}
	return decodeIncrResponse(body)
}

// TTL returns the remaining time-to-live for (hashKey, sortKey), or -1
// if the key has no expiry.
func (t *Table) TTL(ctx context.Context, hashKey, sortKey []byte) (time.Duration, error) {
	body, err := t.execute(ctx, wire.OpRRDBTTL, hashKey, sortKey, encodeGetRequest(sortKey))
	if err != nil {
		return 0, err
	}
	return decodeTTLResponse(body)
}

// KV is one sort key/value pair, used by MultiGet.
type KV struct {
	SortKey []byte
	Value   []byte
}

// MultiGet fetches every requested sort key under hashKey in one round
// trip. Missing sort keys are simply absent from the result.
func (t *Table) MultiGet(ctx context.Context, hashKey []byte, sortKeys [][]byte) ([]KV, error) {
	body, err := t.execute(ctx, wire.OpRRDBMultiGet, hashKey, nil, encodeMultiGetRequest(sortKeys))
	if err != nil {
		return nil, err
	}
	return decodeMultiGetResponse(body)
}

// Batch runs fn concurrently over items and reports the first error
// encountered, if any, after waiting for every call to finish.
func Batch[T any](ctx context.Context, items []T, fn func(context.Context, T) error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(items))
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			errs[i] = fn(ctx, item)
		}(i, item)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
