package table

import (
	"fmt"
	"time"
)

// encodeGetRequest/encodeSetRequest/etc build request bodies; the sort
// key travels inside the body too (mirroring the teacher's pattern of
// folding routing and payload fields into one serialized message),
// because the hash key alone determines partition placement but the
// replica still needs the full key to look up the value.

func encodeGetRequest(sortKey []byte) []byte {
	return putBytes(nil, sortKey)
}

func encodeSetRequest(sortKey, value []byte, ttl time.Duration) []byte {
	buf := putBytes(nil, sortKey)
	buf = putBytes(buf, value)
	buf = putInt32(buf, int32(ttl/time.Second))
	return buf
}

func encodeIncrRequest(sortKey []byte, delta int64) []byte {
	buf := putBytes(nil, sortKey)
	buf = putInt64(buf, delta)
	return buf
}

func encodeMultiGetRequest(sortKeys [][]byte) []byte {
	buf := putInt32(nil, int32(len(sortKeys)))
	for _, sk := range sortKeys {
		buf = putBytes(buf, sk)
	}
	return buf
}

func decodeValueResponse(body []byte) (status int32, value []byte, err error) {
	status, pos, err := getInt32(body, 0)
	if err != nil {
		return 0, nil, err
	}
	value, _, err = getBytes(body, pos)
	if err != nil {
		return 0, nil, err
	}
	return status, value, nil
}

func decodeStatusOnly(body []byte) error {
	status, _, err := getInt32(body, 0)
	if err != nil {
		return err
	}
	if status != statusOK {
		return fmt.Errorf("table: replica returned status %d", status)
	}
	return nil
}

func decodeIncrResponse(body []byte) (int64, error) {
	status, pos, err := getInt32(body, 0)
	if err != nil {
		return 0, err
	}
	if status != statusOK {
		return 0, fmt.Errorf("table: replica returned status %d", status)
	}
	value, _, err := getInt64(body, pos)
	return value, err
}

func decodeTTLResponse(body []byte) (time.Duration, error) {
	status, pos, err := getInt32(body, 0)
	if err != nil {
		return 0, err
	}
	if status != statusOK {
		return 0, fmt.Errorf("table: replica returned status %d", status)
	}
	ttlSeconds, _, err := getInt32(body, pos)
	if err != nil {
		return 0, err
	}
	if ttlSeconds < 0 {
		return -1, nil
	}
	return time.Duration(ttlSeconds) * time.Second, nil
}

func decodeMultiGetResponse(body []byte) ([]KV, error) {
	status, pos, err := getInt32(body, 0)
	if err != nil {
		return nil, err
	}
	if status != statusOK {
		return nil, fmt.Errorf("table: replica returned status %d", status)
	}
	count, pos, err := getInt32(body, pos)
	if err != nil {
		return nil, err
	}
	out := make([]KV, 0, count)
	for i := int32(0); i < count; i++ {
		sk, p, err := getBytes(body, pos)
		if err != nil {
			return nil, err
		}
		pos = p
		v, p2, err := getBytes(body, pos)
		if err != nil {
			return nil, err
		}
		pos = p2
		out = append(out, KV{SortKey: sk, Value: v})
	}
	return out, nil
}
