package address

import (
	"fmt"
	"hash/crc64"
)

// ecmaTable is the CRC64 ECMA-182 polynomial table the service uses to hash
// routing keys. Frame integrity in internal/wire uses a separate checksum
// (CRC32 IEEE); this table is used only for routing.
var ecmaTable = crc64.MakeTable(crc64.ECMA)

// RoutingKey derives the byte string that gets hashed to choose a
// partition: hashKey if present, else sortKey.
func RoutingKey(hashKey, sortKey []byte) []byte {
	if len(hashKey) > 0 {
		return hashKey
	}
	return sortKey
}

// Hash64 computes the fixed CRC64 variant hash over a routing key.
func Hash64(routingKey []byte) uint64 {
	return crc64.Checksum(routingKey, ecmaTable)
}

// PartitionIndex derives the partition index for a routing key. partitionCount
// must be a power of two; the server guarantees this invariant and the
// client never needs to fall back to a modulo path.
func PartitionIndex(routingKey []byte, partitionCount int32) (int32, error) {
	if partitionCount <= 0 || partitionCount&(partitionCount-1) != 0 {
		return 0, &errPartitionCount{partitionCount}
	}
	h := Hash64(routingKey)
	return int32(h & uint64(partitionCount-1)), nil
}

type errPartitionCount struct {
	count int32
}

func (e *errPartitionCount) Error() string {
	return fmt.Sprintf("address: partition_count must be a power of two, got %d", e.count)
}
