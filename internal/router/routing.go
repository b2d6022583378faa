package router

import (
	"github.com/distkv-io/partikv/internal/address"
	"github.com/distkv-io/partikv/internal/meta"
	"github.com/distkv-io/partikv/internal/wire"
)

// TableRouting is an immutable snapshot of one table's partition map,
// indexed by partition index. A Handler swaps its current snapshot
// atomically on refresh; readers never block on a writer.
type TableRouting struct {
	AppID          int32
	PartitionCount int32
	partitions     []meta.PartitionConfig
}

func newTableRouting(cfg meta.TableConfig) *TableRouting {
	byIndex := make([]meta.PartitionConfig, cfg.PartitionCount)
	for _, pc := range cfg.Configs {
		if pc.Gpid.PartitionIndex >= 0 && pc.Gpid.PartitionIndex < cfg.PartitionCount {
			byIndex[pc.Gpid.PartitionIndex] = pc
		}
	}
	return &TableRouting{
		AppID:          cfg.AppID,
		PartitionCount: cfg.PartitionCount,
		partitions:     byIndex,
	}
}

// partitionFor looks up the configuration for a routing key, returning
// ok=false if the snapshot has no partitions yet (table never opened) or
// the computed index is out of range.
func (t *TableRouting) partitionFor(routingKey []byte) (meta.PartitionConfig, bool, error) {
	if t == nil || t.PartitionCount == 0 {
		return meta.PartitionConfig{}, false, nil
	}
	idx, err := address.PartitionIndex(routingKey, t.PartitionCount)
	if err != nil {
		return meta.PartitionConfig{}, false, err
	}
	return t.partitions[idx], true, nil
}

func toGpidWire(g address.Gpid) wire.GpidWire {
	return wire.GpidWire{AppID: g.AppID, PartitionIndex: g.PartitionIndex}
}
