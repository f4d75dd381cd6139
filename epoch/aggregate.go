package epoch

import "github.com/dashpay/drive-feepool/kv"

// GetGenesisTime returns the persisted genesis time in ms.
func GetGenesisTime(tx *kv.Tx) (uint64, error) {
	raw, err := tx.GetItem(append(kv.PoolsPath(), kv.KeyGenesisTime)...)
	if err != nil {
		return 0, err
	}
	return kv.DecodeU64("genesis-time", raw)
}

// SetGenesisTimeOp queues the one-time genesis time write.
func SetGenesisTimeOp(b *kv.Batch, v uint64) {
	b.InsertItem(append(kv.PoolsPath(), kv.KeyGenesisTime), kv.EncodeU64(v))
}

// GetStorageFeePool returns the aggregate storage-fee pool item, the
// accumulator C5 spreads over the next 1000 epochs on every epoch
// change.
func GetStorageFeePool(tx *kv.Tx) (uint64, error) {
	raw, err := tx.GetItem(append(kv.PoolsPath(), kv.KeyStorageFeePool)...)
	if err != nil {
		return 0, err
	}
	return kv.DecodeU64("storage-fee-pool", raw)
}

// UpdateStorageFeePoolOp queues a write of the aggregate storage-fee
// pool item.
func UpdateStorageFeePoolOp(b *kv.Batch, v uint64) {
	b.InsertItem(append(kv.PoolsPath(), kv.KeyStorageFeePool), kv.EncodeU64(v))
}
