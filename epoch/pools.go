// Package epoch implements the epoch pool accessor (C2) — typed
// get/update operations over each epoch's processing credits, storage
// credits, fee multiplier, start-block metadata, and proposer block
// counts — and the epoch accountant (C4), which derives the current
// epoch index and epoch-change flag from genesis and block times.
package epoch

import (
	"github.com/dashpay/drive-feepool/errs"
	"github.com/dashpay/drive-feepool/kv"
)

// ProposerCount is one entry of an epoch's proposer block-count map.
type ProposerCount struct {
	ProTxHash [32]byte
	Count     uint64
}

// NextEpochStart is the result of FindNextEpochStartBlockHeight.
type NextEpochStart struct {
	EpochIndex uint16
	Height     uint64
}

func requireEpochSubtree(tx *kv.Tx, i uint16) error {
	n, err := tx.NodeAt(kv.EpochPath(i)...)
	if err != nil {
		return err
	}
	if n.Kind != kv.NodeTree {
		return &errs.Corrupted{Kind: errs.CorruptedType, Path: "epoch"}
	}
	return nil
}

// readEpochU64 reads a big-endian u64 item under E(i), defaulting to 0
// when the epoch subtree exists but the item hasn't been written yet
// (a freshly pre-initialized epoch has no "s"/"p"/"m"/"c" items until it
// becomes current or receives a distribution share).
func readEpochU64(tx *kv.Tx, i uint16, key []byte) (uint64, error) {
	if err := requireEpochSubtree(tx, i); err != nil {
		return 0, err
	}
	path := append(kv.EpochPath(i), key)
	raw, err := tx.GetItem(path...)
	if err != nil {
		if _, ok := err.(*errs.NotInitialized); ok {
			return 0, nil
		}
		return 0, err
	}
	return kv.DecodeU64(string(key), raw)
}

// GetStorageCredits returns E(i)'s allocated storage credits.
func GetStorageCredits(tx *kv.Tx, i uint16) (uint64, error) {
	return readEpochU64(tx, i, kv.KeyEpochStorageCredits)
}

// UpdateStorageCreditsOp queues a write of E(i)'s storage credits.
func UpdateStorageCreditsOp(b *kv.Batch, i uint16, v uint64) {
	b.InsertItem(append(kv.EpochPath(i), kv.KeyEpochStorageCredits), kv.EncodeU64(v))
}

// GetProcessingCredits returns E(i)'s accrued processing credits.
func GetProcessingCredits(tx *kv.Tx, i uint16) (uint64, error) {
	return readEpochU64(tx, i, kv.KeyEpochProcessingCredits)
}

// UpdateProcessingCreditsOp queues a write of E(i)'s processing credits.
func UpdateProcessingCreditsOp(b *kv.Batch, i uint16, v uint64) {
	b.InsertItem(append(kv.EpochPath(i), kv.KeyEpochProcessingCredits), kv.EncodeU64(v))
}

// GetFeeMultiplier returns E(i)'s fee multiplier snapshot.
func GetFeeMultiplier(tx *kv.Tx, i uint16) (uint64, error) {
	return readEpochU64(tx, i, kv.KeyEpochFeeMultiplier)
}

// GetStartBlockHeight returns E(i)'s start block height.
func GetStartBlockHeight(tx *kv.Tx, i uint16) (uint64, error) {
	return readEpochU64(tx, i, kv.KeyEpochStartBlockHeight)
}

// UpdateStartBlockHeightOp queues a write of E(i)'s start block height.
func UpdateStartBlockHeightOp(b *kv.Batch, i uint16, h uint64) {
	b.InsertItem(append(kv.EpochPath(i), kv.KeyEpochStartBlockHeight), kv.EncodeU64(h))
}

// InitCurrentOp queues the writes that promote E(i) from Empty to
// Current: its fee multiplier snapshot and its start block height/time.
func InitCurrentOp(b *kv.Batch, i uint16, multiplier, startHeight uint64, startTimeMs int64) {
	b.InsertItem(append(kv.EpochPath(i), kv.KeyEpochFeeMultiplier), kv.EncodeU64(multiplier))
	b.InsertItem(append(kv.EpochPath(i), kv.KeyEpochStartBlockHeight), kv.EncodeU64(startHeight))
	b.InsertItem(append(kv.EpochPath(i), kv.KeyEpochStartBlockTime), kv.EncodeI64(startTimeMs))
}

// GetStartBlockTime returns E(i)'s start block time in ms.
func GetStartBlockTime(tx *kv.Tx, i uint16) (int64, error) {
	if err := requireEpochSubtree(tx, i); err != nil {
		return 0, err
	}
	path := append(kv.EpochPath(i), kv.KeyEpochStartBlockTime)
	raw, err := tx.GetItem(path...)
	if err != nil {
		if _, ok := err.(*errs.NotInitialized); ok {
			return 0, nil
		}
		return 0, err
	}
	return kv.DecodeI64(string(kv.KeyEpochStartBlockTime), raw)
}

// GetProposerBlockCount returns how many blocks proTxHash has produced
// in E(i) so far. A proposer absent from the map has produced none.
func GetProposerBlockCount(tx *kv.Tx, i uint16, proTxHash [32]byte) (uint64, error) {
	if err := requireEpochSubtree(tx, i); err != nil {
		return 0, err
	}
	path := append(kv.EpochProposersPath(i), proTxHash[:])
	raw, err := tx.GetItem(path...)
	if err != nil {
		if _, ok := err.(*errs.NotInitialized); ok {
			return 0, nil
		}
		return 0, err
	}
	return kv.DecodeU64("proposer-block-count", raw)
}

// IncrementProposerBlockCountOp reads proTxHash's current block count in
// E(i) off tx and queues the incremented write onto b.
func IncrementProposerBlockCountOp(tx *kv.Tx, b *kv.Batch, i uint16, proTxHash [32]byte) error {
	current, err := GetProposerBlockCount(tx, i, proTxHash)
	if err != nil {
		return err
	}
	next, err := addCredit(current, 1, "proposer-block-count")
	if err != nil {
		return err
	}
	// E(i)/"r" isn't pre-created anywhere (init_chain only creates E(i)
	// itself); queue it lazily here. InsertTree is a no-op once the
	// subtree exists, so this stays safe on every subsequent call.
	b.InsertTree(kv.EpochProposersPath(i))
	path := append(kv.EpochProposersPath(i), proTxHash[:])
	b.InsertItem(path, kv.EncodeU64(next))
	return nil
}

func addCredit(a, b uint64, op string) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, &errs.Overflow{Op: op}
	}
	return sum, nil
}

// GetProposers returns E(i)'s proposer block-count map in the store's
// byte-lexicographic key order (consensus-critical: spec.md §4.6's
// payout and §9's Open Question both pin this as the total order).
// limit <= 0 means unlimited.
func GetProposers(tx *kv.Tx, i uint16, limit int) ([]ProposerCount, error) {
	if err := requireEpochSubtree(tx, i); err != nil {
		return nil, err
	}
	cur, err := tx.Cursor(kv.EpochProposersPath(i)...)
	if err != nil {
		return nil, err
	}
	var out []ProposerCount
	var iterErr error
	cur.Ascend(func(key []byte, child *kv.Node) bool {
		if len(key) != 32 {
			iterErr = &errs.Corrupted{Kind: errs.CorruptedLength, Path: "proposer-key", Detail: "want 32 bytes"}
			return false
		}
		if child.Kind != kv.NodeItem {
			iterErr = &errs.Corrupted{Kind: errs.CorruptedNotItem, Path: "proposer-count"}
			return false
		}
		count, err := kv.DecodeU64("proposer-count", child.Value)
		if err != nil {
			iterErr = err
			return false
		}
		var pc ProposerCount
		copy(pc.ProTxHash[:], key)
		pc.Count = count
		out = append(out, pc)
		return limit <= 0 || len(out) < limit
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return out, nil
}

// FindNextEpochStartBlockHeight returns the first epoch in
// (from, to] with a recorded start block height, used to compute a
// closed epoch's block count as next.start - this.start.
func FindNextEpochStartBlockHeight(tx *kv.Tx, from, to uint16) (*NextEpochStart, error) {
	for j := uint32(from) + 1; j <= uint32(to); j++ {
		idx := uint16(j)
		if !tx.Has(kv.EpochPath(idx)...) {
			continue
		}
		path := append(kv.EpochPath(idx), kv.KeyEpochStartBlockHeight)
		if !tx.Has(path...) {
			continue
		}
		height, err := GetStartBlockHeight(tx, idx)
		if err != nil {
			return nil, err
		}
		return &NextEpochStart{EpochIndex: idx, Height: height}, nil
	}
	return nil, nil
}

// DeleteOp queues removal of E(i)'s entire subtree (payout completion).
func DeleteOp(b *kv.Batch, i uint16) {
	b.Delete(kv.EpochPath(i))
}
