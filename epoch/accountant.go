package epoch

import "github.com/dashpay/drive-feepool/errs"

// EpochLenMs is one epoch's length in milliseconds: 50 years split into
// 1000 epochs of ~18.25 days each.
const EpochLenMs = 1_576_800_000

// EpochsPerYear is how many epochs the storage-fee distribution table
// spreads across per calendar year.
const EpochsPerYear = 20

// Info is the result of deriving the current epoch from block times.
type Info struct {
	CurrentEpochIndex uint16
	IsEpochChange     bool
}

// Derive computes (current_epoch_index, is_epoch_change) from genesis
// time, the current block's time, and the previous block's time
// (absent only at block height 1).
//
//	current_epoch = floor((block_time - genesis_time) / EPOCH_LEN_MS)
//	is_epoch_change = previous absent OR floor((prev-genesis)/LEN) != current_epoch
func Derive(genesisMs, blockTimeMs uint64, previousBlockTimeMs *uint64) (Info, error) {
	if blockTimeMs < genesisMs {
		return Info{}, &errs.BlockBeforeGenesis{BlockTimeMs: blockTimeMs, GenesisTimeMs: genesisMs}
	}
	current := (blockTimeMs - genesisMs) / EpochLenMs
	isChange := previousBlockTimeMs == nil
	if !isChange {
		prevEpoch := (*previousBlockTimeMs - genesisMs) / EpochLenMs
		isChange = prevEpoch != current
	}
	return Info{CurrentEpochIndex: uint16(current), IsEpochChange: isChange}, nil
}
