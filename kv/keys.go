// Package kv implements "the store": a content-addressed, hierarchical
// authenticated key-value forest, plus the stable byte schema the rest
// of the fee-pool state machine addresses it with.
//
// All multi-byte integers on disk are big-endian; the root discriminant
// is a single byte and every epoch key is exactly two bytes. Nothing in
// this file may reorder or repurpose these bytes — state roots depend
// on them.
package kv

import "encoding/binary"

// Root discriminants, single byte, top of the forest.
const (
	RootIdentities              byte = 0x00
	RootContractDocuments       byte = 0x01
	RootPublicKeyHashesToIdents byte = 0x02
	RootSpentAssetLockTxns      byte = 0x03
	RootPools                   byte = 0x04
)

// Item keys directly under Pools.
var (
	KeyGenesisTime    = []byte("g")
	KeyStorageFeePool = []byte("s")
)

// Item keys within a single epoch subtree E(i).
var (
	KeyEpochStorageCredits     = []byte("s")
	KeyEpochProcessingCredits  = []byte("p")
	KeyEpochFeeMultiplier      = []byte("m")
	KeyEpochStartBlockHeight   = []byte("c")
	KeyEpochStartBlockTime     = []byte("t")
	KeyEpochProposerBlockCount = []byte("r")
)

// NumPreInitializedEpochs is how many epoch subtrees, starting at and
// including the current one, exist at all times (1000 = 50 years x 20
// epochs/year).
const NumPreInitializedEpochs = 1000

// MaxEpochIndex is the inclusive upper bound on a 16-bit epoch index.
const MaxEpochIndex = 65535

// EpochKey encodes an epoch index as its 2-byte big-endian store key.
func EpochKey(index uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, index)
	return buf
}

// DecodeEpochKey is the inverse of EpochKey.
func DecodeEpochKey(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}

// PoolsPath returns the path to the Pools root, for use as a path
// prefix by callers that navigate into it further.
func PoolsPath() [][]byte {
	return [][]byte{{RootPools}}
}

// EpochPath returns the path to epoch subtree E(index) under Pools.
func EpochPath(index uint16) [][]byte {
	return [][]byte{{RootPools}, EpochKey(index)}
}

// EpochProposersPath returns the path to E(index)'s proposer block-count
// subtree.
func EpochProposersPath(index uint16) [][]byte {
	return append(EpochPath(index), KeyEpochProposerBlockCount)
}
