// Package errs is the fee-pool state machine's error taxonomy. Every
// error a caller might need to branch on (as opposed to just logging
// and aborting the block) is a distinguishable type here.
package errs

import "fmt"

// CorruptedKind distinguishes the ways a stored value can fail to match
// what a reader expected.
type CorruptedKind int

const (
	CorruptedLength CorruptedKind = iota
	CorruptedNotItem
	CorruptedType
)

func (k CorruptedKind) String() string {
	switch k {
	case CorruptedLength:
		return "Length"
	case CorruptedNotItem:
		return "NotItem"
	case CorruptedType:
		return "Type"
	default:
		return "Unknown"
	}
}

// NotInitialized means a store path was absent where one is required.
type NotInitialized struct {
	Path string
}

func (e *NotInitialized) Error() string {
	return fmt.Sprintf("not initialized: %s", e.Path)
}

// Corrupted means a stored value has the wrong byte length, wrong node
// kind, or wrong structural type. Always fatal: it indicates on-disk
// corruption and must never be caught locally.
type Corrupted struct {
	Kind CorruptedKind
	Path string
	Detail string
}

func (e *Corrupted) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("corrupted(%s): %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("corrupted(%s): %s: %s", e.Kind, e.Path, e.Detail)
}

// Overflow means a credit addition or similar arithmetic op would wrap.
type Overflow struct {
	Op string
}

func (e *Overflow) Error() string {
	return fmt.Sprintf("overflow in %s", e.Op)
}

// BlockBeforeGenesis means block_time_ms precedes genesis_ms.
type BlockBeforeGenesis struct {
	BlockTimeMs   uint64
	GenesisTimeMs uint64
}

func (e *BlockBeforeGenesis) Error() string {
	return fmt.Sprintf("block time %d precedes genesis time %d", e.BlockTimeMs, e.GenesisTimeMs)
}

// DriveIncoherence means an expected invariant was violated, e.g. no
// genesis time after height 1.
type DriveIncoherence struct {
	Detail string
}

func (e *DriveIncoherence) Error() string {
	return fmt.Sprintf("drive incoherence: %s", e.Detail)
}

// CorruptedCodeExecution means the execution-context slot was empty in
// block_end. This indicates out-of-order callbacks.
type CorruptedCodeExecution struct{}

func (e *CorruptedCodeExecution) Error() string {
	return "corrupted code execution: no block context"
}

// BatchIsEmpty means a caller tried to commit a no-op batch. Recoverable
// (the caller should just skip the commit).
type BatchIsEmpty struct{}

func (e *BatchIsEmpty) Error() string {
	return "batch is empty"
}

// AlreadyInitialized means init_chain ran against a non-empty store.
type AlreadyInitialized struct{}

func (e *AlreadyInitialized) Error() string {
	return "already initialized"
}

// UnexpectedMissingStart means the payout engine could not discover a
// newer epoch's start height while computing an epoch's block length.
type UnexpectedMissingStart struct {
	Epoch uint16
}

func (e *UnexpectedMissingStart) Error() string {
	return fmt.Sprintf("unexpected missing start height after epoch %d", e.Epoch)
}
