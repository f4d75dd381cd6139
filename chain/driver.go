// Package chain implements the block lifecycle driver (C7): the three
// entry points consensus calls once per block — init_chain, block_begin,
// block_end — each committing its own atomic batch against the store.
package chain

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dashpay/drive-feepool/distribution"
	"github.com/dashpay/drive-feepool/epoch"
	"github.com/dashpay/drive-feepool/errs"
	"github.com/dashpay/drive-feepool/internal/fixedmath"
	"github.com/dashpay/drive-feepool/internal/xlog"
	"github.com/dashpay/drive-feepool/kv"
	"github.com/dashpay/drive-feepool/payout"
)

// blockContext is the single-slot execution context threaded from
// block_begin to its matching block_end.
type blockContext struct {
	height            uint64
	blockTimeMs       uint64
	proposerProTxHash [32]byte
	epochInfo         epoch.Info
}

// Driver owns the store handle, the in-memory genesis-time cache, the
// single-slot execution context, and the structured logger every
// callback reports through.
type Driver struct {
	store *kv.Store
	log   *zap.Logger

	mu            sync.Mutex
	genesisTimeMs *uint64
	ctx           *blockContext
}

// NewDriver wires a driver around store, logging through log (or a
// no-op logger if log is nil).
func NewDriver(store *kv.Store, log *zap.Logger) *Driver {
	if log == nil {
		log = xlog.Nop()
	}
	return &Driver{store: store, log: log}
}

// InitChain idempotently creates the five root subtrees and the 1000
// pre-initialized epoch subtrees, and zeroes the storage-fee pool. It
// fails with errs.AlreadyInitialized if the Pools root already exists.
func (d *Driver) InitChain() error {
	tx := d.store.View()
	if tx.Has(kv.PoolsPath()...) {
		err := &errs.AlreadyInitialized{}
		d.log.Error("init_chain", zap.Error(err))
		return err
	}

	b := kv.NewBatch()
	b.InsertTree([][]byte{{kv.RootIdentities}})
	b.InsertTree([][]byte{{kv.RootContractDocuments}})
	b.InsertTree([][]byte{{kv.RootPublicKeyHashesToIdents}})
	b.InsertTree([][]byte{{kv.RootSpentAssetLockTxns}})
	b.InsertTree(kv.PoolsPath())
	for i := 0; i < kv.NumPreInitializedEpochs; i++ {
		b.InsertTree(kv.EpochPath(uint16(i)))
	}
	epoch.UpdateStorageFeePoolOp(b, 0)

	if _, err := d.store.Apply(b); err != nil {
		d.log.Error("init_chain", zap.Error(err))
		return err
	}
	d.log.Info("init_chain")
	return nil
}

// BlockBegin derives the current epoch and epoch-change flag, persists
// genesis time on height 1, and stashes the execution context for the
// matching BlockEnd.
func (d *Driver) BlockBegin(req BlockBeginRequest) (BlockBeginResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	genesisMs, err := d.genesisTime(req)
	if err != nil {
		d.log.Error("block_begin", zap.Error(err))
		return BlockBeginResponse{}, err
	}

	info, err := epoch.Derive(genesisMs, req.BlockTimeMs, req.PreviousBlockTimeMs)
	if err != nil {
		d.log.Error("block_begin", zap.Error(err))
		return BlockBeginResponse{}, err
	}

	if d.ctx != nil {
		d.log.Warn("block_begin replacing non-empty execution context", zap.Uint64("height", d.ctx.height))
	}
	d.ctx = &blockContext{
		height:            req.BlockHeight,
		blockTimeMs:       req.BlockTimeMs,
		proposerProTxHash: req.ProposerProTxHash,
		epochInfo:         info,
	}

	d.log.Info("block_begin",
		zap.Uint64("height", req.BlockHeight),
		zap.Uint16("epoch", info.CurrentEpochIndex),
		zap.Bool("epoch_change", info.IsEpochChange),
	)
	return BlockBeginResponse{}, nil
}

// genesisTime returns the genesis time in ms, persisting it first if
// height is 1, and serving from the in-memory cache thereafter.
func (d *Driver) genesisTime(req BlockBeginRequest) (uint64, error) {
	if req.BlockHeight == 1 {
		g := req.BlockTimeMs
		b := kv.NewBatch()
		epoch.SetGenesisTimeOp(b, g)
		if _, err := d.store.Apply(b); err != nil {
			return 0, err
		}
		d.genesisTimeMs = &g
		return g, nil
	}

	if d.genesisTimeMs != nil {
		return *d.genesisTimeMs, nil
	}

	g, err := epoch.GetGenesisTime(d.store.View())
	if err != nil {
		if _, ok := err.(*errs.NotInitialized); ok {
			return 0, &errs.DriveIncoherence{Detail: "genesis time missing past height 1"}
		}
		return 0, err
	}
	d.genesisTimeMs = &g
	return g, nil
}

// BlockEnd commits the block's fee accounting: processing/storage fee
// accumulation, epoch-change distribution and proposer settlement,
// refunds, and the proposer's block-count increment, all in one atomic
// batch. It fails with errs.CorruptedCodeExecution if no matching
// BlockBegin preceded it.
func (d *Driver) BlockEnd(fees FeesAggregate) (BlockEndResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		err := &errs.CorruptedCodeExecution{}
		d.log.Error("block_end", zap.Error(err))
		return BlockEndResponse{}, err
	}
	ctx := d.ctx
	d.ctx = nil

	tx := d.store.View()
	b := kv.NewBatch()
	current := ctx.epochInfo.CurrentEpochIndex

	pool, err := epoch.GetStorageFeePool(tx)
	if err != nil {
		d.log.Error("block_end", zap.Error(err))
		return BlockEndResponse{}, err
	}

	if ctx.epochInfo.IsEpochChange {
		// Every epoch, including genesis epoch 0, is populated with its
		// start metadata the block it first becomes current (spec.md §3's
		// lifecycle: Empty -> Current via init_current).
		epoch.InitCurrentOp(b, current, fees.FeeMultiplier, ctx.height, int64(ctx.blockTimeMs))

		if current > 0 {
			// The invariant is a constant window of NumPreInitializedEpochs
			// subtrees starting at current; advancing current by one
			// requires creating exactly one new epoch at its trailing edge.
			// At genesis (current == 0) the window is already fully
			// pre-created by InitChain and the pool starts at 0, so there
			// is nothing to extend or distribute yet.
			nextAhead := uint16(uint32(current) + kv.NumPreInitializedEpochs - 1)
			b.InsertTree(kv.EpochPath(nextAhead))

			// The distribution window ends at nextAhead, which so far exists
			// only in b: read through the pending batch so it resolves.
			distTx, previewErr := kv.PreviewTx(tx, b)
			if previewErr != nil {
				d.log.Error("block_end", zap.Error(previewErr))
				return BlockEndResponse{}, previewErr
			}
			residue, distErr := distribution.Distribute(distTx, b, current, pool)
			if distErr != nil {
				d.log.Error("block_end", zap.Error(distErr))
				return BlockEndResponse{}, distErr
			}
			pool = residue
		}

		// The payout engine below may need to discover this epoch's
		// start height via find_next_epoch_start_block_height (e.g. when
		// the oldest unpaid epoch is current-1, the common case): that
		// read must see the InitCurrentOp write just queued above, even
		// though it isn't committed to the store yet.
		previewed, previewErr := kv.PreviewTx(tx, b)
		if previewErr != nil {
			d.log.Error("block_end", zap.Error(previewErr))
			return BlockEndResponse{}, previewErr
		}
		tx = previewed
	}

	processing, err := epoch.GetProcessingCredits(tx, current)
	if err != nil {
		d.log.Error("block_end", zap.Error(err))
		return BlockEndResponse{}, err
	}
	processing, err = fixedmath.SafeAdd(processing, fees.ProcessingFees, "block-end-processing-credits")
	if err != nil {
		d.log.Error("block_end", zap.Error(err))
		return BlockEndResponse{}, err
	}
	epoch.UpdateProcessingCreditsOp(b, current, processing)

	pool, err = fixedmath.SafeAdd(pool, fees.StorageFees, "block-end-storage-pool")
	if err != nil {
		d.log.Error("block_end", zap.Error(err))
		return BlockEndResponse{}, err
	}
	epoch.UpdateStorageFeePoolOp(b, pool)

	// Coalesce refunds by epoch first: two refunds to the same epoch both
	// read storage_credits(epoch) off the same pre-batch tx, so applying
	// them independently would have the second overwrite the first's
	// decrement instead of compounding.
	var refundOrder []uint16
	refundTotals := make(map[uint16]uint64, len(fees.RefundsByEpoch))
	for _, refund := range fees.RefundsByEpoch {
		if _, seen := refundTotals[refund.EpochIndex]; !seen {
			refundOrder = append(refundOrder, refund.EpochIndex)
		}
		total, addErr := fixedmath.SafeAdd(refundTotals[refund.EpochIndex], refund.Credits, "block-end-refund-total")
		if addErr != nil {
			d.log.Error("block_end", zap.Error(addErr))
			return BlockEndResponse{}, addErr
		}
		refundTotals[refund.EpochIndex] = total
	}
	for _, epochIndex := range refundOrder {
		credits, getErr := epoch.GetStorageCredits(tx, epochIndex)
		if getErr != nil {
			d.log.Error("block_end", zap.Error(getErr))
			return BlockEndResponse{}, getErr
		}
		credits, getErr = fixedmath.SafeSub(credits, refundTotals[epochIndex], "block-end-refund")
		if getErr != nil {
			d.log.Error("block_end", zap.Error(getErr))
			return BlockEndResponse{}, getErr
		}
		epoch.UpdateStorageCreditsOp(b, epochIndex, credits)
	}

	if err := epoch.IncrementProposerBlockCountOp(tx, b, current, ctx.proposerProTxHash); err != nil {
		d.log.Error("block_end", zap.Error(err))
		return BlockEndResponse{}, err
	}

	var masternodesPaid uint16
	var paidEpoch *uint16
	if ctx.epochInfo.IsEpochChange {
		result, payErr := payout.Run(tx, b, current)
		if payErr != nil {
			d.log.Error("block_end", zap.Error(payErr))
			return BlockEndResponse{}, payErr
		}
		if result != nil {
			masternodesPaid = uint16(result.ProposersPaid)
			paid := result.PaidEpoch
			paidEpoch = &paid
		}
	}

	// Cost-estimation pass over the fully-queued batch, run before it
	// commits: a dry-run byte-cost total for audit against the fees this
	// block collected, mirroring the original's two-pass batch design.
	writeCost := b.EstimateCost()

	if _, err := d.store.Apply(b); err != nil {
		d.log.Error("block_end", zap.Error(err))
		return BlockEndResponse{}, err
	}

	resp := BlockEndResponse{
		CurrentEpochIndex:    current,
		IsEpochChange:        ctx.epochInfo.IsEpochChange,
		MasternodesPaidCount: masternodesPaid,
		PaidEpochIndex:       paidEpoch,
		BatchWriteCost:       writeCost,
	}
	d.log.Info("block_end",
		zap.Uint64("height", ctx.height),
		zap.Uint16("epoch", current),
		zap.Bool("epoch_change", resp.IsEpochChange),
		zap.Uint16("masternodes_paid", masternodesPaid),
		zap.Uint64("batch_write_cost", writeCost),
	)
	return resp, nil
}
