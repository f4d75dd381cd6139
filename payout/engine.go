// Package payout implements the proposer payout engine (C6): once per
// epoch change it settles the single oldest epoch still carrying an
// unpaid proposer block-count map, splitting that epoch's combined
// storage and processing credits across its proposers in proportion to
// blocks produced, honoring each proposer's reward-share redirects.
package payout

import (
	"github.com/dashpay/drive-feepool/epoch"
	"github.com/dashpay/drive-feepool/errs"
	"github.com/dashpay/drive-feepool/identity"
	"github.com/dashpay/drive-feepool/internal/fixedmath"
	"github.com/dashpay/drive-feepool/kv"
	"github.com/dashpay/drive-feepool/rewardshare"
)

// Result reports which epoch was settled and how many proposers shared
// in it.
type Result struct {
	PaidEpoch     uint16
	ProposersPaid int
}

// FindOldestUnpaid scans the epochs strictly behind currentEpoch for
// the most recent one that still carries a non-empty proposer
// block-count map. Under the one-payout-per-epoch-change invariant
// chain.Driver maintains, at most one such epoch ever exists at a time.
func FindOldestUnpaid(tx *kv.Tx, currentEpoch uint16) (uint16, bool, error) {
	for j := int32(currentEpoch) - 1; j >= 0; j-- {
		idx := uint16(j)
		if !tx.Has(kv.EpochPath(idx)...) {
			continue
		}
		if !tx.Has(kv.EpochProposersPath(idx)...) {
			continue
		}
		proposers, err := epoch.GetProposers(tx, idx, 1)
		if err != nil {
			return 0, false, err
		}
		if len(proposers) > 0 {
			return idx, true, nil
		}
	}
	return 0, false, nil
}

// Run settles the oldest unpaid epoch behind currentEpoch, if any. It
// returns (nil, nil) when there is nothing to pay out.
func Run(tx *kv.Tx, b *kv.Batch, currentEpoch uint16) (*Result, error) {
	p, found, err := FindOldestUnpaid(tx, currentEpoch)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	storage, err := epoch.GetStorageCredits(tx, p)
	if err != nil {
		return nil, err
	}
	processing, err := epoch.GetProcessingCredits(tx, p)
	if err != nil {
		return nil, err
	}
	total, err := fixedmath.SafeAdd(storage, processing, "payout-total")
	if err != nil {
		return nil, err
	}

	if total == 0 {
		epoch.DeleteOp(b, p)
		return &Result{PaidEpoch: p, ProposersPaid: 0}, nil
	}

	thisStart, err := epoch.GetStartBlockHeight(tx, p)
	if err != nil {
		return nil, err
	}
	next, err := epoch.FindNextEpochStartBlockHeight(tx, p, kv.MaxEpochIndex)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, &errs.UnexpectedMissingStart{Epoch: p}
	}
	blockCount, err := fixedmath.SafeSub(next.Height, thisStart, "payout-block-count")
	if err != nil {
		return nil, err
	}
	if blockCount == 0 {
		return nil, &errs.UnexpectedMissingStart{Epoch: p}
	}

	proposers, err := epoch.GetProposers(tx, p, 0)
	if err != nil {
		return nil, err
	}

	// Credits are accumulated per beneficiary id before any write is
	// queued, since two proposers' reward shares (or a proposer's own
	// residual and another proposer's redirect) can name the same
	// identity within a single payout; CreditBalanceOp only sees tx's
	// committed snapshot, not this batch's own pending writes.
	order := make([][32]byte, 0, len(proposers))
	credits := make(map[[32]byte]uint64, len(proposers))
	accumulate := func(id [32]byte, amount uint64) error {
		if amount == 0 {
			return nil
		}
		cur, seen := credits[id]
		if !seen {
			order = append(order, id)
		}
		sum, err := fixedmath.SafeAdd(cur, amount, "payout-accumulate")
		if err != nil {
			return err
		}
		credits[id] = sum
		return nil
	}

	for _, pc := range proposers {
		share := fixedmath.MulDivFloor(total, pc.Count, blockCount)
		if share == 0 {
			continue
		}

		docs, err := rewardshare.ForOwner(tx, pc.ProTxHash)
		if err != nil {
			return nil, err
		}

		remaining := share
		for _, doc := range docs {
			cut := fixedmath.MulDivFloor(share, uint64(doc.Percentage), rewardshare.MaxPercentageSum)
			if cut == 0 {
				continue
			}
			if err := accumulate(doc.PayToID, cut); err != nil {
				return nil, err
			}
			remaining, err = fixedmath.SafeSub(remaining, cut, "payout-residual")
			if err != nil {
				return nil, err
			}
		}
		if err := accumulate(pc.ProTxHash, remaining); err != nil {
			return nil, err
		}
	}

	for _, id := range order {
		if err := identity.CreditBalanceOp(tx, b, id, credits[id]); err != nil {
			return nil, err
		}
	}

	epoch.DeleteOp(b, p)
	return &Result{PaidEpoch: p, ProposersPaid: len(proposers)}, nil
}
