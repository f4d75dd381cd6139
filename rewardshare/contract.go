// Package rewardshare is the masternode reward-share document index
// (C10): a narrow, in-process stand-in for the external contract
// collaborator named in spec.md §1 and §6. It indexes "rewardShare"
// documents (owner pro-tx-hash -> ordered {payToId, percentage} list)
// under the fixed contract id from spec.md §6.
package rewardshare

import (
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"

	"github.com/dashpay/drive-feepool/errs"
	"github.com/dashpay/drive-feepool/kv"
)

// ContractID is the fixed 32-byte id the masternode reward-share
// contract is addressed under, per spec.md §6.
var ContractID = [32]byte{
	0x0c, 0xac, 0xe2, 0x05, 0x24, 0x66, 0x93, 0xa7,
	0xc8, 0x15, 0x65, 0x23, 0x62, 0x0d, 0xaa, 0x93,
	0x7d, 0x2f, 0x22, 0x47, 0x93, 0x44, 0x63, 0xee,
	0xb0, 0x1f, 0xf7, 0x21, 0x95, 0x90, 0x95, 0x8c,
}

// MaxPercentageSum is the basis-point ceiling a single owner's
// documents may never exceed (100.00%).
const MaxPercentageSum = 10_000

// Document is one rewardShare document: redirect percentage (hundredths
// of a percent) of owner's payout to PayToID.
type Document struct {
	DocID      uint64  `cbor:"docId"`
	PayToID    [32]byte `cbor:"payToId"`
	Percentage uint16  `cbor:"percentage"`
}

func ownerBase(owner [32]byte) [][]byte {
	return [][]byte{{kv.RootContractDocuments}, ContractID[:], owner[:]}
}

func docsPath(owner [32]byte) [][]byte {
	return append(ownerBase(owner), []byte("d"))
}

func ensureOwnerSubtreeOps(b *kv.Batch, owner [32]byte) {
	b.InsertTree([][]byte{{kv.RootContractDocuments}})
	b.InsertTree([][]byte{{kv.RootContractDocuments}, ContractID[:]})
	b.InsertTree(ownerBase(owner))
	b.InsertTree(docsPath(owner))
}

// ForOwner returns owner's reward-share documents in document-id order
// (insertion order), the total order spec.md §4.6 pins as
// consensus-critical for payout splitting. An owner with no documents
// yet returns an empty slice, not an error.
func ForOwner(tx *kv.Tx, owner [32]byte) ([]Document, error) {
	if !tx.Has(docsPath(owner)...) {
		return nil, nil
	}
	cur, err := tx.Cursor(docsPath(owner)...)
	if err != nil {
		return nil, err
	}
	var out []Document
	var iterErr error
	cur.Ascend(func(_ []byte, child *kv.Node) bool {
		if child.Kind != kv.NodeItem {
			iterErr = &errs.Corrupted{Kind: errs.CorruptedNotItem, Path: "rewardshare-doc"}
			return false
		}
		var doc Document
		if err := cbor.Unmarshal(child.Value, &doc); err != nil {
			iterErr = &errs.Corrupted{Kind: errs.CorruptedType, Path: "rewardshare-doc", Detail: err.Error()}
			return false
		}
		out = append(out, doc)
		return true
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return out, nil
}

// InsertOp queues a new rewardShare document for owner, enforcing the
// (ownerId, payToId) uniqueness constraint and the <=10_000 basis-point
// ceiling across all of owner's documents. Violating either fails the
// whole block with Corrupted{Type}, per spec.md §9's Open Question
// resolution.
func InsertOp(tx *kv.Tx, b *kv.Batch, owner, payTo [32]byte, percentage uint16) error {
	existing, err := ForOwner(tx, owner)
	if err != nil {
		return err
	}
	var sum uint64
	for _, d := range existing {
		if d.PayToID == payTo {
			return &errs.Corrupted{Kind: errs.CorruptedType, Path: "rewardshare", Detail: "duplicate (ownerId, payToId)"}
		}
		sum += uint64(d.Percentage)
	}
	sum += uint64(percentage)
	if sum > MaxPercentageSum {
		return &errs.Corrupted{Kind: errs.CorruptedType, Path: "rewardshare", Detail: "percentage sum exceeds 10000"}
	}

	ensureOwnerSubtreeOps(b, owner)
	doc := Document{DocID: uint64(len(existing)), PayToID: payTo, Percentage: percentage}
	raw, err := cbor.Marshal(doc)
	if err != nil {
		return err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, doc.DocID)
	b.InsertItem(append(docsPath(owner), key), raw)
	return nil
}
