// Package identity is the identity mini-store (C8): the payment sink
// the payout engine credits. Records are opaque, self-describing CBOR
// documents with an immutable id, a monotonic revision, a balance, and
// an ordered key map — only balance mutates in this core.
package identity

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/dashpay/drive-feepool/errs"
	"github.com/dashpay/drive-feepool/internal/fixedmath"
	"github.com/dashpay/drive-feepool/kv"
)

// PublicKey is one entry of an identity's ordered key map. KeyID is the
// map's ordering key — key-purpose/security-level semantics are an
// external collaborator (spec.md §1) and are not interpreted here.
type PublicKey struct {
	KeyID uint32 `cbor:"keyId"`
	Data  []byte `cbor:"data"`
}

// Identity is the CBOR-serialized record stored under the Identities
// root. Id is immutable once inserted.
type Identity struct {
	Id       [32]byte    `cbor:"id"`
	Revision uint64      `cbor:"revision"`
	Balance  uint64      `cbor:"balance"`
	Keys     []PublicKey `cbor:"keys"`
}

func path(id [32]byte) [][]byte {
	return [][]byte{{kv.RootIdentities}, id[:]}
}

// Fetch reads and CBOR-decodes the identity stored at id.
func Fetch(tx *kv.Tx, id [32]byte) (*Identity, error) {
	raw, err := tx.GetItem(path(id)...)
	if err != nil {
		return nil, err
	}
	var rec Identity
	if err := cbor.Unmarshal(raw, &rec); err != nil {
		return nil, &errs.Corrupted{Kind: errs.CorruptedType, Path: "identity", Detail: err.Error()}
	}
	return &rec, nil
}

// InsertOp queues the CBOR-encoded insertion of a brand-new identity.
func InsertOp(b *kv.Batch, rec Identity) error {
	raw, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}
	b.InsertItem(path(rec.Id), raw)
	return nil
}

// CreditBalanceOp reads id's current balance off tx, adds amount, and
// queues the re-encoded record onto b. Fails with errs.Overflow if the
// new balance would wrap a uint64 — per spec.md §3, this is a fatal
// data-corruption signal, never silently saturated.
func CreditBalanceOp(tx *kv.Tx, b *kv.Batch, id [32]byte, amount uint64) error {
	rec, err := Fetch(tx, id)
	if err != nil {
		return err
	}
	newBalance, err := fixedmath.SafeAdd(rec.Balance, amount, "identity-credit-balance")
	if err != nil {
		return err
	}
	rec.Balance = newBalance
	raw, err := cbor.Marshal(*rec)
	if err != nil {
		return err
	}
	b.InsertItem(path(id), raw)
	return nil
}
