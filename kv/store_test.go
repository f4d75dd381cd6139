package kv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashpay/drive-feepool/errs"
	"github.com/dashpay/drive-feepool/kv"
)

func TestApplyEmptyBatchFails(t *testing.T) {
	s := kv.NewStore()
	_, err := s.Apply(kv.NewBatch())
	require.Error(t, err)
	var batchErr *errs.BatchIsEmpty
	require.ErrorAs(t, err, &batchErr)
}

func TestInsertAndReadItem(t *testing.T) {
	s := kv.NewStore()
	b := kv.NewBatch()
	b.InsertTree(kv.PoolsPath())
	b.InsertItem(append(kv.PoolsPath(), kv.KeyGenesisTime), kv.EncodeU64(42))
	_, err := s.Apply(b)
	require.NoError(t, err)

	tx := s.View()
	raw, err := tx.GetItem(append(kv.PoolsPath(), kv.KeyGenesisTime)...)
	require.NoError(t, err)
	v, err := kv.DecodeU64("g", raw)
	require.NoError(t, err)
	require.Equal(t, uint64(42), v)
}

func TestFailedOpLeavesStoreUnchanged(t *testing.T) {
	s := kv.NewStore()
	b := kv.NewBatch()
	b.InsertTree(kv.PoolsPath())
	b.InsertItem(append(kv.PoolsPath(), kv.KeyGenesisTime), kv.EncodeU64(1))
	_, err := s.Apply(b)
	require.NoError(t, err)
	before := s.RootCommitment()

	bad := kv.NewBatch()
	// Path into a nonexistent subtree - must fail without touching root.
	bad.InsertItem([][]byte{{kv.RootPools}, kv.EpochKey(0), []byte("s")}, kv.EncodeU64(99))
	_, err = s.Apply(bad)
	require.Error(t, err)
	require.Equal(t, before, s.RootCommitment())
}

func TestCursorOrdersByKeyBytes(t *testing.T) {
	s := kv.NewStore()
	b := kv.NewBatch()
	b.InsertTree(kv.PoolsPath())
	b.InsertTree(kv.EpochPath(5))
	b.InsertTree(kv.EpochProposersPath(5))
	proposers := [][]byte{{0x02}, {0x01}, {0x03}}
	for _, p := range proposers {
		b.InsertItem(append(kv.EpochProposersPath(5), p), kv.EncodeU64(1))
	}
	_, err := s.Apply(b)
	require.NoError(t, err)

	tx := s.View()
	cur, err := tx.Cursor(kv.EpochProposersPath(5)...)
	require.NoError(t, err)
	var seen [][]byte
	cur.Ascend(func(key []byte, _ *kv.Node) bool {
		k := make([]byte, len(key))
		copy(k, key)
		seen = append(seen, k)
		return true
	})
	require.Equal(t, [][]byte{{0x01}, {0x02}, {0x03}}, seen)
}

func TestPreviewTxSeesPendingBatchWritesWithoutCommitting(t *testing.T) {
	s := kv.NewStore()
	seed := kv.NewBatch()
	seed.InsertTree(kv.PoolsPath())
	seed.InsertTree(kv.EpochPath(1))
	_, err := s.Apply(seed)
	require.NoError(t, err)

	before := s.RootCommitment()

	b := kv.NewBatch()
	b.InsertItem(append(kv.EpochPath(1), []byte("c")), kv.EncodeU64(55))

	previewed, err := kv.PreviewTx(s.View(), b)
	require.NoError(t, err)

	// The previewed Tx sees the pending write...
	raw, err := previewed.GetItem(append(kv.EpochPath(1), []byte("c"))...)
	require.NoError(t, err)
	v, err := kv.DecodeU64("c", raw)
	require.NoError(t, err)
	require.Equal(t, uint64(55), v)

	// ...but the store itself is untouched until the batch is applied.
	require.Equal(t, before, s.RootCommitment())
	_, err = s.View().GetItem(append(kv.EpochPath(1), []byte("c"))...)
	require.Error(t, err)

	_, err = s.Apply(b)
	require.NoError(t, err)
	raw, err = s.View().GetItem(append(kv.EpochPath(1), []byte("c"))...)
	require.NoError(t, err)
	v, err = kv.DecodeU64("c", raw)
	require.NoError(t, err)
	require.Equal(t, uint64(55), v)
}

func TestPreviewTxWithEmptyBatchReturnsSameTx(t *testing.T) {
	s := kv.NewStore()
	seed := kv.NewBatch()
	seed.InsertTree(kv.PoolsPath())
	_, err := s.Apply(seed)
	require.NoError(t, err)

	tx := s.View()
	previewed, err := kv.PreviewTx(tx, kv.NewBatch())
	require.NoError(t, err)
	require.Same(t, tx, previewed)
}

func TestDeterministicCommitment(t *testing.T) {
	build := func() [32]byte {
		s := kv.NewStore()
		b := kv.NewBatch()
		b.InsertTree(kv.PoolsPath())
		b.InsertItem(append(kv.PoolsPath(), kv.KeyStorageFeePool), kv.EncodeU64(1000))
		_, err := s.Apply(b)
		require.NoError(t, err)
		return s.RootCommitment()
	}
	require.Equal(t, build(), build())
}
