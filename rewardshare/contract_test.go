package rewardshare_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashpay/drive-feepool/errs"
	"github.com/dashpay/drive-feepool/kv"
	"github.com/dashpay/drive-feepool/rewardshare"
)

func TestForOwnerEmptyWhenAbsent(t *testing.T) {
	s := kv.NewStore()
	var owner [32]byte
	docs, err := rewardshare.ForOwner(s.View(), owner)
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestInsertAndForOwnerOrder(t *testing.T) {
	s := kv.NewStore()
	var owner, payA, payB [32]byte
	owner[0] = 0x01
	payA[0] = 0xAA
	payB[0] = 0xBB

	b := kv.NewBatch()
	require.NoError(t, rewardshare.InsertOp(s.View(), b, owner, payA, 3000))
	_, err := s.Apply(b)
	require.NoError(t, err)

	b2 := kv.NewBatch()
	require.NoError(t, rewardshare.InsertOp(s.View(), b2, owner, payB, 4000))
	_, err = s.Apply(b2)
	require.NoError(t, err)

	docs, err := rewardshare.ForOwner(s.View(), owner)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, payA, docs[0].PayToID)
	require.Equal(t, uint16(3000), docs[0].Percentage)
	require.Equal(t, payB, docs[1].PayToID)
	require.Equal(t, uint16(4000), docs[1].Percentage)
}

func TestInsertDuplicatePayToFails(t *testing.T) {
	s := kv.NewStore()
	var owner, payTo [32]byte
	owner[0] = 0x02
	payTo[0] = 0xCC

	b := kv.NewBatch()
	require.NoError(t, rewardshare.InsertOp(s.View(), b, owner, payTo, 1000))
	_, err := s.Apply(b)
	require.NoError(t, err)

	b2 := kv.NewBatch()
	err = rewardshare.InsertOp(s.View(), b2, owner, payTo, 500)
	require.Error(t, err)
	var corrupted *errs.Corrupted
	require.ErrorAs(t, err, &corrupted)
}

func TestInsertOverPercentageCeilingFails(t *testing.T) {
	s := kv.NewStore()
	var owner, payA, payB [32]byte
	owner[0] = 0x03
	payA[0] = 0xAA
	payB[0] = 0xBB

	b := kv.NewBatch()
	require.NoError(t, rewardshare.InsertOp(s.View(), b, owner, payA, 9000))
	_, err := s.Apply(b)
	require.NoError(t, err)

	b2 := kv.NewBatch()
	err = rewardshare.InsertOp(s.View(), b2, owner, payB, 1001)
	require.Error(t, err)
	var corrupted *errs.Corrupted
	require.ErrorAs(t, err, &corrupted)
}

func TestInsertExactlyAtCeilingSucceeds(t *testing.T) {
	s := kv.NewStore()
	var owner, payA, payB [32]byte
	owner[0] = 0x04
	payA[0] = 0xAA
	payB[0] = 0xBB

	b := kv.NewBatch()
	require.NoError(t, rewardshare.InsertOp(s.View(), b, owner, payA, 9000))
	_, err := s.Apply(b)
	require.NoError(t, err)

	b2 := kv.NewBatch()
	require.NoError(t, rewardshare.InsertOp(s.View(), b2, owner, payB, 1000))
	_, err = s.Apply(b2)
	require.NoError(t, err)

	docs, err := rewardshare.ForOwner(s.View(), owner)
	require.NoError(t, err)
	require.Len(t, docs, 2)
}
