package identity_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashpay/drive-feepool/errs"
	"github.com/dashpay/drive-feepool/identity"
	"github.com/dashpay/drive-feepool/kv"
)

func setup(t *testing.T) *kv.Store {
	t.Helper()
	s := kv.NewStore()
	b := kv.NewBatch()
	b.InsertTree([][]byte{{kv.RootIdentities}})
	_, err := s.Apply(b)
	require.NoError(t, err)
	return s
}

func TestInsertAndFetch(t *testing.T) {
	s := setup(t)
	var id [32]byte
	id[0] = 0xAB
	rec := identity.Identity{Id: id, Revision: 0, Balance: 10}

	b := kv.NewBatch()
	require.NoError(t, identity.InsertOp(b, rec))
	_, err := s.Apply(b)
	require.NoError(t, err)

	got, err := identity.Fetch(s.View(), id)
	require.NoError(t, err)
	require.Equal(t, uint64(10), got.Balance)
}

func TestCreditBalance(t *testing.T) {
	s := setup(t)
	var id [32]byte
	id[0] = 0x01
	b := kv.NewBatch()
	require.NoError(t, identity.InsertOp(b, identity.Identity{Id: id, Balance: 5}))
	_, err := s.Apply(b)
	require.NoError(t, err)

	b2 := kv.NewBatch()
	require.NoError(t, identity.CreditBalanceOp(s.View(), b2, id, 7))
	_, err = s.Apply(b2)
	require.NoError(t, err)

	got, err := identity.Fetch(s.View(), id)
	require.NoError(t, err)
	require.Equal(t, uint64(12), got.Balance)
}

func TestCreditBalanceOverflowFails(t *testing.T) {
	s := setup(t)
	var id [32]byte
	id[0] = 0x02
	b := kv.NewBatch()
	require.NoError(t, identity.InsertOp(b, identity.Identity{Id: id, Balance: math.MaxUint64}))
	_, err := s.Apply(b)
	require.NoError(t, err)

	b2 := kv.NewBatch()
	err = identity.CreditBalanceOp(s.View(), b2, id, 1)
	require.Error(t, err)
	var overflow *errs.Overflow
	require.ErrorAs(t, err, &overflow)
}

func TestFetchMissingFails(t *testing.T) {
	s := setup(t)
	var id [32]byte
	_, err := identity.Fetch(s.View(), id)
	require.Error(t, err)
	var notInit *errs.NotInitialized
	require.ErrorAs(t, err, &notInit)
}
