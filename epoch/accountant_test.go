package epoch_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashpay/drive-feepool/epoch"
	"github.com/dashpay/drive-feepool/errs"
)

func TestDeriveHeightOneAlwaysChanges(t *testing.T) {
	info, err := epoch.Derive(1000, 1000, nil)
	require.NoError(t, err)
	require.True(t, info.IsEpochChange)
	require.Equal(t, uint16(0), info.CurrentEpochIndex)
}

func TestDeriveSameEpochNoChange(t *testing.T) {
	genesis := uint64(1_000_000)
	prev := genesis + 10
	info, err := epoch.Derive(genesis, genesis+20, &prev)
	require.NoError(t, err)
	require.False(t, info.IsEpochChange)
	require.Equal(t, uint16(0), info.CurrentEpochIndex)
}

func TestDeriveCrossingEpochBoundary(t *testing.T) {
	genesis := uint64(0)
	prev := uint64(epoch.EpochLenMs - 1)
	info, err := epoch.Derive(genesis, epoch.EpochLenMs, &prev)
	require.NoError(t, err)
	require.True(t, info.IsEpochChange)
	require.Equal(t, uint16(1), info.CurrentEpochIndex)
}

func TestDeriveBlockBeforeGenesisFails(t *testing.T) {
	_, err := epoch.Derive(100, 50, nil)
	require.Error(t, err)
	var e *errs.BlockBeforeGenesis
	require.ErrorAs(t, err, &e)
}

func TestDeriveMultiBlockWalkAcrossBoundary(t *testing.T) {
	genesis := uint64(0)
	times := []uint64{
		0,
		epoch.EpochLenMs - 1,
		epoch.EpochLenMs,
		epoch.EpochLenMs + 1,
		2 * epoch.EpochLenMs,
	}
	wantChange := []bool{true, false, true, false, true}
	wantEpoch := []uint16{0, 0, 1, 1, 2}

	var prev *uint64
	for i, bt := range times {
		info, err := epoch.Derive(genesis, bt, prev)
		require.NoError(t, err)
		require.Equal(t, wantChange[i], info.IsEpochChange, "block %d", i)
		require.Equal(t, wantEpoch[i], info.CurrentEpochIndex, "block %d", i)
		btCopy := bt
		prev = &btCopy
	}
}
