// Package distribution implements the storage-fee distributor (C5): on
// every epoch change it spreads the aggregate storage-fee pool across
// the next 1000 epochs (50 years x 20 epochs/year) using a fixed
// 50-element decay table, writing the rounding residue back to the
// pool so distribution is exactly conservative.
package distribution

import (
	"github.com/dashpay/drive-feepool/epoch"
	"github.com/dashpay/drive-feepool/internal/fixedmath"
	"github.com/dashpay/drive-feepool/kv"
)

// TableScale is the fixed-point denominator every Table entry is
// expressed over: Table[y] credits a fraction Table[y]/TableScale of
// the pool to year y.
const TableScale = 100_000

// EpochsPerYear and YearsInTable together fix the 1000-epoch window a
// single distribution spreads over.
const (
	EpochsPerYear = 20
	YearsInTable  = 50
)

// Table is the 50-year decay schedule, scaled by TableScale. It sums to
// exactly TableScale (100% of the pool, no drift).
var Table = [YearsInTable]uint64{
	5000, 4800, 4600, 4400, 4200, 4000, 3850, 3700, 3550, 3400,
	3250, 3100, 2950, 2850, 2750, 2650, 2550, 2450, 2350, 2250,
	2150, 2050, 1950, 1875, 1800, 1725, 1650, 1575, 1500, 1425,
	1350, 1275, 1200, 1125, 1050, 975, 900, 825, 750, 675,
	600, 525, 475, 425, 375, 325, 275, 225, 175, 125,
}

// Distribute spreads pool across the 1000 epochs starting at
// currentEpoch (year 0 covers epochs [currentEpoch, currentEpoch+19],
// and so on through year 49), crediting each target epoch's storage
// credits via tx/b, and returns the residue that must be written back
// to the aggregate pool item. If pool is 0 this is a no-op: residue is
// 0 and b is left untouched (per spec.md §4.5 step 1).
func Distribute(tx *kv.Tx, b *kv.Batch, currentEpoch uint16, pool uint64) (residue uint64, err error) {
	if pool == 0 {
		return 0, nil
	}

	spent := uint64(0)
	for year, ratio := range Table {
		yearShare := fixedmath.MulDivFloor(pool, ratio, TableScale)
		epochShare := yearShare / EpochsPerYear
		if epochShare == 0 {
			continue
		}
		for k := 0; k < EpochsPerYear; k++ {
			target := currentEpoch + uint16(year*EpochsPerYear+k)
			existing, getErr := epoch.GetStorageCredits(tx, target)
			if getErr != nil {
				return 0, getErr
			}
			updated, addErr := fixedmath.SafeAdd(existing, epochShare, "storage-fee-distribution")
			if addErr != nil {
				return 0, addErr
			}
			epoch.UpdateStorageCreditsOp(b, target, updated)
			spent, addErr = fixedmath.SafeAdd(spent, epochShare, "storage-fee-distribution-spent")
			if addErr != nil {
				return 0, addErr
			}
		}
	}

	return pool - spent, nil
}
