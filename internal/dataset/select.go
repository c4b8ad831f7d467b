package dataset

import (
	"math"
	"math/rand"

	"github.com/andresmejia3/mixres/internal/types"
)

// HighResCount is the number of images kept at the base resolution: floor(n * pct).
func HighResCount(n int, pct float64) int {
	k := int(math.Floor(float64(n) * pct))
	if k < 0 {
		return 0
	}
	if k > n {
		return n
	}
	return k
}

// SelectHighRes samples HighResCount(n, pct) distinct indices from [0, n) using rng
// and returns a membership mask indexed by enumeration position.
//
// The sample is a partial Fisher-Yates shuffle, so the result depends only on
// n, pct and the state of rng.
func SelectHighRes(n int, pct float64, rng *rand.Rand) []bool {
	k := HighResCount(n, pct)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}

	selected := make([]bool, n)
	for _, idx := range perm[:k] {
		selected[idx] = true
	}
	return selected
}

// Partition splits the enumerated records into tiers with a generator seeded from seed.
// It returns one tier per record, in enumeration order.
func Partition(records []types.ImageRecord, pct float64, seed int64) []types.Tier {
	rng := rand.New(rand.NewSource(seed))
	selected := SelectHighRes(len(records), pct, rng)

	tiers := make([]types.Tier, len(records))
	for i, hr := range selected {
		if hr {
			tiers[i] = types.HighRes
		} else {
			tiers[i] = types.LowRes
		}
	}
	return tiers
}
