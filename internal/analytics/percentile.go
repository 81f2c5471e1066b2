package analytics

import (
	"math"
	"sort"
)

// DefaultWinPercent is the win-percentage applied when a query does not
// supply one.
const DefaultWinPercent = 70

// CommonRise returns the rise value that approximately winPercent% of the
// given rises meet or exceed: the order statistic at rank
// floor(n * (1 - winPercent/100)) of the ascending-sorted list.
//
// This is deliberately a plain order statistic, not an interpolated
// percentile: with the small group sizes this engine sees, interpolation
// manufactures values no member ever reached, and the raw rank keeps the
// result reproducible. Duplicates at the rank are returned as-is.
//
// Returns 0 for an empty list. winPercent must already be validated to
// lie in [0, 100].
func CommonRise(rises []float64, winPercent float64) float64 {
	n := len(rises)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, rises)
	sort.Float64s(sorted)

	idx := int(math.Floor(float64(n) * (1 - winPercent/100)))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
