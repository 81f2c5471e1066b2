package analytics

import (
	"math"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
)

// minBaselineSOL is the minimum plausible entry baseline. First buys below
// this are recording artifacts, not genuine entry prices, and would inflate
// the computed rise; the configured buy amount substitutes for them.
const minBaselineSOL = 0.05

// DeriveRise computes a record's entry baseline and rise (peak minus
// baseline). Pure; the record is never modified.
func DeriveRise(r *domain.TokenRecord) (rise, baseline float64) {
	baseline = r.FirstBuySOL
	if baseline < minBaselineSOL {
		baseline = r.BuyAmountSOL
	}
	return r.MaxSOL - baseline, baseline
}

// riseStats holds per-group rise aggregates over members with a finite rise.
type riseStats struct {
	rises       []float64 // finite rises, member input order
	avgRise     float64
	avgBaseline float64
	profitable  int // members with rise > 0
}

// computeRiseStats derives rises for a group's members. Members whose rise
// is not finite are excluded from the rise list but remain in the group.
func computeRiseStats(records []*domain.TokenRecord) riseStats {
	var st riseStats
	var riseSum, baseSum float64

	for _, r := range records {
		rise, baseline := DeriveRise(r)
		if math.IsNaN(rise) || math.IsInf(rise, 0) {
			continue
		}
		st.rises = append(st.rises, rise)
		riseSum += rise
		baseSum += baseline
		if rise > 0 {
			st.profitable++
		}
	}

	if n := len(st.rises); n > 0 {
		st.avgRise = riseSum / float64(n)
		st.avgBaseline = baseSum / float64(n)
	}
	return st
}

// applyRiseStats derives a group's rise statistics and common rise,
// returning the stats for further use by the threshold simulator.
func applyRiseStats(g *domain.GroupStats, winPercent float64) riseStats {
	st := computeRiseStats(g.Records)
	g.AvgRise = st.avgRise
	g.AvgBaseline = st.avgBaseline
	g.ProfitableMembers = st.profitable
	g.WinPercent = winPercent
	g.CommonRise = CommonRise(st.rises, winPercent)
	return st
}
