package analytics

import (
	"math"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
)

// ladderFractions is the fixed candidate ladder, as fractions of a group's
// average rise. Ascending order matters: conservative selection keeps the
// smallest threshold among win-rate ties.
var ladderFractions = []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

// Win-rate boundaries for risk classification. Lower bounds are inclusive.
const (
	winRateMediumRisk = 0.60
	winRateLowRisk    = 0.75
)

// CV boundaries for the coefficient-of-variation classification used by
// the percentile-based call path.
const (
	cvLowRisk  = 0.3
	cvHighRisk = 0.5
)

// SimulatePlan evaluates the full candidate ladder against a group's rises
// and selects the optimal, conservative and aggressive thresholds.
//
// A member wins at threshold t when its rise >= t and contributes profit t:
// the simulation assumes a threshold-triggered exit captures exactly the
// threshold amount. A losing member contributes max(rise, 0). When the
// average rise is zero or negative the ladder degenerates; candidates are
// clamped at 0 so the win definition stays well-formed and a result is
// still produced.
func SimulatePlan(rises []float64, avgRise, avgBaseline float64) *domain.ThresholdPlan {
	n := len(rises)

	candidates := make([]domain.ThresholdCandidate, 0, len(ladderFractions))
	for _, frac := range ladderFractions {
		t := frac * avgRise
		if t < 0 {
			t = 0
		}

		c := domain.ThresholdCandidate{
			Fraction:  frac,
			Threshold: t,
			SellLevel: avgBaseline + t,
		}
		for _, rise := range rises {
			if rise >= t {
				c.Wins++
				c.TotalProfit += t
			} else {
				c.Losses++
				c.TotalProfit += math.Max(rise, 0)
			}
		}
		if n > 0 {
			c.WinRate = float64(c.Wins) / float64(n)
			c.AvgProfit = c.TotalProfit / float64(n)
		}
		c.Score = c.WinRate * c.AvgProfit
		candidates = append(candidates, c)
	}

	plan := &domain.ThresholdPlan{
		Candidates:   candidates,
		Optimal:      candidates[0],
		Conservative: candidates[0],
		Aggressive:   candidates[0],
	}
	for _, c := range candidates[1:] {
		if c.Score > plan.Optimal.Score {
			plan.Optimal = c
		}
		if c.WinRate > plan.Conservative.WinRate {
			plan.Conservative = c
		}
		if c.AvgProfit > plan.Aggressive.AvgProfit {
			plan.Aggressive = c
		}
	}

	plan.RiskLevel = ClassifyWinRate(plan.Optimal.WinRate)
	plan.CV = CoefficientOfVariation(rises, avgRise)
	plan.CVRiskLevel = ClassifyCV(plan.CV)
	return plan
}

// ClassifyWinRate maps an optimal win rate to a risk level.
// Boundaries: < 0.6 HIGH, [0.6, 0.75) MEDIUM, >= 0.75 LOW.
func ClassifyWinRate(winRate float64) domain.RiskLevel {
	switch {
	case winRate < winRateMediumRisk:
		return domain.RiskHigh
	case winRate < winRateLowRisk:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// ClassifyCV maps a coefficient of variation to a risk level.
// Boundaries: > 0.5 HIGH, [0.3, 0.5] MEDIUM, < 0.3 LOW.
func ClassifyCV(cv float64) domain.RiskLevel {
	switch {
	case cv > cvHighRisk:
		return domain.RiskHigh
	case cv >= cvLowRisk:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// CoefficientOfVariation returns sample stddev of rises divided by the
// mean rise. Returns 0 when the mean is not positive: a volatility ratio
// over a non-positive mean carries no signal.
func CoefficientOfVariation(rises []float64, mean float64) float64 {
	if mean <= 0 || len(rises) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, r := range rises {
		diff := r - mean
		sumSq += diff * diff
	}
	stddev := math.Sqrt(sumSq / float64(len(rises)-1))
	return stddev / mean
}
