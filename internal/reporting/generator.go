package reporting

import (
	"time"

	"github.com/hcrypto7/MigDBQuery/internal/analytics"
	"github.com/hcrypto7/MigDBQuery/internal/domain"
)

// Generator builds reports from computed group statistics.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate assembles a report from ranked group results.
func (g *Generator) Generate(spec domain.GroupSpec, winPercent float64, groups []*domain.GroupStats) *Report {
	summary := analytics.Summarize(groups)

	r := &Report{
		GeneratedAt: g.now(),
		GroupBy:     dimensionNames(spec),
		WinPercent:  winPercent,
		Summary: SummarySection{
			TotalGroups:        summary.TotalGroups,
			TotalRecords:       summary.TotalRecords,
			TotalMigrated:      summary.TotalMigrated,
			MigrationRate:      summary.MigrationRate,
			AvgRecordsPerGroup: summary.AvgRecordsPerGroup,
			AvgMigrationRate:   summary.AvgMigrationRate,
		},
		Groups: make([]GroupRow, len(groups)),
	}

	for i, grp := range groups {
		r.Groups[i] = GroupRow{
			Key:               grp.Key,
			Members:           grp.Members,
			Migrated:          grp.Migrated,
			MigrationRate:     grp.MigrationRate,
			TotalMaxSOL:       grp.TotalMaxSOL,
			AvgMaxSOL:         grp.AvgMaxSOL,
			AvgRise:           grp.AvgRise,
			AvgBaseline:       grp.AvgBaseline,
			ProfitableMembers: grp.ProfitableMembers,
			CommonRise:        grp.CommonRise,
		}
		if grp.Thresholds != nil {
			r.Thresholds = append(r.Thresholds, thresholdRow(grp))
		}
	}

	return r
}

// thresholdRow flattens a group's threshold plan into a table row.
func thresholdRow(grp *domain.GroupStats) ThresholdRow {
	plan := grp.Thresholds
	return ThresholdRow{
		Key:          grp.Key,
		Members:      grp.Members,
		Optimal:      candidateCell(plan.Optimal),
		Conservative: candidateCell(plan.Conservative),
		Aggressive:   candidateCell(plan.Aggressive),
		RiskLevel:    string(plan.RiskLevel),
		CV:           plan.CV,
		CVRiskLevel:  string(plan.CVRiskLevel),
	}
}

func candidateCell(c domain.ThresholdCandidate) CandidateCell {
	return CandidateCell{
		Fraction:  c.Fraction,
		Threshold: c.Threshold,
		SellLevel: c.SellLevel,
		WinRate:   c.WinRate,
		AvgProfit: c.AvgProfit,
		Score:     c.Score,
	}
}

func dimensionNames(spec domain.GroupSpec) []string {
	dims := spec.EnabledDimensions()
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = string(d)
	}
	return names
}
