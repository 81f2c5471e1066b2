package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders group rows as CSV string.
func RenderCSV(groups []GroupRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("group_key,members,migrated,migration_rate,total_max_sol,avg_max_sol,")
	sb.WriteString("avg_rise,avg_baseline,profitable_members,common_rise\n")

	// Rows
	for _, g := range groups {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%.2f,%.6f,%.6f,%.6f,%.6f,%d,%.6f\n",
			csvField(g.Key),
			g.Members,
			g.Migrated,
			g.MigrationRate,
			g.TotalMaxSOL,
			g.AvgMaxSOL,
			g.AvgRise,
			g.AvgBaseline,
			g.ProfitableMembers,
			g.CommonRise,
		))
	}

	return sb.String()
}

// RenderThresholdCSV renders threshold rows as CSV string.
func RenderThresholdCSV(rows []ThresholdRow) string {
	var sb strings.Builder

	sb.WriteString("group_key,members,optimal_fraction,optimal_threshold,optimal_sell_level,")
	sb.WriteString("optimal_win_rate,optimal_avg_profit,optimal_score,")
	sb.WriteString("conservative_threshold,aggressive_threshold,risk_level,cv,cv_risk_level\n")

	for _, t := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%.2f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%s,%.6f,%s\n",
			csvField(t.Key),
			t.Members,
			t.Optimal.Fraction,
			t.Optimal.Threshold,
			t.Optimal.SellLevel,
			t.Optimal.WinRate,
			t.Optimal.AvgProfit,
			t.Optimal.Score,
			t.Conservative.Threshold,
			t.Aggressive.Threshold,
			t.RiskLevel,
			t.CV,
			t.CVRiskLevel,
		))
	}

	return sb.String()
}

// csvField quotes a value when it contains a comma or quote.
func csvField(s string) string {
	if strings.ContainsAny(s, ",\"") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}
