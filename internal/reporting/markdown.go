package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Grouping Analysis Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	groupBy := "none"
	if len(r.GroupBy) > 0 {
		groupBy = strings.Join(r.GroupBy, ", ")
	}
	sb.WriteString(fmt.Sprintf("Group by: %s | Win percent: %.0f\n\n", groupBy, r.WinPercent))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Groups | %d |\n", r.Summary.TotalGroups))
	sb.WriteString(fmt.Sprintf("| Total Records | %d |\n", r.Summary.TotalRecords))
	sb.WriteString(fmt.Sprintf("| Total Migrated | %d |\n", r.Summary.TotalMigrated))
	sb.WriteString(fmt.Sprintf("| Migration Rate | %.2f%% |\n", r.Summary.MigrationRate))
	sb.WriteString(fmt.Sprintf("| Avg Records / Group | %.2f |\n", r.Summary.AvgRecordsPerGroup))
	sb.WriteString(fmt.Sprintf("| Avg Group Migration Rate | %.2f%% |\n", r.Summary.AvgMigrationRate))
	sb.WriteString("\n")

	// Group metrics
	sb.WriteString("## Groups\n\n")
	if len(r.Groups) > 0 {
		sb.WriteString("| Group | Members | Migrated | MigRate% | TotalMaxSOL | AvgMaxSOL | AvgRise | AvgBaseline | Profitable | CommonRise |\n")
		sb.WriteString("|-------|---------|----------|----------|-------------|-----------|---------|-------------|------------|------------|\n")
		for _, g := range r.Groups {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.4f | %.4f | %.4f | %.4f | %d | %.4f |\n",
				g.Key, g.Members, g.Migrated, g.MigrationRate,
				g.TotalMaxSOL, g.AvgMaxSOL, g.AvgRise, g.AvgBaseline,
				g.ProfitableMembers, g.CommonRise))
		}
	} else {
		sb.WriteString("No groups matched the filter.\n")
	}
	sb.WriteString("\n")

	// Threshold plans
	if len(r.Thresholds) > 0 {
		sb.WriteString("## Sell Thresholds\n\n")
		sb.WriteString("| Group | Members | Optimal | SellLevel | WinRate | AvgProfit | Score | Conservative | Aggressive | Risk | CV | CV Risk |\n")
		sb.WriteString("|-------|---------|---------|-----------|---------|-----------|-------|--------------|------------|------|-----|--------|\n")
		for _, t := range r.Thresholds {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %s | %.4f | %s |\n",
				t.Key, t.Members,
				t.Optimal.Threshold, t.Optimal.SellLevel, t.Optimal.WinRate, t.Optimal.AvgProfit, t.Optimal.Score,
				t.Conservative.Threshold, t.Aggressive.Threshold,
				t.RiskLevel, t.CV, t.CVRiskLevel))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
