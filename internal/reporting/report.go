package reporting

import "time"

// Report holds a rendered-ready view of a grouping analysis run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	GroupBy     []string
	WinPercent  float64

	// Data Summary
	Summary SummarySection

	// Group rows (sorted as ranked by the engine)
	Groups []GroupRow

	// Threshold plans, present when the run simulated sell thresholds
	Thresholds []ThresholdRow
}

// SummarySection contains corpus-level totals.
type SummarySection struct {
	TotalGroups        int
	TotalRecords       int
	TotalMigrated      int
	MigrationRate      float64
	AvgRecordsPerGroup float64
	AvgMigrationRate   float64
}

// GroupRow represents one group in the metrics table.
type GroupRow struct {
	Key               string
	Members           int
	Migrated          int
	MigrationRate     float64
	TotalMaxSOL       float64
	AvgMaxSOL         float64
	AvgRise           float64
	AvgBaseline       float64
	ProfitableMembers int
	CommonRise        float64
}

// ThresholdRow represents the selected thresholds for one group.
type ThresholdRow struct {
	Key          string
	Members      int
	Optimal      CandidateCell
	Conservative CandidateCell
	Aggressive   CandidateCell
	RiskLevel    string
	CV           float64
	CVRiskLevel  string
}

// CandidateCell is one selected threshold candidate.
type CandidateCell struct {
	Fraction  float64
	Threshold float64
	SellLevel float64
	WinRate   float64
	AvgProfit float64
	Score     float64
}
