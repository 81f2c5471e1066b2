package domain

// RiskLevel is a coarse classification of a group's predictability.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ThresholdCandidate is one hypothetical exit point evaluated by simulation.
type ThresholdCandidate struct {
	Fraction    float64 // fraction of the group's average rise
	Threshold   float64 // absolute rise threshold (SOL), clamped at 0
	SellLevel   float64 // average baseline + threshold
	Wins        int
	Losses      int
	WinRate     float64
	TotalProfit float64
	AvgProfit   float64
	Score       float64 // win rate x average profit
}

// ThresholdPlan holds the simulated ladder and the selected candidates.
type ThresholdPlan struct {
	Candidates   []ThresholdCandidate
	Optimal      ThresholdCandidate // maximizes score
	Conservative ThresholdCandidate // maximizes win rate (smallest threshold on ties)
	Aggressive   ThresholdCandidate // maximizes average profit

	// RiskLevel is derived from the optimal candidate's win rate.
	RiskLevel RiskLevel

	// CV and CVRiskLevel use the coefficient-of-variation rule instead.
	// Some call sites key off CV thresholds, so both stay available.
	CV          float64
	CVRiskLevel RiskLevel
}

// GroupStats is one partition key with its accumulated statistics.
// Computed fresh on every query; never persisted.
type GroupStats struct {
	Key      string            // composed group key
	KeyParts map[Dimension]string

	Members       int
	Migrated      int
	MigrationRate float64 // percent, rounded to 2 decimal places

	TotalMaxSOL float64
	AvgMaxSOL   float64

	// Rise statistics over members with a finite derived rise.
	AvgRise     float64
	AvgBaseline float64

	// ProfitableMembers counts members whose derived rise is positive.
	ProfitableMembers int

	// CommonRise is the rise value that WinPercent% of members meet or exceed.
	CommonRise float64
	WinPercent float64

	// Records holds members in input order.
	Records []*TokenRecord

	// Thresholds is set only when threshold simulation was requested.
	Thresholds *ThresholdPlan
}

// Summary is a cross-group roll-up.
type Summary struct {
	TotalGroups        int
	TotalRecords       int
	TotalMigrated      int
	MigrationRate      float64 // percent across all records
	AvgRecordsPerGroup float64
	AvgMigrationRate   float64 // mean of per-group rates
}
