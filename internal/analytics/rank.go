package analytics

import (
	"fmt"
	"sort"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
)

// SortField selects the descending sort key for ranked group lists.
type SortField string

const (
	SortByMigrationRate SortField = "migration_rate"
	SortByTotalMaxSOL   SortField = "total_max_sol"
	SortByAvgMaxSOL     SortField = "avg_max_sol"
	SortByMembers       SortField = "members"
	SortByCommonRise    SortField = "common_rise"
)

// ParseSortField converts a sort field name into a SortField.
func ParseSortField(name string) (SortField, error) {
	switch SortField(name) {
	case SortByMigrationRate, SortByTotalMaxSOL, SortByAvgMaxSOL, SortByMembers, SortByCommonRise:
		return SortField(name), nil
	default:
		return "", fmt.Errorf("unknown sort field: %q", name)
	}
}

// sortValue extracts the numeric sort key for a group.
func sortValue(g *domain.GroupStats, field SortField) float64 {
	switch field {
	case SortByTotalMaxSOL:
		return g.TotalMaxSOL
	case SortByAvgMaxSOL:
		return g.AvgMaxSOL
	case SortByMembers:
		return float64(g.Members)
	case SortByCommonRise:
		return g.CommonRise
	default:
		return g.MigrationRate
	}
}

// RankGroups filters groups by minimum member count, sorts them descending
// by field (ties broken by key ascending for deterministic output) and
// truncates to limit. A limit <= 0 keeps all groups.
func RankGroups(groups []*domain.GroupStats, minMembers int, field SortField, limit int) []*domain.GroupStats {
	ranked := make([]*domain.GroupStats, 0, len(groups))
	for _, g := range groups {
		if g.Members >= minMembers {
			ranked = append(ranked, g)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := sortValue(ranked[i], field), sortValue(ranked[j], field)
		if vi != vj {
			return vi > vj
		}
		return ranked[i].Key < ranked[j].Key
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Summarize rolls up a group list into cross-group totals and rates.
// All divisions are zero-guarded: an empty list yields a zeroed summary.
func Summarize(groups []*domain.GroupStats) *domain.Summary {
	s := &domain.Summary{TotalGroups: len(groups)}

	var rateSum float64
	for _, g := range groups {
		s.TotalRecords += g.Members
		s.TotalMigrated += g.Migrated
		rateSum += g.MigrationRate
	}

	s.MigrationRate = MigrationRate(s.TotalMigrated, s.TotalRecords)
	if s.TotalGroups > 0 {
		s.AvgRecordsPerGroup = round2(float64(s.TotalRecords) / float64(s.TotalGroups))
		s.AvgMigrationRate = round2(rateSum / float64(s.TotalGroups))
	}
	return s
}
