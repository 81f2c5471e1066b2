package analytics

import (
	"math"
	"sort"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
)

// BuildGroups partitions records by their composite key in a single pass.
// Member lists preserve input order; the returned slice is sorted by key
// so the result is independent of record input order otherwise.
func BuildGroups(spec domain.GroupSpec, records []*domain.TokenRecord) []*domain.GroupStats {
	byKey := make(map[string]*domain.GroupStats)

	for _, r := range records {
		key, parts := ComposeKey(spec, r)
		g, ok := byKey[key]
		if !ok {
			g = &domain.GroupStats{Key: key, KeyParts: parts}
			byKey[key] = g
		}

		g.Members++
		if r.Migrated {
			g.Migrated++
		}
		g.TotalMaxSOL += r.MaxSOL
		g.Records = append(g.Records, r)
	}

	groups := make([]*domain.GroupStats, 0, len(byKey))
	for _, g := range byKey {
		g.MigrationRate = MigrationRate(g.Migrated, g.Members)
		g.AvgMaxSOL = g.TotalMaxSOL / float64(g.Members)
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Key < groups[j].Key
	})
	return groups
}

// MigrationRate computes migrated/total as a percentage rounded to two
// decimal places. Returns 0 when total is 0.
func MigrationRate(migrated, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(migrated) / float64(total) * 100)
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
