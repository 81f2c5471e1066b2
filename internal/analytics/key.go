// Package analytics implements the grouping and threshold analytics engine:
// multi-key grouping of token records, per-group statistical aggregation,
// percentile-based common-rise estimation, and sell-threshold simulation
// with risk classification.
package analytics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
)

// DefaultGroupKey is the key assigned when no dimensions are enabled.
const DefaultGroupKey = "all"

// bundleVolumePrecision rounds bundle buy volume in key parts so the
// key space stays finite.
const bundleVolumePrecision = 2

// ComposeKey derives the composite group key for a record under spec.
// Enabled dimensions appear in canonical order (pattern, price, limit,
// bundle shape), so input ordering never affects the key.
func ComposeKey(spec domain.GroupSpec, r *domain.TokenRecord) (string, map[domain.Dimension]string) {
	parts := make(map[domain.Dimension]string)
	var segments []string

	for _, d := range domain.CanonicalDimensions() {
		if !spec.Enabled(d) {
			continue
		}
		v := dimensionValue(d, r)
		parts[d] = v
		segments = append(segments, string(d)+"="+v)
	}

	if len(segments) == 0 {
		return DefaultGroupKey, parts
	}
	return strings.Join(segments, "|"), parts
}

// dimensionValue renders one dimension of a record as a key segment.
func dimensionValue(d domain.Dimension, r *domain.TokenRecord) string {
	switch d {
	case domain.DimensionPattern:
		return r.Pattern
	case domain.DimensionPrice:
		return formatSOL(r.PriceSOL)
	case domain.DimensionLimit:
		return formatSOL(r.LimitSOL)
	case domain.DimensionBundleShape:
		return fmt.Sprintf("%dx%.*f", r.BundleCount, bundleVolumePrecision, r.BundleBuySOL)
	default:
		return ""
	}
}

// formatSOL renders a SOL amount without trailing zero noise so that
// numerically equal settings always yield the same key segment.
func formatSOL(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
