package domain

import "fmt"

// Dimension identifies one supported grouping dimension.
// The set is closed so key composition stays deterministic and exhaustive.
type Dimension string

const (
	DimensionPattern     Dimension = "pattern"
	DimensionPrice       Dimension = "price"
	DimensionLimit       Dimension = "limit"
	DimensionBundleShape Dimension = "bundle"
)

// canonicalDimensions is the fixed composition order for group keys.
// Two records with identical enabled-dimension values always produce
// identical keys regardless of how the GroupSpec was assembled.
var canonicalDimensions = []Dimension{
	DimensionPattern,
	DimensionPrice,
	DimensionLimit,
	DimensionBundleShape,
}

// CanonicalDimensions returns the fixed key composition order.
func CanonicalDimensions() []Dimension {
	out := make([]Dimension, len(canonicalDimensions))
	copy(out, canonicalDimensions)
	return out
}

// ParseDimension converts a dimension name into a Dimension.
// Returns an error for unknown names.
func ParseDimension(name string) (Dimension, error) {
	switch Dimension(name) {
	case DimensionPattern, DimensionPrice, DimensionLimit, DimensionBundleShape:
		return Dimension(name), nil
	default:
		return "", fmt.Errorf("unknown grouping dimension: %q", name)
	}
}

// GroupSpec selects which dimensions participate in group keys.
// The zero value enables no dimensions, which places every record into
// a single default group.
type GroupSpec struct {
	Pattern     bool
	Price       bool
	Limit       bool
	BundleShape bool
}

// Enabled reports whether d participates in key composition.
func (s GroupSpec) Enabled(d Dimension) bool {
	switch d {
	case DimensionPattern:
		return s.Pattern
	case DimensionPrice:
		return s.Price
	case DimensionLimit:
		return s.Limit
	case DimensionBundleShape:
		return s.BundleShape
	default:
		return false
	}
}

// EnabledDimensions returns the enabled dimensions in canonical order.
func (s GroupSpec) EnabledDimensions() []Dimension {
	var dims []Dimension
	for _, d := range canonicalDimensions {
		if s.Enabled(d) {
			dims = append(dims, d)
		}
	}
	return dims
}

// GroupSpecFromNames builds a GroupSpec from dimension names.
// Returns an error on the first unknown name.
func GroupSpecFromNames(names []string) (GroupSpec, error) {
	var spec GroupSpec
	for _, name := range names {
		d, err := ParseDimension(name)
		if err != nil {
			return GroupSpec{}, err
		}
		switch d {
		case DimensionPattern:
			spec.Pattern = true
		case DimensionPrice:
			spec.Price = true
		case DimensionLimit:
			spec.Limit = true
		case DimensionBundleShape:
			spec.BundleShape = true
		}
	}
	return spec, nil
}
