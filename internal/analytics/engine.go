package analytics

import (
	"context"
	"fmt"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
	"github.com/hcrypto7/MigDBQuery/internal/storage"
)

// QueryFilter combines record predicates with analytics parameters.
type QueryFilter struct {
	domain.RecordFilter

	// WinPercent is the target win-percentage for common-rise estimation.
	// Nil means DefaultWinPercent. Valid range is [0, 100]; 0 selects the
	// maximum observed rise and 100 the minimum.
	WinPercent *float64
}

// SimulateOptions controls threshold simulation queries.
type SimulateOptions struct {
	// MinRise, when set, excludes records whose derived rise is below it
	// before grouping.
	MinRise *float64

	// MinGroupSize drops groups with fewer members from the result.
	MinGroupSize int

	// SortBy orders the result descending. Empty means migration rate.
	SortBy SortField

	// Limit truncates the result. 0 keeps all groups.
	Limit int
}

// topGroupsMinMembers is the member floor applied by TopGroups: a single
// record tells nothing about a configuration's consistency.
const topGroupsMinMembers = 2

// Engine computes group analytics over token records fetched from a store.
// It is stateless and synchronous: every invocation fetches its own record
// set, computes a fresh result and shares nothing with other invocations.
type Engine struct {
	store storage.TokenRecordStore
}

// NewEngine creates an analytics engine backed by store.
func NewEngine(store storage.TokenRecordStore) *Engine {
	return &Engine{store: store}
}

// ComputeGroups partitions matching records by the enabled dimensions and
// returns per-group statistics including migration rate, peak aggregates
// and the common rise at the filter's win-percentage. Groups are ordered
// by key.
func (e *Engine) ComputeGroups(ctx context.Context, spec domain.GroupSpec, filter QueryFilter) ([]*domain.GroupStats, error) {
	winPercent, err := resolveWinPercent(filter.WinPercent)
	if err != nil {
		return nil, err
	}

	records, err := e.store.Query(ctx, filter.RecordFilter)
	if err != nil {
		return nil, err
	}

	groups := BuildGroups(spec, records)
	for _, g := range groups {
		applyRiseStats(g, winPercent)
	}
	return groups, nil
}

// TopGroups returns groups with at least two members, sorted descending by
// migration rate and truncated to limit.
func (e *Engine) TopGroups(ctx context.Context, spec domain.GroupSpec, filter QueryFilter, limit int) ([]*domain.GroupStats, error) {
	groups, err := e.ComputeGroups(ctx, spec, filter)
	if err != nil {
		return nil, err
	}
	return RankGroups(groups, topGroupsMinMembers, SortByMigrationRate, limit), nil
}

// Summary computes the cross-group roll-up for matching records.
func (e *Engine) Summary(ctx context.Context, spec domain.GroupSpec, filter QueryFilter) (*domain.Summary, error) {
	groups, err := e.ComputeGroups(ctx, spec, filter)
	if err != nil {
		return nil, err
	}
	return Summarize(groups), nil
}

// SimulateThresholds runs the candidate ladder simulation for every group
// and attaches the resulting threshold plan. The risk level on the plan
// follows the win-rate rule; the CV-based label travels alongside for
// call sites that key off it.
func (e *Engine) SimulateThresholds(ctx context.Context, spec domain.GroupSpec, filter QueryFilter, opts SimulateOptions) ([]*domain.GroupStats, error) {
	winPercent, err := resolveWinPercent(filter.WinPercent)
	if err != nil {
		return nil, err
	}
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = SortByMigrationRate
	} else if _, err := ParseSortField(string(sortBy)); err != nil {
		return nil, err
	}

	records, err := e.store.Query(ctx, filter.RecordFilter)
	if err != nil {
		return nil, err
	}
	if opts.MinRise != nil {
		records = filterByMinRise(records, *opts.MinRise)
	}

	groups := BuildGroups(spec, records)
	for _, g := range groups {
		st := applyRiseStats(g, winPercent)
		g.Thresholds = SimulatePlan(st.rises, st.avgRise, st.avgBaseline)
	}
	return RankGroups(groups, opts.MinGroupSize, sortBy, opts.Limit), nil
}

// filterByMinRise drops records whose derived rise is below minRise.
func filterByMinRise(records []*domain.TokenRecord, minRise float64) []*domain.TokenRecord {
	kept := make([]*domain.TokenRecord, 0, len(records))
	for _, r := range records {
		if rise, _ := DeriveRise(r); rise >= minRise {
			kept = append(kept, r)
		}
	}
	return kept
}

// resolveWinPercent validates the win-percentage and applies the default.
// Validation runs before any fetch so invalid parameters never cost a
// store round trip.
func resolveWinPercent(winPercent *float64) (float64, error) {
	if winPercent == nil {
		return DefaultWinPercent, nil
	}
	if *winPercent < 0 || *winPercent > 100 {
		return 0, fmt.Errorf("%w: win percent must be in [0, 100], got %v", storage.ErrInvalidInput, *winPercent)
	}
	return *winPercent, nil
}
