package analytics

import (
	"context"
	"testing"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
	"github.com/hcrypto7/MigDBQuery/internal/storage/memory"
)

func seedStore(t *testing.T, records []*domain.TokenRecord) *memory.TokenRecordStore {
	t.Helper()
	store := memory.NewTokenRecordStore()
	if err := store.InsertBulk(context.Background(), records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	return store
}

func TestEngineComputeGroupsWithFilter(t *testing.T) {
	ctx := context.Background()
	records := []*domain.TokenRecord{
		makeRecord("m1", "pump", 0.5, 0.2, true),  // MaxSOL 0.7, filtered out
		makeRecord("m2", "pump", 0.5, 0.6, true),  // MaxSOL 1.1
		makeRecord("m3", "pump", 0.5, 2.0, false), // MaxSOL 2.5
		makeRecord("m4", "dump", 0.5, 0.1, false), // MaxSOL 0.6, filtered out
	}
	engine := NewEngine(seedStore(t, records))

	minMax := 1.0
	filter := QueryFilter{}
	filter.MinMaxSOL = &minMax

	groups, err := engine.ComputeGroups(ctx, domain.GroupSpec{Pattern: true}, filter)
	if err != nil {
		t.Fatalf("ComputeGroups failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group after filtering, got %d", len(groups))
	}
	g := groups[0]
	if g.Key != "pattern=pump" {
		t.Errorf("key = %q", g.Key)
	}
	if g.Members != 2 {
		t.Errorf("members = %d, want 2", g.Members)
	}
	if !almostEqual(g.MigrationRate, 50) {
		t.Errorf("migration rate = %v, want 50", g.MigrationRate)
	}
	if !almostEqual(g.WinPercent, DefaultWinPercent) {
		t.Errorf("win percent = %v, want default %v", g.WinPercent, float64(DefaultWinPercent))
	}
}

func TestEngineWinPercentValidation(t *testing.T) {
	engine := NewEngine(memory.NewTokenRecordStore())
	ctx := context.Background()

	for _, bad := range []float64{-1, 101, 1000} {
		_, err := engine.ComputeGroups(ctx, domain.GroupSpec{}, QueryFilter{WinPercent: &bad})
		if err == nil {
			t.Errorf("expected error for win percent %v", bad)
		}
	}

	// Unset selects the default instead of failing.
	if _, err := engine.ComputeGroups(ctx, domain.GroupSpec{}, QueryFilter{}); err != nil {
		t.Errorf("unset win percent should use the default: %v", err)
	}

	// Boundary values are valid.
	for _, ok := range []float64{0, 0.5, 100} {
		if _, err := engine.ComputeGroups(ctx, domain.GroupSpec{}, QueryFilter{WinPercent: &ok}); err != nil {
			t.Errorf("win percent %v should be valid: %v", ok, err)
		}
	}
}

func TestEngineWinPercentBounds(t *testing.T) {
	ctx := context.Background()
	records := []*domain.TokenRecord{
		makeRecord("m1", "pump", 0.5, 0.2, false),
		makeRecord("m2", "pump", 0.5, 0.4, true),
		makeRecord("m3", "pump", 0.5, 1.9, true),
		makeRecord("m4", "pump", 0.5, 2.1, false),
		makeRecord("m5", "pump", 0.5, 3.8, true),
		makeRecord("m6", "pump", 0.5, 6.5, true),
	}
	engine := NewEngine(seedStore(t, records))
	spec := domain.GroupSpec{Pattern: true}

	// Win percent 0 demands no wins at all, so every token clears the
	// maximum observed rise.
	zero := 0.0
	groups, err := engine.ComputeGroups(ctx, spec, QueryFilter{WinPercent: &zero})
	if err != nil {
		t.Fatalf("ComputeGroups failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if !almostEqual(groups[0].WinPercent, 0) {
		t.Errorf("win percent = %v, want 0", groups[0].WinPercent)
	}
	if !almostEqual(groups[0].CommonRise, 6.5) {
		t.Errorf("common rise at 0%% = %v, want 6.5", groups[0].CommonRise)
	}

	// Win percent 100 requires every token to reach the level, which is
	// only true of the minimum rise.
	hundred := 100.0
	groups, err = engine.ComputeGroups(ctx, spec, QueryFilter{WinPercent: &hundred})
	if err != nil {
		t.Fatalf("ComputeGroups failed: %v", err)
	}
	if !almostEqual(groups[0].CommonRise, 0.2) {
		t.Errorf("common rise at 100%% = %v, want 0.2", groups[0].CommonRise)
	}
}

func TestEngineTopGroupsMemberFloor(t *testing.T) {
	ctx := context.Background()
	records := []*domain.TokenRecord{
		makeRecord("m1", "pump", 0.5, 1.0, true),
		makeRecord("m2", "pump", 0.5, 2.0, true),
		makeRecord("m3", "dump", 0.5, 3.0, true), // single member, dropped
		makeRecord("m4", "flat", 0.5, 1.0, false),
		makeRecord("m5", "flat", 0.5, 1.0, false),
	}
	engine := NewEngine(seedStore(t, records))

	groups, err := engine.TopGroups(ctx, domain.GroupSpec{Pattern: true}, QueryFilter{}, 10)
	if err != nil {
		t.Fatalf("TopGroups failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	// pump migrates 100%, flat 0%; descending migration rate.
	if groups[0].Key != "pattern=pump" {
		t.Errorf("first group = %q, want pattern=pump", groups[0].Key)
	}
	if groups[1].Key != "pattern=flat" {
		t.Errorf("second group = %q, want pattern=flat", groups[1].Key)
	}
}

func TestEngineTopGroupsLimit(t *testing.T) {
	ctx := context.Background()
	var records []*domain.TokenRecord
	for _, pattern := range []string{"aaaa", "bbbb", "cccc"} {
		records = append(records,
			makeRecord("m1-"+pattern, pattern, 0.5, 1.0, true),
			makeRecord("m2-"+pattern, pattern, 0.5, 1.0, false),
		)
	}
	engine := NewEngine(seedStore(t, records))

	groups, err := engine.TopGroups(ctx, domain.GroupSpec{Pattern: true}, QueryFilter{}, 2)
	if err != nil {
		t.Fatalf("TopGroups failed: %v", err)
	}
	if len(groups) != 2 {
		t.Errorf("expected 2 groups with limit, got %d", len(groups))
	}
}

func TestEngineSummary(t *testing.T) {
	ctx := context.Background()
	records := []*domain.TokenRecord{
		makeRecord("m1", "pump", 0.5, 1.0, true),
		makeRecord("m2", "pump", 0.5, 2.0, false),
		makeRecord("m3", "dump", 0.5, 3.0, true),
		makeRecord("m4", "dump", 0.5, 1.0, true),
	}
	engine := NewEngine(seedStore(t, records))

	summary, err := engine.Summary(ctx, domain.GroupSpec{Pattern: true}, QueryFilter{})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.TotalGroups != 2 {
		t.Errorf("total groups = %d, want 2", summary.TotalGroups)
	}
	if summary.TotalRecords != 4 {
		t.Errorf("total records = %d, want 4", summary.TotalRecords)
	}
	if summary.TotalMigrated != 3 {
		t.Errorf("total migrated = %d, want 3", summary.TotalMigrated)
	}
	if !almostEqual(summary.MigrationRate, 75) {
		t.Errorf("migration rate = %v, want 75", summary.MigrationRate)
	}
	if !almostEqual(summary.AvgRecordsPerGroup, 2) {
		t.Errorf("avg records per group = %v, want 2", summary.AvgRecordsPerGroup)
	}
	// Group rates are 50 (pump) and 100 (dump).
	if !almostEqual(summary.AvgMigrationRate, 75) {
		t.Errorf("avg group migration rate = %v, want 75", summary.AvgMigrationRate)
	}
}

func TestEngineSummaryEmpty(t *testing.T) {
	engine := NewEngine(memory.NewTokenRecordStore())
	summary, err := engine.Summary(context.Background(), domain.GroupSpec{}, QueryFilter{})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.TotalGroups != 0 || summary.TotalRecords != 0 || summary.MigrationRate != 0 {
		t.Errorf("empty summary should be zeroed: %+v", summary)
	}
}

func TestEngineSimulateThresholds(t *testing.T) {
	ctx := context.Background()
	records := []*domain.TokenRecord{
		makeRecord("m1", "pump", 0.5, 0.2, true),
		makeRecord("m2", "pump", 0.5, 0.4, true),
		makeRecord("m3", "pump", 0.5, 1.9, false),
		makeRecord("m4", "pump", 0.5, 2.1, true),
		makeRecord("m5", "pump", 0.5, 3.8, false),
		makeRecord("m6", "pump", 0.5, 6.5, true),
	}
	engine := NewEngine(seedStore(t, records))

	groups, err := engine.SimulateThresholds(ctx, domain.GroupSpec{Pattern: true}, QueryFilter{}, SimulateOptions{})
	if err != nil {
		t.Fatalf("SimulateThresholds failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	plan := groups[0].Thresholds
	if plan == nil {
		t.Fatal("threshold plan missing")
	}
	if len(plan.Candidates) != 7 {
		t.Errorf("got %d candidates, want 7", len(plan.Candidates))
	}
	// Sell level anchors on the average baseline of 0.5.
	if !almostEqual(plan.Optimal.SellLevel, 0.5+plan.Optimal.Threshold) {
		t.Errorf("sell level = %v, want baseline + threshold", plan.Optimal.SellLevel)
	}
}

func TestEngineSimulateThresholdsMinRise(t *testing.T) {
	ctx := context.Background()
	records := []*domain.TokenRecord{
		makeRecord("m1", "pump", 0.5, 0.1, false),
		makeRecord("m2", "pump", 0.5, 1.0, true),
		makeRecord("m3", "pump", 0.5, 2.0, true),
	}
	engine := NewEngine(seedStore(t, records))

	minRise := 0.5
	groups, err := engine.SimulateThresholds(ctx, domain.GroupSpec{Pattern: true}, QueryFilter{}, SimulateOptions{MinRise: &minRise})
	if err != nil {
		t.Fatalf("SimulateThresholds failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	// The low-rise record is excluded before grouping, so it is absent
	// from member counts, not just the rise math.
	if groups[0].Members != 2 {
		t.Errorf("members = %d, want 2", groups[0].Members)
	}
	if !almostEqual(groups[0].MigrationRate, 100) {
		t.Errorf("migration rate = %v, want 100", groups[0].MigrationRate)
	}
}

func TestEngineSimulateThresholdsBadSortField(t *testing.T) {
	engine := NewEngine(memory.NewTokenRecordStore())
	_, err := engine.SimulateThresholds(context.Background(), domain.GroupSpec{}, QueryFilter{}, SimulateOptions{SortBy: "bogus"})
	if err == nil {
		t.Error("expected error for unknown sort field")
	}
}

func TestRankGroupsTieBreak(t *testing.T) {
	groups := []*domain.GroupStats{
		{Key: "b", Members: 2, MigrationRate: 50},
		{Key: "a", Members: 2, MigrationRate: 50},
		{Key: "c", Members: 2, MigrationRate: 80},
	}
	ranked := RankGroups(groups, 0, SortByMigrationRate, 0)
	if ranked[0].Key != "c" || ranked[1].Key != "a" || ranked[2].Key != "b" {
		t.Errorf("unexpected order: %s, %s, %s", ranked[0].Key, ranked[1].Key, ranked[2].Key)
	}
}
