package domain

import "testing"

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }
func ptrS(v string) *string   { return &v }

func TestRecordFilterEmptyMatchesAll(t *testing.T) {
	r := &TokenRecord{Mint: "m1", MaxSOL: 0.1, MintTime: 5}
	if !(RecordFilter{}).Matches(r) {
		t.Error("empty filter must match every record")
	}
}

func TestRecordFilterMinMaxSOL(t *testing.T) {
	f := RecordFilter{MinMaxSOL: ptrF(1.0)}

	tests := []struct {
		maxSOL float64
		want   bool
	}{
		{0.5, false},
		{1.0, true}, // boundary is inclusive
		{2.5, true},
	}
	for _, tt := range tests {
		r := &TokenRecord{MaxSOL: tt.maxSOL}
		if got := f.Matches(r); got != tt.want {
			t.Errorf("MinMaxSOL=1.0, MaxSOL=%v: got %v, want %v", tt.maxSOL, got, tt.want)
		}
	}
}

func TestRecordFilterTimeBounds(t *testing.T) {
	f := RecordFilter{StartTime: ptrI(100), EndTime: ptrI(200)}

	tests := []struct {
		mintTime int64
		want     bool
	}{
		{99, false},
		{100, true}, // inclusive lower bound
		{150, true},
		{200, true}, // inclusive upper bound
		{201, false},
	}
	for _, tt := range tests {
		r := &TokenRecord{MintTime: tt.mintTime}
		if got := f.Matches(r); got != tt.want {
			t.Errorf("MintTime=%d: got %v, want %v", tt.mintTime, got, tt.want)
		}
	}
}

func TestRecordFilterExactMatches(t *testing.T) {
	r := &TokenRecord{Pattern: "pump", PriceSOL: 0.001, LimitSOL: 0.5}

	if !(RecordFilter{Pattern: ptrS("pump")}).Matches(r) {
		t.Error("matching pattern rejected")
	}
	if (RecordFilter{Pattern: ptrS("dump")}).Matches(r) {
		t.Error("mismatched pattern accepted")
	}
	if !(RecordFilter{PriceSOL: ptrF(0.001)}).Matches(r) {
		t.Error("matching price rejected")
	}
	if (RecordFilter{PriceSOL: ptrF(0.002)}).Matches(r) {
		t.Error("mismatched price accepted")
	}
	if !(RecordFilter{LimitSOL: ptrF(0.5)}).Matches(r) {
		t.Error("matching limit rejected")
	}
	if (RecordFilter{LimitSOL: ptrF(1.0)}).Matches(r) {
		t.Error("mismatched limit accepted")
	}
}

func TestRecordFilterConjunction(t *testing.T) {
	r := &TokenRecord{Pattern: "pump", MaxSOL: 2.0, MintTime: 150}

	// All predicates satisfied.
	f := RecordFilter{
		MinMaxSOL: ptrF(1.0),
		StartTime: ptrI(100),
		EndTime:   ptrI(200),
		Pattern:   ptrS("pump"),
	}
	if !f.Matches(r) {
		t.Error("record satisfying every predicate rejected")
	}

	// One failing predicate rejects the record.
	f.MinMaxSOL = ptrF(5.0)
	if f.Matches(r) {
		t.Error("record failing one predicate accepted")
	}
}

func TestFilterRecords(t *testing.T) {
	records := []*TokenRecord{
		{Mint: "a", MaxSOL: 0.5, Pattern: "pump"},
		{Mint: "b", MaxSOL: 2.0, Pattern: "pump"},
		{Mint: "c", MaxSOL: 3.0, Pattern: "flat"},
		{Mint: "d", MaxSOL: 4.0, Pattern: "pump"},
	}

	got := FilterRecords(records, RecordFilter{MinMaxSOL: ptrF(1.0), Pattern: ptrS("pump")})
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	// Input order is preserved.
	if got[0].Mint != "b" || got[1].Mint != "d" {
		t.Errorf("order = %s,%s", got[0].Mint, got[1].Mint)
	}

	if out := FilterRecords(records, RecordFilter{MinMaxSOL: ptrF(100)}); len(out) != 0 {
		t.Errorf("impossible filter matched %d records", len(out))
	}
	if out := FilterRecords(nil, RecordFilter{}); len(out) != 0 {
		t.Errorf("nil input produced %d records", len(out))
	}
}
