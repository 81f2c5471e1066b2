package domain

// RecordFilter is a conjunctive predicate set over token records.
// Nil fields impose no constraint. Time bounds are inclusive.
type RecordFilter struct {
	MinMaxSOL *float64 // minimum peak value
	StartTime *int64   // mint time lower bound (unix ms)
	EndTime   *int64   // mint time upper bound (unix ms)

	// Exact-match fields
	Pattern  *string
	PriceSOL *float64
	LimitSOL *float64
}

// Matches reports whether r satisfies every supplied predicate.
func (f RecordFilter) Matches(r *TokenRecord) bool {
	if f.MinMaxSOL != nil && r.MaxSOL < *f.MinMaxSOL {
		return false
	}
	if f.StartTime != nil && r.MintTime < *f.StartTime {
		return false
	}
	if f.EndTime != nil && r.MintTime > *f.EndTime {
		return false
	}
	if f.Pattern != nil && r.Pattern != *f.Pattern {
		return false
	}
	if f.PriceSOL != nil && r.PriceSOL != *f.PriceSOL {
		return false
	}
	if f.LimitSOL != nil && r.LimitSOL != *f.LimitSOL {
		return false
	}
	return true
}

// FilterRecords returns the records satisfying every supplied predicate,
// preserving input order. No side effects on the input.
func FilterRecords(records []*TokenRecord, f RecordFilter) []*TokenRecord {
	var out []*TokenRecord
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
