package property

// Filter is a conjunctive predicate set over persisted records. Zero-valued
// members are unset and match everything.
type Filter struct {
	City     string   // situs_city equality
	UseType  string   // use_type equality
	MinValue *float64 // just_value >= MinValue; a null just_value never matches
	Absentee *bool    // is_absentee_owner equality
}

// Match reports whether r satisfies every set predicate. SQL backends
// translate the same predicates into a WHERE clause and must agree with it.
func (f Filter) Match(r *Record) bool {
	if f.City != "" && (r.SitusCity == nil || *r.SitusCity != f.City) {
		return false
	}
	if f.UseType != "" && (r.UseType == nil || *r.UseType != f.UseType) {
		return false
	}
	if f.MinValue != nil && (r.JustValue == nil || *r.JustValue < *f.MinValue) {
		return false
	}
	if f.Absentee != nil && r.IsAbsenteeOwner != *f.Absentee {
		return false
	}
	return true
}
