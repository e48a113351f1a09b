package workinghours

import "time"

// AdjustDST shifts t forward by one hour when the zone's standard offset does
// not apply at the reference instant, i.e. when daylight saving is in effect
// right now. The check deliberately looks at now rather than at t itself, and
// NormalizeDST is its exact inverse; the pair is interval bookkeeping, not a
// timezone conversion.
func AdjustDST(t time.Time, loc *time.Location, now time.Time) time.Time {
	if loc == nil {
		loc = time.Local
	}
	if inDaylightSaving(now, loc) {
		return t.Add(time.Hour)
	}
	return t
}

// NormalizeDST undoes AdjustDST, shifting backward by one hour under the same
// condition.
func NormalizeDST(t time.Time, loc *time.Location, now time.Time) time.Time {
	if loc == nil {
		loc = time.Local
	}
	if inDaylightSaving(now, loc) {
		return t.Add(-time.Hour)
	}
	return t
}

// AdjustDST applies the resolver's clock and default location.
func (r *Resolver) AdjustDST(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = r.cfg.DefaultLocation
	}
	return AdjustDST(t, loc, r.cfg.Now())
}

// NormalizeDST applies the resolver's clock and default location.
func (r *Resolver) NormalizeDST(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = r.cfg.DefaultLocation
	}
	return NormalizeDST(t, loc, r.cfg.Now())
}

func inDaylightSaving(now time.Time, loc *time.Location) bool {
	_, current := now.In(loc).Zone()
	return time.Duration(current)*time.Second != standardOffset(now, loc)
}

// standardOffset returns the zone's non-DST offset, taken as the smaller of
// the offsets observed at midwinter and midsummer of the reference year.
func standardOffset(ref time.Time, loc *time.Location) time.Duration {
	year := ref.In(loc).Year()
	_, january := time.Date(year, time.January, 1, 12, 0, 0, 0, loc).Zone()
	_, july := time.Date(year, time.July, 1, 12, 0, 0, 0, loc).Zone()
	offset := january
	if july < offset {
		offset = july
	}
	return time.Duration(offset) * time.Second
}
