package interval

import (
	"fmt"
	"sort"
	"time"
)

// Interval is a half-open time span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// New constructs an interval. Callers are expected to pass Start before End;
// the algebra functions tolerate but never produce empty intervals.
func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// IsZero reports whether both bounds are unset.
func (i Interval) IsZero() bool {
	return i.Start.IsZero() && i.End.IsZero()
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Contains reports whether the instant falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Overlaps reports whether the two intervals share at least one instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Covers reports whether o lies entirely within i.
func (i Interval) Covers(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Intersect returns the common part of two intervals. ok is false when the
// intervals do not overlap.
func (i Interval) Intersect(o Interval) (Interval, bool) {
	if !i.Overlaps(o) {
		return Interval{}, false
	}
	out := i
	if o.Start.After(out.Start) {
		out.Start = o.Start
	}
	if o.End.Before(out.End) {
		out.End = o.End
	}
	return out, true
}

// Gap returns the span separating two disjoint intervals. ok is false when
// the intervals touch or overlap, in which case no gap exists.
func (i Interval) Gap(o Interval) (Interval, bool) {
	earlier, later := i, o
	if o.Start.Before(i.Start) {
		earlier, later = o, i
	}
	if !later.Start.After(earlier.End) {
		return Interval{}, false
	}
	return Interval{Start: earlier.End, End: later.Start}, true
}

// String renders the interval for diagnostics.
func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

// Merge folds overlapping and adjacent intervals into their union.
//
// The fold repeats until no merge occurs: collapsing a pair can make a
// previously separated neighbour adjacent to the grown interval, so a single
// pass is not enough. The result is sorted by start and Merge is idempotent
// on its own output.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	merged := make([]Interval, len(intervals))
	copy(merged, intervals)

	for {
		sort.Slice(merged, func(a, b int) bool {
			return merged[a].Start.Before(merged[b].Start)
		})

		changed := false
		out := merged[:0:0]
		out = append(out, merged[0])
		for _, next := range merged[1:] {
			last := &out[len(out)-1]
			if !next.Start.After(last.End) {
				if next.End.After(last.End) {
					last.End = next.End
				}
				changed = true
				continue
			}
			out = append(out, next)
		}
		merged = out
		if !changed {
			return merged
		}
	}
}

// Gaps returns the parts of search not covered by the reserved set.
//
// When nothing in reserved overlaps search, the search window itself is the
// only gap. Otherwise a leading gap is emitted when search starts before the
// earliest overlapping interval, pairwise gaps between consecutive kept
// intervals, and a trailing gap when search extends past the latest one.
func Gaps(reserved []Interval, search Interval) []Interval {
	kept := make([]Interval, 0, len(reserved))
	for _, r := range reserved {
		if r.Overlaps(search) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return []Interval{search}
	}

	sort.Slice(kept, func(a, b int) bool {
		return kept[a].Start.Before(kept[b].Start)
	})

	gaps := make([]Interval, 0, len(kept)+1)
	if search.Start.Before(kept[0].Start) {
		gaps = append(gaps, Interval{Start: search.Start, End: kept[0].Start})
	}
	for idx := 0; idx+1 < len(kept); idx++ {
		if gap, ok := kept[idx].Gap(kept[idx+1]); ok {
			gaps = append(gaps, gap)
		}
	}
	last := kept[len(kept)-1]
	if search.End.After(last.End) {
		gaps = append(gaps, Interval{Start: last.End, End: search.End})
	}
	return gaps
}
