package interval

import (
	"math/rand"
	"testing"
	"time"
)

var base = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return base.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func span(startHour, endHour int) Interval {
	return Interval{Start: at(startHour, 0), End: at(endHour, 0)}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		input []Interval
		want  []Interval
	}{
		{
			name:  "empty input",
			input: nil,
			want:  nil,
		},
		{
			name:  "disjoint intervals stay separate",
			input: []Interval{span(8, 10), span(12, 14)},
			want:  []Interval{span(8, 10), span(12, 14)},
		},
		{
			name:  "overlapping intervals collapse",
			input: []Interval{span(8, 11), span(10, 14)},
			want:  []Interval{span(8, 14)},
		},
		{
			name:  "adjacent intervals collapse",
			input: []Interval{span(8, 10), span(10, 12)},
			want:  []Interval{span(8, 12)},
		},
		{
			name:  "contained interval is absorbed",
			input: []Interval{span(8, 16), span(10, 12)},
			want:  []Interval{span(8, 16)},
		},
		{
			name:  "chain collapses across multiple passes",
			input: []Interval{span(12, 14), span(8, 10), span(10, 12), span(14, 15)},
			want:  []Interval{span(8, 15)},
		},
		{
			name:  "unsorted input is sorted first",
			input: []Interval{span(12, 14), span(8, 9)},
			want:  []Interval{span(8, 9), span(12, 14)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(tc.input)
			assertIntervals(t, got, tc.want)
		})
	}
}

func TestMergeIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		input := make([]Interval, 0, 8)
		for len(input) < 8 {
			start := rng.Intn(20)
			length := 1 + rng.Intn(5)
			input = append(input, span(start, start+length))
		}

		once := Merge(input)
		twice := Merge(once)
		assertIntervals(t, twice, once)
	}
}

func TestMergeOrderInsensitive(t *testing.T) {
	forward := []Interval{span(8, 10), span(9, 12), span(15, 16)}
	reversed := []Interval{span(15, 16), span(9, 12), span(8, 10)}

	assertIntervals(t, Merge(forward), Merge(reversed))
}

func TestGaps(t *testing.T) {
	tests := []struct {
		name     string
		reserved []Interval
		search   Interval
		want     []Interval
	}{
		{
			name:     "no overlap returns search unchanged",
			reserved: []Interval{span(18, 20)},
			search:   span(8, 16),
			want:     []Interval{span(8, 16)},
		},
		{
			name:     "empty reserved returns search unchanged",
			reserved: nil,
			search:   span(8, 16),
			want:     []Interval{span(8, 16)},
		},
		{
			name:     "leading and trailing gaps",
			reserved: []Interval{span(10, 12)},
			search:   span(8, 16),
			want:     []Interval{span(8, 10), span(12, 16)},
		},
		{
			name:     "internal gap between reservations",
			reserved: []Interval{span(8, 10), span(12, 16)},
			search:   span(8, 16),
			want:     []Interval{span(10, 12)},
		},
		{
			name:     "touching reservations leave no internal gap",
			reserved: []Interval{span(8, 12), span(12, 16)},
			search:   span(8, 16),
			want:     nil,
		},
		{
			name:     "fully reserved window has no gaps",
			reserved: []Interval{span(6, 18)},
			search:   span(8, 16),
			want:     nil,
		},
		{
			name:     "non-overlapping members are ignored",
			reserved: []Interval{span(0, 2), span(10, 12), span(20, 22)},
			search:   span(8, 16),
			want:     []Interval{span(8, 10), span(12, 16)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Gaps(tc.reserved, tc.search)
			assertIntervals(t, got, tc.want)
		})
	}
}

// TestGapsCoverSearch checks that the gaps plus the reserved set clipped to
// the search window reassemble the whole window.
func TestGapsCoverSearch(t *testing.T) {
	reserved := []Interval{span(6, 9), span(11, 12), span(14, 16)}
	search := span(8, 18)

	pieces := Gaps(reserved, search)
	for _, r := range reserved {
		if clipped, ok := r.Intersect(search); ok {
			pieces = append(pieces, clipped)
		}
	}

	assertIntervals(t, Merge(pieces), []Interval{search})
}

func TestIntervalPredicates(t *testing.T) {
	iv := span(8, 16)

	if !iv.Contains(at(8, 0)) {
		t.Error("expected start instant to be contained")
	}
	if iv.Contains(at(16, 0)) {
		t.Error("expected end instant to be excluded")
	}
	if !iv.Overlaps(span(15, 17)) {
		t.Error("expected partial overlap to be detected")
	}
	if iv.Overlaps(span(16, 18)) {
		t.Error("expected touching intervals not to overlap")
	}
	if !iv.Covers(span(9, 12)) {
		t.Error("expected inner interval to be covered")
	}
	if iv.Covers(span(9, 17)) {
		t.Error("expected protruding interval not to be covered")
	}
}

func TestGap(t *testing.T) {
	if gap, ok := span(8, 10).Gap(span(12, 14)); !ok || !gap.Start.Equal(at(10, 0)) || !gap.End.Equal(at(12, 0)) {
		t.Errorf("unexpected gap %v ok=%v", gap, ok)
	}
	// Argument order must not matter.
	if gap, ok := span(12, 14).Gap(span(8, 10)); !ok || !gap.Start.Equal(at(10, 0)) {
		t.Errorf("unexpected reversed gap %v ok=%v", gap, ok)
	}
	if _, ok := span(8, 10).Gap(span(10, 12)); ok {
		t.Error("touching intervals must not produce a gap")
	}
	if _, ok := span(8, 12).Gap(span(10, 14)); ok {
		t.Error("overlapping intervals must not produce a gap")
	}
}

func TestIntersect(t *testing.T) {
	got, ok := span(8, 12).Intersect(span(10, 16))
	if !ok {
		t.Fatal("expected overlap")
	}
	assertIntervals(t, []Interval{got}, []Interval{span(10, 12)})

	if _, ok := span(8, 10).Intersect(span(12, 14)); ok {
		t.Error("disjoint intervals must not intersect")
	}
}

func assertIntervals(t *testing.T, got, want []Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("interval count mismatch: got %v want %v", got, want)
	}
	for idx := range want {
		if !got[idx].Start.Equal(want[idx].Start) || !got[idx].End.Equal(want[idx].End) {
			t.Fatalf("interval %d mismatch: got %v want %v", idx, got[idx], want[idx])
		}
	}
}
