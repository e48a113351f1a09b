package workinghours

import (
	"time"

	"github.com/example/exam-scheduler/internal/interval"
)

const dayLength = 24 * time.Hour

// DayHours is the default opening span for one weekday. Offsets are measured
// from local midnight; TZOffset is the zone offset recorded when the entry was
// stored and is subtracted before anchoring the span on a concrete date.
type DayHours struct {
	StartOffset time.Duration
	EndOffset   time.Duration
	TZOffset    time.Duration
}

// Exception is a date-scoped override of a room's default hours. OutOfService
// exceptions close the covered span, others extend availability.
type Exception struct {
	Window        interval.Interval
	OutOfService  bool
	StartTZOffset time.Duration
	EndTZOffset   time.Duration
}

// RoomHours bundles everything the resolver needs to know about a room.
type RoomHours struct {
	Location   *time.Location
	Defaults   map[time.Weekday]DayHours
	Exceptions []Exception
}

// OpeningHours is one bookable span together with the zone offset that was in
// effect when it was computed. It is derived state, never persisted.
type OpeningHours struct {
	Window   interval.Interval
	TZOffset time.Duration
}

// Config carries the resolver's explicit dependencies. Zero fields fall back
// to UTC and the wall clock.
type Config struct {
	DefaultLocation *time.Location
	Now             func() time.Time
}

// Resolver turns a room's weekly defaults plus calendar exceptions into the
// final list of open spans for a calendar date.
type Resolver struct {
	cfg Config
}

// NewResolver constructs a resolver from the supplied configuration.
func NewResolver(cfg Config) *Resolver {
	if cfg.DefaultLocation == nil {
		cfg.DefaultLocation = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{cfg: cfg}
}

// Resolve computes the open spans for the given date and room.
//
// Default weekday hours are anchored on the date, non-restrictive exceptions
// are merged in as extensions, then restrictive exceptions are subtracted.
// When extensions exist the reported zone offset is re-read at local noon, a
// reference point that never sits inside a DST transition.
func (r *Resolver) Resolve(date time.Time, room RoomHours) []OpeningHours {
	loc := room.Location
	if loc == nil {
		loc = r.cfg.DefaultLocation
	}

	dayStart := midnight(date, loc)
	day := interval.New(dayStart, dayStart.Add(dayLength))

	open := make([]interval.Interval, 0, 2)
	tzOffset := time.Duration(0)

	entry, hasDefault := room.Defaults[date.In(loc).Weekday()]
	if hasDefault {
		open = append(open, anchorDayHours(entry, dayStart))
		tzOffset = entry.TZOffset
	}

	extensions := applyExceptions(room.Exceptions, day, false)
	if len(extensions) > 0 {
		open = append(open, extensions...)
		tzOffset = zoneOffsetAtNoon(dayStart, loc)
	}
	if len(open) == 0 {
		return nil
	}
	open = interval.Merge(open)

	closures := interval.Merge(applyExceptions(room.Exceptions, day, true))
	if len(closures) > 0 {
		surviving := make([]interval.Interval, 0, len(open))
		for _, span := range open {
			surviving = append(surviving, interval.Gaps(closures, span)...)
		}
		open = surviving
	}

	hours := make([]OpeningHours, 0, len(open))
	for _, span := range open {
		hours = append(hours, OpeningHours{Window: span, TZOffset: tzOffset})
	}
	return hours
}

// anchorDayHours converts a weekday entry's offsets into a concrete span on
// the given date. Offsets wrap at end of day after the stored zone offset is
// removed; an end offset of exactly zero means end of day minus one
// millisecond so the final slot never collapses to zero length.
func anchorDayHours(entry DayHours, dayStart time.Time) interval.Interval {
	start := wrapOffset(entry.StartOffset - entry.TZOffset)
	end := wrapOffset(entry.EndOffset - entry.TZOffset)
	if end == 0 {
		end = dayLength - time.Millisecond
	}
	return interval.New(dayStart.Add(start), dayStart.Add(end))
}

// applyExceptions clips the matching exceptions to the single day. An
// exception covering the whole day replaces everything accumulated so far and
// ends the fold; partial spans are clipped to the day boundary they cross.
func applyExceptions(exceptions []Exception, day interval.Interval, outOfService bool) []interval.Interval {
	var clipped []interval.Interval
	for _, exc := range exceptions {
		if exc.OutOfService != outOfService {
			continue
		}
		part, ok := exc.Window.Intersect(day)
		if !ok {
			continue
		}
		if exc.Window.Covers(day) {
			return []interval.Interval{day}
		}
		clipped = append(clipped, part)
	}
	return clipped
}

func wrapOffset(d time.Duration) time.Duration {
	d %= dayLength
	if d < 0 {
		d += dayLength
	}
	return d
}

func midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func zoneOffsetAtNoon(dayStart time.Time, loc *time.Location) time.Duration {
	noon := dayStart.Add(12 * time.Hour).In(loc)
	_, offset := noon.Zone()
	return time.Duration(offset) * time.Second
}
