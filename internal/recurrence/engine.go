package recurrence

import (
	"errors"
	"time"

	"github.com/example/exam-scheduler/internal/interval"
)

// Frequency represents supported recurrence intervals for examination events.
type Frequency int

const (
	// FrequencyUnspecified indicates the configuration frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily generates an event for each day within the range.
	FrequencyDaily
	// FrequencyWeekly generates events for the selected weekdays.
	FrequencyWeekly
)

// Config describes a recurring self-service examination slot. StartsOn fixes
// both the first eligible date and the time of day events begin; the event
// duration is derived from the exam and passed at expansion time.
type Config struct {
	ID        string
	ExamID    string
	Frequency Frequency
	Weekdays  []time.Weekday
	StartsOn  time.Time
	EndsOn    *time.Time
}

// Event is one concrete examination slot generated from a configuration.
type Event struct {
	ConfigID string
	ExamID   string
	Window   interval.Interval
}

// Engine expands event configurations into concrete examination events.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that anchors events in the provided
// location. If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// ErrInvalidFrequency indicates the configuration frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidWindow indicates the expansion window is unbounded.
var ErrInvalidWindow = errors.New("recurrence: expansion window requires an end bound")

// ErrInvalidDuration indicates the exam duration is not positive.
var ErrInvalidDuration = errors.New("recurrence: exam duration must be positive")

// Expand produces the examination events of the configuration that start
// inside the window. The window must be bounded either by the configuration's
// EndsOn or by the window end.
func (e *Engine) Expand(cfg Config, duration time.Duration, window interval.Interval) ([]Event, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}

	loc := e.location
	start := cfg.StartsOn.In(loc)

	upper := window.End
	if cfg.EndsOn != nil && cfg.EndsOn.Before(upper) {
		upper = *cfg.EndsOn
	}
	if upper.IsZero() {
		return nil, ErrInvalidWindow
	}

	lower := window.Start
	if start.After(lower) {
		lower = start
	}
	if lower.After(upper) {
		return nil, nil
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(cfg.Weekdays))
	for _, day := range cfg.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	current := firstCandidate(start, lower, loc)
	events := make([]Event, 0)

	for !current.After(upper) {
		include, err := shouldInclude(cfg.Frequency, weekdaySet, current.Weekday())
		if err != nil {
			return nil, err
		}
		if include {
			events = append(events, Event{
				ConfigID: cfg.ID,
				ExamID:   cfg.ExamID,
				Window:   interval.New(current, current.Add(duration)),
			})
		}
		current = current.AddDate(0, 0, 1)
	}

	return events, nil
}

// firstCandidate places the configured time of day on the first date at or
// after the lower bound.
func firstCandidate(start, lower time.Time, loc *time.Location) time.Time {
	y, m, d := lower.In(loc).Date()
	candidate := time.Date(y, m, d, start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), loc)
	for candidate.Before(lower) || candidate.Before(start) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func shouldInclude(freq Frequency, weekdaySet map[time.Weekday]struct{}, day time.Weekday) (bool, error) {
	switch freq {
	case FrequencyDaily:
		if len(weekdaySet) == 0 {
			return true, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyWeekly:
		if len(weekdaySet) == 0 {
			return false, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	default:
		return false, ErrInvalidFrequency
	}
}
