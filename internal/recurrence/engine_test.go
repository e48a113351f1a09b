package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/example/exam-scheduler/internal/interval"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}
	return loc
}

func TestExpandDaily(t *testing.T) {
	engine := NewEngine(time.UTC)
	cfg := Config{
		ID:        "cfg1",
		ExamID:    "exam1",
		Frequency: FrequencyDaily,
		StartsOn:  time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC),
	}
	window := interval.New(
		time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC),
	)

	events, err := engine.Expand(cfg, 90*time.Minute, window)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, event := range events {
		wantStart := time.Date(2025, time.June, 2+i, 9, 0, 0, 0, time.UTC)
		if !event.Window.Start.Equal(wantStart) {
			t.Errorf("event %d start = %v, want %v", i, event.Window.Start, wantStart)
		}
		if event.Window.Duration() != 90*time.Minute {
			t.Errorf("event %d duration = %v, want 90m", i, event.Window.Duration())
		}
		if event.ConfigID != "cfg1" || event.ExamID != "exam1" {
			t.Errorf("event %d carries ids %s/%s", i, event.ConfigID, event.ExamID)
		}
	}
}

func TestExpandWeeklySelectedDays(t *testing.T) {
	engine := NewEngine(time.UTC)
	cfg := Config{
		Frequency: FrequencyWeekly,
		Weekdays:  []time.Weekday{time.Monday, time.Thursday},
		StartsOn:  time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC), // Monday
	}
	window := interval.New(
		time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC),
	)

	events, err := engine.Expand(cfg, time.Hour, window)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Window.Start.Weekday() != time.Monday {
		t.Errorf("first event on %v, want Monday", events[0].Window.Start.Weekday())
	}
	if events[1].Window.Start.Weekday() != time.Thursday {
		t.Errorf("second event on %v, want Thursday", events[1].Window.Start.Weekday())
	}
}

func TestExpandRespectsEndsOn(t *testing.T) {
	engine := NewEngine(time.UTC)
	endsOn := time.Date(2025, time.June, 3, 23, 59, 0, 0, time.UTC)
	cfg := Config{
		Frequency: FrequencyDaily,
		StartsOn:  time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC),
		EndsOn:    &endsOn,
	}
	window := interval.New(
		time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
	)

	events, err := engine.Expand(cfg, time.Hour, window)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (June 2 and 3)", len(events))
	}
}

func TestExpandStartsOnAfterWindow(t *testing.T) {
	engine := NewEngine(time.UTC)
	cfg := Config{
		Frequency: FrequencyDaily,
		StartsOn:  time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC),
	}
	window := interval.New(
		time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
	)

	events, err := engine.Expand(cfg, time.Hour, window)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want none before the configuration starts", len(events))
	}
}

func TestExpandInvalidInputs(t *testing.T) {
	engine := NewEngine(time.UTC)
	window := interval.New(
		time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
	)

	_, err := engine.Expand(Config{Frequency: FrequencyDaily}, 0, window)
	if !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("zero duration error = %v, want ErrInvalidDuration", err)
	}

	_, err = engine.Expand(Config{Frequency: FrequencyDaily, StartsOn: window.Start}, time.Hour, interval.Interval{Start: window.Start})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("unbounded window error = %v, want ErrInvalidWindow", err)
	}

	_, err = engine.Expand(Config{Frequency: FrequencyUnspecified, StartsOn: window.Start}, time.Hour, window)
	if !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("unspecified frequency error = %v, want ErrInvalidFrequency", err)
	}
}

func TestExpandHonorsLocation(t *testing.T) {
	loc := mustLoc(t, "Asia/Tokyo")
	engine := NewEngine(loc)
	cfg := Config{
		Frequency: FrequencyDaily,
		StartsOn:  time.Date(2025, time.June, 2, 9, 0, 0, 0, loc),
	}
	window := interval.New(
		time.Date(2025, time.June, 2, 0, 0, 0, 0, loc),
		time.Date(2025, time.June, 3, 0, 0, 0, 0, loc),
	)

	events, err := engine.Expand(cfg, time.Hour, window)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if got := events[0].Window.Start.In(loc).Hour(); got != 9 {
		t.Errorf("event hour = %d, want 9 in %v", got, loc)
	}
}
