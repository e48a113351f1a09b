package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/exam-scheduler/internal/interval"
	"github.com/example/exam-scheduler/internal/persistence"
	"github.com/example/exam-scheduler/internal/recurrence"
	"github.com/example/exam-scheduler/internal/workinghours"
)

// EnrolmentDirectory exposes the enrolment lookups the session resolver needs.
type EnrolmentDirectory interface {
	ListForUser(ctx context.Context, userID string) ([]persistence.Enrolment, error)
}

// ReservationDirectory exposes reservation lookup by ID.
type ReservationDirectory interface {
	GetReservation(ctx context.Context, id string) (persistence.Reservation, error)
}

// MachineDirectory exposes machine lookups by ID and by network origin.
type MachineDirectory interface {
	GetMachine(ctx context.Context, id string) (persistence.Machine, error)
	GetMachineByOrigin(ctx context.Context, origin string) (persistence.Machine, error)
}

// ExamDirectory exposes exam lookup by ID.
type ExamDirectory interface {
	GetExam(ctx context.Context, id string) (persistence.Exam, error)
}

// EventConfigDirectory exposes examination event configuration lookup.
type EventConfigDirectory interface {
	GetEventConfig(ctx context.Context, id string) (persistence.EventConfig, error)
}

// SessionService decides which exam, if any, a logged-in user should be
// directed to at the current instant, and validates that the machine they sit
// at is the one they were assigned.
type SessionService struct {
	enrolments   EnrolmentDirectory
	reservations ReservationDirectory
	machines     MachineDirectory
	exams        ExamDirectory
	events       EventConfigDirectory
	engine       *recurrence.Engine
	location     *time.Location
	now          func() time.Time
	logger       *slog.Logger
}

// NewSessionService wires dependencies for session resolution.
func NewSessionService(enrolments EnrolmentDirectory, reservations ReservationDirectory, machines MachineDirectory, exams ExamDirectory, events EventConfigDirectory, location *time.Location, now func() time.Time, logger *slog.Logger) *SessionService {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		enrolments:   enrolments,
		reservations: reservations,
		machines:     machines,
		exams:        exams,
		events:       events,
		engine:       recurrence.NewEngine(location),
		location:     location,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// enrolmentWindow pairs an enrolment with the concrete sitting window it is
// bound to, either through a reservation or an examination event.
type enrolmentWindow struct {
	enrolment persistence.Enrolment
	exam      ExamRef
	window    interval.Interval
	machineID string
}

// ResolveStartHeaders locates the enrolment the user should act on right now
// or later today, verifies the requesting machine's identity, and emits the
// matching start signal.
func (s *SessionService) ResolveStartHeaders(ctx context.Context, params ResolveStartParams) (StartDecision, error) {
	if s == nil {
		return StartDecision{}, fmt.Errorf("SessionService is nil")
	}
	if s.enrolments == nil {
		return StartDecision{}, fmt.Errorf("enrolment directory not configured")
	}

	logger := s.loggerWith(ctx, "ResolveStartHeaders",
		"user_id", params.Principal.UserID,
		"origin", params.Origin,
	)

	rawNow := s.now()
	now := workinghours.AdjustDST(rawNow, s.location, rawNow)
	midnight := endOfDay(now, s.location)

	windows, err := s.collectWindows(ctx, params.Principal.UserID, now, midnight)
	if err != nil {
		return StartDecision{}, err
	}

	ongoing := make([]enrolmentWindow, 0, 1)
	upcoming := make([]enrolmentWindow, 0, 1)
	for _, w := range windows {
		switch {
		case w.window.Contains(now):
			ongoing = append(ongoing, w)
		case w.window.Start.After(now) && w.window.Start.Before(midnight):
			upcoming = append(upcoming, w)
		}
	}

	if len(ongoing) > 0 {
		sort.Slice(ongoing, func(a, b int) bool {
			return ongoing[a].window.Start.Before(ongoing[b].window.Start)
		})
		if len(ongoing) > 1 {
			logger.WarnContext(ctx, "multiple ongoing enrolments, using earliest",
				"count", len(ongoing),
				"enrolment_id", ongoing[0].enrolment.ID,
			)
		}
		chosen := ongoing[0]
		if err := s.verifyMachine(ctx, chosen, params); err != nil {
			return StartDecision{}, err
		}
		logger.InfoContext(ctx, "ongoing sitting resolved", "enrolment_id", chosen.enrolment.ID)
		return StartDecision{
			Action:      ActionStartExam,
			ExamHash:    chosen.exam.Base().Hash,
			EnrolmentID: chosen.enrolment.ID,
			StartsAt:    chosen.window.Start,
		}, nil
	}

	if len(upcoming) > 0 {
		sort.Slice(upcoming, func(a, b int) bool {
			return upcoming[a].window.Start.Before(upcoming[b].window.Start)
		})
		chosen := upcoming[0]
		if err := s.verifyMachine(ctx, chosen, params); err != nil {
			return StartDecision{}, err
		}
		logger.InfoContext(ctx, "upcoming sitting resolved", "enrolment_id", chosen.enrolment.ID)
		return StartDecision{
			Action:      ActionUpcoming,
			EnrolmentID: chosen.enrolment.ID,
			StartsAt:    chosen.window.Start,
		}, nil
	}

	// Known exam machines with nothing scheduled get an explicit signal so
	// the workstation can show an idle screen instead of an error.
	if s.machines != nil && params.Origin != "" {
		if _, err := s.machines.GetMachineByOrigin(ctx, params.Origin); err == nil {
			logger.InfoContext(ctx, "nothing scheduled today on registered machine")
			return StartDecision{Action: ActionNothingToday}, nil
		} else if !errors.Is(err, persistence.ErrNotFound) {
			return StartDecision{}, err
		}
	}

	return StartDecision{}, nil
}

// collectWindows resolves each enrolment of the user into a concrete sitting
// window, skipping enrolments that are not startable for their exam kind or
// not bound to a reservation or event.
func (s *SessionService) collectWindows(ctx context.Context, userID string, now, until time.Time) ([]enrolmentWindow, error) {
	enrolments, err := s.enrolments.ListForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	windows := make([]enrolmentWindow, 0, len(enrolments))
	for _, enrolment := range enrolments {
		record, err := s.exams.GetExam(ctx, enrolment.ExamID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				continue
			}
			return nil, err
		}
		examRef, err := ExamRefFromRecord(record)
		if err != nil {
			return nil, err
		}
		if !examRef.IsStartable(enrolment.State) {
			continue
		}

		switch {
		case enrolment.ReservationID != nil:
			reservation, err := s.reservations.GetReservation(ctx, *enrolment.ReservationID)
			if err != nil {
				if errors.Is(err, persistence.ErrNotFound) {
					continue
				}
				return nil, err
			}
			windows = append(windows, enrolmentWindow{
				enrolment: enrolment,
				exam:      examRef,
				window:    interval.New(reservation.Start, reservation.End),
				machineID: reservation.MachineID,
			})
		case enrolment.EventConfigID != nil:
			config, err := s.events.GetEventConfig(ctx, *enrolment.EventConfigID)
			if err != nil {
				if errors.Is(err, persistence.ErrNotFound) {
					continue
				}
				return nil, err
			}
			event, ok, err := s.nearestEvent(config, examRef.Base().Duration, now, until)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			windows = append(windows, enrolmentWindow{
				enrolment: enrolment,
				exam:      examRef,
				window:    event.Window,
			})
		}
	}
	return windows, nil
}

// nearestEvent expands the configuration over the rest of the day and returns
// the event containing now, or failing that the next one before until.
func (s *SessionService) nearestEvent(record persistence.EventConfig, duration time.Duration, now, until time.Time) (recurrence.Event, bool, error) {
	cfg := recurrence.Config{
		ID:        record.ID,
		ExamID:    record.ExamID,
		Frequency: recurrence.Frequency(record.Frequency),
		Weekdays:  append([]time.Weekday(nil), record.Weekdays...),
		StartsOn:  record.StartsOn,
		EndsOn:    record.EndsOn,
	}

	dayStart := startOfDay(now, s.location)
	events, err := s.engine.Expand(cfg, duration, interval.New(dayStart, until))
	if err != nil {
		return recurrence.Event{}, false, err
	}

	for _, event := range events {
		if event.Window.Contains(now) || event.Window.Start.After(now) {
			return event, true, nil
		}
	}
	return recurrence.Event{}, false, nil
}

// verifyMachine checks that the request origin matches the assigned machine.
// Network-transparent exams authenticate with a signed agent header instead;
// event-based sittings have no assigned machine and skip the check.
func (s *SessionService) verifyMachine(ctx context.Context, w enrolmentWindow, params ResolveStartParams) error {
	base := w.exam.Base()
	if base.NetworkTransparent {
		if !verifyAgentSignature(base.AgentKey, w.enrolment.ID, params.AgentSignature) {
			return ErrUnauthorized
		}
		return nil
	}
	if w.machineID == "" {
		return nil
	}

	expected, err := s.machines.GetMachine(ctx, w.machineID)
	if err != nil {
		return err
	}

	requester, err := s.machines.GetMachineByOrigin(ctx, params.Origin)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return &MachineMismatchError{
				Kind:              MismatchUnknownMachine,
				Origin:            params.Origin,
				ExpectedMachineID: expected.ID,
				ExpectedRoomID:    expected.RoomID,
			}
		}
		return err
	}

	if requester.ID == expected.ID {
		return nil
	}

	kind := MismatchWrongRoom
	if requester.RoomID == expected.RoomID {
		kind = MismatchWrongMachine
	}
	return &MachineMismatchError{
		Kind:              kind,
		Origin:            params.Origin,
		MachineID:         requester.ID,
		MachineRoomID:     requester.RoomID,
		ExpectedMachineID: expected.ID,
		ExpectedRoomID:    expected.RoomID,
	}
}

func verifyAgentSignature(agentKey, enrolmentID, signature string) bool {
	if agentKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(agentKey))
	mac.Write([]byte(enrolmentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	return startOfDay(t, loc).AddDate(0, 0, 1)
}
