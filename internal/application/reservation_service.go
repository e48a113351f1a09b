package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/example/exam-scheduler/internal/interval"
	"github.com/example/exam-scheduler/internal/persistence"
	"github.com/example/exam-scheduler/internal/workinghours"
)

// ExternalReservationGateway cancels reservations mirrored on a federated
// host. Implementations must honour ctx deadlines; a timeout counts as
// failure.
type ExternalReservationGateway interface {
	Cancel(ctx context.Context, reservation persistence.Reservation) error
}

// ReservationNotifier receives best-effort booking notifications after
// commit. Implementations must never block the caller.
type ReservationNotifier interface {
	ReservationChanged(userID string, reservation Reservation, examName string, cancellation bool)
}

// EligibilityChecker runs externally imposed permission checks for an
// enrolment. A nil checker means no extra checks apply.
type EligibilityChecker interface {
	CheckEligibility(ctx context.Context, enrolment persistence.Enrolment, exam ExamRef) error
}

// ReservationService books and releases exam sittings. All booking state
// changes happen inside one write transaction under an exclusive lock on the
// requesting user's row, which serializes concurrent attempts from the same
// user.
type ReservationService struct {
	tx          persistence.TxManager
	hours       *workinghours.Resolver
	gateway     ExternalReservationGateway
	notifier    ReservationNotifier
	eligibility EligibilityChecker
	idGenerator func() string
	now         func() time.Time
	pick        func(n int) int
	logger      *slog.Logger
}

// NewReservationService wires dependencies for booking operations.
func NewReservationService(tx persistence.TxManager, hours *workinghours.Resolver, gateway ExternalReservationGateway, notifier ReservationNotifier, eligibility EligibilityChecker, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		tx:          tx,
		hours:       hours,
		gateway:     gateway,
		notifier:    notifier,
		eligibility: eligibility,
		idGenerator: idGenerator,
		now:         now,
		pick:        rand.Intn,
		logger:      defaultLogger(logger),
	}
}

// SetPicker overrides the random machine picker. Used by tests to make
// selection deterministic.
func (s *ReservationService) SetPicker(pick func(n int) int) {
	if pick != nil {
		s.pick = pick
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// CreateReservation books a machine for the user's enrolment in the exam.
//
// The whole protocol runs inside one transaction: lock the user row, re-fetch
// the enrolment under the lock, run eligibility checks, select a capable free
// machine at random, re-validate that the interval is open, cancel and
// replace any prior reservation (remote cancellation first when one is
// mirrored externally), then persist and attach the new reservation. The
// confirmation notification is dispatched only after commit and never affects
// the outcome.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.tx == nil {
		return Reservation{}, fmt.Errorf("transaction manager not configured")
	}

	logger := s.loggerWith(ctx, "CreateReservation",
		"user_id", params.Principal.UserID,
		"exam_id", params.ExamID,
		"room_id", params.RoomID,
	)

	if err := validateReservationParams(params); err != nil {
		return Reservation{}, err
	}

	var (
		created  Reservation
		examRef  ExamRef
		examName string
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context, repos persistence.TxRepositories) error {
		if err := repos.Users.AcquireLock(ctx, params.Principal.UserID); err != nil {
			return err
		}

		enrolment, err := repos.Enrolments.GetForExam(ctx, params.Principal.UserID, params.ExamID, s.now())
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrEnrolmentNotFound
			}
			return err
		}

		examRecord, err := repos.Exams.GetExam(ctx, enrolment.ExamID)
		if err != nil {
			return err
		}
		examRef, err = ExamRefFromRecord(examRecord)
		if err != nil {
			return err
		}
		examName = examRef.Base().Name

		if err := s.checkEligibility(ctx, enrolment, examRef, params); err != nil {
			return err
		}

		machine, err := s.selectMachine(ctx, repos, examRef, params)
		if err != nil {
			return err
		}

		if err := s.revalidateInterval(ctx, repos, machine, params); err != nil {
			return err
		}

		if enrolment.ReservationID != nil {
			if err := s.replaceExisting(ctx, repos, *enrolment.ReservationID); err != nil {
				return err
			}
		}

		now := s.now()
		record := persistence.Reservation{
			ID:                 s.idGenerator(),
			UserID:             params.Principal.UserID,
			MachineID:          machine.ID,
			Start:              params.Interval.Start,
			End:                params.Interval.End,
			OptionalSectionIDs: append([]string(nil), params.OptionalSectionIDs...),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := repos.Reservations.CreateReservation(ctx, record); err != nil {
			return err
		}
		if err := repos.Enrolments.AttachReservation(ctx, enrolment.ID, record.ID, params.OptionalSectionIDs); err != nil {
			return err
		}
		if examRef.Base().Private && enrolment.NoShow {
			if err := repos.Enrolments.SetNoShow(ctx, enrolment.ID, false); err != nil {
				return err
			}
		}

		created = Reservation{
			ID:                 record.ID,
			UserID:             record.UserID,
			MachineID:          record.MachineID,
			Interval:           params.Interval,
			OptionalSectionIDs: append([]string(nil), record.OptionalSectionIDs...),
		}
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "reservation failed", "error", err, "error_kind", ErrorKind(err))
		return Reservation{}, mapBookingRepoError(err)
	}

	logger.InfoContext(ctx, "reservation created",
		"reservation_id", created.ID,
		"machine_id", created.MachineID,
	)
	if s.notifier != nil {
		s.notifier.ReservationChanged(params.Principal.UserID, created, examName, false)
	}
	return created, nil
}

// RemoveReservation releases a strictly future reservation. Removal of an
// ongoing or past reservation fails with ErrReservationInEffect.
func (s *ReservationService) RemoveReservation(ctx context.Context, principal Principal, reservationID string) error {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if s.tx == nil {
		return fmt.Errorf("transaction manager not configured")
	}

	logger := s.loggerWith(ctx, "RemoveReservation",
		"user_id", principal.UserID,
		"reservation_id", reservationID,
	)

	var removed Reservation
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos persistence.TxRepositories) error {
		record, err := repos.Reservations.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if record.UserID != principal.UserID && !principal.IsAdmin {
			return ErrUnauthorized
		}
		if !record.Start.After(s.now()) {
			return ErrReservationInEffect
		}

		if err := repos.Enrolments.DetachReservation(ctx, record.ID); err != nil {
			return err
		}
		if err := repos.Reservations.DeleteReservation(ctx, record.ID); err != nil {
			return err
		}

		removed = Reservation{
			ID:        record.ID,
			UserID:    record.UserID,
			MachineID: record.MachineID,
			Interval:  interval.New(record.Start, record.End),
			External:  record.ExternalID != nil,
		}
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "reservation removal failed", "error", err, "error_kind", ErrorKind(err))
		return mapBookingRepoError(err)
	}

	logger.InfoContext(ctx, "reservation removed")
	if s.notifier != nil {
		s.notifier.ReservationChanged(removed.UserID, removed, "", true)
	}
	return nil
}

// OpeningHours resolves the bookable spans of a room for one calendar date.
func (s *ReservationService) OpeningHours(ctx context.Context, roomID string, date time.Time) ([]workinghours.OpeningHours, error) {
	if s == nil || s.tx == nil {
		return nil, fmt.Errorf("ReservationService is not configured")
	}
	if roomID == "" {
		vErr := &ValidationError{}
		vErr.add("room_id", "room is required")
		return nil, vErr
	}

	var open []workinghours.OpeningHours
	err := s.tx.WithReadTx(ctx, func(ctx context.Context, repos persistence.TxRepositories) error {
		room, err := repos.Rooms.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		open = s.hours.Resolve(date, RoomHoursFromRecord(room))
		return nil
	})
	if err != nil {
		return nil, mapBookingRepoError(err)
	}
	return open, nil
}

func (s *ReservationService) checkEligibility(ctx context.Context, enrolment persistence.Enrolment, examRef ExamRef, params CreateReservationParams) error {
	base := examRef.Base()
	chosen := len(params.OptionalSectionIDs)
	if chosen < base.MinOptionalSections {
		return &EligibilityError{Reason: ReasonTooFewSections}
	}
	if base.MaxOptionalSections > 0 && chosen > base.MaxOptionalSections {
		return &EligibilityError{Reason: ReasonTooManySections}
	}
	if s.eligibility != nil {
		if err := s.eligibility.CheckEligibility(ctx, enrolment, examRef); err != nil {
			var eligErr *EligibilityError
			if errors.As(err, &eligErr) {
				return err
			}
			// Checkers that refuse without a reason code count as a plain
			// permission denial.
			return &EligibilityError{Reason: ReasonNotPermitted}
		}
	}
	return nil
}

// selectMachine filters the room's machines down to those whose capability
// set covers the exam's required software, that satisfy the requested
// accessibility attributes, and that are free for the interval, then picks
// one uniformly at random to spread load. Every committed reservation counts
// as busy, including one held by the requesting enrolment: of two duplicate
// submissions for the same slot exactly one can win.
func (s *ReservationService) selectMachine(ctx context.Context, repos persistence.TxRepositories, examRef ExamRef, params CreateReservationParams) (persistence.Machine, error) {
	machines, err := repos.Machines.ListMachinesForRoom(ctx, params.RoomID)
	if err != nil {
		return persistence.Machine{}, err
	}

	required := examRef.Base().RequiredSoftware
	capable := machines[:0:0]
	ids := make([]string, 0, len(machines))
	for _, machine := range machines {
		if !containsAll(machine.Software, required) {
			continue
		}
		if !containsAll(machine.Accessibility, params.Accessibility) {
			continue
		}
		capable = append(capable, machine)
		ids = append(ids, machine.ID)
	}
	if len(capable) == 0 {
		return persistence.Machine{}, ErrNoMachineAvailable
	}

	overlapping, err := repos.Reservations.ListOverlapping(ctx, ids, params.Interval.Start, params.Interval.End)
	if err != nil {
		return persistence.Machine{}, err
	}
	busy := make(map[string]struct{}, len(overlapping))
	for _, reservation := range overlapping {
		busy[reservation.MachineID] = struct{}{}
	}

	free := capable[:0:0]
	for _, machine := range capable {
		if _, taken := busy[machine.ID]; !taken {
			free = append(free, machine)
		}
	}
	if len(free) == 0 {
		return persistence.Machine{}, ErrNoMachineAvailable
	}

	return free[s.pick(len(free))], nil
}

// revalidateInterval defends against staleness between slot listing and
// booking: the interval must still sit inside an open span of the room, and
// the chosen machine must still be free.
func (s *ReservationService) revalidateInterval(ctx context.Context, repos persistence.TxRepositories, machine persistence.Machine, params CreateReservationParams) error {
	room, err := repos.Rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		return err
	}

	open := s.hours.Resolve(params.Interval.Start, RoomHoursFromRecord(room))
	covered := false
	for _, span := range open {
		if span.Window.Covers(params.Interval) {
			covered = true
			break
		}
	}
	if !covered {
		return ErrNoMachineAvailable
	}

	overlapping, err := repos.Reservations.ListOverlapping(ctx, []string{machine.ID}, params.Interval.Start, params.Interval.End)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return ErrNoMachineAvailable
	}
	return nil
}

// replaceExisting removes the enrolment's current reservation. When it
// mirrors an externally hosted reservation the remote side is cancelled
// first; no local mutation happens unless that call succeeds.
func (s *ReservationService) replaceExisting(ctx context.Context, repos persistence.TxRepositories, reservationID string) error {
	record, err := repos.Reservations.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil
		}
		return err
	}

	if record.ExternalID != nil {
		if s.gateway == nil {
			return ErrExternalCancellationFailed
		}
		if err := s.gateway.Cancel(ctx, record); err != nil {
			return fmt.Errorf("%w: %v", ErrExternalCancellationFailed, err)
		}
	}

	if err := repos.Enrolments.DetachReservation(ctx, record.ID); err != nil {
		return err
	}
	return repos.Reservations.DeleteReservation(ctx, record.ID)
}

// RoomHoursFromRecord converts a stored room into the resolver's input form.
func RoomHoursFromRecord(room persistence.Room) workinghours.RoomHours {
	var loc *time.Location
	if room.Timezone != "" {
		if parsed, err := time.LoadLocation(room.Timezone); err == nil {
			loc = parsed
		}
	}

	defaults := make(map[time.Weekday]workinghours.DayHours, len(room.DefaultHours))
	for _, entry := range room.DefaultHours {
		defaults[entry.Weekday] = workinghours.DayHours{
			StartOffset: time.Duration(entry.StartOffsetMillis) * time.Millisecond,
			EndOffset:   time.Duration(entry.EndOffsetMillis) * time.Millisecond,
			TZOffset:    time.Duration(entry.TZOffsetMillis) * time.Millisecond,
		}
	}

	exceptions := make([]workinghours.Exception, 0, len(room.Exceptions))
	for _, exc := range room.Exceptions {
		exceptions = append(exceptions, workinghours.Exception{
			Window:        interval.New(exc.Start, exc.End),
			OutOfService:  exc.OutOfService,
			StartTZOffset: time.Duration(exc.StartTZOffsetMillis) * time.Millisecond,
			EndTZOffset:   time.Duration(exc.EndTZOffsetMillis) * time.Millisecond,
		})
	}

	return workinghours.RoomHours{Location: loc, Defaults: defaults, Exceptions: exceptions}
}

func validateReservationParams(params CreateReservationParams) error {
	vErr := &ValidationError{}
	if params.Principal.UserID == "" {
		vErr.add("user_id", "user is required")
	}
	if params.ExamID == "" {
		vErr.add("exam_id", "exam is required")
	}
	if params.RoomID == "" {
		vErr.add("room_id", "room is required")
	}
	if params.Interval.Start.IsZero() || params.Interval.End.IsZero() {
		vErr.add("interval", "start and end are required")
	} else if !params.Interval.Start.Before(params.Interval.End) {
		vErr.add("interval", "start must be before end")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, value := range have {
		set[value] = struct{}{}
	}
	for _, value := range want {
		if _, ok := set[value]; !ok {
			return false
		}
	}
	return true
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrStaleData):
		return ErrDataChanged
	}
	return err
}
