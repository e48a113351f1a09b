package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/exam-scheduler/internal/persistence"
	"github.com/example/exam-scheduler/internal/testfixtures"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture(testfixtures.WithUserEmail("Casey@Example.EDU")).Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	stored, err := harness.Users.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if stored.Email != "casey@example.edu" {
		t.Errorf("expected normalized email, got %q", stored.Email)
	}

	// Lookup is case insensitive because the stored form is lowercased.
	byEmail, err := harness.Users.GetUserByEmail(ctx, "CASEY@example.edu")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("expected user %q, got %q", user.ID, byEmail.ID)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	first := testfixtures.NewUserFixture(testfixtures.WithUserEmail("shared@example.edu")).Persistence()
	second := testfixtures.NewUserFixture(testfixtures.WithUserEmail("shared@example.edu")).Persistence()

	if err := harness.Users.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	err := harness.Users.CreateUser(ctx, second)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserRepository_AcquireLock(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := harness.Users.AcquireLock(ctx, user.ID); err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	stored, err := harness.Users.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if stored.LockRev != 1 {
		t.Errorf("expected lock_rev 1, got %d", stored.LockRev)
	}

	if err := harness.Users.AcquireLock(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestRoomRepository_RoundTrip(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	fixture := testfixtures.NewRoomFixture()
	room := fixture.Persistence()
	room.Exceptions = []persistence.RoomException{{
		ID:           "exc-1",
		RoomID:       room.ID,
		Start:        time.Date(2025, time.June, 5, 8, 0, 0, 0, time.UTC),
		End:          time.Date(2025, time.June, 5, 12, 0, 0, 0, time.UTC),
		OutOfService: true,
	}}

	if err := harness.Rooms.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	stored, err := harness.Rooms.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if len(stored.DefaultHours) != len(room.DefaultHours) {
		t.Fatalf("expected %d default hour entries, got %d", len(room.DefaultHours), len(stored.DefaultHours))
	}
	if len(stored.Exceptions) != 1 {
		t.Fatalf("expected one exception, got %d", len(stored.Exceptions))
	}
	if !stored.Exceptions[0].OutOfService {
		t.Error("expected exception to be out of service")
	}
	if !stored.Exceptions[0].Start.Equal(room.Exceptions[0].Start) {
		t.Errorf("exception start changed: %v", stored.Exceptions[0].Start)
	}
}

func TestRoomRepository_UpdateReplacesOwnedCollections(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	room := testfixtures.NewRoomFixture().Persistence()
	if err := harness.Rooms.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	room.DefaultHours = []persistence.RoomDayHours{{
		RoomID:            room.ID,
		Weekday:           time.Saturday,
		StartOffsetMillis: 9 * 3600 * 1000,
		EndOffsetMillis:   13 * 3600 * 1000,
	}}
	room.Exceptions = nil
	if err := harness.Rooms.UpdateRoom(ctx, room); err != nil {
		t.Fatalf("UpdateRoom failed: %v", err)
	}

	stored, err := harness.Rooms.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if len(stored.DefaultHours) != 1 || stored.DefaultHours[0].Weekday != time.Saturday {
		t.Fatalf("expected a single Saturday entry, got %+v", stored.DefaultHours)
	}
}

func TestMachineRepository_GetByOrigin(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	room := testfixtures.NewRoomFixture().Persistence()
	if err := harness.Rooms.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	machine := testfixtures.NewMachineFixture(room.ID,
		testfixtures.WithMachineOrigin("pc-7.lab.example.edu"),
		testfixtures.WithMachineSoftware("proctor-agent"),
	).Persistence()
	if err := harness.Machines.CreateMachine(ctx, machine); err != nil {
		t.Fatalf("CreateMachine failed: %v", err)
	}

	stored, err := harness.Machines.GetMachineByOrigin(ctx, "pc-7.lab.example.edu")
	if err != nil {
		t.Fatalf("GetMachineByOrigin failed: %v", err)
	}
	if stored.ID != machine.ID {
		t.Errorf("expected machine %q, got %q", machine.ID, stored.ID)
	}
	if len(stored.Software) != 1 || stored.Software[0] != "proctor-agent" {
		t.Errorf("software list changed: %v", stored.Software)
	}

	if _, err := harness.Machines.GetMachineByOrigin(ctx, "unknown.example.edu"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMachineRepository_RequiresRoom(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	machine := testfixtures.NewMachineFixture("no-such-room").Persistence()
	err := harness.Machines.CreateMachine(ctx, machine)
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}
}

func TestExamRepository_RoundTrip(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	exam := testfixtures.NewExamFixture(
		testfixtures.WithExamNetworkTransparent("agent-key-1"),
		testfixtures.WithExamSectionBounds(1, 3),
		testfixtures.WithExamRequiredSoftware("spreadsheet"),
	).Persistence()

	if err := harness.Exams.CreateExam(ctx, exam); err != nil {
		t.Fatalf("CreateExam failed: %v", err)
	}

	stored, err := harness.Exams.GetExam(ctx, exam.ID)
	if err != nil {
		t.Fatalf("GetExam failed: %v", err)
	}
	if !stored.NetworkTransparent {
		t.Error("expected network transparent flag")
	}
	if stored.AgentKey == nil || *stored.AgentKey != "agent-key-1" {
		t.Errorf("agent key changed: %v", stored.AgentKey)
	}
	if stored.MinOptionalSections != 1 || stored.MaxOptionalSections != 3 {
		t.Errorf("section bounds changed: %d..%d", stored.MinOptionalSections, stored.MaxOptionalSections)
	}
	if len(stored.RequiredSoftware) != 1 || stored.RequiredSoftware[0] != "spreadsheet" {
		t.Errorf("required software changed: %v", stored.RequiredSoftware)
	}
}

func TestReservationRepository_ListOverlapping(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	room := testfixtures.NewRoomFixture().Persistence()
	machineA := testfixtures.NewMachineFixture(room.ID).Persistence()
	machineB := testfixtures.NewMachineFixture(room.ID).Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := harness.Rooms.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	for _, m := range []persistence.Machine{machineA, machineB} {
		if err := harness.Machines.CreateMachine(ctx, m); err != nil {
			t.Fatalf("CreateMachine failed: %v", err)
		}
	}

	base := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	booked := testfixtures.NewReservationFixture(user.ID, machineA.ID,
		testfixtures.WithReservationWindow(base, base.Add(2*time.Hour)),
	).Persistence()
	if err := harness.Reservations.CreateReservation(ctx, booked); err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	tests := []struct {
		name     string
		machines []string
		start    time.Time
		end      time.Time
		want     int
	}{
		{
			name:     "fully inside",
			machines: []string{machineA.ID},
			start:    base.Add(30 * time.Minute),
			end:      base.Add(time.Hour),
			want:     1,
		},
		{
			name:     "touching at end is not overlap",
			machines: []string{machineA.ID},
			start:    base.Add(2 * time.Hour),
			end:      base.Add(3 * time.Hour),
			want:     0,
		},
		{
			name:     "touching at start is not overlap",
			machines: []string{machineA.ID},
			start:    base.Add(-time.Hour),
			end:      base,
			want:     0,
		},
		{
			name:     "straddling the start",
			machines: []string{machineA.ID},
			start:    base.Add(-time.Hour),
			end:      base.Add(time.Minute),
			want:     1,
		},
		{
			name:     "other machine only",
			machines: []string{machineB.ID},
			start:    base,
			end:      base.Add(2 * time.Hour),
			want:     0,
		},
		{
			name:     "both machines",
			machines: []string{machineA.ID, machineB.ID},
			start:    base,
			end:      base.Add(2 * time.Hour),
			want:     1,
		},
		{
			name:     "no machines",
			machines: nil,
			start:    base,
			end:      base.Add(2 * time.Hour),
			want:     0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := harness.Reservations.ListOverlapping(ctx, tc.machines, tc.start, tc.end)
			if err != nil {
				t.Fatalf("ListOverlapping failed: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d reservations, got %d", tc.want, len(got))
			}
		})
	}
}

func TestReservationRepository_ExternalFields(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	room := testfixtures.NewRoomFixture().Persistence()
	machine := testfixtures.NewMachineFixture(room.ID).Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := harness.Rooms.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := harness.Machines.CreateMachine(ctx, machine); err != nil {
		t.Fatalf("CreateMachine failed: %v", err)
	}

	reservation := testfixtures.NewReservationFixture(user.ID, machine.ID,
		testfixtures.WithReservationExternal("partner.example.org", "remote-99"),
		testfixtures.WithReservationSections("sec-a", "sec-b"),
	).Persistence()
	if err := harness.Reservations.CreateReservation(ctx, reservation); err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	stored, err := harness.Reservations.GetReservation(ctx, reservation.ID)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if stored.ExternalHost == nil || *stored.ExternalHost != "partner.example.org" {
		t.Errorf("external host changed: %v", stored.ExternalHost)
	}
	if stored.ExternalID == nil || *stored.ExternalID != "remote-99" {
		t.Errorf("external id changed: %v", stored.ExternalID)
	}
	if len(stored.OptionalSectionIDs) != 2 {
		t.Errorf("optional sections changed: %v", stored.OptionalSectionIDs)
	}
}

func TestEnrolmentRepository_GetForExam(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	room := testfixtures.NewRoomFixture().Persistence()
	machine := testfixtures.NewMachineFixture(room.ID).Persistence()
	exam := testfixtures.NewExamFixture().Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := harness.Rooms.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := harness.Machines.CreateMachine(ctx, machine); err != nil {
		t.Fatalf("CreateMachine failed: %v", err)
	}
	if err := harness.Exams.CreateExam(ctx, exam); err != nil {
		t.Fatalf("CreateExam failed: %v", err)
	}

	ref := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

	t.Run("unbound enrolment is returned", func(t *testing.T) {
		enrolment := testfixtures.NewEnrolmentFixture(user.ID, exam.ID).Persistence()
		if err := harness.Enrolments.CreateEnrolment(ctx, enrolment); err != nil {
			t.Fatalf("CreateEnrolment failed: %v", err)
		}
		got, err := harness.Enrolments.GetForExam(ctx, user.ID, exam.ID, ref)
		if err != nil {
			t.Fatalf("GetForExam failed: %v", err)
		}
		if got.ID != enrolment.ID {
			t.Fatalf("expected enrolment %q, got %q", enrolment.ID, got.ID)
		}
	})

	t.Run("future reservation keeps enrolment bookable", func(t *testing.T) {
		other := testfixtures.NewUserFixture().Persistence()
		if err := harness.Users.CreateUser(ctx, other); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		reservation := testfixtures.NewReservationFixture(other.ID, machine.ID,
			testfixtures.WithReservationWindow(ref.Add(time.Hour), ref.Add(3*time.Hour)),
		).Persistence()
		if err := harness.Reservations.CreateReservation(ctx, reservation); err != nil {
			t.Fatalf("CreateReservation failed: %v", err)
		}
		enrolment := testfixtures.NewEnrolmentFixture(other.ID, exam.ID,
			testfixtures.WithEnrolmentReservation(reservation.ID),
		).Persistence()
		if err := harness.Enrolments.CreateEnrolment(ctx, enrolment); err != nil {
			t.Fatalf("CreateEnrolment failed: %v", err)
		}

		got, err := harness.Enrolments.GetForExam(ctx, other.ID, exam.ID, ref)
		if err != nil {
			t.Fatalf("GetForExam failed: %v", err)
		}
		if got.ID != enrolment.ID {
			t.Fatalf("expected enrolment %q, got %q", enrolment.ID, got.ID)
		}
	})

	t.Run("started reservation makes enrolment unavailable", func(t *testing.T) {
		other := testfixtures.NewUserFixture().Persistence()
		if err := harness.Users.CreateUser(ctx, other); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		reservation := testfixtures.NewReservationFixture(other.ID, machine.ID,
			testfixtures.WithReservationWindow(ref.Add(-2*time.Hour), ref.Add(-time.Hour)),
		).Persistence()
		if err := harness.Reservations.CreateReservation(ctx, reservation); err != nil {
			t.Fatalf("CreateReservation failed: %v", err)
		}
		enrolment := testfixtures.NewEnrolmentFixture(other.ID, exam.ID,
			testfixtures.WithEnrolmentReservation(reservation.ID),
		).Persistence()
		if err := harness.Enrolments.CreateEnrolment(ctx, enrolment); err != nil {
			t.Fatalf("CreateEnrolment failed: %v", err)
		}

		if _, err := harness.Enrolments.GetForExam(ctx, other.ID, exam.ID, ref); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEnrolmentRepository_AttachAndDetach(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	room := testfixtures.NewRoomFixture().Persistence()
	machine := testfixtures.NewMachineFixture(room.ID).Persistence()
	exam := testfixtures.NewExamFixture().Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := harness.Rooms.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := harness.Machines.CreateMachine(ctx, machine); err != nil {
		t.Fatalf("CreateMachine failed: %v", err)
	}
	if err := harness.Exams.CreateExam(ctx, exam); err != nil {
		t.Fatalf("CreateExam failed: %v", err)
	}

	enrolment := testfixtures.NewEnrolmentFixture(user.ID, exam.ID).Persistence()
	if err := harness.Enrolments.CreateEnrolment(ctx, enrolment); err != nil {
		t.Fatalf("CreateEnrolment failed: %v", err)
	}
	reservation := testfixtures.NewReservationFixture(user.ID, machine.ID).Persistence()
	if err := harness.Reservations.CreateReservation(ctx, reservation); err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	if err := harness.Enrolments.AttachReservation(ctx, enrolment.ID, reservation.ID, []string{"sec-1"}); err != nil {
		t.Fatalf("AttachReservation failed: %v", err)
	}

	bound, err := harness.Enrolments.GetEnrolment(ctx, enrolment.ID)
	if err != nil {
		t.Fatalf("GetEnrolment failed: %v", err)
	}
	if bound.ReservationID == nil || *bound.ReservationID != reservation.ID {
		t.Fatalf("expected binding to %q, got %v", reservation.ID, bound.ReservationID)
	}
	storedReservation, err := harness.Reservations.GetReservation(ctx, reservation.ID)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if len(storedReservation.OptionalSectionIDs) != 1 || storedReservation.OptionalSectionIDs[0] != "sec-1" {
		t.Fatalf("expected section choice to be persisted, got %v", storedReservation.OptionalSectionIDs)
	}

	if err := harness.Enrolments.DetachReservation(ctx, reservation.ID); err != nil {
		t.Fatalf("DetachReservation failed: %v", err)
	}
	unbound, err := harness.Enrolments.GetEnrolment(ctx, enrolment.ID)
	if err != nil {
		t.Fatalf("GetEnrolment failed: %v", err)
	}
	if unbound.ReservationID != nil {
		t.Fatalf("expected binding to be cleared, got %v", unbound.ReservationID)
	}
}

func TestEventConfigRepository_Upsert(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	exam := testfixtures.NewExamFixture().Persistence()
	if err := harness.Exams.CreateExam(ctx, exam); err != nil {
		t.Fatalf("CreateExam failed: %v", err)
	}

	config := persistence.EventConfig{
		ID:        "evc-1",
		ExamID:    exam.ID,
		Frequency: 1,
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
		StartsOn:  time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC),
	}
	if err := harness.EventConfigs.UpsertEventConfig(ctx, config); err != nil {
		t.Fatalf("UpsertEventConfig failed: %v", err)
	}

	config.Weekdays = []time.Weekday{time.Friday}
	if err := harness.EventConfigs.UpsertEventConfig(ctx, config); err != nil {
		t.Fatalf("second UpsertEventConfig failed: %v", err)
	}

	stored, err := harness.EventConfigs.GetEventConfig(ctx, "evc-1")
	if err != nil {
		t.Fatalf("GetEventConfig failed: %v", err)
	}
	if len(stored.Weekdays) != 1 || stored.Weekdays[0] != time.Friday {
		t.Fatalf("expected Friday only, got %v", stored.Weekdays)
	}
	if stored.EndsOn != nil {
		t.Fatalf("expected open ended config, got %v", stored.EndsOn)
	}
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	session := testfixtures.NewSessionFixture(user.ID).Persistence()
	if _, err := harness.Sessions.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	stored, err := harness.Sessions.GetSession(ctx, session.Token)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if stored.UserID != user.ID {
		t.Fatalf("expected session for %q, got %q", user.ID, stored.UserID)
	}

	revokedAt := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)
	revoked, err := harness.Sessions.RevokeSession(ctx, session.Token, revokedAt)
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(revokedAt) {
		t.Fatalf("expected revocation timestamp, got %v", revoked.RevokedAt)
	}

	// Already revoked sessions are not revoked twice.
	if _, err := harness.Sessions.RevokeSession(ctx, session.Token, revokedAt.Add(time.Hour)); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second revoke, got %v", err)
	}
}

func TestSessionRepository_DeleteExpiredSessions(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	reference := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)
	expired := testfixtures.NewSessionFixture(user.ID,
		testfixtures.WithSessionExpiresAt(reference.Add(-time.Minute)),
	).Persistence()
	live := testfixtures.NewSessionFixture(user.ID,
		testfixtures.WithSessionExpiresAt(reference.Add(time.Hour)),
	).Persistence()
	for _, s := range []persistence.Session{expired, live} {
		if _, err := harness.Sessions.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	if err := harness.Sessions.DeleteExpiredSessions(ctx, reference); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}

	if _, err := harness.Sessions.GetSession(ctx, expired.Token); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if _, err := harness.Sessions.GetSession(ctx, live.Token); err != nil {
		t.Fatalf("expected live session to remain, got %v", err)
	}
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	failure := errors.New("boom")

	err := harness.Tx.WithTx(ctx, func(ctx context.Context, repos persistence.TxRepositories) error {
		if err := repos.Users.CreateUser(ctx, user); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	if _, err := harness.Users.GetUser(ctx, user.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected insert to be rolled back, got %v", err)
	}
}

func TestTxManager_CommitsOnSuccess(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	err := harness.Tx.WithTx(ctx, func(ctx context.Context, repos persistence.TxRepositories) error {
		return repos.Users.CreateUser(ctx, user)
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	stored, err := harness.Users.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if stored.ID != user.ID {
		t.Fatalf("expected user %q, got %q", user.ID, stored.ID)
	}
}

func TestTxManager_ReadTxSeesCommittedState(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture().Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	err := harness.Tx.WithReadTx(ctx, func(ctx context.Context, repos persistence.TxRepositories) error {
		stored, err := repos.Users.GetUser(ctx, user.ID)
		if err != nil {
			return err
		}
		if stored.ID != user.ID {
			t.Fatalf("expected user %q, got %q", user.ID, stored.ID)
		}
		_, err = repos.Users.GetUser(ctx, "absent")
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithReadTx failed: %v", err)
	}
}
