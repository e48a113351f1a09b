package persistence

import (
	"context"
	"time"
)

// UserRepository exposes account storage. AcquireLock takes an exclusive row
// lock on the user and is only meaningful inside a transaction; it is the
// serialization point for concurrent reservation attempts by the same user.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	AcquireLock(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error
}

// RoomRepository stores rooms together with their owned working-hours and
// exception collections.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// MachineRepository stores exam workstations.
type MachineRepository interface {
	CreateMachine(ctx context.Context, machine Machine) error
	GetMachine(ctx context.Context, id string) (Machine, error)
	GetMachineByOrigin(ctx context.Context, origin string) (Machine, error)
	ListMachinesForRoom(ctx context.Context, roomID string) ([]Machine, error)
	DeleteMachine(ctx context.Context, id string) error
}

// ExamRepository stores exam records of all kinds.
type ExamRepository interface {
	CreateExam(ctx context.Context, exam Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)
}

// ReservationRepository stores machine bookings.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	// ListOverlapping returns reservations on any of the machines whose span
	// overlaps [start, end).
	ListOverlapping(ctx context.Context, machineIDs []string, start, end time.Time) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
}

// EnrolmentRepository stores enrolments and their bindings.
type EnrolmentRepository interface {
	CreateEnrolment(ctx context.Context, enrolment Enrolment) error
	GetEnrolment(ctx context.Context, id string) (Enrolment, error)
	// GetForExam returns the user's enrolment for the exam, constrained to
	// enrolments with no reservation or whose reservation starts after ref.
	GetForExam(ctx context.Context, userID, examID string, ref time.Time) (Enrolment, error)
	// ListForUser returns all enrolments of the user regardless of binding.
	ListForUser(ctx context.Context, userID string) ([]Enrolment, error)
	// AttachReservation binds the reservation and replaces the enrolment's
	// chosen optional sections.
	AttachReservation(ctx context.Context, enrolmentID, reservationID string, optionalSectionIDs []string) error
	DetachReservation(ctx context.Context, reservationID string) error
	SetNoShow(ctx context.Context, enrolmentID string, noShow bool) error
	UpdateState(ctx context.Context, enrolmentID, state string) error
}

// EventConfigRepository stores recurring examination slot configurations.
type EventConfigRepository interface {
	UpsertEventConfig(ctx context.Context, config EventConfig) error
	GetEventConfig(ctx context.Context, id string) (EventConfig, error)
	DeleteEventConfig(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// TxRepositories bundles the repositories bound to one open transaction.
type TxRepositories struct {
	Users        UserRepository
	Rooms        RoomRepository
	Machines     MachineRepository
	Exams        ExamRepository
	Reservations ReservationRepository
	Enrolments   EnrolmentRepository
	EventConfigs EventConfigRepository
}

// TxManager runs a function inside a single transaction. The transaction is
// rolled back when fn returns an error and committed otherwise.
// Implementations must provide at least repeatable-read isolation. WithReadTx
// gives the callback a consistent snapshot without taking the write lock, so
// pure lookups never queue behind bookings.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
	WithReadTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
