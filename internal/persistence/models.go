package persistence

import "time"

// User represents a student or invigilator account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	Disabled     bool
	LockRev      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room is a supervised exam room. It owns its working-hours entries and
// exception events; both are deleted with the room.
type Room struct {
	ID           string
	Name         string
	Timezone     string
	DefaultHours []RoomDayHours
	Exceptions   []RoomException
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoomDayHours is the default opening span for one weekday of a room.
// Offsets are milliseconds from local midnight; TZOffsetMillis is the zone
// offset in effect when the entry was recorded. At most one entry exists per
// weekday.
type RoomDayHours struct {
	RoomID            string
	Weekday           time.Weekday
	StartOffsetMillis int64
	EndOffsetMillis   int64
	TZOffsetMillis    int64
}

// RoomException is a date-scoped override of a room's default hours.
type RoomException struct {
	ID                  string
	RoomID              string
	Start               time.Time
	End                 time.Time
	OutOfService        bool
	StartTZOffsetMillis int64
	EndTZOffsetMillis   int64
}

// Machine is a physical exam workstation. It belongs to exactly one room and
// is identified on the network by its origin (host part of the client
// address).
type Machine struct {
	ID            string
	RoomID        string
	Name          string
	Origin        string
	Software      []string
	Accessibility []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Exam kinds as stored. The application layer lifts these into a tagged
// union.
const (
	ExamKindLocal         = "local"
	ExamKindCollaborative = "collaborative"
	ExamKindExternal      = "external"
)

// Exam is the stored form of a local, collaborative or external exam. For
// external exams Content holds the mirrored document, including its embedded
// state.
type Exam struct {
	ID                  string
	Kind                string
	Name                string
	Hash                string
	DurationMillis      int64
	State               string
	Private             bool
	NetworkTransparent  bool
	AgentKey            *string
	MinOptionalSections int
	MaxOptionalSections int
	RequiredSoftware    []string
	Content             *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Reservation binds a user to a machine for a time span. ExternalHost and
// ExternalID are set when the reservation mirrors one held on a federated
// host.
type Reservation struct {
	ID                 string
	UserID             string
	MachineID          string
	Start              time.Time
	End                time.Time
	ExternalHost       *string
	ExternalID         *string
	OptionalSectionIDs []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Enrolment links a user to an exam and to at most one of a reservation or an
// examination event configuration.
type Enrolment struct {
	ID            string
	UserID        string
	ExamID        string
	State         string
	ReservationID *string
	EventConfigID *string
	NoShow        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EventConfig describes a recurring self-service examination slot that is not
// tied to a booked machine. The slot duration is derived from the exam.
type EventConfig struct {
	ID        string
	ExamID    string
	Frequency int
	Weekdays  []time.Weekday
	StartsOn  time.Time
	EndsOn    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}
