package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/exam-scheduler/internal/application"
	"github.com/example/exam-scheduler/internal/persistence"
)

var (
	userCounter        uint64
	roomCounter        uint64
	machineCounter     uint64
	examCounter        uint64
	enrolmentCounter   uint64
	reservationCounter uint64
	sessionCounter     uint64
)

var referenceTime = time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Monday so weekday based hours line up predictably.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the fixture identifier.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

// WithUserEmail overrides the fixture email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

// WithUserPasswordHash overrides the stored password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// WithUserAdmin marks the fixture as an administrator.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) { f.IsAdmin = isAdmin }
}

// WithUserDisabled marks the account as blocked from logging in.
func WithUserDisabled(disabled bool) UserOption {
	return func(f *UserFixture) { f.Disabled = disabled }
}

// Persistence materialises the fixture as a stored user row.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		IsAdmin:      f.IsAdmin,
		Disabled:     f.Disabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Principal materialises the fixture as an authenticated principal.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, IsAdmin: f.IsAdmin}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic exam room with weekday opening hours.
type RoomFixture struct {
	ID           string
	Name         string
	Timezone     string
	DefaultHours []persistence.RoomDayHours
	Exceptions   []persistence.RoomException
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a room open Monday to Friday 08:00-18:00 UTC unless
// overridden.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := RoomFixture{
		ID:        id,
		Name:      fmt.Sprintf("Room %03d", idx),
		Timezone:  "UTC",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for weekday := time.Monday; weekday <= time.Friday; weekday++ {
		fixture.DefaultHours = append(fixture.DefaultHours, persistence.RoomDayHours{
			RoomID:            id,
			Weekday:           weekday,
			StartOffsetMillis: (8 * time.Hour).Milliseconds(),
			EndOffsetMillis:   (18 * time.Hour).Milliseconds(),
		})
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the fixture identifier, rewriting owned hour entries.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
		for i := range f.DefaultHours {
			f.DefaultHours[i].RoomID = id
		}
		for i := range f.Exceptions {
			f.Exceptions[i].RoomID = id
		}
	}
}

// WithRoomTimezone overrides the room timezone.
func WithRoomTimezone(tz string) RoomOption {
	return func(f *RoomFixture) { f.Timezone = tz }
}

// WithRoomHours replaces the default weekday hours.
func WithRoomHours(hours ...persistence.RoomDayHours) RoomOption {
	return func(f *RoomFixture) {
		for i := range hours {
			hours[i].RoomID = f.ID
		}
		f.DefaultHours = hours
	}
}

// WithRoomException appends a date-scoped override.
func WithRoomException(exc persistence.RoomException) RoomOption {
	return func(f *RoomFixture) {
		exc.RoomID = f.ID
		if exc.ID == "" {
			exc.ID = fmt.Sprintf("%s-exc-%d", f.ID, len(f.Exceptions)+1)
		}
		f.Exceptions = append(f.Exceptions, exc)
	}
}

// Persistence materialises the fixture as a stored room row.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:           f.ID,
		Name:         f.Name,
		Timezone:     f.Timezone,
		DefaultHours: append([]persistence.RoomDayHours(nil), f.DefaultHours...),
		Exceptions:   append([]persistence.RoomException(nil), f.Exceptions...),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ---------------------------- Machine fixtures ----------------------------

// MachineFixture represents a deterministic exam workstation.
type MachineFixture struct {
	ID            string
	RoomID        string
	Name          string
	Origin        string
	Software      []string
	Accessibility []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MachineOption configures the generated machine fixture.
type MachineOption func(*MachineFixture)

// NewMachineFixture returns a machine fixture bound to the given room.
func NewMachineFixture(roomID string, opts ...MachineOption) MachineFixture {
	idx := atomic.AddUint64(&machineCounter, 1)
	id := fmt.Sprintf("machine-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := MachineFixture{
		ID:        id,
		RoomID:    roomID,
		Name:      fmt.Sprintf("Machine %03d", idx),
		Origin:    fmt.Sprintf("10.0.0.%d", idx%250+1),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMachineID overrides the fixture identifier.
func WithMachineID(id string) MachineOption {
	return func(f *MachineFixture) { f.ID = id }
}

// WithMachineOrigin overrides the registered network origin.
func WithMachineOrigin(origin string) MachineOption {
	return func(f *MachineFixture) { f.Origin = origin }
}

// WithMachineSoftware sets the installed software identifiers.
func WithMachineSoftware(software ...string) MachineOption {
	return func(f *MachineFixture) { f.Software = software }
}

// WithMachineAccessibility sets the accessibility attributes.
func WithMachineAccessibility(attrs ...string) MachineOption {
	return func(f *MachineFixture) { f.Accessibility = attrs }
}

// Persistence materialises the fixture as a stored machine row.
func (f MachineFixture) Persistence() persistence.Machine {
	return persistence.Machine{
		ID:            f.ID,
		RoomID:        f.RoomID,
		Name:          f.Name,
		Origin:        f.Origin,
		Software:      append([]string(nil), f.Software...),
		Accessibility: append([]string(nil), f.Accessibility...),
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// ------------------------------ Exam fixtures -----------------------------

// ExamFixture represents a deterministic exam definition.
type ExamFixture struct {
	ID                  string
	Kind                string
	Name                string
	Hash                string
	Duration            time.Duration
	State               string
	Private             bool
	NetworkTransparent  bool
	AgentKey            string
	MinOptionalSections int
	MaxOptionalSections int
	RequiredSoftware    []string
	Content             string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ExamOption configures the generated exam fixture.
type ExamOption func(*ExamFixture)

// NewExamFixture returns a two hour local exam unless overridden.
func NewExamFixture(opts ...ExamOption) ExamFixture {
	idx := atomic.AddUint64(&examCounter, 1)
	id := fmt.Sprintf("exam-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ExamFixture{
		ID:        id,
		Kind:      persistence.ExamKindLocal,
		Name:      fmt.Sprintf("Exam %03d", idx),
		Hash:      fmt.Sprintf("hash-%03d", idx),
		Duration:  2 * time.Hour,
		State:     "READY",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithExamID overrides the fixture identifier.
func WithExamID(id string) ExamOption {
	return func(f *ExamFixture) { f.ID = id }
}

// WithExamKind overrides the stored exam kind.
func WithExamKind(kind string) ExamOption {
	return func(f *ExamFixture) { f.Kind = kind }
}

// WithExamDuration overrides the sitting duration.
func WithExamDuration(d time.Duration) ExamOption {
	return func(f *ExamFixture) { f.Duration = d }
}

// WithExamSectionBounds sets the optional section count limits.
func WithExamSectionBounds(min, max int) ExamOption {
	return func(f *ExamFixture) {
		f.MinOptionalSections = min
		f.MaxOptionalSections = max
	}
}

// WithExamRequiredSoftware sets the software a machine must provide.
func WithExamRequiredSoftware(software ...string) ExamOption {
	return func(f *ExamFixture) { f.RequiredSoftware = software }
}

// WithExamPrivate marks the exam as private.
func WithExamPrivate(private bool) ExamOption {
	return func(f *ExamFixture) { f.Private = private }
}

// WithExamNetworkTransparent marks the exam as browser based with the given
// agent key.
func WithExamNetworkTransparent(agentKey string) ExamOption {
	return func(f *ExamFixture) {
		f.NetworkTransparent = true
		f.AgentKey = agentKey
	}
}

// WithExamContent sets the mirrored document for an external exam.
func WithExamContent(content string) ExamOption {
	return func(f *ExamFixture) {
		f.Kind = persistence.ExamKindExternal
		f.Content = content
	}
}

// Persistence materialises the fixture as a stored exam row.
func (f ExamFixture) Persistence() persistence.Exam {
	rec := persistence.Exam{
		ID:                  f.ID,
		Kind:                f.Kind,
		Name:                f.Name,
		Hash:                f.Hash,
		DurationMillis:      f.Duration.Milliseconds(),
		State:               f.State,
		Private:             f.Private,
		NetworkTransparent:  f.NetworkTransparent,
		MinOptionalSections: f.MinOptionalSections,
		MaxOptionalSections: f.MaxOptionalSections,
		RequiredSoftware:    append([]string(nil), f.RequiredSoftware...),
		CreatedAt:           f.CreatedAt,
		UpdatedAt:           f.UpdatedAt,
	}
	if f.AgentKey != "" {
		key := f.AgentKey
		rec.AgentKey = &key
	}
	if f.Content != "" {
		content := f.Content
		rec.Content = &content
	}
	return rec
}

// --------------------------- Enrolment fixtures ---------------------------

// EnrolmentFixture links a user fixture to an exam fixture.
type EnrolmentFixture struct {
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

// EnrolmentOption configures the generated enrolment fixture.
type EnrolmentOption func(*EnrolmentFixture)

// NewEnrolmentFixture returns a published enrolment for the given user and exam.
func NewEnrolmentFixture(userID, examID string, opts ...EnrolmentOption) EnrolmentFixture {
	idx := atomic.AddUint64(&enrolmentCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := EnrolmentFixture{
		ID:        fmt.Sprintf("enrolment-%03d", idx),
		UserID:    userID,
		ExamID:    examID,
		State:     application.EnrolmentStatePublished,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEnrolmentState overrides the lifecycle state.
func WithEnrolmentState(state string) EnrolmentOption {
	return func(f *EnrolmentFixture) { f.State = state }
}

// WithEnrolmentReservation binds the enrolment to a reservation.
func WithEnrolmentReservation(reservationID string) EnrolmentOption {
	return func(f *EnrolmentFixture) { f.ReservationID = &reservationID }
}

// WithEnrolmentEventConfig binds the enrolment to an event configuration.
func WithEnrolmentEventConfig(eventConfigID string) EnrolmentOption {
	return func(f *EnrolmentFixture) { f.EventConfigID = &eventConfigID }
}

// WithEnrolmentNoShow marks the enrolment as a recorded no-show.
func WithEnrolmentNoShow(noShow bool) EnrolmentOption {
	return func(f *EnrolmentFixture) { f.NoShow = noShow }
}

// Persistence materialises the fixture as a stored enrolment row.
func (f EnrolmentFixture) Persistence() persistence.Enrolment {
	return persistence.Enrolment{
		ID:            f.ID,
		UserID:        f.UserID,
		ExamID:        f.ExamID,
		State:         f.State,
		ReservationID: f.ReservationID,
		EventConfigID: f.EventConfigID,
		NoShow:        f.NoShow,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// -------------------------- Reservation fixtures --------------------------

// ReservationFixture binds a user to a machine for a time span.
type ReservationFixture struct {
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

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a two hour reservation starting one hour after
// the reference time.
func NewReservationFixture(userID, machineID string, opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	start := referenceTime.Add(time.Hour)
	fixture := ReservationFixture{
		ID:        fmt.Sprintf("reservation-%03d", idx),
		UserID:    userID,
		MachineID: machineID,
		Start:     start,
		End:       start.Add(2 * time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationWindow overrides the reserved time span.
func WithReservationWindow(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = start
		f.End = end
	}
}

// WithReservationExternal marks the reservation as a mirror of one held on a
// federated host.
func WithReservationExternal(host, externalID string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ExternalHost = &host
		f.ExternalID = &externalID
	}
}

// WithReservationSections sets the chosen optional section identifiers.
func WithReservationSections(sectionIDs ...string) ReservationOption {
	return func(f *ReservationFixture) { f.OptionalSectionIDs = sectionIDs }
}

// Persistence materialises the fixture as a stored reservation row.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:                 f.ID,
		UserID:             f.UserID,
		MachineID:          f.MachineID,
		Start:              f.Start,
		End:                f.End,
		ExternalHost:       f.ExternalHost,
		ExternalID:         f.ExternalID,
		OptionalSectionIDs: append([]string(nil), f.OptionalSectionIDs...),
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// ---------------------------- Session fixtures ----------------------------

// SessionFixture represents a persisted authentication session.
type SessionFixture struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a session valid for 24 hours from the reference time.
func NewSessionFixture(userID string, opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    userID,
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: created.Add(24 * time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionToken overrides the opaque token.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) { f.Token = token }
}

// WithSessionExpiresAt overrides the expiry instant.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.ExpiresAt = t }
}

// WithSessionRevokedAt marks the session as revoked.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.RevokedAt = &t }
}

// Persistence materialises the fixture as a stored session row.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:          f.ID,
		UserID:      f.UserID,
		Token:       f.Token,
		Fingerprint: f.Fingerprint,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   f.RevokedAt,
	}
}
