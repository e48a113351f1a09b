package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/exam-scheduler/internal/application"
	"github.com/example/exam-scheduler/internal/persistence"
	"github.com/example/exam-scheduler/internal/workinghours"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// ReservationServiceDeps captures dependencies for constructing a reservation
// service.
type ReservationServiceDeps struct {
	Tx          persistence.TxManager
	Hours       *workinghours.Resolver
	Gateway     application.ExternalReservationGateway
	Notifier    application.ReservationNotifier
	Eligibility application.EligibilityChecker
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewReservationService builds a reservation service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewReservationService(deps ReservationServiceDeps) *application.ReservationService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	hours := deps.Hours
	if hours == nil {
		hours = workinghours.NewResolver(workinghours.Config{Now: now})
	}
	return application.NewReservationService(
		deps.Tx,
		hours,
		deps.Gateway,
		deps.Notifier,
		deps.Eligibility,
		idGen,
		now,
		deps.Logger,
	)
}

// SessionServiceDeps captures dependencies for constructing a session
// resolution service.
type SessionServiceDeps struct {
	Enrolments   application.EnrolmentDirectory
	Reservations application.ReservationDirectory
	Machines     application.MachineDirectory
	Exams        application.ExamDirectory
	Events       application.EventConfigDirectory
	Location     *time.Location
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewSessionService builds a session service using the supplied dependencies.
func (f *ServiceFactory) NewSessionService(deps SessionServiceDeps) *application.SessionService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewSessionService(
		deps.Enrolments,
		deps.Reservations,
		deps.Machines,
		deps.Exams,
		deps.Events,
		deps.Location,
		now,
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       persistence.SessionRepository
	PasswordVerify application.PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	token := deps.TokenGenerator
	if token == nil {
		token = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		deps.PasswordVerify,
		token,
		now,
		deps.SessionTTL,
		deps.Logger,
	)
}
