package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/exam-scheduler/internal/application"
	"github.com/example/exam-scheduler/internal/persistence"
)

type capturingCredentialStore struct {
	user persistence.User
}

func (c *capturingCredentialStore) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	if c.user.Email == email {
		return c.user, nil
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (c *capturingCredentialStore) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if c.user.ID == id {
		return c.user, nil
	}
	return persistence.User{}, persistence.ErrNotFound
}

type capturingSessionRepo struct {
	created persistence.Session
}

func (c *capturingSessionRepo) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	c.created = session
	return session, nil
}

func (c *capturingSessionRepo) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	return persistence.Session{}, persistence.ErrNotFound
}

func (c *capturingSessionRepo) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	return session, nil
}

func (c *capturingSessionRepo) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	return persistence.Session{}, persistence.ErrNotFound
}

func (c *capturingSessionRepo) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return nil
}

func TestServiceFactoryNewAuthService(t *testing.T) {
	factory := NewServiceFactory()
	user := NewUserFixture(WithUserPasswordHash("secret"))
	repo := &capturingSessionRepo{}

	svc := factory.NewAuthService(AuthServiceDeps{
		Credentials:    &capturingCredentialStore{user: user.Persistence()},
		Sessions:       repo,
		PasswordVerify: func(hash, password string) error { return nil },
		SessionTTL:     time.Hour,
	})

	result, err := svc.Authenticate(context.Background(), application.AuthenticateParams{
		Email:    user.Email,
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	if result.Session.ID != "id-1" || result.Session.Token != "id-2" {
		t.Fatalf("expected generated identifiers, got %q/%q", result.Session.ID, result.Session.Token)
	}
	if !result.Session.ExpiresAt.Equal(factory.Clock.Current().Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", result.Session.ExpiresAt)
	}
	if repo.created.UserID != user.ID {
		t.Fatalf("repository received unexpected user: %q", repo.created.UserID)
	}
}

func TestServiceFactoryNewReservationServiceDefaults(t *testing.T) {
	factory := NewServiceFactory(WithClock(NewClock(ReferenceTime())))

	svc := factory.NewReservationService(ReservationServiceDeps{})
	if svc == nil {
		t.Fatal("expected a reservation service")
	}

	// Without a transaction manager the service refuses to operate rather
	// than panicking.
	_, err := svc.CreateReservation(context.Background(), application.CreateReservationParams{})
	if err == nil {
		t.Fatal("expected error without a transaction manager")
	}
}
