package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/exam-scheduler/internal/persistence"
	"github.com/example/exam-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool         *sqlite.ConnectionPool
	Tx           persistence.TxManager
	Users        persistence.UserRepository
	Rooms        persistence.RoomRepository
	Machines     persistence.MachineRepository
	Exams        persistence.ExamRepository
	Reservations persistence.ReservationRepository
	Enrolments   persistence.EnrolmentRepository
	EventConfigs persistence.EventConfigRepository
	Sessions     persistence.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "examscheduler.db")

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := sqlite.Migrate(context.Background(), pool.DB()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:         pool,
		Tx:           sqlite.NewTxManager(pool),
		Users:        sqlite.NewUserRepository(pool),
		Rooms:        sqlite.NewRoomRepository(pool),
		Machines:     sqlite.NewMachineRepository(pool),
		Exams:        sqlite.NewExamRepository(pool),
		Reservations: sqlite.NewReservationRepository(pool),
		Enrolments:   sqlite.NewEnrolmentRepository(pool),
		EventConfigs: sqlite.NewEventConfigRepository(pool),
		Sessions:     sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
