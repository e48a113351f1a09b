package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/exam-scheduler/internal/persistence"
)

// TxManager implements persistence.TxManager on top of a single SQLite
// database. Because the pool is opened with _txlock=immediate, each WithTx
// call takes the write lock at BEGIN, so two overlapping calls are fully
// serialized.
type TxManager struct {
	pool *ConnectionPool
}

// NewTxManager creates a transaction manager bound to the pool.
func NewTxManager(pool *ConnectionPool) *TxManager {
	return &TxManager{pool: pool}
}

// WithTx runs fn inside one write transaction, committing on success and
// rolling back on error or panic.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos persistence.TxRepositories) error) error {
	return m.run(ctx, nil, fn)
}

// WithReadTx runs fn inside a read-only transaction. It does not take the
// write lock, so lookups proceed while a booking transaction is open.
func (m *TxManager) WithReadTx(ctx context.Context, fn func(ctx context.Context, repos persistence.TxRepositories) error) error {
	return m.run(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (m *TxManager) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, repos persistence.TxRepositories) error) error {
	tx, err := m.pool.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", mapError(err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	repos := bindRepositories(tx)
	if err := fn(ctx, repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit transaction: %w", mapError(err))
	}
	return nil
}

func bindRepositories(db dbtx) persistence.TxRepositories {
	return persistence.TxRepositories{
		Users:        &UserRepository{db: db},
		Rooms:        &RoomRepository{db: db},
		Machines:     &MachineRepository{db: db},
		Exams:        &ExamRepository{db: db},
		Reservations: &ReservationRepository{db: db},
		Enrolments:   &EnrolmentRepository{db: db},
		EventConfigs: &EventConfigRepository{db: db},
	}
}
