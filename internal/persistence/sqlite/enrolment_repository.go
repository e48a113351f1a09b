package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/exam-scheduler/internal/persistence"
)

// EnrolmentRepository implements persistence.EnrolmentRepository using SQLite.
type EnrolmentRepository struct {
	db dbtx
}

// NewEnrolmentRepository creates an enrolment repository bound to the pool.
func NewEnrolmentRepository(pool *ConnectionPool) *EnrolmentRepository {
	return &EnrolmentRepository{db: pool.db}
}

const enrolmentColumns = `id, user_id, exam_id, state, reservation_id, event_config_id, no_show, created_at, updated_at`

// CreateEnrolment inserts an enrolment.
func (r *EnrolmentRepository) CreateEnrolment(ctx context.Context, enrolment persistence.Enrolment) error {
	if enrolment.ID == "" || enrolment.UserID == "" || enrolment.ExamID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO enrolments (id, user_id, exam_id, state, reservation_id, event_config_id, no_show, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		enrolment.ID,
		enrolment.UserID,
		enrolment.ExamID,
		enrolment.State,
		enrolment.ReservationID,
		enrolment.EventConfigID,
		enrolment.NoShow,
		formatTime(now),
		formatTime(now),
	)
	return mapError(err)
}

// GetEnrolment retrieves an enrolment by ID.
func (r *EnrolmentRepository) GetEnrolment(ctx context.Context, id string) (persistence.Enrolment, error) {
	if id == "" {
		return persistence.Enrolment{}, persistence.ErrNotFound
	}
	return scanEnrolment(r.db.QueryRowContext(ctx, `SELECT `+enrolmentColumns+` FROM enrolments WHERE id = ?`, id))
}

// GetForExam returns the user's enrolment for the exam that is still open for
// booking: either it has no reservation, or its reservation starts after ref.
func (r *EnrolmentRepository) GetForExam(ctx context.Context, userID, examID string, ref time.Time) (persistence.Enrolment, error) {
	if userID == "" || examID == "" {
		return persistence.Enrolment{}, persistence.ErrNotFound
	}
	return scanEnrolment(r.db.QueryRowContext(ctx, `
		SELECT e.id, e.user_id, e.exam_id, e.state, e.reservation_id, e.event_config_id, e.no_show, e.created_at, e.updated_at
		FROM enrolments e
		LEFT JOIN reservations b ON b.id = e.reservation_id
		WHERE e.user_id = ? AND e.exam_id = ?
		AND (e.reservation_id IS NULL OR b.start_at > ?)
		ORDER BY e.created_at ASC, e.id ASC
		LIMIT 1
	`, userID, examID, formatTime(ref)))
}

// ListForUser returns all enrolments of the user.
func (r *EnrolmentRepository) ListForUser(ctx context.Context, userID string) ([]persistence.Enrolment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+enrolmentColumns+` FROM enrolments WHERE user_id = ? ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var enrolments []persistence.Enrolment
	for rows.Next() {
		enrolment, err := scanEnrolment(rows)
		if err != nil {
			return nil, err
		}
		enrolments = append(enrolments, enrolment)
	}
	return enrolments, mapError(rows.Err())
}

// AttachReservation binds the reservation to the enrolment and replaces its
// chosen optional sections on the reservation row.
func (r *EnrolmentRepository) AttachReservation(ctx context.Context, enrolmentID, reservationID string, optionalSectionIDs []string) error {
	if enrolmentID == "" || reservationID == "" {
		return persistence.ErrConstraintViolation
	}

	sections, err := encodeStrings(optionalSectionIDs)
	if err != nil {
		return err
	}

	now := formatTime(time.Now().UTC())
	result, err := r.db.ExecContext(ctx, `
		UPDATE enrolments SET reservation_id = ?, event_config_id = NULL, updated_at = ? WHERE id = ?
	`, reservationID, now, enrolmentID)
	if err != nil {
		return mapError(err)
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE reservations SET optional_section_ids = ?, updated_at = ? WHERE id = ?
	`, sections, now, reservationID)
	return mapError(err)
}

// DetachReservation clears the binding on whichever enrolment holds the
// reservation.
func (r *EnrolmentRepository) DetachReservation(ctx context.Context, reservationID string) error {
	if reservationID == "" {
		return persistence.ErrNotFound
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE enrolments SET reservation_id = NULL, updated_at = ? WHERE reservation_id = ?
	`, formatTime(time.Now().UTC()), reservationID)
	return mapError(err)
}

// SetNoShow records or clears the no-show flag.
func (r *EnrolmentRepository) SetNoShow(ctx context.Context, enrolmentID string, noShow bool) error {
	if enrolmentID == "" {
		return persistence.ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE enrolments SET no_show = ?, updated_at = ? WHERE id = ?
	`, noShow, formatTime(time.Now().UTC()), enrolmentID)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// UpdateState moves the enrolment through its lifecycle.
func (r *EnrolmentRepository) UpdateState(ctx context.Context, enrolmentID, state string) error {
	if enrolmentID == "" || state == "" {
		return persistence.ErrConstraintViolation
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE enrolments SET state = ?, updated_at = ? WHERE id = ?
	`, state, formatTime(time.Now().UTC()), enrolmentID)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

func scanEnrolment(row rowScanner) (persistence.Enrolment, error) {
	var enrolment persistence.Enrolment
	var reservationID, eventConfigID sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&enrolment.ID,
		&enrolment.UserID,
		&enrolment.ExamID,
		&enrolment.State,
		&reservationID,
		&eventConfigID,
		&enrolment.NoShow,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Enrolment{}, mapError(err)
	}

	if reservationID.Valid {
		enrolment.ReservationID = &reservationID.String
	}
	if eventConfigID.Valid {
		enrolment.EventConfigID = &eventConfigID.String
	}
	if enrolment.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Enrolment{}, err
	}
	if enrolment.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Enrolment{}, err
	}
	return enrolment, nil
}
