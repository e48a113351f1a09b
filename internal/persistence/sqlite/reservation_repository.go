package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/exam-scheduler/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using
// SQLite.
type ReservationRepository struct {
	db dbtx
}

// NewReservationRepository creates a reservation repository bound to the pool.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{db: pool.db}
}

const reservationColumns = `id, user_id, machine_id, start_at, end_at, external_host, external_id, optional_section_ids, created_at, updated_at`

// CreateReservation inserts a booking.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.UserID == "" || reservation.MachineID == "" {
		return persistence.ErrConstraintViolation
	}
	if !reservation.End.After(reservation.Start) {
		return persistence.ErrConstraintViolation
	}

	sections, err := encodeStrings(reservation.OptionalSectionIDs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reservations (id, user_id, machine_id, start_at, end_at, external_host, external_id, optional_section_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		reservation.ID,
		reservation.UserID,
		reservation.MachineID,
		formatTime(reservation.Start),
		formatTime(reservation.End),
		reservation.ExternalHost,
		reservation.ExternalID,
		sections,
		formatTime(now),
		formatTime(now),
	)
	return mapError(err)
}

// GetReservation retrieves a booking by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return scanReservation(r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
}

// ListOverlapping returns reservations on any of the machines whose span
// overlaps [start, end). Comparing RFC 3339 UTC strings preserves time order.
func (r *ReservationRepository) ListOverlapping(ctx context.Context, machineIDs []string, start, end time.Time) ([]persistence.Reservation, error) {
	if len(machineIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(machineIDs)-1) + "?"
	args := make([]any, 0, len(machineIDs)+2)
	for _, id := range machineIDs {
		args = append(args, id)
	}
	args = append(args, formatTime(end), formatTime(start))

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE machine_id IN (`+placeholders+`)
		AND start_at < ? AND end_at > ?
		ORDER BY start_at ASC, id ASC
	`, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, mapError(rows.Err())
}

// DeleteReservation removes a booking by ID.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	var externalHost, externalID sql.NullString
	var startAt, endAt, sections, createdAt, updatedAt string

	err := row.Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.MachineID,
		&startAt,
		&endAt,
		&externalHost,
		&externalID,
		&sections,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}

	if externalHost.Valid {
		reservation.ExternalHost = &externalHost.String
	}
	if externalID.Valid {
		reservation.ExternalID = &externalID.String
	}
	if reservation.Start, err = parseTime(startAt); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.End, err = parseTime(endAt); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.OptionalSectionIDs, err = decodeStrings(sections); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Reservation{}, err
	}
	return reservation, nil
}
