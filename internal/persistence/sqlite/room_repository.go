package sqlite

import (
	"context"
	"time"

	"github.com/example/exam-scheduler/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite. Default
// hours and exceptions are owned collections; writes replace them wholesale.
type RoomRepository struct {
	db dbtx
}

// NewRoomRepository creates a room repository bound to the pool.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{db: pool.db}
}

// CreateRoom inserts a room together with its hours and exceptions.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rooms (id, name, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, room.ID, room.Name, room.Timezone, formatTime(room.CreatedAt), formatTime(room.UpdatedAt))
	if err != nil {
		return mapError(err)
	}
	return r.replaceOwned(ctx, room)
}

// UpdateRoom updates a room and replaces its owned collections.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE rooms SET name = ?, timezone = ?, updated_at = ? WHERE id = ?
	`, room.Name, room.Timezone, formatTime(time.Now().UTC()), room.ID)
	if err != nil {
		return mapError(err)
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}

	for _, table := range []string{"room_hours", "room_exceptions"} {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE room_id = ?`, room.ID); err != nil {
			return mapError(err)
		}
	}
	return r.replaceOwned(ctx, room)
}

func (r *RoomRepository) replaceOwned(ctx context.Context, room persistence.Room) error {
	for _, hours := range room.DefaultHours {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO room_hours (room_id, weekday, start_offset_ms, end_offset_ms, tz_offset_ms)
			VALUES (?, ?, ?, ?, ?)
		`, room.ID, int(hours.Weekday), hours.StartOffsetMillis, hours.EndOffsetMillis, hours.TZOffsetMillis)
		if err != nil {
			return mapError(err)
		}
	}
	for _, exc := range room.Exceptions {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO room_exceptions (id, room_id, start_at, end_at, out_of_service, start_tz_offset_ms, end_tz_offset_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, exc.ID, room.ID, formatTime(exc.Start), formatTime(exc.End), exc.OutOfService, exc.StartTZOffsetMillis, exc.EndTZOffsetMillis)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

// GetRoom retrieves a room with its hours and exceptions.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	var room persistence.Room
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, timezone, created_at, updated_at FROM rooms WHERE id = ?
	`, id).Scan(&room.ID, &room.Name, &room.Timezone, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Room{}, mapError(err)
	}
	if room.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Room{}, err
	}

	if room.DefaultHours, err = r.loadHours(ctx, id); err != nil {
		return persistence.Room{}, err
	}
	if room.Exceptions, err = r.loadExceptions(ctx, id); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

// ListRooms returns all rooms with their owned collections.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM rooms ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	rooms := make([]persistence.Room, 0, len(ids))
	for _, id := range ids {
		room, err := r.GetRoom(ctx, id)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// DeleteRoom removes a room; hours and exceptions cascade.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

func (r *RoomRepository) loadHours(ctx context.Context, roomID string) ([]persistence.RoomDayHours, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT room_id, weekday, start_offset_ms, end_offset_ms, tz_offset_ms
		FROM room_hours WHERE room_id = ? ORDER BY weekday ASC
	`, roomID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var hours []persistence.RoomDayHours
	for rows.Next() {
		var h persistence.RoomDayHours
		var weekday int
		if err := rows.Scan(&h.RoomID, &weekday, &h.StartOffsetMillis, &h.EndOffsetMillis, &h.TZOffsetMillis); err != nil {
			return nil, mapError(err)
		}
		h.Weekday = time.Weekday(weekday)
		hours = append(hours, h)
	}
	return hours, mapError(rows.Err())
}

func (r *RoomRepository) loadExceptions(ctx context.Context, roomID string) ([]persistence.RoomException, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, room_id, start_at, end_at, out_of_service, start_tz_offset_ms, end_tz_offset_ms
		FROM room_exceptions WHERE room_id = ? ORDER BY start_at ASC
	`, roomID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var exceptions []persistence.RoomException
	for rows.Next() {
		var exc persistence.RoomException
		var startAt, endAt string
		if err := rows.Scan(&exc.ID, &exc.RoomID, &startAt, &endAt, &exc.OutOfService, &exc.StartTZOffsetMillis, &exc.EndTZOffsetMillis); err != nil {
			return nil, mapError(err)
		}
		if exc.Start, err = parseTime(startAt); err != nil {
			return nil, err
		}
		if exc.End, err = parseTime(endAt); err != nil {
			return nil, err
		}
		exceptions = append(exceptions, exc)
	}
	return exceptions, mapError(rows.Err())
}
