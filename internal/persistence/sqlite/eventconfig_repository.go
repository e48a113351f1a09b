package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/exam-scheduler/internal/persistence"
)

// EventConfigRepository implements persistence.EventConfigRepository using
// SQLite.
type EventConfigRepository struct {
	db dbtx
}

// NewEventConfigRepository creates an event configuration repository bound to
// the pool.
func NewEventConfigRepository(pool *ConnectionPool) *EventConfigRepository {
	return &EventConfigRepository{db: pool.db}
}

// UpsertEventConfig inserts or replaces a recurring slot configuration.
func (r *EventConfigRepository) UpsertEventConfig(ctx context.Context, config persistence.EventConfig) error {
	if config.ID == "" || config.ExamID == "" {
		return persistence.ErrConstraintViolation
	}

	weekdays, err := encodeWeekdays(config.Weekdays)
	if err != nil {
		return err
	}

	now := formatTime(time.Now().UTC())
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO event_configs (id, exam_id, frequency, weekdays, starts_on, ends_on, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			exam_id = excluded.exam_id,
			frequency = excluded.frequency,
			weekdays = excluded.weekdays,
			starts_on = excluded.starts_on,
			ends_on = excluded.ends_on,
			updated_at = excluded.updated_at
	`,
		config.ID,
		config.ExamID,
		config.Frequency,
		weekdays,
		formatTime(config.StartsOn),
		formatNullableTime(config.EndsOn),
		now,
		now,
	)
	return mapError(err)
}

// GetEventConfig retrieves a configuration by ID.
func (r *EventConfigRepository) GetEventConfig(ctx context.Context, id string) (persistence.EventConfig, error) {
	if id == "" {
		return persistence.EventConfig{}, persistence.ErrNotFound
	}

	var config persistence.EventConfig
	var weekdays, startsOn, createdAt, updatedAt string
	var endsOn sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, exam_id, frequency, weekdays, starts_on, ends_on, created_at, updated_at
		FROM event_configs WHERE id = ?
	`, id).Scan(
		&config.ID,
		&config.ExamID,
		&config.Frequency,
		&weekdays,
		&startsOn,
		&endsOn,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.EventConfig{}, mapError(err)
	}

	if config.Weekdays, err = decodeWeekdays(weekdays); err != nil {
		return persistence.EventConfig{}, err
	}
	if config.StartsOn, err = parseTime(startsOn); err != nil {
		return persistence.EventConfig{}, err
	}
	if config.EndsOn, err = parseNullableTime(endsOn); err != nil {
		return persistence.EventConfig{}, err
	}
	if config.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.EventConfig{}, err
	}
	if config.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.EventConfig{}, err
	}
	return config, nil
}

// DeleteEventConfig removes a configuration by ID.
func (r *EventConfigRepository) DeleteEventConfig(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM event_configs WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}
