package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// schemaStatements creates the full schema. Statements are idempotent so the
// migrator can run on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		disabled INTEGER NOT NULL DEFAULT 0,
		lock_rev INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS room_hours (
		room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		weekday INTEGER NOT NULL,
		start_offset_ms INTEGER NOT NULL,
		end_offset_ms INTEGER NOT NULL,
		tz_offset_ms INTEGER NOT NULL,
		PRIMARY KEY (room_id, weekday)
	)`,
	`CREATE TABLE IF NOT EXISTS room_exceptions (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		out_of_service INTEGER NOT NULL,
		start_tz_offset_ms INTEGER NOT NULL,
		end_tz_offset_ms INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_room_exceptions_room ON room_exceptions(room_id)`,
	`CREATE TABLE IF NOT EXISTS machines (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES rooms(id),
		name TEXT NOT NULL DEFAULT '',
		origin TEXT NOT NULL UNIQUE,
		software TEXT NOT NULL DEFAULT '[]',
		accessibility TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_machines_room ON machines(room_id)`,
	`CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('local', 'collaborative', 'external')),
		name TEXT NOT NULL DEFAULT '',
		hash TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		state TEXT NOT NULL DEFAULT '',
		private INTEGER NOT NULL DEFAULT 0,
		network_transparent INTEGER NOT NULL DEFAULT 0,
		agent_key TEXT,
		min_optional_sections INTEGER NOT NULL DEFAULT 0,
		max_optional_sections INTEGER NOT NULL DEFAULT 0,
		required_software TEXT NOT NULL DEFAULT '[]',
		content TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		machine_id TEXT NOT NULL REFERENCES machines(id),
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		external_host TEXT,
		external_id TEXT,
		optional_section_ids TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_machine_span ON reservations(machine_id, start_at, end_at)`,
	`CREATE TABLE IF NOT EXISTS event_configs (
		id TEXT PRIMARY KEY,
		exam_id TEXT NOT NULL REFERENCES exams(id),
		frequency INTEGER NOT NULL,
		weekdays TEXT NOT NULL DEFAULT '[]',
		starts_on TEXT NOT NULL,
		ends_on TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS enrolments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		exam_id TEXT NOT NULL REFERENCES exams(id),
		state TEXT NOT NULL,
		reservation_id TEXT REFERENCES reservations(id),
		event_config_id TEXT REFERENCES event_configs(id),
		no_show INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (reservation_id IS NULL OR event_config_id IS NULL)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_enrolments_user ON enrolments(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_enrolments_exam ON enrolments(user_id, exam_id)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		token TEXT NOT NULL UNIQUE,
		fingerprint TEXT NOT NULL DEFAULT '',
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
}

// Migrate creates any missing tables and indexes.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: schema migration failed: %w", err)
		}
	}
	return nil
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to encode string list: %w", err)
	}
	return string(data), nil
}

func decodeStrings(data string) ([]string, error) {
	if data == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("sqlite: failed to decode string list: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

func encodeWeekdays(days []time.Weekday) (string, error) {
	ints := make([]int, 0, len(days))
	for _, d := range days {
		ints = append(ints, int(d))
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to encode weekdays: %w", err)
	}
	return string(data), nil
}

func decodeWeekdays(data string) ([]time.Weekday, error) {
	if data == "" {
		return nil, nil
	}
	var ints []int
	if err := json.Unmarshal([]byte(data), &ints); err != nil {
		return nil, fmt.Errorf("sqlite: failed to decode weekdays: %w", err)
	}
	days := make([]time.Weekday, 0, len(ints))
	for _, i := range ints {
		days = append(days, time.Weekday(i))
	}
	if len(days) == 0 {
		return nil, nil
	}
	return days, nil
}
