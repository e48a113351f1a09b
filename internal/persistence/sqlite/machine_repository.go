package sqlite

import (
	"context"
	"time"

	"github.com/example/exam-scheduler/internal/persistence"
)

// MachineRepository implements persistence.MachineRepository using SQLite.
type MachineRepository struct {
	db dbtx
}

// NewMachineRepository creates a machine repository bound to the pool.
func NewMachineRepository(pool *ConnectionPool) *MachineRepository {
	return &MachineRepository{db: pool.db}
}

const machineColumns = `id, room_id, name, origin, software, accessibility, created_at, updated_at`

// CreateMachine inserts a new workstation.
func (r *MachineRepository) CreateMachine(ctx context.Context, machine persistence.Machine) error {
	if machine.ID == "" || machine.RoomID == "" || machine.Origin == "" {
		return persistence.ErrConstraintViolation
	}

	software, err := encodeStrings(machine.Software)
	if err != nil {
		return err
	}
	accessibility, err := encodeStrings(machine.Accessibility)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO machines (id, room_id, name, origin, software, accessibility, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, machine.ID, machine.RoomID, machine.Name, machine.Origin, software, accessibility, formatTime(now), formatTime(now))
	return mapError(err)
}

// GetMachine retrieves a workstation by ID.
func (r *MachineRepository) GetMachine(ctx context.Context, id string) (persistence.Machine, error) {
	if id == "" {
		return persistence.Machine{}, persistence.ErrNotFound
	}
	return scanMachine(r.db.QueryRowContext(ctx, `SELECT `+machineColumns+` FROM machines WHERE id = ?`, id))
}

// GetMachineByOrigin retrieves a workstation by its network origin.
func (r *MachineRepository) GetMachineByOrigin(ctx context.Context, origin string) (persistence.Machine, error) {
	if origin == "" {
		return persistence.Machine{}, persistence.ErrNotFound
	}
	return scanMachine(r.db.QueryRowContext(ctx, `SELECT `+machineColumns+` FROM machines WHERE origin = ?`, origin))
}

// ListMachinesForRoom returns all workstations installed in the room.
func (r *MachineRepository) ListMachinesForRoom(ctx context.Context, roomID string) ([]persistence.Machine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+machineColumns+` FROM machines WHERE room_id = ? ORDER BY created_at ASC, id ASC
	`, roomID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var machines []persistence.Machine
	for rows.Next() {
		machine, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		machines = append(machines, machine)
	}
	return machines, mapError(rows.Err())
}

// DeleteMachine removes a workstation by ID.
func (r *MachineRepository) DeleteMachine(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM machines WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

func scanMachine(row rowScanner) (persistence.Machine, error) {
	var machine persistence.Machine
	var software, accessibility, createdAt, updatedAt string

	err := row.Scan(
		&machine.ID,
		&machine.RoomID,
		&machine.Name,
		&machine.Origin,
		&software,
		&accessibility,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Machine{}, mapError(err)
	}

	if machine.Software, err = decodeStrings(software); err != nil {
		return persistence.Machine{}, err
	}
	if machine.Accessibility, err = decodeStrings(accessibility); err != nil {
		return persistence.Machine{}, err
	}
	if machine.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Machine{}, err
	}
	if machine.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Machine{}, err
	}
	return machine, nil
}
