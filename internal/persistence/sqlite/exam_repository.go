package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/exam-scheduler/internal/persistence"
)

// ExamRepository implements persistence.ExamRepository using SQLite.
type ExamRepository struct {
	db dbtx
}

// NewExamRepository creates an exam repository bound to the pool.
func NewExamRepository(pool *ConnectionPool) *ExamRepository {
	return &ExamRepository{db: pool.db}
}

// CreateExam inserts an exam record of any kind.
func (r *ExamRepository) CreateExam(ctx context.Context, exam persistence.Exam) error {
	if exam.ID == "" || exam.Kind == "" {
		return persistence.ErrConstraintViolation
	}

	software, err := encodeStrings(exam.RequiredSoftware)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO exams (
			id, kind, name, hash, duration_ms, state, private, network_transparent,
			agent_key, min_optional_sections, max_optional_sections, required_software,
			content, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		exam.ID,
		exam.Kind,
		exam.Name,
		exam.Hash,
		exam.DurationMillis,
		exam.State,
		exam.Private,
		exam.NetworkTransparent,
		exam.AgentKey,
		exam.MinOptionalSections,
		exam.MaxOptionalSections,
		software,
		exam.Content,
		formatTime(now),
		formatTime(now),
	)
	return mapError(err)
}

// GetExam retrieves an exam by ID.
func (r *ExamRepository) GetExam(ctx context.Context, id string) (persistence.Exam, error) {
	if id == "" {
		return persistence.Exam{}, persistence.ErrNotFound
	}

	var exam persistence.Exam
	var agentKey, content sql.NullString
	var software, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, kind, name, hash, duration_ms, state, private, network_transparent,
			agent_key, min_optional_sections, max_optional_sections, required_software,
			content, created_at, updated_at
		FROM exams WHERE id = ?
	`, id).Scan(
		&exam.ID,
		&exam.Kind,
		&exam.Name,
		&exam.Hash,
		&exam.DurationMillis,
		&exam.State,
		&exam.Private,
		&exam.NetworkTransparent,
		&agentKey,
		&exam.MinOptionalSections,
		&exam.MaxOptionalSections,
		&software,
		&content,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Exam{}, mapError(err)
	}

	if agentKey.Valid {
		exam.AgentKey = &agentKey.String
	}
	if content.Valid {
		exam.Content = &content.String
	}
	if exam.RequiredSoftware, err = decodeStrings(software); err != nil {
		return persistence.Exam{}, err
	}
	if exam.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Exam{}, err
	}
	if exam.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Exam{}, err
	}
	return exam, nil
}
