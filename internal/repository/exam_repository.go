package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ExamRepository persists draft exam entries.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs an ExamRepository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

func (r *ExamRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns the draft exams.
func (r *ExamRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]models.ExamEntry, error) {
	const query = `SELECT id, course_id, room_id, exam_date, start_time, end_time, created_at FROM exam_entries ORDER BY exam_date, start_time`
	var entries []models.ExamEntry
	if err := sqlx.SelectContext(ctx, r.exec(exec), &entries, query); err != nil {
		return nil, fmt.Errorf("list exam entries: %w", err)
	}
	return entries, nil
}

// ListDetailed returns exams with course and room names.
func (r *ExamRepository) ListDetailed(ctx context.Context) ([]models.ExamEntryDetail, error) {
	const query = `SELECT e.id, e.course_id, e.room_id, e.exam_date, e.start_time, e.end_time, e.created_at, c.name AS course_name, r.name AS room_name
FROM exam_entries e
JOIN courses c ON c.id = e.course_id
JOIN rooms r ON r.id = e.room_id
ORDER BY e.exam_date, e.start_time, r.name`
	var entries []models.ExamEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list exam details: %w", err)
	}
	return entries, nil
}

// DeleteAll clears the draft exams.
func (r *ExamRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM exam_entries`); err != nil {
		return fmt.Errorf("clear exam entries: %w", err)
	}
	return nil
}

// BulkInsert stores planned exams.
func (r *ExamRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, entries []models.ExamEntry) error {
	if len(entries) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO exam_entries (id, course_id, room_id, exam_date, start_time, end_time, created_at)
VALUES (:id, :course_id, :room_id, :exam_date, :start_time, :end_time, :created_at)`

	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.CreatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, entry); err != nil {
			return fmt.Errorf("insert exam entry: %w", err)
		}
	}
	return nil
}
