package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const timetableColumns = `id, class_id, course_id, teacher_id, room_id, day, start_time, end_time, kind, created_at, updated_at`

// TimetableRepository persists draft timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns all draft entries.
func (r *TimetableRepository) List(ctx context.Context) ([]models.ScheduleEntry, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetable_entries ORDER BY day, start_time`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}

// ListDetailed returns entries joined with resource names, filtered by the given fields.
func (r *TimetableRepository) ListDetailed(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error) {
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("e.teacher_id = $%d", len(args)))
	}
	if filter.RoomID != "" {
		args = append(args, filter.RoomID)
		conditions = append(conditions, fmt.Sprintf("e.room_id = $%d", len(args)))
	}
	if filter.Day != "" {
		args = append(args, filter.Day)
		conditions = append(conditions, fmt.Sprintf("e.day = $%d", len(args)))
	}

	query := `SELECT e.id, e.class_id, e.course_id, e.teacher_id, e.room_id, e.day, e.start_time, e.end_time, e.kind, e.created_at, e.updated_at,
cl.name AS class_name, co.name AS course_name, t.name AS teacher_name, r.name AS room_name
FROM timetable_entries e
JOIN classes cl ON cl.id = e.class_id
JOIN courses co ON co.id = e.course_id
JOIN teachers t ON t.id = e.teacher_id
JOIN rooms r ON r.id = e.room_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY cl.name, e.day, e.start_time"

	var entries []models.ScheduleEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable details: %w", err)
	}
	return entries, nil
}

// FindByID fetches a single entry.
func (r *TimetableRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ScheduleEntry, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetable_entries WHERE id = $1`
	var entry models.ScheduleEntry
	if err := sqlx.GetContext(ctx, r.exec(exec), &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find timetable entry: %w", err)
	}
	return &entry, nil
}

// ListAt returns entries booked at exactly the given day and times.
func (r *TimetableRepository) ListAt(ctx context.Context, exec sqlx.ExtContext, day, start, end string) ([]models.ScheduleEntry, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetable_entries WHERE day = $1 AND start_time = $2 AND end_time = $3`
	var entries []models.ScheduleEntry
	if err := sqlx.SelectContext(ctx, r.exec(exec), &entries, query, day, start, end); err != nil {
		return nil, fmt.Errorf("list timetable entries at slot: %w", err)
	}
	return entries, nil
}

// DeleteAll clears the draft timetable.
func (r *TimetableRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM timetable_entries`); err != nil {
		return fmt.Errorf("clear timetable entries: %w", err)
	}
	return nil
}

// BulkInsert stores generated entries, assigning ids and timestamps.
func (r *TimetableRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, entries []models.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO timetable_entries (id, class_id, course_id, teacher_id, room_id, day, start_time, end_time, kind, created_at, updated_at)
VALUES (:id, :class_id, :course_id, :teacher_id, :room_id, :day, :start_time, :end_time, :kind, :created_at, :updated_at)`

	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.Kind == "" {
			entry.Kind = models.SessionLecture
		}
		entry.CreatedAt = now
		entry.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, entry); err != nil {
			return fmt.Errorf("insert timetable entry: %w", err)
		}
	}
	return nil
}

// UpdateSlot moves an entry to a new day, time and room.
func (r *TimetableRepository) UpdateSlot(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timetable_entries SET day = :day, start_time = :start_time, end_time = :end_time, room_id = :room_id, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entry)
	if err != nil {
		return fmt.Errorf("update timetable entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update timetable entry rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
