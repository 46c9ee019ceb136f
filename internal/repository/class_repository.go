package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ClassRepository manages classes and their course/teacher assignments.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns all classes ordered by name.
func (r *ClassRepository) List(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name, created_at FROM classes ORDER BY name ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID fetches a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, created_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classes (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// ListAssignments returns every class/course/teacher assignment.
func (r *ClassRepository) ListAssignments(ctx context.Context) ([]models.Assignment, error) {
	const query = `SELECT id, class_id, course_id, teacher_id, created_at FROM class_course_teachers ORDER BY class_id, course_id`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// ListAssignmentsByClass returns assignments of one class with course and teacher names.
func (r *ClassRepository) ListAssignmentsByClass(ctx context.Context, classID string) ([]models.AssignmentDetail, error) {
	const query = `SELECT a.id, a.class_id, a.course_id, a.teacher_id, a.created_at, c.name AS course_name, t.name AS teacher_name
FROM class_course_teachers a
JOIN courses c ON c.id = a.course_id
JOIN teachers t ON t.id = a.teacher_id
WHERE a.class_id = $1
ORDER BY c.name ASC`
	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, classID); err != nil {
		return nil, fmt.Errorf("list class assignments: %w", err)
	}
	return assignments, nil
}

// FindAssignment returns the assignment for a (class, course) pair.
func (r *ClassRepository) FindAssignment(ctx context.Context, classID, courseID string) (*models.Assignment, error) {
	const query = `SELECT id, class_id, course_id, teacher_id, created_at FROM class_course_teachers WHERE class_id = $1 AND course_id = $2`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, classID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// CreateAssignment inserts an assignment. The (class_id, course_id) pair is unique.
func (r *ClassRepository) CreateAssignment(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO class_course_teachers (id, class_id, course_id, teacher_id, created_at)
VALUES (:id, :class_id, :course_id, :teacher_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}
