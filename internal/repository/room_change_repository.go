package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// RoomChangeRepository stores the room change history.
type RoomChangeRepository struct {
	db *sqlx.DB
}

// NewRoomChangeRepository constructs a RoomChangeRepository.
func NewRoomChangeRepository(db *sqlx.DB) *RoomChangeRepository {
	return &RoomChangeRepository{db: db}
}

// Insert appends a room change record.
func (r *RoomChangeRepository) Insert(ctx context.Context, exec sqlx.ExtContext, change *models.RoomChange) error {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.ChangedAt.IsZero() {
		change.ChangedAt = time.Now().UTC()
	}
	target := exec
	if target == nil {
		target = r.db
	}
	const query = `INSERT INTO room_changes (id, entry_id, class_id, course_id, old_room_id, new_room_id, effective_date, reason, changed_by, changed_at)
VALUES (:id, :entry_id, :class_id, :course_id, :old_room_id, :new_room_id, :effective_date, :reason, :changed_by, :changed_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, change); err != nil {
		return fmt.Errorf("insert room change: %w", err)
	}
	return nil
}

// List returns room changes newest first.
func (r *RoomChangeRepository) List(ctx context.Context) ([]models.RoomChangeDetail, error) {
	const query = `SELECT rc.id, rc.entry_id, rc.class_id, rc.course_id, rc.old_room_id, rc.new_room_id, rc.effective_date, rc.reason, rc.changed_by, rc.changed_at,
cl.name AS class_name, co.name AS course_name, o.name AS old_room_name, n.name AS new_room_name
FROM room_changes rc
JOIN classes cl ON cl.id = rc.class_id
JOIN courses co ON co.id = rc.course_id
JOIN rooms o ON o.id = rc.old_room_id
JOIN rooms n ON n.id = rc.new_room_id
ORDER BY rc.changed_at DESC`
	var changes []models.RoomChangeDetail
	if err := r.db.SelectContext(ctx, &changes, query); err != nil {
		return nil, fmt.Errorf("list room changes: %w", err)
	}
	return changes, nil
}
