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

const snapshotColumns = `id, kind, name, description, data, approved_by, approved_at, is_active`

// SnapshotRepository persists approved snapshots.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs a SnapshotRepository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Insert stores a new snapshot.
func (r *SnapshotRepository) Insert(ctx context.Context, exec sqlx.ExtContext, snapshot *models.ApprovedSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.ApprovedAt.IsZero() {
		snapshot.ApprovedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approved_snapshots (id, kind, name, description, data, approved_by, approved_at, is_active)
VALUES (:id, :kind, :name, :description, :data, :approved_by, :approved_at, :is_active)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, snapshot); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// DeactivateAll clears the active flag on every snapshot of a kind.
func (r *SnapshotRepository) DeactivateAll(ctx context.Context, exec sqlx.ExtContext, kind models.SnapshotKind) error {
	const query = `UPDATE approved_snapshots SET is_active = FALSE WHERE kind = $1 AND is_active = TRUE`
	if _, err := r.exec(exec).ExecContext(ctx, query, string(kind)); err != nil {
		return fmt.Errorf("deactivate snapshots: %w", err)
	}
	return nil
}

// SetActive flags one snapshot active.
func (r *SnapshotRepository) SetActive(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE approved_snapshots SET is_active = TRUE WHERE id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("activate snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate snapshot rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID fetches a snapshot.
func (r *SnapshotRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ApprovedSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM approved_snapshots WHERE id = $1`
	var snapshot models.ApprovedSnapshot
	if err := sqlx.GetContext(ctx, r.exec(exec), &snapshot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	return &snapshot, nil
}

// FindActive returns the active snapshot of a kind.
func (r *SnapshotRepository) FindActive(ctx context.Context, kind models.SnapshotKind) (*models.ApprovedSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM approved_snapshots WHERE kind = $1 AND is_active = TRUE LIMIT 1`
	var snapshot models.ApprovedSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, string(kind)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find active snapshot: %w", err)
	}
	return &snapshot, nil
}

// ListByKind returns snapshots of a kind, newest first, without their payloads.
func (r *SnapshotRepository) ListByKind(ctx context.Context, kind models.SnapshotKind) ([]models.ApprovedSnapshot, error) {
	const query = `SELECT id, kind, name, description, approved_by, approved_at, is_active
FROM approved_snapshots WHERE kind = $1 ORDER BY approved_at DESC`
	var snapshots []models.ApprovedSnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, string(kind)); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots, nil
}
