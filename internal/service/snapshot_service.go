package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

type snapshotStore interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, snapshot *models.ApprovedSnapshot) error
	DeactivateAll(ctx context.Context, exec sqlx.ExtContext, kind models.SnapshotKind) error
	SetActive(ctx context.Context, exec sqlx.ExtContext, id string) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ApprovedSnapshot, error)
	FindActive(ctx context.Context, kind models.SnapshotKind) (*models.ApprovedSnapshot, error)
	ListByKind(ctx context.Context, kind models.SnapshotKind) ([]models.ApprovedSnapshot, error)
}

type timetableDetailReader interface {
	ListDetailed(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error)
}

type examDetailReader interface {
	ListDetailed(ctx context.Context) ([]models.ExamEntryDetail, error)
}

type teacherLookup interface {
	Teacher(ctx context.Context, id string) (*models.Teacher, error)
}

// SnapshotService freezes drafts into approved snapshots. At most one snapshot per kind
// is active.
type SnapshotService struct {
	store     snapshotStore
	timetable timetableDetailReader
	exams     examDetailReader
	teachers  teacherLookup
	tx        database.TxBeginner
	lock      sync.Locker
	cache     *SnapshotCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSnapshotService constructs a SnapshotService.
func NewSnapshotService(store snapshotStore, timetable timetableDetailReader, exams examDetailReader, teachers teacherLookup, tx database.TxBeginner, lock sync.Locker, cache *SnapshotCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SnapshotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &SnapshotService{
		store:     store,
		timetable: timetable,
		exams:     exams,
		teachers:  teachers,
		tx:        tx,
		lock:      lock,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

func parseKind(raw string) (models.SnapshotKind, error) {
	if raw == "" {
		return models.SnapshotTimetable, nil
	}
	kind := models.SnapshotKind(strings.ToUpper(raw))
	if !kind.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "kind must be TIMETABLE or EXAM")
	}
	return kind, nil
}

// Approve serializes the current draft of the given kind into a new active snapshot.
func (s *SnapshotService) Approve(ctx context.Context, req dto.ApproveSnapshotRequest, approverID string) (*dto.ApproveSnapshotResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid approval payload")
	}
	kind, err := parseKind(req.Kind)
	if err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	records, err := s.draftRecords(ctx, kind)
	if err != nil {
		return nil, err
	}
	data, err := EncodeSnapshot(records)
	if err != nil {
		return nil, internalError(err, "failed to serialize snapshot")
	}

	snapshot := &models.ApprovedSnapshot{
		Kind:        kind,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Data:        data,
		ApprovedBy:  approverID,
		IsActive:    true,
	}
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.store.DeactivateAll(ctx, tx, kind); err != nil {
			return err
		}
		return s.store.Insert(ctx, tx, snapshot)
	})
	if err != nil {
		return nil, internalError(err, "failed to store snapshot")
	}

	s.invalidate(ctx, kind)
	s.metrics.RecordSnapshotApproved(string(kind))
	s.logger.Info("snapshot approved",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("snapshot_id", snapshot.ID),
		zap.String("kind", string(kind)),
		zap.String("approved_by", approverID),
		zap.Int("records", len(records)),
	)
	return &dto.ApproveSnapshotResponse{ID: snapshot.ID, Kind: string(kind), Records: len(records)}, nil
}

// Activate makes the snapshot the only active one of its kind.
func (s *SnapshotService) Activate(ctx context.Context, id string) (*models.ApprovedSnapshot, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var snapshot *models.ApprovedSnapshot
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		found, err := s.store.FindByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "snapshot not found")
			}
			return internalError(err, "failed to load snapshot")
		}
		if err := s.store.DeactivateAll(ctx, tx, found.Kind); err != nil {
			return internalError(err, "failed to deactivate snapshots")
		}
		if err := s.store.SetActive(ctx, tx, id); err != nil {
			return internalError(err, "failed to activate snapshot")
		}
		found.IsActive = true
		snapshot = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, snapshot.Kind)
	s.logger.Info("snapshot activated", zap.String("snapshot_id", id), zap.String("kind", string(snapshot.Kind)))
	return snapshot, nil
}

// Reject records a rejection. Nothing is persisted; the caller is expected to regenerate.
func (s *SnapshotService) Reject(ctx context.Context, req dto.RejectSnapshotRequest, rejectedBy string) (*dto.RejectSnapshotResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid rejection payload")
	}
	kind, err := parseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	s.logger.Info("draft rejected",
		zap.String("kind", string(kind)),
		zap.String("reason", req.Reason),
		zap.String("rejected_by", rejectedBy),
	)
	return &dto.RejectSnapshotResponse{Kind: string(kind), Reason: req.Reason, Regenerate: true}, nil
}

// List returns the snapshots of a kind, newest first.
func (s *SnapshotService) List(ctx context.Context, rawKind string) ([]models.ApprovedSnapshot, error) {
	kind, err := parseKind(rawKind)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.store.ListByKind(ctx, kind)
	if err != nil {
		return nil, internalError(err, "failed to list snapshots")
	}
	if snapshots == nil {
		snapshots = []models.ApprovedSnapshot{}
	}
	return snapshots, nil
}

// Get returns a snapshot with its decoded records.
func (s *SnapshotService) Get(ctx context.Context, id string) (*models.SnapshotDetail, error) {
	snapshot, err := s.store.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "snapshot not found")
		}
		return nil, internalError(err, "failed to load snapshot")
	}
	return decodeDetail(snapshot)
}

// Active returns the active snapshot of a kind, served from cache when possible.
func (s *SnapshotService) Active(ctx context.Context, rawKind string) (*models.SnapshotDetail, error) {
	kind, err := parseKind(rawKind)
	if err != nil {
		return nil, err
	}

	if cached, hit := s.cache.Active(ctx, kind); hit {
		return cached, nil
	}

	snapshot, err := s.store.FindActive(ctx, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no active %s snapshot", strings.ToLower(string(kind))))
		}
		return nil, internalError(err, "failed to load active snapshot")
	}
	detail, err := decodeDetail(snapshot)
	if err != nil {
		return nil, err
	}
	s.cache.Remember(ctx, detail)
	return detail, nil
}

// TeacherTimetable returns a teacher's sessions from the active timetable snapshot, or
// from the draft when nothing has been approved.
func (s *SnapshotService) TeacherTimetable(ctx context.Context, teacherID string) ([]models.SnapshotRecord, error) {
	teacher, err := s.teachers.Teacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	active, err := s.Active(ctx, string(models.SnapshotTimetable))
	if err != nil && !errors.Is(err, appErrors.ErrNotFound) {
		return nil, err
	}
	if active != nil {
		records := make([]models.SnapshotRecord, 0)
		for _, r := range active.Records {
			if r.Teacher == teacher.Name {
				records = append(records, r)
			}
		}
		return records, nil
	}

	entries, err := s.timetable.ListDetailed(ctx, models.ScheduleFilter{TeacherID: teacherID})
	if err != nil {
		return nil, internalError(err, "failed to load teacher timetable")
	}
	return RecordsFromTimetable(entries), nil
}

func (s *SnapshotService) draftRecords(ctx context.Context, kind models.SnapshotKind) ([]models.SnapshotRecord, error) {
	if kind == models.SnapshotExam {
		exams, err := s.exams.ListDetailed(ctx)
		if err != nil {
			return nil, internalError(err, "failed to load exam draft")
		}
		return RecordsFromExams(exams), nil
	}
	entries, err := s.timetable.ListDetailed(ctx, models.ScheduleFilter{})
	if err != nil {
		return nil, internalError(err, "failed to load timetable draft")
	}
	return RecordsFromTimetable(entries), nil
}

func (s *SnapshotService) invalidate(ctx context.Context, kind models.SnapshotKind) {
	s.cache.Forget(ctx, kind)
}

func decodeDetail(snapshot *models.ApprovedSnapshot) (*models.SnapshotDetail, error) {
	records, err := DecodeSnapshot(snapshot.Data)
	if err != nil {
		return nil, internalError(err, "snapshot payload is corrupt")
	}
	return &models.SnapshotDetail{ApprovedSnapshot: *snapshot, Records: records}, nil
}
