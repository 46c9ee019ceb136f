package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

type roomChangeStore interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, change *models.RoomChange) error
	List(ctx context.Context) ([]models.RoomChangeDetail, error)
}

type rescheduleResources interface {
	Rooms(ctx context.Context) ([]models.Room, error)
	Room(ctx context.Context, id string) (*models.Room, error)
	Class(ctx context.Context, id string) (*models.Class, error)
	Assignment(ctx context.Context, classID, courseID string) (*models.Assignment, error)
}

// RescheduleConfig selects the conflict check used for point moves.
type RescheduleConfig struct {
	// FullCheck compares teacher and class as well as room.
	FullCheck bool
}

// RescheduleService performs point moves on the draft timetable.
type RescheduleService struct {
	store     timetableStore
	changes   roomChangeStore
	resources rescheduleResources
	tx        database.TxBeginner
	lock      sync.Locker
	cfg       RescheduleConfig
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRescheduleService constructs a RescheduleService.
func NewRescheduleService(store timetableStore, changes roomChangeStore, resources rescheduleResources, tx database.TxBeginner, lock sync.Locker, cfg RescheduleConfig, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RescheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &RescheduleService{
		store:     store,
		changes:   changes,
		resources: resources,
		tx:        tx,
		lock:      lock,
		cfg:       cfg,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Reschedule moves an entry to a new slot and optionally a new room. On conflict the
// entry is left untouched.
func (s *RescheduleService) Reschedule(ctx context.Context, entryID string, req dto.RescheduleRequest) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid reschedule payload")
	}
	day, err := scheduler.NormalizeDay(req.Day)
	if err != nil {
		return nil, err
	}
	target, err := scheduler.NormalizeRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	var moved models.ScheduleEntry
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		entry, err := s.findEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		moved = *entry
		if req.RoomID != "" {
			if _, err := s.resources.Room(ctx, req.RoomID); err != nil {
				return err
			}
			moved.RoomID = req.RoomID
		}
		moved.Day = day
		moved.StartTime = target.Start
		moved.EndTime = target.End
		if err := s.checkTarget(ctx, tx, moved); err != nil {
			return err
		}
		if err := s.store.UpdateSlot(ctx, tx, &moved); err != nil {
			return internalError(err, "failed to update timetable entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("timetable entry rescheduled",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("entry_id", entryID),
		zap.String("slot", fmt.Sprintf("%s %s-%s", moved.Day, moved.StartTime, moved.EndTime)),
		zap.String("room_id", moved.RoomID),
	)
	return &moved, nil
}

// ChangeRoom moves an entry to another room at its current slot and records the change.
func (s *RescheduleService) ChangeRoom(ctx context.Context, entryID string, req dto.ChangeRoomRequest, changedBy string) (*models.RoomChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid room change payload")
	}
	effective := req.EffectiveDate
	if effective == "" {
		effective = s.now().UTC().Format("2006-01-02")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	var change *models.RoomChange
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		entry, err := s.findEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if _, err := s.resources.Room(ctx, req.RoomID); err != nil {
			return err
		}
		if entry.RoomID == req.RoomID {
			return appErrors.Clone(appErrors.ErrValidation, "entry is already in that room")
		}
		moved := *entry
		moved.RoomID = req.RoomID
		if err := s.checkTarget(ctx, tx, moved); err != nil {
			return err
		}
		if err := s.store.UpdateSlot(ctx, tx, &moved); err != nil {
			return internalError(err, "failed to update timetable entry")
		}

		change = &models.RoomChange{
			EntryID:       entry.ID,
			ClassID:       entry.ClassID,
			CourseID:      entry.CourseID,
			OldRoomID:     entry.RoomID,
			NewRoomID:     req.RoomID,
			EffectiveDate: effective,
			Reason:        strings.TrimSpace(req.Reason),
			ChangedBy:     changedBy,
		}
		if err := s.changes.Insert(ctx, tx, change); err != nil {
			return internalError(err, "failed to record room change")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("room changed",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("entry_id", entryID),
		zap.String("from", change.OldRoomID),
		zap.String("to", change.NewRoomID),
		zap.String("changed_by", changedBy),
	)
	return change, nil
}

// ListRoomChanges returns the room change history, newest first.
func (s *RescheduleService) ListRoomChanges(ctx context.Context) ([]models.RoomChangeDetail, error) {
	changes, err := s.changes.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list room changes")
	}
	if changes == nil {
		changes = []models.RoomChangeDetail{}
	}
	return changes, nil
}

// FindAvailableRooms lists rooms with no entry at exactly the given slot.
func (s *RescheduleService) FindAvailableRooms(ctx context.Context, q dto.AvailableRoomsQuery) ([]models.Room, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, validationError(err, "day, start and end are required")
	}
	day, err := scheduler.NormalizeDay(q.Day)
	if err != nil {
		return nil, err
	}
	target, err := scheduler.NormalizeRange(q.Start, q.End)
	if err != nil {
		return nil, err
	}

	rooms, err := s.resources.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	booked, err := s.store.ListAt(ctx, nil, day, target.Start, target.End)
	if err != nil {
		return nil, internalError(err, "failed to load booked entries")
	}
	return scheduler.AvailableRooms(scheduler.Slot{Day: day, Start: target.Start, End: target.End}, rooms, booked), nil
}

// SuggestAlternatives lists free (day, slot, room) candidates for a class's course.
// A class without that course yields an empty list.
func (s *RescheduleService) SuggestAlternatives(ctx context.Context, q dto.AlternativesQuery) ([]scheduler.Alternative, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, validationError(err, "classId and courseId are required")
	}
	if _, err := s.resources.Class(ctx, q.ClassID); err != nil {
		return nil, err
	}
	assignment, err := s.resources.Assignment(ctx, q.ClassID, q.CourseID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return []scheduler.Alternative{}, nil
		}
		return nil, err
	}

	rooms, err := s.resources.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to load timetable")
	}
	return scheduler.SuggestAlternatives(assignment.TeacherID, rooms, entries, q.ExcludeID), nil
}

func (s *RescheduleService) findEntry(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ScheduleEntry, error) {
	entry, err := s.store.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, internalError(err, "failed to load timetable entry")
	}
	return entry, nil
}

func (s *RescheduleService) checkTarget(ctx context.Context, exec sqlx.ExtContext, moved models.ScheduleEntry) error {
	existing, err := s.store.ListAt(ctx, exec, moved.Day, moved.StartTime, moved.EndTime)
	if err != nil {
		return internalError(err, "failed to check conflicts")
	}
	conflict := scheduler.DetectConflict(moved, existing, s.cfg.FullCheck)
	if conflict == nil {
		return nil
	}
	s.metrics.RecordRescheduleConflict(conflict.Dimension)

	message := fmt.Sprintf("%s already booked on %s %s-%s", strings.ToLower(conflict.Dimension), conflict.Day, conflict.StartTime, conflict.EndTime)
	domainErr := &models.ScheduleConflictError{Type: conflict.Dimension, Message: message, Conflict: *conflict}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("schedule conflict: %s", message))
}
