package service

import (
	"context"
	"math/rand"
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
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

type timetableStore interface {
	List(ctx context.Context) ([]models.ScheduleEntry, error)
	ListDetailed(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ScheduleEntry, error)
	ListAt(ctx context.Context, exec sqlx.ExtContext, day, start, end string) ([]models.ScheduleEntry, error)
	DeleteAll(ctx context.Context, exec sqlx.ExtContext) error
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, entries []models.ScheduleEntry) error
	UpdateSlot(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error
}

type resourceLoader interface {
	Load(ctx context.Context) (scheduler.Resources, error)
}

// TimetableConfig carries the generator defaults.
type TimetableConfig struct {
	Days              []string
	TimeSlots         []scheduler.TimeRange
	Policy            string
	LecturesPerCourse int
	LabBlocks         bool
	Seed              int64
}

// TimetableService regenerates, lists and exports the draft timetable.
type TimetableService struct {
	store     timetableStore
	resources resourceLoader
	tx        database.TxBeginner
	lock      sync.Locker
	cfg       TimetableConfig
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService. lock serializes every schedule
// mutation across services.
func NewTimetableService(store timetableStore, resources resourceLoader, tx database.TxBeginner, lock sync.Locker, cfg TimetableConfig, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	if len(cfg.Days) == 0 {
		cfg.Days = scheduler.WorkWeek
	}
	return &TimetableService{
		store:     store,
		resources: resources,
		tx:        tx,
		lock:      lock,
		cfg:       cfg,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

func (s *TimetableService) newRand() *rand.Rand {
	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Generate clears the draft and books a fresh timetable in one transaction.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid generate payload")
	}

	days := req.Days
	if len(days) == 0 {
		days = s.cfg.Days
	}
	slots := s.cfg.TimeSlots
	if len(req.TimeSlots) > 0 {
		slots = make([]scheduler.TimeRange, len(req.TimeSlots))
		for i, ts := range req.TimeSlots {
			slots[i] = scheduler.TimeRange{Start: ts.Start, End: ts.End}
		}
	}
	policy := req.Policy
	if policy == "" {
		policy = s.cfg.Policy
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	res, err := s.resources.Load(ctx)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	gen := scheduler.NewGenerator(s.newRand(), scheduler.Options{
		Policy:            policy,
		LecturesPerCourse: s.cfg.LecturesPerCourse,
		LabBlocks:         s.cfg.LabBlocks,
	})
	result, err := gen.Generate(res, days, slots)
	if err != nil {
		return nil, err
	}

	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.store.DeleteAll(ctx, tx); err != nil {
			return err
		}
		return s.store.BulkInsert(ctx, tx, result.Entries)
	})
	if err != nil {
		return nil, internalError(err, "failed to store generated timetable")
	}

	lectures, labs := 0, 0
	for _, e := range result.Entries {
		if e.Kind == models.SessionLab {
			labs++
		} else {
			lectures++
		}
	}
	s.metrics.ObserveGeneration(policy, time.Since(started), lectures, labs, len(result.UnderScheduled))
	s.logger.Info("timetable generated",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("policy", policy),
		zap.Int("sessions", len(result.Entries)),
		zap.Int("under_scheduled", len(result.UnderScheduled)),
		zap.Duration("duration", time.Since(started)),
	)

	gaps := result.UnderScheduled
	if gaps == nil {
		gaps = []scheduler.UnderScheduled{}
	}
	summaries := result.Summaries
	if summaries == nil {
		summaries = []string{}
	}
	return &dto.GenerateTimetableResponse{
		Created:        len(result.Entries),
		Sessions:       summaries,
		UnderScheduled: len(gaps),
		Gaps:           gaps,
	}, nil
}

// List returns the draft timetable with resource names.
func (s *TimetableService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error) {
	if filter.Day != "" {
		day, err := scheduler.NormalizeDay(filter.Day)
		if err != nil {
			return nil, err
		}
		filter.Day = day
	}
	entries, err := s.store.ListDetailed(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list timetable")
	}
	if entries == nil {
		entries = []models.ScheduleEntryDetail{}
	}
	return entries, nil
}

var timetableHeaders = []string{"Class", "Course", "Teacher", "Room", "Day", "Start", "End", "Kind"}

// Export renders the draft timetable as csv, pdf or xlsx.
func (s *TimetableService) Export(ctx context.Context, format string, filter models.ScheduleFilter) ([]byte, string, error) {
	switch format {
	case "", export.FormatCSV, export.FormatPDF, export.FormatXLSX:
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}
	if format == "" {
		format = export.FormatCSV
	}

	entries, err := s.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{Title: "Timetable", Headers: timetableHeaders}
	for _, e := range entries {
		data.Rows = append(data.Rows, map[string]string{
			"Class":   e.ClassName,
			"Course":  e.CourseName,
			"Teacher": e.TeacherName,
			"Room":    e.RoomName,
			"Day":     e.Day,
			"Start":   e.StartTime,
			"End":     e.EndTime,
			"Kind":    string(e.Kind),
		})
	}

	out, err := export.Render(format, data)
	if err != nil {
		return nil, "", internalError(err, "failed to render timetable export")
	}
	return out, export.ContentType(format), nil
}
