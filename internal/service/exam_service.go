package service

import (
	"context"
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

type examStore interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.ExamEntry, error)
	ListDetailed(ctx context.Context) ([]models.ExamEntryDetail, error)
	DeleteAll(ctx context.Context, exec sqlx.ExtContext) error
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, entries []models.ExamEntry) error
}

// ExamService plans the exam window.
type ExamService struct {
	store      examStore
	resources  resourceLoader
	tx         database.TxBeginner
	lock       sync.Locker
	windowDays int
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewExamService constructs an ExamService.
func NewExamService(store examStore, resources resourceLoader, tx database.TxBeginner, lock sync.Locker, windowDays int, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	if windowDays <= 0 {
		windowDays = scheduler.DefaultExamWindow
	}
	return &ExamService{
		store:      store,
		resources:  resources,
		tx:         tx,
		lock:       lock,
		windowDays: windowDays,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate places one exam per course over the window. With Reset the existing draft
// exams are cleared first; otherwise already scheduled courses are kept.
func (s *ExamService) Generate(ctx context.Context, req dto.GenerateExamsRequest) (*dto.GenerateExamsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid exam payload")
	}

	start := scheduler.NextMonday(s.now())
	if req.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrMalformedInput, "startDate must be YYYY-MM-DD")
		}
		start = parsed
	}
	numDays := req.NumDays
	if numDays <= 0 {
		numDays = s.windowDays
	}
	dates := scheduler.ExamWindow(start, numDays)

	s.lock.Lock()
	defer s.lock.Unlock()

	res, err := s.resources.Load(ctx)
	if err != nil {
		return nil, err
	}
	courseClasses := make(map[string][]string)
	for _, a := range res.Assignments {
		courseClasses[a.CourseID] = append(courseClasses[a.CourseID], a.ClassID)
	}

	var plan scheduler.ExamPlan
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		var existing []models.ExamEntry
		if req.Reset {
			if err := s.store.DeleteAll(ctx, tx); err != nil {
				return err
			}
		} else {
			list, err := s.store.List(ctx, tx)
			if err != nil {
				return err
			}
			existing = list
		}

		plan = scheduler.PlanExams(scheduler.ExamInput{
			Courses:       res.Courses,
			Rooms:         res.Rooms,
			CourseClasses: courseClasses,
			Existing:      existing,
			Dates:         dates,
		})
		return s.store.BulkInsert(ctx, tx, plan.Entries)
	})
	if err != nil {
		return nil, internalError(err, "failed to store exam schedule")
	}

	s.metrics.ObserveExamPlan(len(plan.Entries), plan.Skipped)
	s.logger.Info("exam schedule generated",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.Int("created", len(plan.Entries)),
		zap.Int("skipped", plan.Skipped),
		zap.Bool("reset", req.Reset),
		zap.Time("from", dates[0]),
	)

	return &dto.GenerateExamsResponse{
		Created: len(plan.Entries),
		Skipped: plan.Skipped,
		From:    dates[0].Format("2006-01-02"),
		To:      dates[len(dates)-1].Format("2006-01-02"),
	}, nil
}

// List returns the draft exam schedule.
func (s *ExamService) List(ctx context.Context) ([]models.ExamEntryDetail, error) {
	entries, err := s.store.ListDetailed(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list exams")
	}
	if entries == nil {
		entries = []models.ExamEntryDetail{}
	}
	return entries, nil
}
