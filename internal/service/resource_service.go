package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type roomStore interface {
	List(ctx context.Context) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
}

type courseStore interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
}

type teacherStore interface {
	List(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
}

type classStore interface {
	List(ctx context.Context) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	ListAssignments(ctx context.Context) ([]models.Assignment, error)
	ListAssignmentsByClass(ctx context.Context, classID string) ([]models.AssignmentDetail, error)
	FindAssignment(ctx context.Context, classID, courseID string) (*models.Assignment, error)
	CreateAssignment(ctx context.Context, assignment *models.Assignment) error
}

// ResourceService is the resource store used by the engine: rooms, courses, teachers,
// classes and their assignments.
type ResourceService struct {
	rooms     roomStore
	courses   courseStore
	teachers  teacherStore
	classes   classStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResourceService constructs a ResourceService.
func NewResourceService(rooms roomStore, courses courseStore, teachers teacherStore, classes classStore, validate *validator.Validate, logger *zap.Logger) *ResourceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceService{rooms: rooms, courses: courses, teachers: teachers, classes: classes, validator: validate, logger: logger}
}

// Load snapshots the whole resource model for one engine run.
func (s *ResourceService) Load(ctx context.Context) (scheduler.Resources, error) {
	var res scheduler.Resources
	var err error
	if res.Rooms, err = s.rooms.List(ctx); err != nil {
		return res, internalError(err, "failed to load rooms")
	}
	if res.Courses, err = s.courses.List(ctx); err != nil {
		return res, internalError(err, "failed to load courses")
	}
	if res.Teachers, err = s.teachers.List(ctx); err != nil {
		return res, internalError(err, "failed to load teachers")
	}
	if res.Classes, err = s.classes.List(ctx); err != nil {
		return res, internalError(err, "failed to load classes")
	}
	if res.Assignments, err = s.classes.ListAssignments(ctx); err != nil {
		return res, internalError(err, "failed to load assignments")
	}
	return res, nil
}

// Rooms lists rooms.
func (s *ResourceService) Rooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list rooms")
	}
	return rooms, nil
}

// Room fetches one room.
func (s *ResourceService) Room(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "room not found", "failed to load room")
	}
	return room, nil
}

// CreateRoom registers a room.
func (s *ResourceService) CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid room payload")
	}
	room := &models.Room{Name: req.Name, Capacity: req.Capacity}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, writeError(err, "room name already exists", "failed to create room")
	}
	return room, nil
}

// Courses lists courses.
func (s *ResourceService) Courses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list courses")
	}
	return courses, nil
}

// CreateCourse registers a course.
func (s *ResourceService) CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	course := &models.Course{Name: req.Name}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, writeError(err, "course name already exists", "failed to create course")
	}
	return course, nil
}

// Teachers lists teachers.
func (s *ResourceService) Teachers(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list teachers")
	}
	return teachers, nil
}

// Teacher fetches one teacher.
func (s *ResourceService) Teacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher not found", "failed to load teacher")
	}
	return teacher, nil
}

// CreateTeacher registers a teacher.
func (s *ResourceService) CreateTeacher(ctx context.Context, req dto.CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher := &models.Teacher{Name: req.Name, Subject: req.Subject}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return nil, writeError(err, "teacher name already exists", "failed to create teacher")
	}
	return teacher, nil
}

// Classes lists classes.
func (s *ResourceService) Classes(ctx context.Context) ([]models.Class, error) {
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list classes")
	}
	return classes, nil
}

// Class fetches one class.
func (s *ResourceService) Class(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	return class, nil
}

// CreateClass registers a class.
func (s *ResourceService) CreateClass(ctx context.Context, req dto.CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}
	class := &models.Class{Name: req.Name}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, writeError(err, "class name already exists", "failed to create class")
	}
	return class, nil
}

// Assignments lists a class's course/teacher assignments.
func (s *ResourceService) Assignments(ctx context.Context, classID string) ([]models.AssignmentDetail, error) {
	if _, err := s.Class(ctx, classID); err != nil {
		return nil, err
	}
	assignments, err := s.classes.ListAssignmentsByClass(ctx, classID)
	if err != nil {
		return nil, internalError(err, "failed to list assignments")
	}
	return assignments, nil
}

// Assignment resolves the assignment for a class and course.
func (s *ResourceService) Assignment(ctx context.Context, classID, courseID string) (*models.Assignment, error) {
	assignment, err := s.classes.FindAssignment(ctx, classID, courseID)
	if err != nil {
		return nil, lookupError(err, "assignment not found", "failed to load assignment")
	}
	return assignment, nil
}

// Assign binds a course and teacher to a class. A class has one teacher per course.
func (s *ResourceService) Assign(ctx context.Context, classID string, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	if _, err := s.Class(ctx, classID); err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if _, err := s.Teacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{ClassID: classID, CourseID: req.CourseID, TeacherID: req.TeacherID}
	if err := s.classes.CreateAssignment(ctx, assignment); err != nil {
		return nil, writeError(err, "class already has a teacher for this course", "failed to create assignment")
	}
	s.logger.Info("assignment created",
		zap.String("class_id", classID),
		zap.String("course_id", req.CourseID),
		zap.String("teacher_id", req.TeacherID),
	)
	return assignment, nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func lookupError(err error, notFound, failed string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalError(err, failed)
}

func writeError(err error, duplicate, failed string) error {
	if appErrors.IsUniqueViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, duplicate)
	}
	return internalError(err, failed)
}
