package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type resourceService interface {
	Rooms(ctx context.Context) ([]models.Room, error)
	CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error)
	Courses(ctx context.Context) ([]models.Course, error)
	CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error)
	Teachers(ctx context.Context) ([]models.Teacher, error)
	CreateTeacher(ctx context.Context, req dto.CreateTeacherRequest) (*models.Teacher, error)
	Classes(ctx context.Context) ([]models.Class, error)
	CreateClass(ctx context.Context, req dto.CreateClassRequest) (*models.Class, error)
	Assignments(ctx context.Context, classID string) ([]models.AssignmentDetail, error)
	Assign(ctx context.Context, classID string, req dto.CreateAssignmentRequest) (*models.Assignment, error)
}

// ResourceHandler manages rooms, courses, teachers, classes and assignments.
type ResourceHandler struct {
	service resourceService
}

// NewResourceHandler constructs the handler.
func NewResourceHandler(svc *service.ResourceService) *ResourceHandler {
	return &ResourceHandler{service: svc}
}

// ListRooms godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *ResourceHandler) ListRooms(c *gin.Context) {
	respondList(c, func(ctx context.Context) (interface{}, error) { return h.service.Rooms(ctx) })
}

// CreateRoom godoc
// @Summary Create a room
// @Description Rooms whose name contains "lab" can host lab blocks.
// @Tags Rooms
// @Accept json
// @Produce json
// @Param payload body dto.CreateRoomRequest true "Room"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms [post]
func (h *ResourceHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if !bindJSON(c, &req, "invalid room payload") {
		return
	}
	room, err := h.service.CreateRoom(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// ListCourses godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *ResourceHandler) ListCourses(c *gin.Context) {
	respondList(c, func(ctx context.Context) (interface{}, error) { return h.service.Courses(ctx) })
}

// CreateCourse godoc
// @Summary Create a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [post]
func (h *ResourceHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.service.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// ListTeachers godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *ResourceHandler) ListTeachers(c *gin.Context) {
	respondList(c, func(ctx context.Context) (interface{}, error) { return h.service.Teachers(ctx) })
}

// CreateTeacher godoc
// @Summary Create a teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body dto.CreateTeacherRequest true "Teacher"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /teachers [post]
func (h *ResourceHandler) CreateTeacher(c *gin.Context) {
	var req dto.CreateTeacherRequest
	if !bindJSON(c, &req, "invalid teacher payload") {
		return
	}
	teacher, err := h.service.CreateTeacher(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// ListClasses godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ResourceHandler) ListClasses(c *gin.Context) {
	respondList(c, func(ctx context.Context) (interface{}, error) { return h.service.Classes(ctx) })
}

// CreateClass godoc
// @Summary Create a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassRequest true "Class"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /classes [post]
func (h *ResourceHandler) CreateClass(c *gin.Context) {
	var req dto.CreateClassRequest
	if !bindJSON(c, &req, "invalid class payload") {
		return
	}
	class, err := h.service.CreateClass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// ListAssignments godoc
// @Summary List a class's course assignments
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/assignments [get]
func (h *ResourceHandler) ListAssignments(c *gin.Context) {
	classID := c.Param("id")
	respondList(c, func(ctx context.Context) (interface{}, error) { return h.service.Assignments(ctx, classID) })
}

// Assign godoc
// @Summary Assign a course and teacher to a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.CreateAssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/assignments [post]
func (h *ResourceHandler) Assign(c *gin.Context) {
	var req dto.CreateAssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.service.Assign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

func respondList(c *gin.Context, load func(ctx context.Context) (interface{}, error)) {
	items, err := load(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
