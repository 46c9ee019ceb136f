package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type rescheduleService interface {
	Reschedule(ctx context.Context, entryID string, req dto.RescheduleRequest) (*models.ScheduleEntry, error)
	ChangeRoom(ctx context.Context, entryID string, req dto.ChangeRoomRequest, changedBy string) (*models.RoomChange, error)
	ListRoomChanges(ctx context.Context) ([]models.RoomChangeDetail, error)
	FindAvailableRooms(ctx context.Context, q dto.AvailableRoomsQuery) ([]models.Room, error)
	SuggestAlternatives(ctx context.Context, q dto.AlternativesQuery) ([]scheduler.Alternative, error)
}

// RescheduleHandler exposes point moves and slot lookups.
type RescheduleHandler struct {
	service rescheduleService
}

// NewRescheduleHandler constructs the handler.
func NewRescheduleHandler(svc *service.RescheduleService) *RescheduleHandler {
	return &RescheduleHandler{service: svc}
}

// Reschedule godoc
// @Summary Move a timetable entry to another slot
// @Description Fails with 409 and the clashing entry in meta when the target slot is taken.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.RescheduleRequest true "Target slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/entries/{id}/reschedule [put]
func (h *RescheduleHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleRequest
	if !bindJSON(c, &req, "invalid reschedule payload") {
		return
	}
	entry, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// ChangeRoom godoc
// @Summary Move a timetable entry to another room
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.ChangeRoomRequest true "Room change"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/entries/{id}/room [put]
func (h *RescheduleHandler) ChangeRoom(c *gin.Context) {
	var req dto.ChangeRoomRequest
	if !bindJSON(c, &req, "invalid room change payload") {
		return
	}
	change, err := h.service.ChangeRoom(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// RoomChanges godoc
// @Summary Room change history
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/room-changes [get]
func (h *RescheduleHandler) RoomChanges(c *gin.Context) {
	changes, err := h.service.ListRoomChanges(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, changes, nil)
}

// AvailableRooms godoc
// @Summary Rooms free at a slot
// @Tags Rooms
// @Produce json
// @Param day query string true "Day name"
// @Param start query string true "Start HH:MM"
// @Param end query string true "End HH:MM"
// @Success 200 {object} response.Envelope
// @Router /rooms/available [get]
func (h *RescheduleHandler) AvailableRooms(c *gin.Context) {
	var q dto.AvailableRoomsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	rooms, err := h.service.FindAvailableRooms(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// Alternatives godoc
// @Summary Suggest alternative slots for a class course
// @Tags Timetable
// @Produce json
// @Param classId query string true "Class ID"
// @Param courseId query string true "Course ID"
// @Param excludeId query string false "Entry to ignore, usually the one being moved"
// @Success 200 {object} response.Envelope
// @Router /timetable/alternatives [get]
func (h *RescheduleHandler) Alternatives(c *gin.Context) {
	var q dto.AlternativesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	alternatives, err := h.service.SuggestAlternatives(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alternatives, nil, map[string]interface{}{"total": len(alternatives)})
}
