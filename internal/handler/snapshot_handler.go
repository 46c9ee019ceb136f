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

type snapshotService interface {
	Approve(ctx context.Context, req dto.ApproveSnapshotRequest, approverID string) (*dto.ApproveSnapshotResponse, error)
	Reject(ctx context.Context, req dto.RejectSnapshotRequest, rejectedBy string) (*dto.RejectSnapshotResponse, error)
	Activate(ctx context.Context, id string) (*models.ApprovedSnapshot, error)
	List(ctx context.Context, kind string) ([]models.ApprovedSnapshot, error)
	Get(ctx context.Context, id string) (*models.SnapshotDetail, error)
	Active(ctx context.Context, kind string) (*models.SnapshotDetail, error)
	TeacherTimetable(ctx context.Context, teacherID string) ([]models.SnapshotRecord, error)
}

// SnapshotHandler exposes approval and the published views.
type SnapshotHandler struct {
	service snapshotService
}

// NewSnapshotHandler constructs the handler.
func NewSnapshotHandler(svc *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{service: svc}
}

// Approve godoc
// @Summary Approve the current draft
// @Description Freezes the draft timetable or exam schedule into the single active snapshot of its kind.
// @Tags Snapshots
// @Accept json
// @Produce json
// @Param payload body dto.ApproveSnapshotRequest true "Approval"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /snapshots [post]
func (h *SnapshotHandler) Approve(c *gin.Context) {
	var req dto.ApproveSnapshotRequest
	if !bindJSON(c, &req, "invalid approval payload") {
		return
	}
	result, err := h.service.Approve(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Reject godoc
// @Summary Reject the current draft
// @Tags Snapshots
// @Accept json
// @Produce json
// @Param payload body dto.RejectSnapshotRequest true "Rejection"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /snapshots/reject [post]
func (h *SnapshotHandler) Reject(c *gin.Context) {
	var req dto.RejectSnapshotRequest
	if !bindJSON(c, &req, "invalid rejection payload") {
		return
	}
	result, err := h.service.Reject(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Activate godoc
// @Summary Make a snapshot the active one
// @Tags Snapshots
// @Produce json
// @Param id path string true "Snapshot ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /snapshots/{id}/activate [post]
func (h *SnapshotHandler) Activate(c *gin.Context) {
	snapshot, err := h.service.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// List godoc
// @Summary List snapshots
// @Tags Snapshots
// @Produce json
// @Param kind query string false "TIMETABLE (default) or EXAM"
// @Success 200 {object} response.Envelope
// @Router /snapshots [get]
func (h *SnapshotHandler) List(c *gin.Context) {
	snapshots, err := h.service.List(c.Request.Context(), c.Query("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshots, nil)
}

// Get godoc
// @Summary Snapshot with its records
// @Tags Snapshots
// @Produce json
// @Param id path string true "Snapshot ID"
// @Success 200 {object} response.Envelope
// @Router /snapshots/{id} [get]
func (h *SnapshotHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Active godoc
// @Summary Active snapshot
// @Tags Snapshots
// @Produce json
// @Param kind query string false "TIMETABLE (default) or EXAM"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /snapshots/active [get]
func (h *SnapshotHandler) Active(c *gin.Context) {
	detail, err := h.service.Active(c.Request.Context(), c.Query("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// TeacherTimetable godoc
// @Summary A teacher's published timetable
// @Description Uses the active snapshot, or the draft when nothing has been approved yet.
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/timetable [get]
func (h *SnapshotHandler) TeacherTimetable(c *gin.Context) {
	records, err := h.service.TeacherTimetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
