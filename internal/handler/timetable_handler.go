package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error)
	Export(ctx context.Context, format string, filter models.ScheduleFilter) ([]byte, string, error)
}

type activeSnapshotReader interface {
	Active(ctx context.Context, kind string) (*models.SnapshotDetail, error)
}

// TimetableHandler exposes the draft timetable.
type TimetableHandler struct {
	service   timetableService
	snapshots activeSnapshotReader
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService, snapshots *service.SnapshotService) *TimetableHandler {
	return &TimetableHandler{service: svc, snapshots: snapshots}
}

// Generate godoc
// @Summary Regenerate the draft timetable
// @Description Clears the draft and books lectures and lab blocks for every class assignment. Omitted days and time slots fall back to configuration.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest false "Generation options"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if !bindOptionalJSON(c, &req, "invalid generate payload") {
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{"underScheduled": result.UnderScheduled})
}

// List godoc
// @Summary List timetable entries
// @Description Returns the draft entries, or the active approved snapshot when source=active.
// @Tags Timetable
// @Produce json
// @Param classId query string false "Class ID"
// @Param teacherId query string false "Teacher ID"
// @Param roomId query string false "Room ID"
// @Param day query string false "Day name"
// @Param source query string false "draft (default) or active"
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	if c.Query("source") == "active" {
		detail, err := h.snapshots.Active(c.Request.Context(), string(models.SnapshotTimetable))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, detail.Records, nil, map[string]interface{}{
			"snapshotId": detail.ID,
			"name":       detail.Name,
			"approvedAt": detail.ApprovedAt,
		})
		return
	}

	entries, err := h.service.List(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{"total": len(entries)})
}

// Export godoc
// @Summary Export the draft timetable
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv (default), pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	body, contentType, err := h.service.Export(c.Request.Context(), format, filterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, fmt.Sprintf("timetable.%s", format), contentType, body)
}

func filterFromQuery(c *gin.Context) models.ScheduleFilter {
	return models.ScheduleFilter{
		ClassID:   c.Query("classId"),
		TeacherID: c.Query("teacherId"),
		RoomID:    c.Query("roomId"),
		Day:       c.Query("day"),
	}
}
