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

type examService interface {
	Generate(ctx context.Context, req dto.GenerateExamsRequest) (*dto.GenerateExamsResponse, error)
	List(ctx context.Context) ([]models.ExamEntryDetail, error)
}

// ExamHandler exposes the exam planner.
type ExamHandler struct {
	service examService
}

// NewExamHandler constructs the handler.
func NewExamHandler(svc *service.ExamService) *ExamHandler {
	return &ExamHandler{service: svc}
}

// Generate godoc
// @Summary Plan the exam window
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body dto.GenerateExamsRequest false "Exam window"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /exams/generate [post]
func (h *ExamHandler) Generate(c *gin.Context) {
	var req dto.GenerateExamsRequest
	if !bindOptionalJSON(c, &req, "invalid exam payload") {
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List draft exams
// @Tags Exams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	exams, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}
