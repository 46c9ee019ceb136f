package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	return c, w
}

type timetableServiceStub struct {
	captured dto.GenerateTimetableRequest
	filter   models.ScheduleFilter
	err      error
}

func (s *timetableServiceStub) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	s.captured = req
	if s.err != nil {
		return nil, s.err
	}
	return &dto.GenerateTimetableResponse{Created: 8, Sessions: []string{}, UnderScheduled: 1, Gaps: []scheduler.UnderScheduled{{ClassID: "class-1"}}}, nil
}

func (s *timetableServiceStub) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error) {
	s.filter = filter
	return []models.ScheduleEntryDetail{{ClassName: "10A"}}, nil
}

func (s *timetableServiceStub) Export(ctx context.Context, format string, filter models.ScheduleFilter) ([]byte, string, error) {
	return []byte("Class\n10A\n"), "text/csv", nil
}

type activeStub struct {
	detail *models.SnapshotDetail
}

func (a activeStub) Active(ctx context.Context, kind string) (*models.SnapshotDetail, error) {
	if a.detail == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active timetable snapshot")
	}
	return a.detail, nil
}

func TestTimetableHandlerGenerateWithoutBody(t *testing.T) {
	svc := &timetableServiceStub{}
	h := &TimetableHandler{service: svc}
	c, w := newContext(http.MethodPost, "/timetable/generate", nil)

	h.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.EqualValues(t, 1, env.Meta["underScheduled"])
	assert.Empty(t, svc.captured.Days)
}

func TestTimetableHandlerGenerateRejectsBrokenJSON(t *testing.T) {
	h := &TimetableHandler{service: &timetableServiceStub{}}
	c, w := newContext(http.MethodPost, "/timetable/generate", []byte(`{"days":`))

	h.Generate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGenerateMalformedInput(t *testing.T) {
	svc := &timetableServiceStub{err: appErrors.Clone(appErrors.ErrMalformedInput, "unknown day \"Someday\"")}
	h := &TimetableHandler{service: svc}
	c, w := newContext(http.MethodPost, "/timetable/generate", []byte(`{"days":["Someday"]}`))

	h.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MALFORMED_INPUT", decode(t, w).Error.Code)
	assert.Equal(t, []string{"Someday"}, svc.captured.Days)
}

func TestTimetableHandlerListSources(t *testing.T) {
	svc := &timetableServiceStub{}
	detail := &models.SnapshotDetail{
		ApprovedSnapshot: models.ApprovedSnapshot{ID: "snap-1", Name: "Week 1"},
		Records:          []models.SnapshotRecord{{Class: "10A", Day: "Monday"}},
	}
	h := &TimetableHandler{service: svc, snapshots: activeStub{detail: detail}}

	c, w := newContext(http.MethodGet, "/timetable?teacherId=t-1&day=monday", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t-1", svc.filter.TeacherID)
	assert.Equal(t, "monday", svc.filter.Day)

	c, w = newContext(http.MethodGet, "/timetable?source=active", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, "snap-1", env.Meta["snapshotId"])

	h.snapshots = activeStub{}
	c, w = newContext(http.MethodGet, "/timetable?source=active", nil)
	h.List(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerExport(t *testing.T) {
	h := &TimetableHandler{service: &timetableServiceStub{}}
	c, w := newContext(http.MethodGet, "/timetable/export", nil)

	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timetable.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Class\n10A\n", w.Body.String())
}

type rescheduleServiceStub struct {
	changedBy string
}

func (s *rescheduleServiceStub) Reschedule(ctx context.Context, entryID string, req dto.RescheduleRequest) (*models.ScheduleEntry, error) {
	conflict := &models.ScheduleConflictError{
		Type:     models.DimensionRoom,
		Message:  "room already booked on Tuesday 09:45-10:45",
		Conflict: models.ScheduleConflict{EntryID: "e2", Dimension: models.DimensionRoom},
	}
	return nil, appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule conflict")
}

func (s *rescheduleServiceStub) ChangeRoom(ctx context.Context, entryID string, req dto.ChangeRoomRequest, changedBy string) (*models.RoomChange, error) {
	s.changedBy = changedBy
	return &models.RoomChange{EntryID: entryID, NewRoomID: req.RoomID, ChangedBy: changedBy}, nil
}

func (s *rescheduleServiceStub) ListRoomChanges(ctx context.Context) ([]models.RoomChangeDetail, error) {
	return []models.RoomChangeDetail{}, nil
}

func (s *rescheduleServiceStub) FindAvailableRooms(ctx context.Context, q dto.AvailableRoomsQuery) ([]models.Room, error) {
	return []models.Room{{ID: "room-b"}, {ID: "room-c"}}, nil
}

func (s *rescheduleServiceStub) SuggestAlternatives(ctx context.Context, q dto.AlternativesQuery) ([]scheduler.Alternative, error) {
	return []scheduler.Alternative{}, nil
}

func TestRescheduleHandlerConflict(t *testing.T) {
	h := &RescheduleHandler{service: &rescheduleServiceStub{}}
	router := gin.New()
	router.PUT("/timetable/entries/:id/reschedule", h.Reschedule)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/timetable/entries/e1/reschedule", bytes.NewReader([]byte(`{"day":"Tuesday","start":"09:45","end":"10:45"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Equal(t, "CONFLICT", env.Error.Code)
	assert.Equal(t, "ROOM", env.Meta["type"])
}

func TestRescheduleHandlerChangeRoomUsesCaller(t *testing.T) {
	svc := &rescheduleServiceStub{}
	h := &RescheduleHandler{service: svc}
	c, w := newContext(http.MethodPut, "/timetable/entries/e1/room", []byte(`{"roomId":"room-c"}`))
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "coord-1", Role: models.RoleCoordinator})

	h.ChangeRoom(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "coord-1", svc.changedBy)
}

func TestRescheduleHandlerAvailableRoomsQuery(t *testing.T) {
	h := &RescheduleHandler{service: &rescheduleServiceStub{}}

	c, w := newContext(http.MethodGet, "/rooms/available?day=Monday&start=08:30&end=09:30", nil)
	h.AvailableRooms(c)
	require.Equal(t, http.StatusOK, w.Code)

	var rooms []models.Room
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rooms))
	assert.Len(t, rooms, 2)
}

type snapshotServiceStub struct {
	approver string
}

func (s *snapshotServiceStub) Approve(ctx context.Context, req dto.ApproveSnapshotRequest, approverID string) (*dto.ApproveSnapshotResponse, error) {
	s.approver = approverID
	return &dto.ApproveSnapshotResponse{ID: "snap-1", Kind: "TIMETABLE", Records: 8}, nil
}

func (s *snapshotServiceStub) Reject(ctx context.Context, req dto.RejectSnapshotRequest, rejectedBy string) (*dto.RejectSnapshotResponse, error) {
	return &dto.RejectSnapshotResponse{Regenerate: true}, nil
}

func (s *snapshotServiceStub) Activate(ctx context.Context, id string) (*models.ApprovedSnapshot, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "snapshot not found")
}

func (s *snapshotServiceStub) List(ctx context.Context, kind string) ([]models.ApprovedSnapshot, error) {
	return []models.ApprovedSnapshot{}, nil
}

func (s *snapshotServiceStub) Get(ctx context.Context, id string) (*models.SnapshotDetail, error) {
	return &models.SnapshotDetail{}, nil
}

func (s *snapshotServiceStub) Active(ctx context.Context, kind string) (*models.SnapshotDetail, error) {
	return &models.SnapshotDetail{}, nil
}

func (s *snapshotServiceStub) TeacherTimetable(ctx context.Context, teacherID string) ([]models.SnapshotRecord, error) {
	return []models.SnapshotRecord{}, nil
}

func TestSnapshotHandlerApproveRecordsApprover(t *testing.T) {
	svc := &snapshotServiceStub{}
	h := &SnapshotHandler{service: svc}
	c, w := newContext(http.MethodPost, "/snapshots", []byte(`{"name":"Week 1"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	h.Approve(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", svc.approver)
}

func TestSnapshotHandlerActivateMissing(t *testing.T) {
	h := &SnapshotHandler{service: &snapshotServiceStub{}}
	c, w := newContext(http.MethodPost, "/snapshots/x/activate", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}

	h.Activate(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": func(ctx context.Context) error { return nil },
	})
	c, w := newContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, map[string]Pinger{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	c, w = newContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	c, w = newContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
