package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func newTimetableFixture(t *testing.T, store *memoryTimetable) (*TimetableService, func() error) {
	tx, mock := newTxProviderMock(t)
	svc := NewTimetableService(store, resourcesStub{res: twoClassResources()}, tx, nil, TimetableConfig{
		TimeSlots:         defaultTimeRanges,
		Policy:            "lecture_lab",
		LecturesPerCourse: 3,
		LabBlocks:         true,
		Seed:              42,
	}, NewMetricsService(), nil, nil)
	mock.ExpectBegin()
	if store.insertErr != nil {
		mock.ExpectRollback()
	} else {
		mock.ExpectCommit()
	}
	return svc, mock.ExpectationsWereMet
}

func TestTimetableServiceGenerateReplacesDraft(t *testing.T) {
	store := &memoryTimetable{entries: []models.ScheduleEntry{{ID: "stale", Day: "Monday"}}}
	svc, met := newTimetableFixture(t, store)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	assert.Equal(t, 8, resp.Created)
	assert.Len(t, resp.Sessions, 8)
	assert.Zero(t, resp.UnderScheduled)
	assert.NotNil(t, resp.Gaps)

	require.Len(t, store.entries, 8)
	for _, e := range store.entries {
		assert.NotEqual(t, "stale", e.ID)
	}
	assert.NoError(t, met())
}

func TestTimetableServiceGenerateRollsBackOnInsertFailure(t *testing.T) {
	store := &memoryTimetable{insertErr: errors.New("disk full")}
	svc, met := newTimetableFixture(t, store)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.NoError(t, met())
}

func TestTimetableServiceGenerateRejectsMalformedDays(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	store := &memoryTimetable{}
	svc := NewTimetableService(store, resourcesStub{res: twoClassResources()}, tx, nil, TimetableConfig{TimeSlots: defaultTimeRanges}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Days: []string{"Someday"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrMalformedInput)
	assert.Equal(t, 400, appErrors.FromError(err).Status)
	assert.NoError(t, mock.ExpectationsWereMet(), "no transaction is opened for malformed input")
}

func TestTimetableServiceGenerateStoresCanonicalSlots(t *testing.T) {
	store := &memoryTimetable{}
	svc, met := newTimetableFixture(t, store)

	req := dto.GenerateTimetableRequest{}
	canonical := map[string]bool{}
	for _, r := range defaultTimeRanges {
		req.TimeSlots = append(req.TimeSlots, dto.TimeSlotRequest{Start: " " + r.Start, End: r.End + " "})
		canonical[r.Start+"-"+r.End] = true
	}

	_, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, store.entries)
	for _, e := range store.entries {
		assert.True(t, canonical[e.StartTime+"-"+e.EndTime], "entry stored as %q-%q", e.StartTime, e.EndTime)
	}
	assert.NoError(t, met())
}

func TestTimetableServiceGenerateRejectsUnknownPolicy(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	svc := NewTimetableService(&memoryTimetable{}, resourcesStub{}, tx, nil, TimetableConfig{}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Policy: "greedy"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceExportCSV(t *testing.T) {
	store := &memoryTimetable{details: []models.ScheduleEntryDetail{
		{
			ScheduleEntry: models.ScheduleEntry{Day: "Monday", StartTime: "08:30", EndTime: "09:30", Kind: models.SessionLecture},
			ClassName:     "10A", CourseName: "Biology", TeacherName: "Bu Ratna", RoomName: "Room A",
		},
	}}
	tx, _ := newTxProviderMock(t)
	svc := NewTimetableService(store, resourcesStub{}, tx, nil, TimetableConfig{}, nil, nil, nil)

	out, contentType, err := svc.Export(context.Background(), "csv", models.ScheduleFilter{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"10A", "Biology", "Bu Ratna", "Room A", "Monday", "08:30", "09:30", "LECTURE"}, records[1])

	_, _, err = svc.Export(context.Background(), "docx", models.ScheduleFilter{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
