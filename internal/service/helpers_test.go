package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (database.TxBeginner, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type memoryTimetable struct {
	entries   []models.ScheduleEntry
	details   []models.ScheduleEntryDetail
	updates   int
	insertErr error
	seq       int
}

func (m *memoryTimetable) List(ctx context.Context) ([]models.ScheduleEntry, error) {
	return append([]models.ScheduleEntry(nil), m.entries...), nil
}

func (m *memoryTimetable) ListDetailed(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error) {
	var out []models.ScheduleEntryDetail
	for _, d := range m.details {
		if filter.TeacherID != "" && d.TeacherID != filter.TeacherID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *memoryTimetable) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ScheduleEntry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			found := e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryTimetable) ListAt(ctx context.Context, exec sqlx.ExtContext, day, start, end string) ([]models.ScheduleEntry, error) {
	var out []models.ScheduleEntry
	for _, e := range m.entries {
		if e.Day == day && e.StartTime == start && e.EndTime == end {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryTimetable) DeleteAll(ctx context.Context, exec sqlx.ExtContext) error {
	m.entries = nil
	return nil
}

func (m *memoryTimetable) BulkInsert(ctx context.Context, exec sqlx.ExtContext, entries []models.ScheduleEntry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, e := range entries {
		m.seq++
		e.ID = fmt.Sprintf("entry-%d", m.seq)
		m.entries = append(m.entries, e)
	}
	return nil
}

func (m *memoryTimetable) UpdateSlot(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error {
	for i := range m.entries {
		if m.entries[i].ID == entry.ID {
			m.entries[i] = *entry
			m.updates++
			return nil
		}
	}
	return sql.ErrNoRows
}

type resourcesStub struct {
	res scheduler.Resources
	err error
}

func (r resourcesStub) Load(ctx context.Context) (scheduler.Resources, error) {
	return r.res, r.err
}

func twoClassResources() scheduler.Resources {
	return scheduler.Resources{
		Rooms: []models.Room{
			{ID: "room-a", Name: "Room A"},
			{ID: "room-b", Name: "Room B"},
			{ID: "room-lab", Name: "Biology Lab"},
		},
		Courses:  []models.Course{{ID: "course-bio", Name: "Biology"}},
		Teachers: []models.Teacher{{ID: "teacher-1", Name: "Bu Ratna"}},
		Classes:  []models.Class{{ID: "class-1", Name: "10A"}, {ID: "class-2", Name: "10B"}},
		Assignments: []models.Assignment{
			{ID: "as-1", ClassID: "class-1", CourseID: "course-bio", TeacherID: "teacher-1"},
			{ID: "as-2", ClassID: "class-2", CourseID: "course-bio", TeacherID: "teacher-1"},
		},
	}
}

var defaultTimeRanges = []scheduler.TimeRange{
	{Start: "08:30", End: "09:30"},
	{Start: "09:45", End: "10:45"},
	{Start: "11:00", End: "12:00"},
	{Start: "12:15", End: "13:15"},
	{Start: "14:00", End: "15:00"},
}
