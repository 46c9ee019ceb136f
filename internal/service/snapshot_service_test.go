package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type memorySnapshots struct {
	snapshots []models.ApprovedSnapshot
}

func (m *memorySnapshots) Insert(ctx context.Context, exec sqlx.ExtContext, snapshot *models.ApprovedSnapshot) error {
	snapshot.ID = fmt.Sprintf("snap-%d", len(m.snapshots)+1)
	snapshot.ApprovedAt = time.Now()
	m.snapshots = append(m.snapshots, *snapshot)
	return nil
}

func (m *memorySnapshots) DeactivateAll(ctx context.Context, exec sqlx.ExtContext, kind models.SnapshotKind) error {
	for i := range m.snapshots {
		if m.snapshots[i].Kind == kind {
			m.snapshots[i].IsActive = false
		}
	}
	return nil
}

func (m *memorySnapshots) SetActive(ctx context.Context, exec sqlx.ExtContext, id string) error {
	for i := range m.snapshots {
		if m.snapshots[i].ID == id {
			m.snapshots[i].IsActive = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memorySnapshots) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ApprovedSnapshot, error) {
	for _, s := range m.snapshots {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memorySnapshots) FindActive(ctx context.Context, kind models.SnapshotKind) (*models.ApprovedSnapshot, error) {
	for _, s := range m.snapshots {
		if s.Kind == kind && s.IsActive {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memorySnapshots) ListByKind(ctx context.Context, kind models.SnapshotKind) ([]models.ApprovedSnapshot, error) {
	var out []models.ApprovedSnapshot
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].Kind == kind {
			out = append(out, m.snapshots[i])
		}
	}
	return out, nil
}

func (m *memorySnapshots) activeCount(kind models.SnapshotKind) int {
	n := 0
	for _, s := range m.snapshots {
		if s.Kind == kind && s.IsActive {
			n++
		}
	}
	return n
}

type examDetailsStub struct {
	entries []models.ExamEntryDetail
}

func (e examDetailsStub) ListDetailed(ctx context.Context) ([]models.ExamEntryDetail, error) {
	return e.entries, nil
}

type teachersStub map[string]models.Teacher

func (t teachersStub) Teacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, ok := t[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return &teacher, nil
}

func draftDetail(teacherID, teacher, day string) models.ScheduleEntryDetail {
	return models.ScheduleEntryDetail{
		ScheduleEntry: models.ScheduleEntry{TeacherID: teacherID, Day: day, StartTime: "08:30", EndTime: "09:30", Kind: models.SessionLecture},
		ClassName:     "10A",
		CourseName:    "Biology",
		TeacherName:   teacher,
		RoomName:      "Room A",
	}
}

type snapshotFixture struct {
	svc       *SnapshotService
	store     *memorySnapshots
	timetable *memoryTimetable
	redis     *miniredis.Miniredis
}

func newSnapshotFixture(t *testing.T, txCount int) snapshotFixture {
	tx, mock := newTxProviderMock(t)
	for i := 0; i < txCount; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewSnapshotCache(repository.NewSnapshotCacheRepository(client, nil), NewMetricsService(), time.Minute, nil, true)

	store := &memorySnapshots{}
	timetable := &memoryTimetable{details: []models.ScheduleEntryDetail{
		draftDetail("teacher-1", "Bu Ratna", "Monday"),
		draftDetail("teacher-2", "Pak Budi", "Tuesday"),
	}}
	exams := examDetailsStub{entries: []models.ExamEntryDetail{{
		ExamEntry:  models.ExamEntry{ExamDate: firstMonday, StartTime: "09:00", EndTime: "11:00"},
		CourseName: "Biology",
		RoomName:   "Room A",
	}}}
	teachers := teachersStub{
		"teacher-1": {ID: "teacher-1", Name: "Bu Ratna"},
		"teacher-2": {ID: "teacher-2", Name: "Pak Budi"},
	}
	svc := NewSnapshotService(store, timetable, exams, teachers, tx, nil, cache, NewMetricsService(), nil, nil)
	return snapshotFixture{svc: svc, store: store, timetable: timetable, redis: mr}
}

func TestSnapshotServiceApproveKeepsOneActivePerKind(t *testing.T) {
	f := newSnapshotFixture(t, 3)
	ctx := context.Background()

	first, err := f.svc.Approve(ctx, dto.ApproveSnapshotRequest{Name: "Week 1"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "TIMETABLE", first.Kind)
	assert.Equal(t, 2, first.Records)

	second, err := f.svc.Approve(ctx, dto.ApproveSnapshotRequest{Name: "Week 2"}, "admin-1")
	require.NoError(t, err)

	exam, err := f.svc.Approve(ctx, dto.ApproveSnapshotRequest{Name: "Midterms", Kind: "EXAM"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 1, exam.Records)

	assert.Equal(t, 1, f.store.activeCount(models.SnapshotTimetable))
	assert.Equal(t, 1, f.store.activeCount(models.SnapshotExam))

	active, err := f.svc.Active(ctx, "timetable")
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, "Week 2", active.Name)
	require.Len(t, active.Records, 2)
	assert.Equal(t, "Bu Ratna", active.Records[0].Teacher)

	examDetail, err := f.svc.Active(ctx, "EXAM")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", examDetail.Records[0].Date)
}

func TestSnapshotServiceActivateSwitchesActive(t *testing.T) {
	f := newSnapshotFixture(t, 3)
	ctx := context.Background()

	first, err := f.svc.Approve(ctx, dto.ApproveSnapshotRequest{Name: "Week 1"}, "admin-1")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, dto.ApproveSnapshotRequest{Name: "Week 2"}, "admin-1")
	require.NoError(t, err)

	activated, err := f.svc.Activate(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)
	assert.Equal(t, 1, f.store.activeCount(models.SnapshotTimetable))

	active, err := f.svc.Active(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	list, err := f.svc.List(ctx, "TIMETABLE")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSnapshotServiceActivateMissing(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	svc := NewSnapshotService(&memorySnapshots{}, &memoryTimetable{}, examDetailsStub{}, teachersStub{}, tx, nil, nil, nil, nil, nil)

	_, err := svc.Activate(context.Background(), "snap-404")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotServiceActiveIsCached(t *testing.T) {
	f := newSnapshotFixture(t, 2)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, dto.ApproveSnapshotRequest{Name: "Week 1"}, "admin-1")
	require.NoError(t, err)
	_, err = f.svc.Active(ctx, "TIMETABLE")
	require.NoError(t, err)
	assert.True(t, f.redis.Exists(repository.ActiveSnapshotKey(models.SnapshotTimetable)))

	// Rename behind the service's back; the cached copy still wins.
	f.store.snapshots[0].Name = "renamed"
	cached, err := f.svc.Active(ctx, "TIMETABLE")
	require.NoError(t, err)
	assert.Equal(t, "Week 1", cached.Name)

	_, err = f.svc.Approve(ctx, dto.ApproveSnapshotRequest{Name: "Week 2"}, "admin-1")
	require.NoError(t, err)
	assert.False(t, f.redis.Exists(repository.ActiveSnapshotKey(models.SnapshotTimetable)))

	fresh, err := f.svc.Active(ctx, "TIMETABLE")
	require.NoError(t, err)
	assert.Equal(t, "Week 2", fresh.Name)
}

func TestSnapshotServiceActiveWithoutApproval(t *testing.T) {
	f := newSnapshotFixture(t, 0)

	_, err := f.svc.Active(context.Background(), "TIMETABLE")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Active(context.Background(), "HOLIDAY")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSnapshotServiceTeacherTimetable(t *testing.T) {
	f := newSnapshotFixture(t, 1)
	ctx := context.Background()

	draft, err := f.svc.TeacherTimetable(ctx, "teacher-2")
	require.NoError(t, err)
	require.Len(t, draft, 1)
	assert.Equal(t, "Tuesday", draft[0].Day)

	_, err = f.svc.Approve(ctx, dto.ApproveSnapshotRequest{Name: "Week 1"}, "admin-1")
	require.NoError(t, err)
	// Later draft edits are not visible once a snapshot is active.
	f.timetable.details = append(f.timetable.details, draftDetail("teacher-2", "Pak Budi", "Friday"))

	approved, err := f.svc.TeacherTimetable(ctx, "teacher-2")
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "Tuesday", approved[0].Day)

	_, err = f.svc.TeacherTimetable(ctx, "teacher-9")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSnapshotServiceReject(t *testing.T) {
	f := newSnapshotFixture(t, 0)

	resp, err := f.svc.Reject(context.Background(), dto.RejectSnapshotRequest{Reason: "clash on Friday"}, "admin-1")
	require.NoError(t, err)
	assert.True(t, resp.Regenerate)
	assert.Equal(t, "TIMETABLE", resp.Kind)
	assert.Empty(t, f.store.snapshots)

	_, err = f.svc.Reject(context.Background(), dto.RejectSnapshotRequest{}, "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSnapshotCodecRoundTrip(t *testing.T) {
	records := []models.SnapshotRecord{{Class: "10A", Course: "Biology", Teacher: "Bu Ratna", Room: "Lab", Day: "Monday", Start: "08:30", End: "10:45", Kind: "LAB"}}
	data, err := EncodeSnapshot(records)
	require.NoError(t, err)

	decoded, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, records, decoded)

	empty, err := EncodeSnapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))

	_, err = DecodeSnapshot([]byte("{broken"))
	assert.Error(t, err)
}
