package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestClassRepositoryFindAssignment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"id", "class_id", "course_id", "teacher_id", "created_at"}).
		AddRow("as-1", "class-1", "course-1", "teacher-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_course_teachers WHERE class_id = $1 AND course_id = $2")).
		WithArgs("class-1", "course-1").
		WillReturnRows(rows)

	assignment, err := repo.FindAssignment(context.Background(), "class-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", assignment.TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindAssignmentMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_course_teachers WHERE class_id = $1 AND course_id = $2")).
		WithArgs("class-1", "course-9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindAssignment(context.Background(), "class-1", "course-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestClassRepositoryCreateAssignment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_course_teachers")).
		WithArgs(sqlmock.AnyArg(), "class-1", "course-1", "teacher-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.Assignment{ClassID: "class-1", CourseID: "course-1", TeacherID: "teacher-1"}
	require.NoError(t, repo.CreateAssignment(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "capacity", "created_at"}).
		AddRow("r-1", "Chemistry Lab", 30, time.Now()).
		AddRow("r-2", "Room 101", 36, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity, created_at FROM rooms ORDER BY name ASC")).
		WillReturnRows(rows)

	rooms, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.True(t, rooms[0].IsLab())
	assert.False(t, rooms[1].IsLab())
	assert.NoError(t, mock.ExpectationsWereMet())
}
