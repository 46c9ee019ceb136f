package models

import "time"

// SessionKind distinguishes single-slot lectures from lab block halves.
type SessionKind string

const (
	SessionLecture SessionKind = "LECTURE"
	SessionLab     SessionKind = "LAB"
)

// Conflict dimensions.
const (
	DimensionRoom    = "ROOM"
	DimensionTeacher = "TEACHER"
	DimensionClass   = "CLASS"
)

// ScheduleEntry is one occupied hour-slot of the draft timetable.
type ScheduleEntry struct {
	ID        string      `db:"id" json:"id"`
	ClassID   string      `db:"class_id" json:"class_id"`
	CourseID  string      `db:"course_id" json:"course_id"`
	TeacherID string      `db:"teacher_id" json:"teacher_id"`
	RoomID    string      `db:"room_id" json:"room_id"`
	Day       string      `db:"day" json:"day"`
	StartTime string      `db:"start_time" json:"start_time"`
	EndTime   string      `db:"end_time" json:"end_time"`
	Kind      SessionKind `db:"kind" json:"kind"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// ScheduleEntryDetail carries resource names alongside the entry.
type ScheduleEntryDetail struct {
	ScheduleEntry
	ClassName   string `db:"class_name" json:"class_name"`
	CourseName  string `db:"course_name" json:"course_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	RoomName    string `db:"room_name" json:"room_name"`
}

// ScheduleFilter describes query params for listing entries.
type ScheduleFilter struct {
	ClassID   string
	TeacherID string
	RoomID    string
	Day       string
}

// ScheduleConflict describes an existing entry that causes a conflict.
type ScheduleConflict struct {
	EntryID   string `json:"entry_id"`
	ClassID   string `json:"class_id"`
	CourseID  string `json:"course_id"`
	TeacherID string `json:"teacher_id"`
	RoomID    string `json:"room_id"`
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Dimension string `json:"dimension"`
}

// ScheduleConflictError is returned when a move collides with an existing entry.
type ScheduleConflictError struct {
	Type     string             `json:"type"`
	Message  string             `json:"message"`
	Conflict ScheduleConflict   `json:"conflict"`
	Errors   []ScheduleConflict `json:"errors,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// RoomChange is an append-only record of a room move.
type RoomChange struct {
	ID            string    `db:"id" json:"id"`
	EntryID       string    `db:"entry_id" json:"entry_id"`
	ClassID       string    `db:"class_id" json:"class_id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	OldRoomID     string    `db:"old_room_id" json:"old_room_id"`
	NewRoomID     string    `db:"new_room_id" json:"new_room_id"`
	EffectiveDate string    `db:"effective_date" json:"effective_date"`
	Reason        string    `db:"reason" json:"reason"`
	ChangedBy     string    `db:"changed_by" json:"changed_by"`
	ChangedAt     time.Time `db:"changed_at" json:"changed_at"`
}

// RoomChangeDetail includes names for history listings.
type RoomChangeDetail struct {
	RoomChange
	ClassName   string `db:"class_name" json:"class_name"`
	CourseName  string `db:"course_name" json:"course_name"`
	OldRoomName string `db:"old_room_name" json:"old_room_name"`
	NewRoomName string `db:"new_room_name" json:"new_room_name"`
}
