package models

import "time"

// ExamEntry is one scheduled exam for a course.
type ExamEntry struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	RoomID    string    `db:"room_id" json:"room_id"`
	ExamDate  time.Time `db:"exam_date" json:"exam_date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ExamEntryDetail includes the course and room names.
type ExamEntryDetail struct {
	ExamEntry
	CourseName string `db:"course_name" json:"course_name"`
	RoomName   string `db:"room_name" json:"room_name"`
}
