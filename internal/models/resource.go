package models

import (
	"strings"
	"time"
)

// Room is a bookable room. Rooms whose name mentions "lab" host lab blocks.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsLab reports whether the room is lab-capable.
func (r Room) IsLab() bool {
	return strings.Contains(strings.ToLower(r.Name), "lab")
}

// Course represents a taught course.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Teacher represents an instructor. Subject is free text.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Subject   string    `db:"subject" json:"subject"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Class represents a class group.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Assignment binds a teacher to a course for a class. One per (class, course).
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AssignmentDetail includes display names for an assignment.
type AssignmentDetail struct {
	Assignment
	CourseName  string `db:"course_name" json:"course_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
