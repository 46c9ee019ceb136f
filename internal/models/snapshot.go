package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SnapshotKind separates timetable and exam approvals.
type SnapshotKind string

const (
	SnapshotTimetable SnapshotKind = "TIMETABLE"
	SnapshotExam      SnapshotKind = "EXAM"
)

// Valid reports whether the kind is known.
func (k SnapshotKind) Valid() bool {
	return k == SnapshotTimetable || k == SnapshotExam
}

// ApprovedSnapshot is an immutable approved copy of a schedule. Only IsActive mutates.
type ApprovedSnapshot struct {
	ID          string         `db:"id" json:"id"`
	Kind        SnapshotKind   `db:"kind" json:"kind"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Data        types.JSONText `db:"data" json:"-"`
	ApprovedBy  string         `db:"approved_by" json:"approved_by"`
	ApprovedAt  time.Time      `db:"approved_at" json:"approved_at"`
	IsActive    bool           `db:"is_active" json:"is_active"`
}

// SnapshotRecord is one serialized session. Exam records leave Class, Teacher and Day
// empty; timetable records leave Date empty.
type SnapshotRecord struct {
	Class   string `json:"class"`
	Course  string `json:"course"`
	Teacher string `json:"teacher"`
	Room    string `json:"room"`
	Day     string `json:"day"`
	Date    string `json:"date"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Kind    string `json:"kind"`
}

// SnapshotDetail is a snapshot with its decoded records.
type SnapshotDetail struct {
	ApprovedSnapshot
	Records []SnapshotRecord `json:"records"`
}
