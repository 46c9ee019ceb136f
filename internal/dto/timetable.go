package dto

import "github.com/noah-isme/sma-timetable-api/internal/scheduler"

// TimeSlotRequest is one "HH:MM" start/end pair.
type TimeSlotRequest struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// GenerateTimetableRequest regenerates the draft timetable. Empty fields fall back to
// the configured days and slots.
type GenerateTimetableRequest struct {
	Days      []string          `json:"days" validate:"omitempty,dive,required"`
	TimeSlots []TimeSlotRequest `json:"timeSlots" validate:"omitempty,dive"`
	Policy    string            `json:"policy" validate:"omitempty,oneof=lecture_lab pattern"`
}

// GenerateTimetableResponse reports what was booked.
type GenerateTimetableResponse struct {
	Created        int                        `json:"created"`
	Sessions       []string                   `json:"sessions"`
	UnderScheduled int                        `json:"underScheduled"`
	Gaps           []scheduler.UnderScheduled `json:"gaps"`
}

// RescheduleRequest moves a single entry.
type RescheduleRequest struct {
	Day    string `json:"day" validate:"required"`
	Start  string `json:"start" validate:"required"`
	End    string `json:"end" validate:"required"`
	RoomID string `json:"roomId"`
}

// ChangeRoomRequest moves an entry to another room at its current slot.
type ChangeRoomRequest struct {
	RoomID        string `json:"roomId" validate:"required"`
	EffectiveDate string `json:"effectiveDate" validate:"omitempty,datetime=2006-01-02"`
	Reason        string `json:"reason" validate:"max=500"`
}

// AlternativesQuery selects the class/course to find alternatives for.
type AlternativesQuery struct {
	ClassID   string `form:"classId" validate:"required"`
	CourseID  string `form:"courseId" validate:"required"`
	ExcludeID string `form:"excludeId"`
}

// AvailableRoomsQuery selects the slot to check.
type AvailableRoomsQuery struct {
	Day   string `form:"day" validate:"required"`
	Start string `form:"start" validate:"required"`
	End   string `form:"end" validate:"required"`
}
