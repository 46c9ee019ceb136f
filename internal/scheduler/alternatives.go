package scheduler

import "github.com/noah-isme/sma-timetable-api/internal/models"

// AlternativeSlots are the candidate hours offered when suggesting alternatives.
var AlternativeSlots = []TimeRange{
	{Start: "09:00", End: "10:00"},
	{Start: "10:00", End: "11:00"},
	{Start: "11:00", End: "12:00"},
}

// Alternative is a free (day, slot, room) candidate.
type Alternative struct {
	Day      string `json:"day"`
	Start    string `json:"start"`
	End      string `json:"end"`
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
}

// SuggestAlternatives lists every work-week candidate where both the room and the
// teacher are free. The entry with excludeID is ignored so it can be moved.
func SuggestAlternatives(teacherID string, rooms []models.Room, entries []models.ScheduleEntry, excludeID string) []Alternative {
	alloc := NewAllocator()
	for _, e := range entries {
		if excludeID != "" && e.ID == excludeID {
			continue
		}
		alloc.Occupy(e)
	}

	out := make([]Alternative, 0)
	for _, day := range WorkWeek {
		for _, t := range AlternativeSlots {
			s := Slot{Day: day, Start: t.Start, End: t.End}
			if !alloc.TeacherFree(s, teacherID) {
				continue
			}
			for _, room := range rooms {
				if alloc.RoomFree(s, room.ID) {
					out = append(out, Alternative{Day: day, Start: t.Start, End: t.End, RoomID: room.ID, RoomName: room.Name})
				}
			}
		}
	}
	return out
}

// AvailableRooms returns rooms with no entry at exactly the given slot.
func AvailableRooms(s Slot, rooms []models.Room, entries []models.ScheduleEntry) []models.Room {
	busy := make(map[string]struct{})
	for _, e := range entries {
		if e.Day == s.Day && e.StartTime == s.Start && e.EndTime == s.End {
			busy[e.RoomID] = struct{}{}
		}
	}
	out := make([]models.Room, 0, len(rooms))
	for _, room := range rooms {
		if _, taken := busy[room.ID]; !taken {
			out = append(out, room)
		}
	}
	return out
}

// DetectConflict checks a moved entry against the entries already booked at its target
// slot. With full unset only the room is compared; otherwise teacher and class too.
// The moved entry itself is never reported.
func DetectConflict(moved models.ScheduleEntry, existing []models.ScheduleEntry, full bool) *models.ScheduleConflict {
	for _, e := range existing {
		if e.ID == moved.ID {
			continue
		}
		if e.Day != moved.Day || e.StartTime != moved.StartTime || e.EndTime != moved.EndTime {
			continue
		}
		dimension := ""
		switch {
		case e.RoomID == moved.RoomID:
			dimension = models.DimensionRoom
		case full && e.TeacherID == moved.TeacherID:
			dimension = models.DimensionTeacher
		case full && e.ClassID == moved.ClassID:
			dimension = models.DimensionClass
		}
		if dimension == "" {
			continue
		}
		return &models.ScheduleConflict{
			EntryID:   e.ID,
			ClassID:   e.ClassID,
			CourseID:  e.CourseID,
			TeacherID: e.TeacherID,
			RoomID:    e.RoomID,
			Day:       e.Day,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
			Dimension: dimension,
		}
	}
	return nil
}
