package scheduler

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const (
	dateLayout        = "2006-01-02"
	DefaultExamWindow = 5
)

// ExamSlots are the fixed two-hour exam sittings of each day.
var ExamSlots = []TimeRange{
	{Start: "09:00", End: "11:00"},
	{Start: "11:30", End: "13:30"},
	{Start: "14:00", End: "16:00"},
}

// NextMonday returns the first Monday strictly after today.
func NextMonday(today time.Time) time.Time {
	d := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(d.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return d.AddDate(0, 0, offset)
}

// ExamWindow lists numDays exam dates from start, skipping weekends.
func ExamWindow(start time.Time, numDays int) []time.Time {
	if numDays <= 0 {
		numDays = DefaultExamWindow
	}
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 0, numDays)
	for len(dates) < numDays {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

// ExamInput is everything the planner needs. CourseClasses maps a course id to the
// classes taking it.
type ExamInput struct {
	Courses       []models.Course
	Rooms         []models.Room
	CourseClasses map[string][]string
	Existing      []models.ExamEntry
	Dates         []time.Time
}

// ExamPlan is the planner output.
type ExamPlan struct {
	Entries []models.ExamEntry
	Skipped int
}

// PlanExams places one exam per course, scanning dates x sittings x rooms in order.
// Courses already present in Existing are left alone and their sittings stay booked.
func PlanExams(in ExamInput) ExamPlan {
	courses := append([]models.Course(nil), in.Courses...)
	sort.SliceStable(courses, func(i, j int) bool {
		return strings.ToLower(courses[i].Name) < strings.ToLower(courses[j].Name)
	})
	rooms := append([]models.Room(nil), in.Rooms...)
	sort.SliceStable(rooms, func(i, j int) bool {
		return strings.ToLower(rooms[i].Name) < strings.ToLower(rooms[j].Name)
	})

	alloc := NewAllocator()
	scheduled := make(map[string]struct{}, len(in.Existing))
	for _, e := range in.Existing {
		s := Slot{Day: e.ExamDate.Format(dateLayout), Start: e.StartTime, End: e.EndTime}
		alloc.ReserveRoom(s, e.RoomID)
		for _, classID := range in.CourseClasses[e.CourseID] {
			alloc.ReserveClass(s, classID)
		}
		scheduled[e.CourseID] = struct{}{}
	}

	var plan ExamPlan
	for _, course := range courses {
		if _, done := scheduled[course.ID]; done {
			continue
		}
		entry, ok := placeExam(alloc, course.ID, in.CourseClasses[course.ID], rooms, in.Dates)
		if !ok {
			plan.Skipped++
			continue
		}
		plan.Entries = append(plan.Entries, entry)
	}
	return plan
}

func placeExam(alloc *Allocator, courseID string, classes []string, rooms []models.Room, dates []time.Time) (models.ExamEntry, bool) {
	for _, date := range dates {
		for _, t := range ExamSlots {
			s := Slot{Day: date.Format(dateLayout), Start: t.Start, End: t.End}
			if !classesFree(alloc, s, classes) {
				continue
			}
			for _, room := range rooms {
				if !alloc.RoomFree(s, room.ID) {
					continue
				}
				alloc.ReserveRoom(s, room.ID)
				for _, classID := range classes {
					alloc.ReserveClass(s, classID)
				}
				return models.ExamEntry{
					CourseID:  courseID,
					RoomID:    room.ID,
					ExamDate:  date,
					StartTime: t.Start,
					EndTime:   t.End,
				}, true
			}
		}
	}
	return models.ExamEntry{}, false
}

func classesFree(alloc *Allocator, s Slot, classes []string) bool {
	for _, classID := range classes {
		if !alloc.ClassFree(s, classID) {
			return false
		}
	}
	return true
}
