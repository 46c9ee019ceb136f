package scheduler

import "github.com/noah-isme/sma-timetable-api/internal/models"

type occupancyKey struct {
	day   string
	start string
	end   string
	id    string
}

func keyFor(s Slot, id string) occupancyKey {
	return occupancyKey{day: s.Day, start: s.Start, end: s.End, id: id}
}

// Allocator tracks which rooms, teachers and classes are busy at each slot.
// It is not safe for concurrent use.
type Allocator struct {
	rooms    map[occupancyKey]struct{}
	teachers map[occupancyKey]struct{}
	classes  map[occupancyKey]struct{}
}

// NewAllocator returns an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{
		rooms:    make(map[occupancyKey]struct{}),
		teachers: make(map[occupancyKey]struct{}),
		classes:  make(map[occupancyKey]struct{}),
	}
}

// IsFree is true iff room, teacher and class are all unoccupied at the slot.
func (a *Allocator) IsFree(s Slot, roomID, teacherID, classID string) bool {
	return a.RoomFree(s, roomID) && a.TeacherFree(s, teacherID) && a.ClassFree(s, classID)
}

// Reserve marks the room, teacher and class busy. Callers check IsFree first.
func (a *Allocator) Reserve(s Slot, roomID, teacherID, classID string) {
	a.ReserveRoom(s, roomID)
	a.teachers[keyFor(s, teacherID)] = struct{}{}
	a.ReserveClass(s, classID)
}

// Occupy seeds the allocator from an already persisted entry.
func (a *Allocator) Occupy(e models.ScheduleEntry) {
	a.Reserve(Slot{Day: e.Day, Start: e.StartTime, End: e.EndTime}, e.RoomID, e.TeacherID, e.ClassID)
}

// ReserveRoom marks only the room busy.
func (a *Allocator) ReserveRoom(s Slot, roomID string) {
	a.rooms[keyFor(s, roomID)] = struct{}{}
}

// ReserveClass marks only the class busy.
func (a *Allocator) ReserveClass(s Slot, classID string) {
	a.classes[keyFor(s, classID)] = struct{}{}
}

func (a *Allocator) RoomFree(s Slot, roomID string) bool {
	_, busy := a.rooms[keyFor(s, roomID)]
	return !busy
}

func (a *Allocator) TeacherFree(s Slot, teacherID string) bool {
	_, busy := a.teachers[keyFor(s, teacherID)]
	return !busy
}

func (a *Allocator) ClassFree(s Slot, classID string) bool {
	_, busy := a.classes[keyFor(s, classID)]
	return !busy
}
