package scheduler

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Generation policies.
const (
	PolicyLectureLab = "lecture_lab"
	PolicyPattern    = "pattern"
)

const defaultLecturesPerCourse = 3

// Resources is the in-memory resource model handed to the generator.
type Resources struct {
	Rooms       []models.Room
	Courses     []models.Course
	Teachers    []models.Teacher
	Classes     []models.Class
	Assignments []models.Assignment
}

// Options tunes generation.
type Options struct {
	Policy            string
	LecturesPerCourse int
	LabBlocks         bool
}

// UnderScheduled reports an assignment that did not reach its cadence.
type UnderScheduled struct {
	ClassID   string `json:"class_id"`
	CourseID  string `json:"course_id"`
	TeacherID string `json:"teacher_id"`
	Class     string `json:"class"`
	Course    string `json:"course"`
	Placed    int    `json:"placed"`
	Required  int    `json:"required"`
	LabPlaced bool   `json:"lab_placed"`
}

// Result is the outcome of one generation run.
type Result struct {
	Entries        []models.ScheduleEntry
	Summaries      []string
	UnderScheduled []UnderScheduled
}

// Generator assigns class/course/teacher triples to day/slot/room combinations.
type Generator struct {
	rng  *rand.Rand
	opts Options
}

// NewGenerator builds a generator. A nil rng is seeded from the clock.
func NewGenerator(rng *rand.Rand, opts Options) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.LecturesPerCourse <= 0 {
		opts.LecturesPerCourse = defaultLecturesPerCourse
	}
	if opts.Policy == "" {
		opts.Policy = PolicyLectureLab
	}
	return &Generator{rng: rng, opts: opts}
}

// run holds per-generation state.
type run struct {
	alloc   *Allocator
	days    []string
	slots   []TimeRange
	regular []models.Room
	labs    []models.Room
	rooms   []models.Room
	names   nameIndex
	result  *Result
	rng     *rand.Rand
}

type nameIndex struct {
	rooms    map[string]string
	courses  map[string]string
	teachers map[string]string
	classes  map[string]string
}

func indexNames(res Resources) nameIndex {
	idx := nameIndex{
		rooms:    make(map[string]string, len(res.Rooms)),
		courses:  make(map[string]string, len(res.Courses)),
		teachers: make(map[string]string, len(res.Teachers)),
		classes:  make(map[string]string, len(res.Classes)),
	}
	for _, r := range res.Rooms {
		idx.rooms[r.ID] = r.Name
	}
	for _, c := range res.Courses {
		idx.courses[c.ID] = c.Name
	}
	for _, t := range res.Teachers {
		idx.teachers[t.ID] = t.Name
	}
	for _, c := range res.Classes {
		idx.classes[c.ID] = c.Name
	}
	return idx
}

// Generate builds a fresh draft timetable over the given days and ordered time slots.
func (g *Generator) Generate(res Resources, days []string, slots []TimeRange) (*Result, error) {
	days, err := NormalizeDays(days)
	if err != nil {
		return nil, err
	}
	slots, err = NormalizeTimeRanges(slots)
	if err != nil {
		return nil, err
	}

	r := &run{
		alloc:  NewAllocator(),
		days:   days,
		slots:  slots,
		rooms:  res.Rooms,
		names:  indexNames(res),
		result: &Result{},
		rng:    g.rng,
	}
	for _, room := range res.Rooms {
		if room.IsLab() {
			r.labs = append(r.labs, room)
		} else {
			r.regular = append(r.regular, room)
		}
	}

	byClass := make(map[string][]models.Assignment)
	for _, a := range res.Assignments {
		byClass[a.ClassID] = append(byClass[a.ClassID], a)
	}

	classes := append([]models.Class(nil), res.Classes...)
	g.rng.Shuffle(len(classes), func(i, j int) { classes[i], classes[j] = classes[j], classes[i] })

	for _, class := range classes {
		assignments := append([]models.Assignment(nil), byClass[class.ID]...)
		g.rng.Shuffle(len(assignments), func(i, j int) { assignments[i], assignments[j] = assignments[j], assignments[i] })
		for _, a := range assignments {
			if g.opts.Policy == PolicyPattern {
				r.placePattern(a)
				continue
			}
			g.placeLectureLab(r, a)
		}
	}

	return r.result, nil
}

func (g *Generator) placeLectureLab(r *run, a models.Assignment) {
	labPlaced := false
	if g.opts.LabBlocks {
		labPlaced = r.placeLab(a)
	}

	placed := r.placeLectures(a, g.opts.LecturesPerCourse)
	if placed < g.opts.LecturesPerCourse {
		placed += r.fallbackLectures(a, g.opts.LecturesPerCourse-placed)
	}

	if placed < g.opts.LecturesPerCourse || (g.opts.LabBlocks && !labPlaced) {
		r.underScheduled(a, placed, g.opts.LecturesPerCourse, labPlaced)
	}
}

// placeLab books two adjacent slots on one day in one room.
func (r *run) placeLab(a models.Assignment) bool {
	if len(r.slots) < 2 {
		return false
	}
	candidates := append(append([]models.Room(nil), r.labs...), r.regular...)
	for _, day := range r.shuffledDays() {
		for _, room := range candidates {
			for i := 0; i+1 < len(r.slots); i++ {
				first := Slot{Day: day, Start: r.slots[i].Start, End: r.slots[i].End}
				second := Slot{Day: day, Start: r.slots[i+1].Start, End: r.slots[i+1].End}
				if !r.alloc.IsFree(first, room.ID, a.TeacherID, a.ClassID) || !r.alloc.IsFree(second, room.ID, a.TeacherID, a.ClassID) {
					continue
				}
				r.book(a, first, room, models.SessionLab)
				r.book(a, second, room, models.SessionLab)
				return true
			}
		}
	}
	return false
}

// placeLectures books single slots on distinct days, regular rooms first.
func (r *run) placeLectures(a models.Assignment, want int) int {
	candidates := append(append([]models.Room(nil), r.regular...), r.labs...)
	placed := 0
	for _, day := range r.shuffledDays() {
		if placed == want {
			break
		}
		if r.placeOnDay(a, day, r.shuffledSlots(), candidates) {
			placed++
		}
	}
	return placed
}

func (r *run) placeOnDay(a models.Assignment, day string, slots []TimeRange, rooms []models.Room) bool {
	for _, t := range slots {
		s := Slot{Day: day, Start: t.Start, End: t.End}
		for _, room := range rooms {
			if r.alloc.IsFree(s, room.ID, a.TeacherID, a.ClassID) {
				r.book(a, s, room, models.SessionLecture)
				return true
			}
		}
	}
	return false
}

// fallbackLectures scans day x slot x room in fixed order.
func (r *run) fallbackLectures(a models.Assignment, want int) int {
	placed := 0
	for _, day := range r.days {
		for _, t := range r.slots {
			s := Slot{Day: day, Start: t.Start, End: t.End}
			for _, room := range r.rooms {
				if placed == want {
					return placed
				}
				if r.alloc.IsFree(s, room.ID, a.TeacherID, a.ClassID) {
					r.book(a, s, room, models.SessionLecture)
					placed++
					break
				}
			}
		}
	}
	return placed
}

func (r *run) book(a models.Assignment, s Slot, room models.Room, kind models.SessionKind) {
	r.alloc.Reserve(s, room.ID, a.TeacherID, a.ClassID)
	entry := models.ScheduleEntry{
		ClassID:   a.ClassID,
		CourseID:  a.CourseID,
		TeacherID: a.TeacherID,
		RoomID:    room.ID,
		Day:       s.Day,
		StartTime: s.Start,
		EndTime:   s.End,
		Kind:      kind,
	}
	r.result.Entries = append(r.result.Entries, entry)

	summary := fmt.Sprintf("%s - %s in %s by %s on %s %s-%s",
		r.names.classes[a.ClassID], r.names.courses[a.CourseID], room.Name,
		r.names.teachers[a.TeacherID], s.Day, s.Start, s.End)
	if kind == models.SessionLab {
		summary += " [lab]"
	}
	r.result.Summaries = append(r.result.Summaries, summary)
}

func (r *run) underScheduled(a models.Assignment, placed, required int, lab bool) {
	r.result.UnderScheduled = append(r.result.UnderScheduled, UnderScheduled{
		ClassID:   a.ClassID,
		CourseID:  a.CourseID,
		TeacherID: a.TeacherID,
		Class:     r.names.classes[a.ClassID],
		Course:    r.names.courses[a.CourseID],
		Placed:    placed,
		Required:  required,
		LabPlaced: lab,
	})
}

func (r *run) shuffledDays() []string {
	days := append([]string(nil), r.days...)
	r.rng.Shuffle(len(days), func(i, j int) { days[i], days[j] = days[j], days[i] })
	return days
}

func (r *run) shuffledSlots() []TimeRange {
	slots := append([]TimeRange(nil), r.slots...)
	r.rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })
	return slots
}
