package scheduler

import "github.com/noah-isme/sma-timetable-api/internal/models"

// weeklyPatterns are the meeting patterns of the pattern policy.
var weeklyPatterns = [][]string{
	{"Monday", "Wednesday", "Friday"},
	{"Tuesday", "Thursday"},
	{"Monday", "Wednesday"},
	{"Monday", "Friday"},
	{"Wednesday", "Friday"},
}

// placePattern books 2-3 lectures on a weekly pattern at one per-course slot index,
// retrying other slots on the same day when the preferred one is taken.
func (r *run) placePattern(a models.Assignment) {
	pattern := r.pickPattern()
	preferred := r.rng.Intn(len(r.slots))

	order := make([]TimeRange, 0, len(r.slots))
	order = append(order, r.slots[preferred])
	for i, t := range r.slots {
		if i != preferred {
			order = append(order, t)
		}
	}

	placed := 0
	for _, day := range pattern {
		rooms := append([]models.Room(nil), r.rooms...)
		r.rng.Shuffle(len(rooms), func(i, j int) { rooms[i], rooms[j] = rooms[j], rooms[i] })
		if r.placeOnDay(a, day, order, rooms) {
			placed++
		}
	}

	if placed < len(pattern) {
		r.underScheduled(a, placed, len(pattern), false)
	}
}

// pickPattern chooses a random pattern restricted to the requested days.
func (r *run) pickPattern() []string {
	requested := make(map[string]struct{}, len(r.days))
	for _, d := range r.days {
		requested[d] = struct{}{}
	}

	var usable [][]string
	for _, p := range weeklyPatterns {
		var kept []string
		for _, d := range p {
			if _, ok := requested[d]; ok {
				kept = append(kept, d)
			}
		}
		if len(kept) > 0 {
			usable = append(usable, kept)
		}
	}
	if len(usable) == 0 {
		n := len(r.days)
		if n > 2 {
			n = 2
		}
		return r.days[:n]
	}
	return usable[r.rng.Intn(len(usable))]
}
