package scheduler

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// TimeRange is a start/end pair of "HH:MM" clock strings.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Slot is one schedulable period. Day holds a weekday name for timetable slots and an
// ISO date for exam slots.
type Slot struct {
	Day   string
	Start string
	End   string
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s-%s", s.Day, s.Start, s.End)
}

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// WorkWeek is Monday through Friday.
var WorkWeek = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// NormalizeDay returns the canonical weekday name ("Monday") for a case-insensitive input.
func NormalizeDay(day string) (string, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(day))]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrMalformedInput, fmt.Sprintf("unknown day %q", day))
	}
	return wd.String(), nil
}

// NormalizeDays canonicalises a day list and rejects unknown or repeated names.
func NormalizeDays(days []string) ([]string, error) {
	if len(days) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMalformedInput, "at least one day is required")
	}
	seen := make(map[string]struct{}, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		name, err := NormalizeDay(d)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[name]; dup {
			return nil, appErrors.Clone(appErrors.ErrMalformedInput, fmt.Sprintf("day %q listed twice", name))
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// ParseClock converts "HH:MM" to minutes after midnight.
func ParseClock(value string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil || len(strings.TrimSpace(value)) != 5 {
		return 0, appErrors.Clone(appErrors.ErrMalformedInput, fmt.Sprintf("invalid time %q, expected HH:MM", value))
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeRange validates both clock strings and returns them in canonical "HH:MM"
// form. Start must precede end.
func NormalizeRange(start, end string) (TimeRange, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeRange{}, err
	}
	if s >= e {
		return TimeRange{}, appErrors.Clone(appErrors.ErrMalformedInput, fmt.Sprintf("time range %s-%s must end after it starts", FormatClock(s), FormatClock(e)))
	}
	return TimeRange{Start: FormatClock(s), End: FormatClock(e)}, nil
}

// NormalizeTimeRanges validates an ordered slot list and rejects duplicates.
func NormalizeTimeRanges(ranges []TimeRange) ([]TimeRange, error) {
	if len(ranges) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMalformedInput, "at least one time slot is required")
	}
	seen := make(map[TimeRange]struct{}, len(ranges))
	out := make([]TimeRange, 0, len(ranges))
	for _, raw := range ranges {
		r, err := NormalizeRange(raw.Start, raw.End)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[r]; dup {
			return nil, appErrors.Clone(appErrors.ErrMalformedInput, fmt.Sprintf("time slot %s-%s listed twice", r.Start, r.End))
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
