// Command draft_diff compares the draft timetable with the active approved snapshot so a
// coordinator can review what an approval would change.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type session struct {
	Class   string
	Course  string
	Teacher string
	Room    string
	Day     string
	Start   string
	End     string
}

func (s session) key() string {
	return strings.Join([]string{s.Day, s.Start, s.End, s.Class, s.Course, s.Teacher, s.Room}, "|")
}

func (s session) String() string {
	return fmt.Sprintf("%s %s-%s %s %s (%s) in %s", s.Day, s.Start, s.End, s.Class, s.Course, s.Teacher, s.Room)
}

type draftEntry struct {
	ClassName   string `json:"class_name"`
	CourseName  string `json:"course_name"`
	TeacherName string `json:"teacher_name"`
	RoomName    string `json:"room_name"`
	Day         string `json:"day"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

type snapshotRecord struct {
	Class   string `json:"class"`
	Course  string `json:"course"`
	Teacher string `json:"teacher"`
	Room    string `json:"room"`
	Day     string `json:"day"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope[T any] struct {
	Data  []T           `json:"data"`
	Error *apiErrorBody `json:"error"`
}

type report struct {
	Added   []session
	Removed []session
	Same    int
}

func main() {
	var (
		base       string
		prefix     string
		timeout    time.Duration
		failOnDiff bool
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "timetable API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API prefix")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.BoolVar(&failOnDiff, "fail-on-diff", false, "exit 1 when the draft differs from the active snapshot")
	flag.Parse()

	client := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")+prefix).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetHeader("Accept", "application/json")

	draft, err := fetchDraft(client)
	if err != nil {
		log.Fatalf("failed to load draft: %v", err)
	}
	active, err := fetchActive(client)
	if err != nil {
		log.Fatalf("failed to load active snapshot: %v", err)
	}

	r := diff(active, draft)
	printReport(r)
	if failOnDiff && (len(r.Added) > 0 || len(r.Removed) > 0) {
		os.Exit(1)
	}
}

func fetchDraft(client *resty.Client) ([]session, error) {
	var body envelope[draftEntry]
	resp, err := client.R().SetResult(&body).SetError(&body).Get("/timetable")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp.StatusCode(), body.Error)
	}
	out := make([]session, 0, len(body.Data))
	for _, e := range body.Data {
		out = append(out, session{Class: e.ClassName, Course: e.CourseName, Teacher: e.TeacherName, Room: e.RoomName, Day: e.Day, Start: e.StartTime, End: e.EndTime})
	}
	return out, nil
}

// fetchActive returns nil without error when nothing has been approved yet.
func fetchActive(client *resty.Client) ([]session, error) {
	var body envelope[snapshotRecord]
	resp, err := client.R().SetResult(&body).SetError(&body).SetQueryParam("source", "active").Get("/timetable")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, apiError(resp.StatusCode(), body.Error)
	}
	out := make([]session, 0, len(body.Data))
	for _, r := range body.Data {
		out = append(out, session{Class: r.Class, Course: r.Course, Teacher: r.Teacher, Room: r.Room, Day: r.Day, Start: r.Start, End: r.End})
	}
	return out, nil
}

func apiError(status int, e *apiErrorBody) error {
	if e == nil {
		return fmt.Errorf("unexpected status %d", status)
	}
	return fmt.Errorf("status %d: %s (%s)", status, e.Message, e.Code)
}

func diff(before, after []session) report {
	count := func(list []session) map[string]int {
		m := make(map[string]int, len(list))
		for _, s := range list {
			m[s.key()]++
		}
		return m
	}
	old, cur := count(before), count(after)

	var r report
	for _, s := range after {
		if old[s.key()] > 0 {
			old[s.key()]--
			r.Same++
			continue
		}
		r.Added = append(r.Added, s)
	}
	for _, s := range before {
		if cur[s.key()] > 0 {
			cur[s.key()]--
			continue
		}
		r.Removed = append(r.Removed, s)
	}

	byKey := func(list []session) {
		sort.Slice(list, func(i, j int) bool { return list[i].key() < list[j].key() })
	}
	byKey(r.Added)
	byKey(r.Removed)
	return r
}

func printReport(r report) {
	fmt.Println("Draft vs Active Timetable")
	fmt.Println("=========================")
	for _, s := range r.Removed {
		fmt.Printf("- %s\n", s)
	}
	for _, s := range r.Added {
		fmt.Printf("+ %s\n", s)
	}
	fmt.Printf("Unchanged: %d, Added: %d, Removed: %d\n", r.Same, len(r.Added), len(r.Removed))
}
