package service

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// EncodeSnapshot serializes records for the snapshot data column.
func EncodeSnapshot(records []models.SnapshotRecord) (types.JSONText, error) {
	if records == nil {
		records = []models.SnapshotRecord{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return types.JSONText(payload), nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(data types.JSONText) ([]models.SnapshotRecord, error) {
	records := []models.SnapshotRecord{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return records, nil
}

// RecordsFromTimetable converts draft entries into snapshot records.
func RecordsFromTimetable(entries []models.ScheduleEntryDetail) []models.SnapshotRecord {
	records := make([]models.SnapshotRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, models.SnapshotRecord{
			Class:   e.ClassName,
			Course:  e.CourseName,
			Teacher: e.TeacherName,
			Room:    e.RoomName,
			Day:     e.Day,
			Start:   e.StartTime,
			End:     e.EndTime,
			Kind:    string(e.Kind),
		})
	}
	return records
}

// RecordsFromExams converts draft exams into snapshot records.
func RecordsFromExams(entries []models.ExamEntryDetail) []models.SnapshotRecord {
	records := make([]models.SnapshotRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, models.SnapshotRecord{
			Course: e.CourseName,
			Room:   e.RoomName,
			Date:   e.ExamDate.Format("2006-01-02"),
			Start:  e.StartTime,
			End:    e.EndTime,
			Kind:   "EXAM",
		})
	}
	return records
}
