package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, PolicyLectureLab, cfg.Scheduler.Policy)
	assert.Equal(t, 3, cfg.Scheduler.LecturesPerCourse)
	assert.True(t, cfg.Scheduler.LabBlocks)
	assert.Equal(t, RescheduleCheckRoom, cfg.Scheduler.RescheduleCheck)
	assert.Equal(t, []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}, cfg.Scheduler.Days)
	require.Len(t, cfg.Scheduler.TimeSlots, 7)
	assert.Equal(t, TimeSlot{Start: "08:30", End: "09:30"}, cfg.Scheduler.TimeSlots[0])
	assert.Equal(t, 5, cfg.Scheduler.ExamWindowDays)
	assert.Equal(t, 10*time.Minute, cfg.Snapshots.CacheTTL)
}

func TestFromViperNormalisesUnknownPolicy(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SCHEDULER_POLICY", "genetic")
	v.Set("SCHEDULER_RESCHEDULE_CHECK", "FULL")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, PolicyLectureLab, cfg.Scheduler.Policy)
	assert.Equal(t, RescheduleCheckFull, cfg.Scheduler.RescheduleCheck)
}

func TestFromViperRejectsBrokenTimeSlots(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SCHEDULER_TIME_SLOTS", "09:00-10:00,10:00")

	_, err := fromViper(v)
	require.Error(t, err)
}
