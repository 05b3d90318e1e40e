package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveScheduleDefaults(t *testing.T) {
	cfg, warnings := ResolveSchedule(ClinicSettings{}, testDay, SessionMorning)
	assert.Empty(t, warnings)
	assert.False(t, cfg.Closed)
	assert.Equal(t, 5*time.Minute, cfg.SlotDuration)
	assert.True(t, cfg.Start.Equal(at(10, 30)))
	assert.True(t, cfg.End.Equal(at(13, 0)))

	cfg, _ = ResolveSchedule(ClinicSettings{SlotDuration: 8}, testDay, SessionEvening)
	assert.Equal(t, 8*time.Minute, cfg.SlotDuration)
	assert.True(t, cfg.Start.Equal(at(18, 30)))
	assert.True(t, cfg.End.Equal(at(21, 30)))
}

func TestResolveScheduleClosure(t *testing.T) {
	settings := ClinicSettings{
		SlotDuration: 5,
		SpecialClosures: []Closure{
			{Date: "2026-03-02", Session: SessionMorning},
		},
	}

	cfg, _ := ResolveSchedule(settings, testDay, SessionMorning)
	assert.True(t, cfg.Closed)

	cfg, _ = ResolveSchedule(settings, testDay, SessionEvening)
	assert.False(t, cfg.Closed)

	cfg, _ = ResolveSchedule(settings, testDay.AddDate(0, 0, 1), SessionMorning)
	assert.False(t, cfg.Closed)
}

func TestResolveScheduleOverrideBeatsWeeklyDefault(t *testing.T) {
	settings := ClinicSettings{
		WeeklyDefaults: map[string]map[Session]Window{
			"monday": {SessionMorning: {Start: "09:00", End: "12:00"}},
		},
		Overrides: []SessionOverride{
			{Date: "2026-03-02", Session: SessionMorning, Start: "11:00", End: "12:30"},
		},
	}

	cfg, warnings := ResolveSchedule(settings, testDay, SessionMorning)
	assert.Empty(t, warnings)
	assert.True(t, cfg.Start.Equal(at(11, 0)))
	assert.True(t, cfg.End.Equal(at(12, 30)))

	// next Monday has no override, so the weekly default applies
	cfg, _ = ResolveSchedule(settings, testDay.AddDate(0, 0, 7), SessionMorning)
	assert.True(t, cfg.Start.Equal(testDay.AddDate(0, 0, 7).Add(9*time.Hour)))

	// Tuesday falls back to the fixed window
	cfg, _ = ResolveSchedule(settings, testDay.AddDate(0, 0, 1), SessionMorning)
	assert.True(t, cfg.Start.Equal(testDay.AddDate(0, 0, 1).Add(10*time.Hour+30*time.Minute)))
}

func TestResolveScheduleMalformedOverride(t *testing.T) {
	settings := ClinicSettings{
		Overrides: []SessionOverride{
			{Date: "2026-03-02", Session: SessionEvening, Start: "7pm", End: "21:00"},
			{Date: "2026-03-02", Session: SessionMorning, Start: "12:00", End: "11:00"},
		},
	}

	cfg, warnings := ResolveSchedule(settings, testDay, SessionEvening)
	assert.Len(t, warnings, 1)
	assert.True(t, cfg.Start.Equal(at(18, 30)))

	cfg, warnings = ResolveSchedule(settings, testDay, SessionMorning)
	assert.Len(t, warnings, 1)
	assert.True(t, cfg.Start.Equal(at(10, 30)))
}
