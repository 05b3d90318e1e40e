package queue

import (
	"fmt"
	"strings"
	"time"
)

// ScheduleConfig is the effective shape of one session of one date.
type ScheduleConfig struct {
	SlotDuration time.Duration
	Start        time.Time
	End          time.Time
	Closed       bool
}

// ResolveSchedule applies closures, per-date overrides and weekly defaults
// to produce the session window for date. A closed session returns
// immediately with only Closed set. Malformed clock strings fall back to the
// next source and are reported in warnings.
func ResolveSchedule(settings ClinicSettings, date time.Time, session Session) (ScheduleConfig, []string) {
	day := FormatDate(date)
	for _, c := range settings.SpecialClosures {
		if c.Date == day && c.Session == session {
			return ScheduleConfig{Closed: true}, nil
		}
	}

	slot := settings.SlotDuration
	if slot <= 0 {
		slot = DefaultSlotMinutes
	}

	var warnings []string
	window := defaultWindow(session)

	weekday := date.In(ClinicZone).Weekday()
	if wd, ok := settings.WeeklyDefaults[strings.ToLower(weekday.String())]; ok {
		if w, ok := wd[session]; ok {
			parsed, err := parseWindow(w.Start, w.End)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("weekly default %s/%s: %v", weekday, session, err))
			} else {
				window = parsed
			}
		}
	}

	for _, o := range settings.Overrides {
		if o.Date != day || o.Session != session {
			continue
		}
		parsed, err := parseWindow(o.Start, o.End)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("override %s/%s: %v", day, session, err))
			continue
		}
		window = parsed
	}

	return ScheduleConfig{
		SlotDuration: time.Duration(slot) * time.Minute,
		Start:        atMinute(date, window.start),
		End:          atMinute(date, window.end),
	}, warnings
}

func parseWindow(start, end string) (minuteWindow, error) {
	s, err := parseClock(start)
	if err != nil {
		return minuteWindow{}, err
	}
	e, err := parseClock(end)
	if err != nil {
		return minuteWindow{}, err
	}
	if e <= s {
		return minuteWindow{}, fmt.Errorf("window %s-%s ends before it starts", start, end)
	}
	return minuteWindow{start: s, end: e}, nil
}
