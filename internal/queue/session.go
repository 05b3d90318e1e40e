package queue

import (
	"errors"
	"fmt"
	"time"
)

type Session string

const (
	SessionNone    Session = "none"
	SessionMorning Session = "morning"
	SessionEvening Session = "evening"
)

// Sessions lists the bookable sessions of a clinic day in order.
var Sessions = []Session{SessionMorning, SessionEvening}

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrInvalidDate    = errors.New("invalid date")
)

// ClinicZone is the clinic's wall clock: a fixed +05:30 offset, no DST.
var ClinicZone = time.FixedZone("IST", 5*60*60+30*60)

const dateLayout = "2006-01-02"

var (
	morningWindow = minuteWindow{start: 10*60 + 30, end: 13 * 60}
	eveningWindow = minuteWindow{start: 18*60 + 30, end: 21*60 + 30}
)

type minuteWindow struct {
	start int
	end   int
}

func (w minuteWindow) contains(m int) bool {
	return m >= w.start && m < w.end
}

// DeriveSession classifies an instant into the clinic session it falls in.
func DeriveSession(t time.Time) Session {
	local := t.In(ClinicZone)
	m := local.Hour()*60 + local.Minute()
	switch {
	case morningWindow.contains(m):
		return SessionMorning
	case eveningWindow.contains(m):
		return SessionEvening
	default:
		return SessionNone
	}
}

func ParseSession(raw string) (Session, error) {
	switch s := Session(compactLabel(raw)); s {
	case SessionMorning, SessionEvening:
		return s, nil
	default:
		return SessionNone, fmt.Errorf("%w: %q", ErrInvalidSession, raw)
	}
}

// ClinicDate returns clinic-local midnight of the day containing t.
func ClinicDate(t time.Time) time.Time {
	local := t.In(ClinicZone)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, ClinicZone)
}

// ParseDate parses a "2006-01-02" clinic-local date.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, raw, ClinicZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return d, nil
}

func FormatDate(date time.Time) string {
	return date.In(ClinicZone).Format(dateLayout)
}

func defaultWindow(s Session) minuteWindow {
	if s == SessionEvening {
		return eveningWindow
	}
	return morningWindow
}

// parseClock reads a clinic-local "HH:MM" into minutes since midnight.
func parseClock(raw string) (int, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func atMinute(date time.Time, minutes int) time.Time {
	return ClinicDate(date).Add(time.Duration(minutes) * time.Minute)
}
