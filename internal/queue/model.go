package queue

import (
	"strings"
	"time"
)

type Status string

const (
	StatusUnknown           Status = ""
	StatusBooked            Status = "booked"
	StatusWalkInBooked      Status = "walk_in_booked"
	StatusWaiting           Status = "waiting"
	StatusUpNext            Status = "up_next"
	StatusInConsultation    Status = "in_consultation"
	StatusWaitingForReports Status = "waiting_for_reports"
	StatusPriority          Status = "priority"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
)

var allStatuses = []Status{
	StatusBooked,
	StatusWalkInBooked,
	StatusWaiting,
	StatusUpNext,
	StatusInConsultation,
	StatusWaitingForReports,
	StatusPriority,
	StatusCompleted,
	StatusCancelled,
}

// ParseStatus maps an external status label onto the closed Status set.
// Matching ignores case and treats spaces, dashes and underscores alike, so
// "Up-Next", "up next" and "UP_NEXT" all yield StatusUpNext.
func ParseStatus(raw string) Status {
	key := compactLabel(raw)
	if key == "" {
		return StatusUnknown
	}
	for _, s := range allStatuses {
		if compactLabel(string(s)) == key {
			return s
		}
	}
	return StatusUnknown
}

func compactLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == ' ' || r == '-' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Terminal reports whether the visit is finished for the day.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type VisitType string

const (
	VisitAppointment VisitType = "appointment"
	VisitWalkIn      VisitType = "walk_in"
)

func ParseVisitType(raw string) VisitType {
	if compactLabel(raw) == "walkin" {
		return VisitWalkIn
	}
	return VisitAppointment
}

type Visit struct {
	ID                    string
	SlotTime              *time.Time
	TokenNo               int
	Status                Status
	Type                  VisitType
	CheckInTime           *time.Time
	ConsultationStartTime *time.Time
	ConsultationEndTime   *time.Time
	ConsultationMinutes   *int
	LateLocked            bool
	LateAnchors           []string
	BestCaseETC           *time.Time
	WorstCaseETC          *time.Time
}

func (v *Visit) CheckedIn() bool {
	return v.CheckInTime != nil
}

// Closure closes one session of one clinic-local date.
type Closure struct {
	Date    string  `json:"date"`
	Session Session `json:"session"`
}

// SessionOverride replaces the session window for one date. Start and End
// are clinic-local "HH:MM".
type SessionOverride struct {
	Date    string  `json:"date"`
	Session Session `json:"session"`
	Start   string  `json:"start"`
	End     string  `json:"end"`
}

type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DoctorStatus struct {
	IsOnline   bool       `json:"isOnline"`
	OnlineTime *time.Time `json:"onlineTime"`
	StartDelay int        `json:"startDelay"`
}

type ClinicSettings struct {
	SlotDuration    int                           `json:"slotDuration"`
	SpecialClosures []Closure                     `json:"specialClosures"`
	Overrides       []SessionOverride             `json:"overrides"`
	WeeklyDefaults  map[string]map[Session]Window `json:"weeklyDefaults,omitempty"`
	DoctorStatus    DoctorStatus                  `json:"doctorStatus"`
}

const DefaultSlotMinutes = 5

// DefaultSettings is what a run uses when no settings document exists.
func DefaultSettings() ClinicSettings {
	return ClinicSettings{SlotDuration: DefaultSlotMinutes}
}

// DoctorStatusPatch is a merge-patch over DoctorStatus. Nil fields are left
// untouched; ClearOnlineTime writes a null onlineTime.
type DoctorStatusPatch struct {
	IsOnline        *bool
	StartDelay      *int
	ClearOnlineTime bool
}

// Fields renders the patch as the JSON object merged into the stored
// doctorStatus document.
func (p DoctorStatusPatch) Fields() map[string]any {
	out := make(map[string]any)
	if p.IsOnline != nil {
		out["isOnline"] = *p.IsOnline
	}
	if p.StartDelay != nil {
		out["startDelay"] = *p.StartDelay
	}
	if p.ClearOnlineTime {
		out["onlineTime"] = nil
	}
	return out
}
