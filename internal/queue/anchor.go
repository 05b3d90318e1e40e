package queue

import "time"

// staleOnlineGrace is how long past session end an online flag survives
// before a run turns it off.
const staleOnlineGrace = 2 * time.Hour

type EffectKind string

const (
	EffectClearStartDelay EffectKind = "clear_start_delay"
	EffectAutoOffline     EffectKind = "auto_offline"
)

// SettingsEffect is a settings write requested by the anchor computation.
// Effects are applied best-effort after the anchor is already in use.
type SettingsEffect struct {
	Kind  EffectKind
	Patch DoctorStatusPatch
}

type AnchorInput struct {
	Now      time.Time
	Date     time.Time
	Schedule ScheduleConfig
	Doctor   DoctorStatus
	// Visits are the session's visits in token order.
	Visits []*Visit
}

type AnchorResult struct {
	Anchor  time.Time
	Effects []SettingsEffect
}

// ComputeAnchor returns the instant the doctor is next free to see a
// waiting patient. It is the zero point of both ETC walks.
func ComputeAnchor(in AnchorInput) AnchorResult {
	if v := activeConsultation(in.Visits); v != nil {
		d := in.Schedule.SlotDuration
		if v.ConsultationMinutes != nil {
			d = time.Duration(*v.ConsultationMinutes) * time.Minute
		}
		return AnchorResult{Anchor: later(in.Now, v.ConsultationStartTime.Add(d))}
	}

	doc := in.Doctor
	if doc.IsOnline && doc.OnlineTime != nil {
		var res AnchorResult
		if ClinicDate(*doc.OnlineTime).Equal(ClinicDate(in.Date)) {
			res.Anchor = later(in.Now, *doc.OnlineTime)
			if doc.StartDelay > 0 {
				zero := 0
				res.Effects = append(res.Effects, SettingsEffect{
					Kind:  EffectClearStartDelay,
					Patch: DoctorStatusPatch{StartDelay: &zero},
				})
			}
		} else {
			res.Anchor = later(in.Now, in.Schedule.Start)
		}

		if in.Now.After(in.Schedule.End.Add(staleOnlineGrace)) {
			off, zero := false, 0
			res.Effects = append(res.Effects, SettingsEffect{
				Kind:  EffectAutoOffline,
				Patch: DoctorStatusPatch{IsOnline: &off, StartDelay: &zero, ClearOnlineTime: true},
			})
		}
		return res
	}

	anchor := later(in.Now, in.Schedule.Start)
	if doc.StartDelay > 0 {
		anchor = anchor.Add(time.Duration(doc.StartDelay) * time.Minute)
	}
	return AnchorResult{Anchor: anchor}
}

func activeConsultation(visits []*Visit) *Visit {
	for _, v := range visits {
		if v.Status == StatusInConsultation && v.ConsultationStartTime != nil {
			return v
		}
	}
	return nil
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
