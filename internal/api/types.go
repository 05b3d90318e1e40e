package api

import (
	"time"

	"github.com/hackgods/clinic-queue-etc/internal/queue"
)

// VisitPayload is the external shape of a visit as sent by the visit store's
// change hook. Status and type are free-form labels normalised on decode.
type VisitPayload struct {
	ID                    string     `json:"id"`
	SlotTime              *time.Time `json:"slotTime"`
	TokenNo               int        `json:"tokenNo"`
	Status                string     `json:"status"`
	Type                  string     `json:"type"`
	CheckInTime           *time.Time `json:"checkInTime"`
	ConsultationStartTime *time.Time `json:"consultationStartTime"`
	ConsultationEndTime   *time.Time `json:"consultationEndTime"`
	ConsultationTime      *int       `json:"consultationTime"`
	LateLocked            bool       `json:"lateLocked"`
	LateAnchors           []string   `json:"lateAnchors"`
}

func (p *VisitPayload) toVisit() *queue.Visit {
	if p == nil {
		return nil
	}
	return &queue.Visit{
		ID:                    p.ID,
		SlotTime:              p.SlotTime,
		TokenNo:               p.TokenNo,
		Status:                queue.ParseStatus(p.Status),
		Type:                  queue.ParseVisitType(p.Type),
		CheckInTime:           p.CheckInTime,
		ConsultationStartTime: p.ConsultationStartTime,
		ConsultationEndTime:   p.ConsultationEndTime,
		ConsultationMinutes:   p.ConsultationTime,
		LateLocked:            p.LateLocked,
		LateAnchors:           p.LateAnchors,
	}
}

type VisitChangedRequest struct {
	Before *VisitPayload `json:"before"`
	After  *VisitPayload `json:"after"`
}

type RecalcResponse struct {
	Date       string     `json:"date,omitempty"`
	Session    string     `json:"session,omitempty"`
	Outcome    string     `json:"outcome"`
	Anchor     *time.Time `json:"anchor,omitempty"`
	Patches    int        `json:"patches"`
	BestQueue  []string   `json:"best_queue,omitempty"`
	WorstQueue []string   `json:"worst_queue,omitempty"`
	Effects    []string   `json:"effects,omitempty"`
}

type RecalcBatchResponse struct {
	Results []RecalcResponse `json:"results"`
}

type QueueEntryResponse struct {
	ID           string     `json:"id"`
	TokenNo      int        `json:"token_no"`
	Status       string     `json:"status"`
	Type         string     `json:"type"`
	CheckedIn    bool       `json:"checked_in"`
	LateLocked   bool       `json:"late_locked"`
	BestCaseETC  *time.Time `json:"best_case_etc,omitempty"`
	WorstCaseETC *time.Time `json:"worst_case_etc,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// placeholderLabel marks an unheld token in a worst-case queue listing.
const placeholderLabel = "-"

func toRecalcResponse(res *queue.Result) RecalcResponse {
	resp := RecalcResponse{
		Outcome: string(res.Outcome),
		Patches: len(res.Patches),
	}
	if !res.Date.IsZero() {
		resp.Date = queue.FormatDate(res.Date)
		resp.Session = string(res.Session)
	}
	if !res.Anchor.IsZero() {
		anchor := res.Anchor
		resp.Anchor = &anchor
	}
	for _, v := range res.Queues.Best {
		resp.BestQueue = append(resp.BestQueue, v.ID)
	}
	for _, s := range res.Queues.Worst {
		if s.Placeholder() {
			resp.WorstQueue = append(resp.WorstQueue, placeholderLabel)
			continue
		}
		resp.WorstQueue = append(resp.WorstQueue, s.Visit.ID)
	}
	for _, e := range res.Effects {
		resp.Effects = append(resp.Effects, string(e.Kind))
	}
	return resp
}

func toQueueEntry(v *queue.Visit) QueueEntryResponse {
	return QueueEntryResponse{
		ID:           v.ID,
		TokenNo:      v.TokenNo,
		Status:       string(v.Status),
		Type:         string(v.Type),
		CheckedIn:    v.CheckedIn(),
		LateLocked:   v.LateLocked,
		BestCaseETC:  v.BestCaseETC,
		WorstCaseETC: v.WorstCaseETC,
	}
}
