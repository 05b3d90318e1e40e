package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-queue-etc/internal/queue"
	redisclient "github.com/hackgods/clinic-queue-etc/internal/redis"
)

func recalcVisitHandler(svc RecalcService, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := recalcContext(r, "manual", timeout)
		defer cancel()

		res, err := svc.RecalcForVisit(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleRecalcError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toRecalcResponse(res))
	}
}

func recalcSessionHandler(svc RecalcService, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, session, ok := parseDateSession(w, r)
		if !ok {
			return
		}

		ctx, cancel := recalcContext(r, "manual", timeout)
		defer cancel()

		res, err := svc.RecalcForDateSession(ctx, date, session)
		if err != nil {
			handleRecalcError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toRecalcResponse(res))
	}
}

// visitChangedHook is called by the visit store after every visit write. It
// only recalculates when a queue-relevant field changed, and also refreshes
// the old session when a visit was deleted or moved between sessions.
func visitChangedHook(svc RecalcService, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VisitChangedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Before == nil && req.After == nil {
			writeError(w, http.StatusBadRequest, "missing_visit", "before or after is required")
			return
		}

		before, after := req.Before.toVisit(), req.After.toVisit()
		if !queue.VisitChanged(before, after) {
			writeJSON(w, http.StatusOK, RecalcBatchResponse{Results: []RecalcResponse{{Outcome: "unchanged"}}})
			return
		}

		ctx, cancel := recalcContext(r, "hook", timeout)
		defer cancel()

		var results []RecalcResponse
		if after != nil {
			res, err := svc.RecalcForVisit(ctx, after.ID)
			if err != nil {
				handleRecalcError(w, err)
				return
			}
			results = append(results, toRecalcResponse(res))
		}

		if date, session, moved := movedFrom(before, after); moved {
			res, err := svc.RecalcForDateSession(ctx, date, session)
			if err != nil {
				handleRecalcError(w, err)
				return
			}
			results = append(results, toRecalcResponse(res))
		}

		writeJSON(w, http.StatusOK, RecalcBatchResponse{Results: results})
	}
}

// movedFrom reports the session a visit left, if it was deleted or its slot
// changed session.
func movedFrom(before, after *queue.Visit) (time.Time, queue.Session, bool) {
	if before == nil || before.SlotTime == nil {
		return time.Time{}, "", false
	}
	oldSession := queue.DeriveSession(*before.SlotTime)
	if oldSession == queue.SessionNone {
		return time.Time{}, "", false
	}
	oldDate := queue.ClinicDate(*before.SlotTime)
	if after != nil && after.SlotTime != nil &&
		queue.DeriveSession(*after.SlotTime) == oldSession &&
		queue.ClinicDate(*after.SlotTime).Equal(oldDate) {
		return time.Time{}, "", false
	}
	return oldDate, oldSession, true
}

func settingsChangedHook(svc RecalcService, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := recalcContext(r, "settings", timeout)
		defer cancel()

		results, err := svc.RecalcToday(ctx)
		resp := RecalcBatchResponse{Results: make([]RecalcResponse, 0, len(results))}
		for _, res := range results {
			resp.Results = append(resp.Results, toRecalcResponse(res))
		}
		if err != nil {
			handleRecalcError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func sessionQueueHandler(svc RecalcService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, session, ok := parseDateSession(w, r)
		if !ok {
			return
		}

		visits, err := svc.SessionQueue(r.Context(), date, session)
		if err != nil {
			handleRecalcError(w, err)
			return
		}

		resp := make([]QueueEntryResponse, 0, len(visits))
		for _, v := range visits {
			resp = append(resp, toQueueEntry(v))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseDateSession(w http.ResponseWriter, r *http.Request) (time.Time, queue.Session, bool) {
	date, err := queue.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return time.Time{}, "", false
	}
	session, err := queue.ParseSession(chi.URLParam(r, "session"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session", "session must be morning or evening")
		return time.Time{}, "", false
	}
	return date, session, true
}

func recalcContext(r *http.Request, trigger string, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(queue.WithTrigger(r.Context(), trigger), timeout)
}

func handleRecalcError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrInvalidSession):
		writeError(w, http.StatusBadRequest, "invalid_session", err.Error())
	case errors.Is(err, queue.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "recalc_in_progress", "session is being recalculated, please retry shortly")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "recalc_timeout", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
