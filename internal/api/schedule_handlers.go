package api

import (
	"net/http"
	"time"

	"github.com/hackgods/careslot/internal/appointment"
	"github.com/hackgods/careslot/internal/schedule"
)

func listWindowsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := uuidParam(w, r, "providerID")
		if !ok {
			return
		}

		windows, err := svc.ScheduleWindows(r.Context(), providerID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := make([]WindowResponse, 0, len(windows))
		for _, win := range windows {
			resp = append(resp, toWindowResponse(win))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func addWindowHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := uuidParam(w, r, "providerID")
		if !ok {
			return
		}
		var req WindowRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		start, err := schedule.ParseClock(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
			return
		}
		end, err := schedule.ParseClock(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", err.Error())
			return
		}

		saved, err := svc.AddScheduleWindow(r.Context(), schedule.Window{
			ProviderID:  providerID,
			DayOfWeek:   time.Weekday(req.DayOfWeek),
			Start:       start,
			End:         end,
			SlotMinutes: req.SlotDurationMinutes,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toWindowResponse(*saved))
	}
}

func deleteWindowHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := uuidParam(w, r, "providerID")
		if !ok {
			return
		}
		windowID, ok := uuidParam(w, r, "windowID")
		if !ok {
			return
		}

		if err := svc.RemoveScheduleWindow(r.Context(), providerID, windowID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func addBreakHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := uuidParam(w, r, "providerID")
		if !ok {
			return
		}
		var req BreakRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b := schedule.Break{ProviderID: providerID, Label: req.Label}
		var err error
		if b.Start, err = schedule.ParseClock(req.StartTime); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
			return
		}
		if b.End, err = schedule.ParseClock(req.EndTime); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", err.Error())
			return
		}
		if req.DayOfWeek != nil {
			day := time.Weekday(*req.DayOfWeek)
			b.DayOfWeek = &day
		}
		if req.Date != "" {
			d, err := schedule.ParseDate(req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
				return
			}
			b.Date = &d
		}

		saved, err := svc.AddBreakWindow(r.Context(), b)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBreakResponse(*saved))
	}
}

func listBreaksHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := uuidParam(w, r, "providerID")
		if !ok {
			return
		}
		date, ok := dateQuery(w, r, "date", true)
		if !ok {
			return
		}

		breaks, err := svc.BreakWindows(r.Context(), providerID, *date)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := make([]BreakResponse, 0, len(breaks))
		for _, b := range breaks {
			resp = append(resp, toBreakResponse(b))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func deleteBreakHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := uuidParam(w, r, "providerID")
		if !ok {
			return
		}
		breakID, ok := uuidParam(w, r, "breakID")
		if !ok {
			return
		}

		if err := svc.RemoveBreakWindow(r.Context(), providerID, breakID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
