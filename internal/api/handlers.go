package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/booking"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+param, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseDateQuery reads an optional ?date=YYYY-MM-DD.
func parseDateQuery(w http.ResponseWriter, r *http.Request) (*timeslot.Date, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return nil, true
	}
	d, err := timeslot.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted as YYYY-MM-DD")
		return nil, false
	}
	return &d, true
}

func bookAppointmentHandler(engine *booking.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		doctorID := uuid.MustParse(req.DoctorID)
		rng := RangeRequest{Date: req.Date, StartTime: req.StartTime, EndTime: req.EndTime}.Range()

		detail, err := engine.BookAppointment(r.Context(), CallerFrom(r.Context()), booking.Request{
			DoctorID: doctorID,
			Range:    rng,
			Reason:   req.Reason,
		})
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*detail))
	}
}

func listAppointmentsHandler(engine *booking.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := engine.ListForCaller(r.Context(), CallerFrom(r.Context()))
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(list))
	}
}

func todayAppointmentsHandler(engine *booking.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := engine.TodayForDoctor(r.Context(), CallerFrom(r.Context()))
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(list))
	}
}

func getAppointmentHandler(engine *booking.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		detail, err := engine.GetAppointment(r.Context(), CallerFrom(r.Context()), id)
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*detail))
	}
}

func confirmAppointmentHandler(engine *booking.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		detail, err := engine.ConfirmAppointment(r.Context(), CallerFrom(r.Context()), id)
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*detail))
	}
}

func rejectAppointmentHandler(engine *booking.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		var req RejectRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		detail, err := engine.RejectAppointment(r.Context(), CallerFrom(r.Context()), id, req.Reason)
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*detail))
	}
}

func cancelAppointmentHandler(engine *booking.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		detail, err := engine.CancelAppointment(r.Context(), CallerFrom(r.Context()), id)
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*detail))
	}
}

func rescheduleAppointmentHandler(engine *booking.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		var req RangeRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		detail, err := engine.RescheduleAppointment(r.Context(), CallerFrom(r.Context()), id, req.Range())
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*detail))
	}
}

func completeAppointmentHandler(engine *booking.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		var req CompleteRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		detail, rec, err := engine.CompleteWithRecord(r.Context(), CallerFrom(r.Context()), id, req.ClinicalData())
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, CompleteResponse{
			Appointment: toAppointmentResponse(*detail),
			Record:      toRecordResponse(*rec),
		})
	}
}

func doctorStatsHandler(engine *booking.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := engine.DoctorStats(r.Context(), CallerFrom(r.Context()))
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
