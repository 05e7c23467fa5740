package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/availability"
)

func addAvailabilityHandler(m *availability.Manager, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RangeRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		slot, err := m.AddAvailability(r.Context(), CallerFrom(r.Context()), req.Range())
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, toSlotResponse(*slot))
	}
}

func listAvailabilityHandler(m *availability.Manager, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseDateQuery(w, r)
		if !ok {
			return
		}

		slots, err := m.ListAvailability(r.Context(), CallerFrom(r.Context()), date)
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func updateAvailabilityHandler(m *availability.Manager, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		var req SlotRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		slot, err := m.UpdateAvailability(r.Context(), CallerFrom(r.Context()), id, availability.SlotUpdate{
			Range:  req.Range(),
			IsOpen: req.IsOpen,
		})
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(*slot))
	}
}

func adminUpdateAvailabilityHandler(m *availability.Manager, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseID(w, r, "doctorID")
		if !ok {
			return
		}
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		var req SlotRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		slot, err := m.AdminUpdateAvailability(r.Context(), CallerFrom(r.Context()), doctorID, id, availability.SlotUpdate{
			Range:  req.Range(),
			IsOpen: req.IsOpen,
		})
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(*slot))
	}
}

func deleteAvailabilityHandler(m *availability.Manager, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		if err := m.DeleteAvailability(r.Context(), CallerFrom(r.Context()), id); err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// doctorAvailabilityHandler is the public view of one doctor's slots.
func doctorAvailabilityHandler(m *availability.Manager, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		date, ok := parseDateQuery(w, r)
		if !ok {
			return
		}

		slots, err := m.ListForDoctor(r.Context(), doctorID, date)
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func availableDoctorsHandler(m *availability.Manager, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := m.FindAvailableDoctors(r.Context(), r.URL.Query().Get("name"))
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}

		out := make([]DoctorSlotResponse, 0, len(found))
		for _, ds := range found {
			out = append(out, DoctorSlotResponse{Doctor: doctorParty(ds.Doctor), Slot: toSlotResponse(ds.Slot)})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
