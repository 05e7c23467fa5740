package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/booking"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/record"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

// Requests

type BookAppointmentRequest struct {
	DoctorID  string  `json:"doctor_id" validate:"required,uuid"`
	Date      string  `json:"date" validate:"required,date"`
	StartTime string  `json:"start_time" validate:"required,clock"`
	EndTime   string  `json:"end_time" validate:"required,clock"`
	Reason    *string `json:"reason" validate:"omitempty,max=500"`
}

type RangeRequest struct {
	Date      string `json:"date" validate:"required,date"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

type SlotRequest struct {
	RangeRequest
	IsOpen *bool `json:"is_open"`
}

type RejectRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

type PrescriptionRequest struct {
	MedicationName string `json:"medication_name" validate:"required,max=200"`
	Dosage         string `json:"dosage" validate:"required,max=100"`
	Instructions   string `json:"instructions" validate:"max=500"`
}

type CompleteRequest struct {
	Diagnosis     *string               `json:"diagnosis" validate:"omitempty,max=2000"`
	Notes         *string               `json:"notes" validate:"omitempty,max=4000"`
	Prescriptions []PrescriptionRequest `json:"prescriptions" validate:"dive"`
}

// Range parses an already validated request.
func (r RangeRequest) Range() timeslot.Range {
	date, _ := timeslot.ParseDate(r.Date)
	start, _ := timeslot.ParseTimeOfDay(r.StartTime)
	end, _ := timeslot.ParseTimeOfDay(r.EndTime)
	return timeslot.Range{Date: date, Start: start, End: end}
}

func (r CompleteRequest) ClinicalData() record.ClinicalData {
	data := record.ClinicalData{Diagnosis: r.Diagnosis, Notes: r.Notes}
	for _, p := range r.Prescriptions {
		data.Prescriptions = append(data.Prescriptions, record.Prescription{
			MedicationName: p.MedicationName,
			Dosage:         p.Dosage,
			Instructions:   p.Instructions,
		})
	}
	return data
}

// Responses

type PartyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
}

type AppointmentResponse struct {
	ID        uuid.UUID          `json:"appointment_id"`
	Date      timeslot.Date      `json:"date"`
	StartTime timeslot.TimeOfDay `json:"start_time"`
	EndTime   timeslot.TimeOfDay `json:"end_time"`
	Status    appointment.Status `json:"status"`
	Reason    *string            `json:"reason"`
	Version   int                `json:"version"`
	Patient   PartyResponse      `json:"patient"`
	Doctor    PartyResponse      `json:"doctor"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type SlotResponse struct {
	ID        uuid.UUID          `json:"id"`
	DoctorID  uuid.UUID          `json:"doctor_id"`
	Date      timeslot.Date      `json:"date"`
	StartTime timeslot.TimeOfDay `json:"start_time"`
	EndTime   timeslot.TimeOfDay `json:"end_time"`
	IsOpen    bool               `json:"is_open"`
}

type DoctorSlotResponse struct {
	Doctor PartyResponse `json:"doctor"`
	Slot   SlotResponse  `json:"slot"`
}

type RecordResponse struct {
	ID            uuid.UUID             `json:"id"`
	AppointmentID uuid.UUID             `json:"appointment_id"`
	DoctorID      uuid.UUID             `json:"doctor_id"`
	PatientID     uuid.UUID             `json:"patient_id"`
	Reason        *string               `json:"reason"`
	Diagnosis     *string               `json:"diagnosis"`
	Notes         *string               `json:"notes"`
	Prescriptions []record.Prescription `json:"prescriptions"`
	CreatedAt     time.Time             `json:"created_at"`
}

type CompleteResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	Record      RecordResponse      `json:"record"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

// Projections

func doctorParty(d directory.Doctor) PartyResponse {
	return PartyResponse{ID: d.ID, Name: d.Name, Specialty: d.Specialty}
}

func toAppointmentResponse(d booking.Detail) AppointmentResponse {
	a := d.Appointment
	return AppointmentResponse{
		ID:        a.ID,
		Date:      a.Date,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Status:    a.Status,
		Reason:    a.Reason,
		Version:   a.Version,
		Patient:   PartyResponse{ID: d.Patient.ID, Name: d.Patient.Name},
		Doctor:    doctorParty(d.Doctor),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAppointmentResponses(list []booking.Detail) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for _, d := range list {
		out = append(out, toAppointmentResponse(d))
	}
	return out
}

func toSlotResponse(s availability.Slot) SlotResponse {
	return SlotResponse{
		ID:        s.ID,
		DoctorID:  s.DoctorID,
		Date:      s.Date,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		IsOpen:    s.IsOpen,
	}
}

func toSlotResponses(list []availability.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSlotResponse(s))
	}
	return out
}

func toRecordResponse(r record.MedicalRecord) RecordResponse {
	prescriptions := r.Prescriptions
	if prescriptions == nil {
		prescriptions = []record.Prescription{}
	}
	return RecordResponse{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		DoctorID:      r.DoctorID,
		PatientID:     r.PatientID,
		Reason:        r.Reason,
		Diagnosis:     r.Diagnosis,
		Notes:         r.Notes,
		Prescriptions: prescriptions,
		CreatedAt:     r.CreatedAt,
	}
}
