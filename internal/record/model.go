package record

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var ErrRecordExists = apperr.New(apperr.ErrConflict, "a medical record already exists for this appointment")

type Prescription struct {
	MedicationName string `json:"medication_name"`
	Dosage         string `json:"dosage"`
	Instructions   string `json:"instructions,omitempty"`
}

// MedicalRecord is written once when a confirmed appointment completes.
type MedicalRecord struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	Reason        *string
	Diagnosis     *string
	Notes         *string
	Prescriptions []Prescription
	CreatedAt     time.Time
}

// ClinicalData is what the doctor supplies when completing an appointment.
type ClinicalData struct {
	Diagnosis     *string
	Notes         *string
	Prescriptions []Prescription
}

// Repository must refuse a second record for the same appointment with
// ErrRecordExists. Lists are newest first.
type Repository interface {
	Create(ctx context.Context, r MedicalRecord) (*MedicalRecord, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]MedicalRecord, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]MedicalRecord, error)
}
