package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

// Detail is an appointment with its parties, copied out of the store.
type Detail struct {
	Appointment appointment.Appointment
	Doctor      directory.Doctor
	Patient     directory.Patient
}

func (d Detail) subject() notification.Subject {
	return notification.Subject{
		AppointmentID: d.Appointment.ID,
		DoctorID:      d.Doctor.ID,
		DoctorName:    d.Doctor.Name,
		PatientID:     d.Patient.ID,
		PatientName:   d.Patient.Name,
		Range:         d.Appointment.Range(),
	}
}

// Request is what a patient submits to book.
type Request struct {
	DoctorID uuid.UUID
	Range    timeslot.Range
	Reason   *string
}

// Stats is the doctor dashboard summary.
type Stats struct {
	TodayAppointments int64 `json:"today_appointments"`
	TotalPatients     int64 `json:"total_patients"`
	PendingReviews    int64 `json:"pending_reviews"`
}

// parties caches directory lookups while hydrating a list.
type parties struct {
	dir      directory.Repository
	doctors  map[uuid.UUID]directory.Doctor
	patients map[uuid.UUID]directory.Patient
}

func newParties(dir directory.Repository) *parties {
	return &parties{
		dir:      dir,
		doctors:  make(map[uuid.UUID]directory.Doctor),
		patients: make(map[uuid.UUID]directory.Patient),
	}
}

func (p *parties) detail(ctx context.Context, a appointment.Appointment) (*Detail, error) {
	doc, ok := p.doctors[a.DoctorID]
	if !ok {
		found, err := p.dir.GetDoctorByID(ctx, a.DoctorID)
		if err != nil {
			return nil, fmt.Errorf("load doctor %s: %w", a.DoctorID, err)
		}
		doc = *found
		p.doctors[doc.ID] = doc
	}

	pat, ok := p.patients[a.PatientID]
	if !ok {
		found, err := p.dir.GetPatientByID(ctx, a.PatientID)
		if err != nil {
			return nil, fmt.Errorf("load patient %s: %w", a.PatientID, err)
		}
		pat = *found
		p.patients[pat.ID] = pat
	}

	return &Detail{Appointment: a, Doctor: doc, Patient: pat}, nil
}

func hydrate(ctx context.Context, dir directory.Repository, a appointment.Appointment) (*Detail, error) {
	return newParties(dir).detail(ctx, a)
}
